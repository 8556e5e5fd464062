// Package memory keeps registrations in process memory. Everything is lost on restart.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/International-Combat-Archery-Alliance/team-tickets/registration"
	"github.com/google/uuid"
)

var _ registration.Repository = &DB{}

type DB struct {
	mu    sync.RWMutex
	order []uuid.UUID
	regs  map[uuid.UUID]*registration.Registration
}

func NewDB() *DB {
	return &DB{
		regs: map[uuid.UUID]*registration.Registration{},
	}
}

func (d *DB) CreateRegistration(ctx context.Context, reg registration.Registration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.regs[reg.ID]; ok {
		return registration.NewRegistrationAlreadyExistsError(fmt.Sprintf("Registration with ID %q already exists", reg.ID), nil)
	}

	stored := copyRegistration(reg)
	d.regs[reg.ID] = &stored
	d.order = append(d.order, reg.ID)

	return nil
}

func (d *DB) GetRegistration(ctx context.Context, id uuid.UUID) (registration.Registration, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	reg, ok := d.regs[id]
	if !ok {
		return registration.Registration{}, registration.NewRegistrationDoesNotExistsError(fmt.Sprintf("Registration with id %q not found", id), nil)
	}

	return copyRegistration(*reg), nil
}

func (d *DB) GetAllRegistrations(ctx context.Context) ([]registration.Registration, error) {
	return d.collect(func(registration.Registration) bool { return true }), nil
}

func (d *DB) GetPendingDeliveries(ctx context.Context) ([]registration.Registration, error) {
	return d.collect(func(r registration.Registration) bool {
		return r.Delivery == registration.DELIVERY_PENDING
	}), nil
}

func (d *DB) MarkScanned(ctx context.Context, id uuid.UUID, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	reg, ok := d.regs[id]
	if !ok {
		return registration.NewRegistrationDoesNotExistsError(fmt.Sprintf("Registration with id %q not found", id), nil)
	}
	if reg.Scanned {
		return registration.NewAlreadyScannedError(fmt.Sprintf("Registration with id %q was scanned at %s", id, reg.ScannedAt.Format(time.RFC3339)))
	}

	reg.Scanned = true
	reg.ScannedAt = at
	reg.Version++

	return nil
}

func (d *DB) UpdateDelivery(ctx context.Context, id uuid.UUID, status registration.DeliveryStatus, attempts int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	reg, ok := d.regs[id]
	if !ok {
		return registration.NewRegistrationDoesNotExistsError(fmt.Sprintf("Registration with id %q not found", id), nil)
	}

	reg.Delivery = status
	reg.DeliveryAttempts = attempts
	reg.Version++

	return nil
}

func (d *DB) collect(keep func(registration.Registration) bool) []registration.Registration {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := []registration.Registration{}
	for _, id := range d.order {
		reg := d.regs[id]
		if keep(*reg) {
			out = append(out, copyRegistration(*reg))
		}
	}
	return out
}

// Callers must never share the Members backing array with the store.
func copyRegistration(reg registration.Registration) registration.Registration {
	reg.Members = slices.Clone(reg.Members)
	return reg
}
