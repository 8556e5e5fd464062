package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/International-Combat-Archery-Alliance/team-tickets/registration"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistration(team string) registration.Registration {
	return registration.Registration{
		ID:            uuid.New(),
		Version:       1,
		RegisteredAt:  time.Now(),
		TeamName:      team,
		Leader:        registration.Participant{Name: "Asha", Email: "asha@example.com", Mobile: "9876543210", RegNo: "21BCE1001"},
		Members:       []registration.Participant{{Name: "Ben"}, {Name: "Chen"}, {Name: "Dev"}, {Name: "Eli"}},
		TransactionID: "TXN-1",
	}
}

func requireReason(t *testing.T, err error, reason registration.ErrorReason) {
	t.Helper()
	var regErr *registration.Error
	require.True(t, errors.As(err, &regErr), "expected registration error, got %v", err)
	assert.Equal(t, reason, regErr.Reason)
}

func TestCreateAndGetRegistration(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		db := NewDB()
		reg := newRegistration("Byte Busters")
		require.NoError(t, db.CreateRegistration(ctx, reg))

		got, err := db.GetRegistration(ctx, reg.ID)
		require.NoError(t, err)
		if diff := cmp.Diff(reg, got); diff != "" {
			t.Errorf("registration mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("duplicate id", func(t *testing.T) {
		db := NewDB()
		reg := newRegistration("Byte Busters")
		require.NoError(t, db.CreateRegistration(ctx, reg))

		requireReason(t, db.CreateRegistration(ctx, reg), registration.REASON_REGISTRATION_ALREADY_EXISTS)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := NewDB().GetRegistration(ctx, uuid.New())
		requireReason(t, err, registration.REASON_REGISTRATION_DOES_NOT_EXIST)
	})

	t.Run("returned copies do not alias the store", func(t *testing.T) {
		db := NewDB()
		reg := newRegistration("Byte Busters")
		require.NoError(t, db.CreateRegistration(ctx, reg))

		got, err := db.GetRegistration(ctx, reg.ID)
		require.NoError(t, err)
		got.Members[0].Name = "changed"

		again, err := db.GetRegistration(ctx, reg.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ben", again.Members[0].Name)
	})
}

func TestGetAllRegistrations(t *testing.T) {
	ctx := context.Background()
	db := NewDB()

	all, err := db.GetAllRegistrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	for _, team := range []string{"one", "two", "three"} {
		require.NoError(t, db.CreateRegistration(ctx, newRegistration(team)))
	}

	all, err = db.GetAllRegistrations(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "one", all[0].TeamName)
	assert.Equal(t, "two", all[1].TeamName)
	assert.Equal(t, "three", all[2].TeamName)
}

func TestMarkScanned(t *testing.T) {
	ctx := context.Background()

	t.Run("pending to marked once", func(t *testing.T) {
		db := NewDB()
		reg := newRegistration("Byte Busters")
		require.NoError(t, db.CreateRegistration(ctx, reg))

		at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
		require.NoError(t, db.MarkScanned(ctx, reg.ID, at))

		got, err := db.GetRegistration(ctx, reg.ID)
		require.NoError(t, err)
		assert.True(t, got.Scanned)
		assert.Equal(t, at, got.ScannedAt)
		assert.Equal(t, 2, got.Version)

		requireReason(t, db.MarkScanned(ctx, reg.ID, at.Add(time.Hour)), registration.REASON_ALREADY_SCANNED)

		got, err = db.GetRegistration(ctx, reg.ID)
		require.NoError(t, err)
		assert.Equal(t, at, got.ScannedAt)
		assert.Equal(t, 2, got.Version)
	})

	t.Run("unknown id", func(t *testing.T) {
		requireReason(t, NewDB().MarkScanned(ctx, uuid.New(), time.Now()), registration.REASON_REGISTRATION_DOES_NOT_EXIST)
	})

	t.Run("concurrent scans mark exactly once", func(t *testing.T) {
		db := NewDB()
		reg := newRegistration("Byte Busters")
		require.NoError(t, db.CreateRegistration(ctx, reg))

		var marked atomic.Int32
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if db.MarkScanned(ctx, reg.ID, time.Now()) == nil {
					marked.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), marked.Load())
	})
}

func TestDeliveries(t *testing.T) {
	ctx := context.Background()
	db := NewDB()

	first := newRegistration("one")
	second := newRegistration("two")
	require.NoError(t, db.CreateRegistration(ctx, first))
	require.NoError(t, db.CreateRegistration(ctx, second))

	pending, err := db.GetPendingDeliveries(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, db.UpdateDelivery(ctx, first.ID, registration.DELIVERY_DELIVERED, 1))
	require.NoError(t, db.UpdateDelivery(ctx, second.ID, registration.DELIVERY_PENDING, 2))

	pending, err = db.GetPendingDeliveries(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
	assert.Equal(t, 2, pending[0].DeliveryAttempts)

	requireReason(t, db.UpdateDelivery(ctx, uuid.New(), registration.DELIVERY_DELIVERED, 1), registration.REASON_REGISTRATION_DOES_NOT_EXIST)
}
