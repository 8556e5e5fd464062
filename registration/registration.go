package registration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const DefaultRequiredMembers = 4

type Repository interface {
	CreateRegistration(ctx context.Context, reg Registration) error
	GetRegistration(ctx context.Context, id uuid.UUID) (Registration, error)
	GetAllRegistrations(ctx context.Context) ([]Registration, error)
	// MarkScanned flips Scanned from false to true. It fails with
	// REASON_ALREADY_SCANNED when the registration was already marked.
	MarkScanned(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateDelivery(ctx context.Context, id uuid.UUID, status DeliveryStatus, attempts int) error
	GetPendingDeliveries(ctx context.Context) ([]Registration, error)
}

type Participant struct {
	Name   string
	Email  string
	Mobile string
	RegNo  string
}

type Registration struct {
	ID               uuid.UUID
	Version          int
	RegisteredAt     time.Time
	TeamName         string
	Leader           Participant
	Members          []Participant
	TransactionID    string
	ScreenshotRef    string
	Scanned          bool
	ScannedAt        time.Time
	Delivery         DeliveryStatus
	DeliveryAttempts int
}

type DeliveryStatus int

const (
	DELIVERY_PENDING DeliveryStatus = iota
	DELIVERY_DELIVERED
)

func (s DeliveryStatus) String() string {
	switch s {
	case DELIVERY_PENDING:
		return "PENDING"
	case DELIVERY_DELIVERED:
		return "DELIVERED"
	default:
		return "UNKNOWN"
	}
}

// Submission is what a team sends in to register.
type Submission struct {
	TeamName      string
	Leader        Participant
	Members       []Participant
	TransactionID string
}

// TeamSizeRule is the number of members required besides the leader.
type TeamSizeRule struct {
	RequiredMembers int
}

func (r TeamSizeRule) Validate(sub Submission) error {
	if len(sub.Members) != r.RequiredMembers {
		return NewTeamSizeNotAllowedError(len(sub.Members), r.RequiredMembers)
	}

	return nil
}

func IsScanned(reg Registration) bool {
	return reg.Scanned
}

func Filter(regs []Registration, keep func(Registration) bool) []Registration {
	out := []Registration{}
	for _, r := range regs {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
