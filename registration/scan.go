package registration

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type ScanResult int

const (
	SCAN_INVALID ScanResult = iota
	SCAN_MARKED
	SCAN_ALREADY_SCANNED
)

func (r ScanResult) String() string {
	switch r {
	case SCAN_INVALID:
		return "INVALID"
	case SCAN_MARKED:
		return "MARKED"
	case SCAN_ALREADY_SCANNED:
		return "ALREADY_SCANNED"
	default:
		return "UNKNOWN"
	}
}

// Scan marks attendance for the registration behind a scan token.
// Unknown or malformed tokens are SCAN_INVALID rather than errors; the error
// is only set when the store itself failed.
func Scan(ctx context.Context, repo Repository, rawID string, now time.Time) (ScanResult, error) {
	ctx, span := tracer.Start(ctx, "registration.Scan", trace.WithAttributes(attribute.String("registration.id", rawID)))
	defer span.End()

	id, err := uuid.Parse(rawID)
	if err != nil {
		return SCAN_INVALID, nil
	}

	err = repo.MarkScanned(ctx, id, now)
	if err == nil {
		return SCAN_MARKED, nil
	}

	var regErr *Error
	if errors.As(err, &regErr) {
		switch regErr.Reason {
		case REASON_REGISTRATION_DOES_NOT_EXIST:
			return SCAN_INVALID, nil
		case REASON_ALREADY_SCANNED:
			return SCAN_ALREADY_SCANNED, nil
		}
	}

	span.RecordError(err)
	return SCAN_INVALID, err
}
