package registration

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// A registration with no recorded attempt may still be in the middle of its
// first send, so it is left alone until it is this old.
const defaultFirstDeliveryGrace = 5 * time.Minute

// Retrier re-sends tickets for registrations whose email never went out.
type Retrier struct {
	repo               Repository
	issuer             *Issuer
	logger             *slog.Logger
	maxAttempts        int
	firstDeliveryGrace time.Duration
	newBackOff         func() backoff.BackOff
	now                func() time.Time
}

func NewRetrier(repo Repository, issuer *Issuer, logger *slog.Logger, maxAttempts int) *Retrier {
	return &Retrier{
		repo:               repo,
		issuer:             issuer,
		logger:             logger,
		maxAttempts:        maxAttempts,
		firstDeliveryGrace: defaultFirstDeliveryGrace,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
		now: time.Now,
	}
}

// RetryPending makes one delivery pass and returns how many tickets went out.
func (r *Retrier) RetryPending(ctx context.Context) (int, error) {
	pending, err := r.repo.GetPendingDeliveries(ctx)
	if err != nil {
		return 0, err
	}

	now := r.now()
	delivered := 0
	for _, reg := range pending {
		if r.maxAttempts > 0 && reg.DeliveryAttempts >= r.maxAttempts {
			continue
		}
		if r.firstSendInFlight(reg, now) {
			continue
		}

		current := reg
		_, err := backoff.Retry(ctx, func() (Registration, error) {
			updated, err := r.issuer.Redeliver(ctx, current)
			current = updated

			var regErr *Error
			if errors.As(err, &regErr) && regErr.Reason != REASON_TICKET_DELIVERY_FAILED {
				return updated, backoff.Permanent(err)
			}
			return updated, err
		},
			backoff.WithBackOff(r.newBackOff()),
			backoff.WithMaxTries(uint(r.triesLeft(current))),
		)
		if err != nil {
			r.logger.WarnContext(ctx, "ticket redelivery failed",
				slog.String("registration-id", reg.ID.String()),
				slog.Int("attempts", current.DeliveryAttempts),
				slog.String("error", err.Error()),
			)
			if ctx.Err() != nil {
				return delivered, ctx.Err()
			}
			continue
		}

		delivered++
		r.logger.InfoContext(ctx, "ticket redelivered",
			slog.String("registration-id", reg.ID.String()),
			slog.Int("attempts", current.DeliveryAttempts),
		)
	}

	return delivered, nil
}

// firstSendInFlight reports whether Register may still be sending the ticket.
// Old registrations with no attempt are picked up so a crash mid-send is recovered.
func (r *Retrier) firstSendInFlight(reg Registration, now time.Time) bool {
	return reg.DeliveryAttempts == 0 && now.Sub(reg.RegisteredAt) < r.firstDeliveryGrace
}

func (r *Retrier) triesLeft(reg Registration) int {
	const perPass = 3
	if r.maxAttempts <= 0 {
		return perPass
	}
	return min(perPass, r.maxAttempts-reg.DeliveryAttempts)
}

// Run calls RetryPending every interval until ctx is done.
func (r *Retrier) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("ticket delivery retrier started", slog.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("ticket delivery retrier stopped")
			return
		case <-ticker.C:
			if _, err := r.RetryPending(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("ticket delivery pass failed", slog.String("error", err.Error()))
			}
		}
	}
}
