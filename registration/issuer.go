package registration

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/International-Combat-Archery-Alliance/email"
	"github.com/International-Combat-Archery-Alliance/team-tickets/storage"
	"github.com/International-Combat-Archery-Alliance/team-tickets/ticket"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/International-Combat-Archery-Alliance/team-tickets/registration")

type Screenshot struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type IssuerConfig struct {
	PublicBaseURL string
	FromAddress   string
	TeamSize      TeamSizeRule
	EntryFee      EntryFee
}

// Issuer turns a submission into a stored registration and a delivered ticket.
type Issuer struct {
	repo        Repository
	uploader    storage.FileUploader
	emailSender email.Sender
	cfg         IssuerConfig
	now         func() time.Time
}

func NewIssuer(repo Repository, uploader storage.FileUploader, emailSender email.Sender, cfg IssuerConfig) *Issuer {
	return &Issuer{
		repo:        repo,
		uploader:    uploader,
		emailSender: emailSender,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Register stores the team and emails the ticket to the leader.
//
// Once the registration is stored it is always returned, even alongside an
// error. A failed email leaves it pending delivery with REASON_TICKET_DELIVERY_FAILED.
func (i *Issuer) Register(ctx context.Context, sub Submission, screenshot *Screenshot) (Registration, error) {
	ctx, span := tracer.Start(ctx, "registration.Register", trace.WithAttributes(
		attribute.String("team", sub.TeamName),
		attribute.Int("members", len(sub.Members)),
	))
	defer span.End()

	if err := i.cfg.TeamSize.Validate(sub); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Registration{}, err
	}

	now := i.now()

	screenshotRef := ""
	if screenshot != nil {
		key := storage.NewKey(screenshot.Filename, now)
		res, err := i.uploader.Upload(ctx, key, screenshot.ContentType, screenshot.Body)
		if err != nil {
			span.RecordError(err)
			return Registration{}, NewFailedToStoreScreenshotError("Failed to store payment screenshot", err)
		}
		screenshotRef = res.Key
	}

	id := uuid.New()
	span.SetAttributes(attribute.String("registration.id", id.String()))

	tkt, err := ticket.New(i.cfg.PublicBaseURL, id)
	if err != nil {
		i.discardScreenshot(ctx, screenshotRef)
		span.RecordError(err)
		return Registration{}, NewFailedToCreateTicketError("Failed to create QR ticket", err)
	}

	reg := Registration{
		ID:            id,
		Version:       1,
		RegisteredAt:  now,
		TeamName:      sub.TeamName,
		Leader:        sub.Leader,
		Members:       sub.Members,
		TransactionID: sub.TransactionID,
		ScreenshotRef: screenshotRef,
		Scanned:       false,
		Delivery:      DELIVERY_PENDING,
	}

	if err := i.repo.CreateRegistration(ctx, reg); err != nil {
		i.discardScreenshot(ctx, screenshotRef)
		span.RecordError(err)
		return Registration{}, err
	}

	return i.deliver(ctx, reg, tkt)
}

// Redeliver re-sends the ticket for an already stored registration.
func (i *Issuer) Redeliver(ctx context.Context, reg Registration) (Registration, error) {
	ctx, span := tracer.Start(ctx, "registration.Redeliver", trace.WithAttributes(
		attribute.String("registration.id", reg.ID.String()),
		attribute.Int("attempts", reg.DeliveryAttempts),
	))
	defer span.End()

	tkt, err := ticket.New(i.cfg.PublicBaseURL, reg.ID)
	if err != nil {
		span.RecordError(err)
		return reg, NewFailedToCreateTicketError("Failed to create QR ticket", err)
	}

	return i.deliver(ctx, reg, tkt)
}

func (i *Issuer) deliver(ctx context.Context, reg Registration, tkt ticket.Ticket) (Registration, error) {
	reg.DeliveryAttempts++

	sendErr := SendTicketEmail(ctx, i.emailSender, i.cfg.FromAddress, i.cfg.EntryFee, reg, tkt)
	if sendErr == nil {
		reg.Delivery = DELIVERY_DELIVERED
	}

	if err := i.repo.UpdateDelivery(ctx, reg.ID, reg.Delivery, reg.DeliveryAttempts); err != nil {
		if sendErr == nil {
			// The ticket went out but may be sent again by the retrier.
			return reg, NewFailedToWriteError(fmt.Sprintf("Ticket sent but delivery status of %q not saved", reg.ID), err)
		}
	}

	if sendErr != nil {
		trace.SpanFromContext(ctx).RecordError(sendErr)
		return reg, NewTicketDeliveryFailedError(fmt.Sprintf("Failed to email ticket to %q", reg.Leader.Email), sendErr)
	}

	return reg, nil
}

func (i *Issuer) discardScreenshot(ctx context.Context, key string) {
	if key == "" {
		return
	}
	_ = i.uploader.Delete(ctx, key)
}
