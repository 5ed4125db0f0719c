package ingest

import (
	"context"
	"errors"

	"github.com/sjkp/locker/pkg/interfaces/logger"
	"github.com/sjkp/locker/pkg/links"
	"github.com/sjkp/locker/pkg/secrets"
	"github.com/sjkp/locker/pkg/telemetry"
)

// eventSecretNotified is recorded once per successful notification.
const eventSecretNotified = "SecretNotified"

// Error kinds attached to telemetry exceptions.
const (
	KindInvalidEvent     = "InvalidEvent"
	KindNotFound         = "NotFound"
	KindMissingMetadata  = "MissingMetadata"
	KindMissingRecipient = "MissingRecipient"
	KindEncodingError    = "EncodingError"
	KindDispatchError    = "DispatchError"
	KindUnavailable      = "Unavailable"
)

// Delivery outcome statuses persisted to the delivery log.
const (
	StatusNotified = "notified"
	StatusFailed   = "failed"
)

// Delivery is one processed event outcome. Reason carries the failure kind
// when Status is failed.
type Delivery struct {
	SecretName string
	Recipient  string
	Status     string
	Reason     string
}

// DeliveryLog persists processed outcomes for later inspection.
type DeliveryLog interface {
	Record(ctx context.Context, d Delivery) error
}

// Notifier delivers a retrieval artifact to a recipient.
type Notifier interface {
	Notify(ctx context.Context, recipient string, artifact links.Artifact) error
}

// Dependencies bundles the collaborators required by the handler.
type Dependencies struct {
	Resolver   *secrets.Resolver
	Links      *links.Builder
	Notifier   Notifier
	Telemetry  telemetry.Reporter
	Logger     logger.Logger
	Deliveries DeliveryLog
}

// Handler orchestrates resolution, artifact generation, notification, and
// telemetry for a single event.
type Handler struct {
	resolver   *secrets.Resolver
	links      *links.Builder
	notifier   Notifier
	telemetry  telemetry.Reporter
	logger     logger.Logger
	deliveries DeliveryLog
}

var (
	ErrMissingResolver = errors.New("ingest: resolver is required")
	ErrMissingLinks    = errors.New("ingest: link builder is required")
	ErrMissingNotifier = errors.New("ingest: notifier is required")
)

// New constructs the ingestion handler.
func New(deps Dependencies) (*Handler, error) {
	if deps.Resolver == nil {
		return nil, ErrMissingResolver
	}
	if deps.Links == nil {
		return nil, ErrMissingLinks
	}
	if deps.Notifier == nil {
		return nil, ErrMissingNotifier
	}
	if deps.Telemetry == nil {
		deps.Telemetry = &telemetry.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	return &Handler{
		resolver:   deps.Resolver,
		links:      deps.Links,
		notifier:   deps.Notifier,
		telemetry:  deps.Telemetry,
		logger:     deps.Logger,
		deliveries: deps.Deliveries,
	}, nil
}

// Handle processes one raw event payload. No error escapes: the invoking
// transport can only observe completion, so every failure is logged, counted
// as exactly one telemetry exception, and swallowed. On success exactly one
// notification is sent and exactly one success event recorded.
func (h *Handler) Handle(ctx context.Context, payload []byte) {
	evt, err := ParseEvent(payload)
	if err != nil {
		h.fail(ctx, "", "", err)
		return
	}
	name := evt.Data.ObjectName

	record, err := h.resolver.Resolve(ctx, name)
	if err != nil {
		h.fail(ctx, name, "", err)
		return
	}

	recipient, err := secrets.Recipient(record)
	if err != nil {
		h.fail(ctx, name, "", err)
		return
	}

	artifact, err := h.links.Build(name)
	if err != nil {
		h.fail(ctx, name, recipient, err)
		return
	}

	if err := h.notifier.Notify(ctx, recipient, artifact); err != nil {
		h.fail(ctx, name, recipient, err)
		return
	}

	h.telemetry.TrackEvent(eventSecretNotified, map[string]string{
		"secret":    name,
		"recipient": recipient,
	})
	h.record(ctx, Delivery{SecretName: name, Recipient: recipient, Status: StatusNotified})
	h.logger.Info("secret notification sent",
		logger.F("secret", name),
		logger.F("recipient", recipient),
	)
}

func (h *Handler) fail(ctx context.Context, name, recipient string, err error) {
	kind := errKind(err)
	h.telemetry.TrackException(err, map[string]string{
		"kind":   kind,
		"secret": name,
	})
	h.record(ctx, Delivery{SecretName: name, Recipient: recipient, Status: StatusFailed, Reason: kind})
	h.logger.Error("event processing failed",
		logger.F("secret", name),
		logger.F("kind", kind),
		logger.F("error", err),
	)
}

func (h *Handler) record(ctx context.Context, d Delivery) {
	if h.deliveries == nil {
		return
	}
	if err := h.deliveries.Record(ctx, d); err != nil {
		h.logger.Warn("delivery log write failed", logger.F("error", err))
	}
}

func errKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidEvent), errors.Is(err, secrets.ErrEmptyName):
		return KindInvalidEvent
	case errors.Is(err, secrets.ErrNotFound):
		return KindNotFound
	case errors.Is(err, secrets.ErrMissingRecipient):
		return KindMissingRecipient
	case errors.Is(err, secrets.ErrMissingMetadata), errors.Is(err, secrets.ErrEmptyValue):
		return KindMissingMetadata
	case errors.Is(err, links.ErrEncoding), errors.Is(err, links.ErrMissingName):
		return KindEncodingError
	case errors.Is(err, secrets.ErrUnauthorized), errors.Is(err, secrets.ErrUnavailable):
		return KindUnavailable
	default:
		return KindDispatchError
	}
}
