package invoicing

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Action is what happened to an invoice.
type Action string

const (
	ActionCreated    Action = "created"
	ActionUpdated    Action = "updated"
	ActionDownloaded Action = "downloaded"
	ActionSent       Action = "sent"
)

// Event is one history entry. Events are written once and never changed.
type Event struct {
	InvoiceID  string
	VendorID   string
	CustomerID string
	Action     Action
	Details    map[string]any
	At         time.Time
}

// HistoryAppender persists events.
type HistoryAppender interface {
	AppendHistory(ctx context.Context, ev Event) error
}

// Emitter records history on a best-effort basis.
type Emitter struct {
	store  HistoryAppender
	logger *slog.Logger
	now    func() time.Time
}

// NewEmitter returns an emitter writing to store.
func NewEmitter(store HistoryAppender, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{store: store, logger: logger, now: time.Now}
}

// Emit appends one event. A failed append is logged and returned as an
// audit error; callers must not undo the action that triggered it.
func (em *Emitter) Emit(ctx context.Context, invoiceID, vendorID, customerID string, action Action, details map[string]any) error {
	ev := Event{
		InvoiceID:  invoiceID,
		VendorID:   vendorID,
		CustomerID: customerID,
		Action:     action,
		Details:    details,
		At:         em.now().UTC(),
	}
	if err := em.store.AppendHistory(ctx, ev); err != nil {
		em.logger.Error("cannot append invoice history",
			"invoice_id", invoiceID,
			"vendor_id", vendorID,
			"action", string(action),
			"error", err)
		return E(KindAudit, "emit history", err)
	}
	return nil
}

// GenerateID returns prefix_ followed by 32 hex digits of a random UUID.
func GenerateID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
