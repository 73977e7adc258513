package delivery

import (
	"context"

	"github.com/churnhealth/backend/internal/models"
)

// Delivery modes selected by configuration.
const (
	ModeSMTP    = "smtp"
	ModeWebhook = "webhook"
)

// Dispatcher ships outreach for one top-risk customer and reports the
// outcome. Implementations must never panic or abort past their
// boundary: every failure becomes a recorded attempt status so the pass
// can continue with the next customer.
type Dispatcher interface {
	Mode() string
	Send(ctx context.Context, customer models.ScoredRecord, draft string) models.OutreachAttempt
}
