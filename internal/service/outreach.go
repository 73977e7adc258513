package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/churnhealth/backend/internal/delivery"
	"github.com/churnhealth/backend/internal/models"
	"github.com/churnhealth/backend/internal/outreach"
	"github.com/churnhealth/backend/internal/report"
	"github.com/churnhealth/backend/internal/session"
)

var (
	ErrBatchNotFound          = errors.New("batch not found")
	ErrGenerationNotAvailable = errors.New("email generation is not configured")
)

// OutreachService runs the outreach pass over the top-risk customers of
// a scored batch: strictly sequential, one attempt per customer, one
// pass per upload identity.
type OutreachService struct {
	Sessions   *session.Store
	Dispatcher delivery.Dispatcher
	Composer   outreach.Composer
	Logger     zerolog.Logger
}

// PassSummary is the response body of a dispatch call. Replayed marks a
// second invocation that reproduced the recorded report without side
// effects.
type PassSummary struct {
	Report   *models.DeliveryReport `json:"report"`
	Replayed bool                   `json:"replayed"`
	Counts   map[string]any         `json:"counts"`
}

// RunPass dispatches with the configured strategy.
func (s *OutreachService) RunPass(ctx context.Context, batchID string) (PassSummary, error) {
	return s.RunPassWith(ctx, batchID, s.Dispatcher)
}

// RunPassWith dispatches with an explicit strategy (used when the
// operator supplies a webhook endpoint per request). The pass is claimed
// atomically in the session store, so concurrent dispatch calls for the
// same batch never double-send: one runs, the rest replay its report. A
// failure for one customer never blocks later customers, and no error
// here aborts the batch: every outcome lands in the report.
func (s *OutreachService) RunPassWith(ctx context.Context, batchID string, d delivery.Dispatcher) (PassSummary, error) {
	claim, ok := s.Sessions.BeginDispatch(batchID)
	if !ok {
		return PassSummary{}, ErrBatchNotFound
	}
	if claim.Report != nil {
		s.Logger.Info().Str("batch_id", batchID).Msg("outreach already dispatched, replaying report")
		return PassSummary{Report: claim.Report, Replayed: true, Counts: tally(claim.Report)}, nil
	}

	start := time.Now()
	attempts := make([]models.OutreachAttempt, 0, len(claim.Top))
	for _, customer := range claim.Top {
		attempt := d.Send(ctx, customer, claim.Drafts[customer.ID])
		attempts = append(attempts, attempt)
		s.Logger.Info().
			Str("batch_id", batchID).
			Str("customer_id", customer.ID).
			Str("status", attempt.Status).
			Msg("outreach attempt recorded")
	}

	rep := report.Build(batchID, d.Mode(), attempts)
	s.Sessions.RecordReport(batchID, rep)

	s.Logger.Info().
		Str("batch_id", batchID).
		Str("mode", d.Mode()).
		Int("sent", rep.SentCount).
		Int("failed", rep.FailCount).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("outreach pass complete")

	return PassSummary{Report: rep, Counts: tally(rep)}, nil
}

// GenerateDrafts composes a reviewable email for each top-risk customer.
// Generation failures are per-customer and reported alongside the drafts
// that did succeed.
func (s *OutreachService) GenerateDrafts(ctx context.Context, batchID string) (map[string]string, map[string]string, error) {
	entry, ok := s.Sessions.Get(batchID)
	if !ok {
		return nil, nil, ErrBatchNotFound
	}
	if s.Composer == nil {
		return nil, nil, ErrGenerationNotAvailable
	}

	drafts := map[string]string{}
	failures := map[string]string{}
	for _, customer := range entry.Top {
		body, err := s.Composer.Compose(ctx, customer)
		if err != nil {
			s.Logger.Warn().Err(err).Str("customer_id", customer.ID).Msg("draft generation failed")
			failures[customer.ID] = err.Error()
			continue
		}
		drafts[customer.ID] = body
	}

	s.Sessions.SetDrafts(batchID, drafts)
	return drafts, failures, nil
}

func tally(r *models.DeliveryReport) map[string]any {
	return map[string]any{
		"customers": len(r.Attempts),
		"sent":      r.SentCount,
		"failed":    r.FailCount,
	}
}
