package scoring

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/churnhealth/backend/internal/classifier"
	"github.com/churnhealth/backend/internal/models"
)

// Thresholds are the upper bounds of the risk bins: a health score in
// (-0.01, HighMax] is High Risk, (HighMax, MediumMax] Medium Risk and
// (MediumMax, 1.0] Healthy. Boundary values belong to the lower tier.
type Thresholds struct {
	HighMax   float64
	MediumMax float64
}

var DefaultThresholds = Thresholds{HighMax: 0.3, MediumMax: 0.7}

// RiskLevel maps a health score to its tier.
func (t Thresholds) RiskLevel(healthScore float64) string {
	switch {
	case healthScore <= t.HighMax:
		return models.RiskHigh
	case healthScore <= t.MediumMax:
		return models.RiskMedium
	default:
		return models.RiskHealthy
	}
}

// Scorer applies the pre-trained classifier to an uploaded batch and
// derives health score, rank and risk tier for every record.
type Scorer struct {
	Classifier classifier.Classifier
	Thresholds Thresholds
}

// Score produces the scored table: health_score = 1 - P(churn), stable
// ascending sort by health score (worst first), ranks 1..N. TotalCharges
// is coerced to a number first so the classifier and the exported table
// both see the cleaned value. A classifier error is a configuration
// problem and aborts the batch; it is never swallowed per row.
func (s *Scorer) Score(ctx context.Context, batch *models.Batch) ([]models.ScoredRecord, error) {
	scored := make([]models.ScoredRecord, 0, len(batch.Records))
	for _, rec := range batch.Records {
		coerceTotalCharges(rec.Values)

		prob, err := s.Classifier.PredictChurnProbability(ctx, rec.FeatureVector())
		if err != nil {
			return nil, fmt.Errorf("score customer %s: %w", rec.ID, err)
		}

		scored = append(scored, models.ScoredRecord{
			CustomerRecord: rec,
			HealthScore:    1 - prob,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].HealthScore < scored[j].HealthScore
	})
	for i := range scored {
		scored[i].Rank = i + 1
		scored[i].RiskLevel = s.Thresholds.RiskLevel(scored[i].HealthScore)
	}
	return scored, nil
}

// TopN returns the n worst-health records from an already ranked table.
// n is clamped to [0, len(scored)].
func TopN(scored []models.ScoredRecord, n int) []models.ScoredRecord {
	if n < 0 {
		n = 0
	}
	if n > len(scored) {
		n = len(scored)
	}
	return scored[:n]
}

// coerceTotalCharges rewrites the TotalCharges column as a clean decimal,
// treating missing or non-numeric values as zero. Data error, never fatal.
func coerceTotalCharges(values map[string]string) {
	raw, ok := values[models.ColTotalCharges]
	if !ok {
		return
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		v = 0
	}
	values[models.ColTotalCharges] = strconv.FormatFloat(v, 'g', -1, 64)
}
