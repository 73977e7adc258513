package classifier

import (
	"context"
	"sort"
	"strings"

	"github.com/churnhealth/backend/internal/utils"
)

// MockClassifier produces deterministic hash-derived probabilities for
// local development when no model artifact is configured.
type MockClassifier struct {
	ModelVersion string
}

func (m MockClassifier) Version() string { return m.ModelVersion }

func (m MockClassifier) PredictChurnProbability(_ context.Context, features map[string]string) (float64, error) {
	probs := []float64{0.05, 0.12, 0.25, 0.40, 0.55, 0.68, 0.81, 0.93}
	h := utils.HashStringToUint64(featureKey(features))
	return probs[h%uint64(len(probs))], nil
}

func featureKey(features map[string]string) string {
	cols := make([]string, 0, len(features))
	for col := range features {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	var b strings.Builder
	for _, col := range cols {
		b.WriteString(col)
		b.WriteByte('=')
		b.WriteString(features[col])
		b.WriteByte(';')
	}
	return b.String()
}
