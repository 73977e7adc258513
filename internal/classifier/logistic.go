package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// LogisticModel is a trained binary churn classifier serialized as a JSON
// artifact. Weight keys are either a bare column name (numeric feature,
// optionally standardized with the stored mean/std) or "column=class"
// (one-hot categorical indicator).
type LogisticModel struct {
	ModelVersion string             `json:"model_version"`
	Bias         float64            `json:"bias"`
	Weights      map[string]float64 `json:"weights"`
	Means        map[string]float64 `json:"means"`
	Stds         map[string]float64 `json:"stds"`

	encoder *LabelEncoder
}

// LoadLogisticModel reads the model artifact from disk. A missing or
// malformed artifact is a startup error: the service cannot score
// without it.
func LoadLogisticModel(path string, encoder *LabelEncoder) (*LogisticModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var m LogisticModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	if len(m.Weights) == 0 {
		return nil, fmt.Errorf("model artifact %s has no weights", path)
	}
	if encoder == nil {
		encoder = NewLabelEncoder()
	}
	m.encoder = encoder
	return &m, nil
}

func (m *LogisticModel) Version() string { return m.ModelVersion }

// PredictChurnProbability evaluates the model on one feature row. A
// weight referencing a column absent from the row is a feature mismatch,
// surfaced to the caller as a configuration error.
func (m *LogisticModel) PredictChurnProbability(_ context.Context, features map[string]string) (float64, error) {
	z := m.Bias
	for key, w := range m.Weights {
		col, class, categorical := strings.Cut(key, "=")
		raw, ok := features[col]
		if !ok {
			return 0, fmt.Errorf("classifier feature %q missing from uploaded table", col)
		}
		if categorical {
			if m.encoder.Canonical(col, raw) == class {
				z += w
			}
			continue
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			x = 0
		}
		if std, ok := m.Stds[col]; ok && std != 0 {
			x = (x - m.Means[col]) / std
		}
		z += w * x
	}
	return sigmoid(z), nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
