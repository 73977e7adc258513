package classifier

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeArtifact(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

func TestLogisticModelPredicts(t *testing.T) {
	path := writeArtifact(t, "model.json", `{
		"model_version": "test-v1",
		"bias": 0,
		"weights": {"tenure": 1.0, "Contract=Month-to-month": 2.0}
	}`)
	m, err := LoadLogisticModel(path, NewLabelEncoder())
	if err != nil {
		t.Fatalf("load model: %v", err)
	}

	p, err := m.PredictChurnProbability(context.Background(), map[string]string{
		"tenure":   "0",
		"Contract": "Two year",
	})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if math.Abs(p-0.5) > 1e-12 {
		t.Fatalf("expected 0.5 at zero logit, got %v", p)
	}

	p, err = m.PredictChurnProbability(context.Background(), map[string]string{
		"tenure":   "0",
		"Contract": "Month-to-month",
	})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	want := 1 / (1 + math.Exp(-2))
	if math.Abs(p-want) > 1e-12 {
		t.Fatalf("expected %v with indicator active, got %v", want, p)
	}
}

func TestLogisticModelNonNumericFeatureTreatedAsZero(t *testing.T) {
	path := writeArtifact(t, "model.json", `{"bias": 0, "weights": {"tenure": 3.0}}`)
	m, err := LoadLogisticModel(path, nil)
	if err != nil {
		t.Fatalf("load model: %v", err)
	}
	p, err := m.PredictChurnProbability(context.Background(), map[string]string{"tenure": "garbage"})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if math.Abs(p-0.5) > 1e-12 {
		t.Fatalf("expected non-numeric feature to contribute zero, got %v", p)
	}
}

func TestLogisticModelFeatureMismatch(t *testing.T) {
	path := writeArtifact(t, "model.json", `{"bias": 0, "weights": {"tenure": 1.0}}`)
	m, err := LoadLogisticModel(path, nil)
	if err != nil {
		t.Fatalf("load model: %v", err)
	}
	if _, err := m.PredictChurnProbability(context.Background(), map[string]string{"Contract": "One year"}); err == nil {
		t.Fatalf("expected feature mismatch error")
	}
}

func TestLoadLogisticModelRejectsEmptyWeights(t *testing.T) {
	path := writeArtifact(t, "model.json", `{"bias": 1.5}`)
	if _, err := LoadLogisticModel(path, nil); err == nil {
		t.Fatalf("expected error for artifact without weights")
	}
}

func TestLabelEncoderCanonical(t *testing.T) {
	path := writeArtifact(t, "label_encoder.json", `{"classes": {"Contract": ["Month-to-month", "One year", "Two year"]}}`)
	enc, err := LoadLabelEncoder(path)
	if err != nil {
		t.Fatalf("load encoder: %v", err)
	}
	if got := enc.Canonical("Contract", "  month-to-month "); got != "Month-to-month" {
		t.Fatalf("expected canonical class, got %q", got)
	}
	if got := enc.Canonical("Contract", "Weekly"); got != "Weekly" {
		t.Fatalf("expected unknown value to pass through, got %q", got)
	}
	if got := enc.Canonical("PaymentMethod", "Mailed check"); got != "Mailed check" {
		t.Fatalf("expected unknown column to pass through, got %q", got)
	}
}

func TestLabelEncoderMissingArtifact(t *testing.T) {
	if _, err := LoadLabelEncoder(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatalf("expected error for missing encoder artifact")
	}
	// Fallback path: an empty encoder passes values through.
	enc := NewLabelEncoder()
	if got := enc.Canonical("Contract", "One year"); got != "One year" {
		t.Fatalf("expected passthrough from empty encoder, got %q", got)
	}
}

func TestMockClassifierDeterministic(t *testing.T) {
	m := MockClassifier{ModelVersion: "mock-v1"}
	features := map[string]string{"email": "0001@telecommail.com", "tenure": "12"}
	p1, _ := m.PredictChurnProbability(context.Background(), features)
	p2, _ := m.PredictChurnProbability(context.Background(), features)
	if p1 != p2 {
		t.Fatalf("expected deterministic probability, got %v then %v", p1, p2)
	}
	if p1 < 0 || p1 > 1 {
		t.Fatalf("probability out of range: %v", p1)
	}
}
