package outreach

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/churnhealth/backend/internal/models"
)

func atRiskCustomer() models.ScoredRecord {
	return models.ScoredRecord{
		CustomerRecord: models.CustomerRecord{
			ID:        "0001-TEST",
			Email:     "0001@telecommail.com",
			Complaint: "Frequent call drops and poor voice clarity",
		},
		HealthScore: 0.123,
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(atRiskCustomer())
	for _, want := range []string{
		"0001-TEST",
		"0001@telecommail.com",
		"Frequent call drops and poor voice clarity",
		"0.123",
		"Do not offer any discounts or promotions.",
		`Sign off as "Telcom Service Team".`,
		"starting with <html> and ending with </html>",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func TestSubject(t *testing.T) {
	got := Subject("0001-TEST")
	want := "Regarding your experience with our service (Customer ID: 0001-TEST)"
	if got != want {
		t.Fatalf("subject = %q, want %q", got, want)
	}
}

func TestComposeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"<html><body>hi</body></html>"}}]}`))
	}))
	defer srv.Close()

	c := OpenAICompatComposer{BaseURL: srv.URL, Model: "retention-v1", APIKey: "test-key"}
	body, err := c.Compose(context.Background(), atRiskCustomer())
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if body != "<html><body>hi</body></html>" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestComposeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := OpenAICompatComposer{BaseURL: srv.URL, Model: "retention-v1"}
	if _, err := c.Compose(context.Background(), atRiskCustomer()); err == nil {
		t.Fatalf("expected error on http 500")
	}
}

func TestComposeMisconfigured(t *testing.T) {
	c := OpenAICompatComposer{}
	if c.Configured() {
		t.Fatalf("empty composer must report unconfigured")
	}
	if (OpenAICompatComposer{BaseURL: "http://assistant.local"}).Configured() {
		t.Fatalf("composer without a model must report unconfigured")
	}
	if !(OpenAICompatComposer{BaseURL: "http://assistant.local", Model: "retention-v1"}).Configured() {
		t.Fatalf("composer with base URL and model must report configured")
	}
	if _, err := c.Compose(context.Background(), atRiskCustomer()); err == nil {
		t.Fatalf("expected error without base URL")
	}
}

func TestComposeEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := OpenAICompatComposer{BaseURL: srv.URL, Model: "retention-v1"}
	if _, err := c.Compose(context.Background(), atRiskCustomer()); err == nil {
		t.Fatalf("expected error on empty choices")
	}
}
