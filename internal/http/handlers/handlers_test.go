package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/churnhealth/backend/internal/classifier"
	"github.com/churnhealth/backend/internal/scoring"
	"github.com/churnhealth/backend/internal/session"
)

type fixedClassifier struct {
	prob float64
}

func (f fixedClassifier) PredictChurnProbability(_ context.Context, _ map[string]string) (float64, error) {
	return f.prob, nil
}

func TestParseCustomersCSV_MissingIDColumn(t *testing.T) {
	content := "email,complaint,TotalCharges\na@x.com,Slow internet,10\nb@x.com,Bad billing,20\n"
	fh := makeMultipartFile(t, "customers", "customers.csv", content)
	batch, errs := parseCustomersCSV(fh)
	if len(errs) > 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if len(batch.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(batch.Records))
	}
	if batch.Records[0].ID != "0" || batch.Records[1].ID != "1" {
		t.Fatalf("expected zero-based sequence IDs, got %q %q", batch.Records[0].ID, batch.Records[1].ID)
	}
}

func TestParseCustomersCSV_OpenEndedColumns(t *testing.T) {
	content := "\ufeffcustomerID,gender,tenure,Email,COMPLAINT,Churn\n0001-TEST,Male,12,a@x.com,Slow internet,No\n"
	fh := makeMultipartFile(t, "customers", "customers.csv", content)
	batch, errs := parseCustomersCSV(fh)
	if len(errs) > 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	rec := batch.Records[0]
	if rec.ID != "0001-TEST" {
		t.Fatalf("expected ID from BOM-prefixed header, got %q", rec.ID)
	}
	if rec.Email != "a@x.com" || rec.Complaint != "Slow internet" {
		t.Fatalf("expected case-insensitive email/complaint match, got %q %q", rec.Email, rec.Complaint)
	}
	features := rec.FeatureVector()
	if _, ok := features["customerID"]; ok {
		t.Fatalf("customerID must not be a feature")
	}
	if _, ok := features["Churn"]; ok {
		t.Fatalf("Churn label must not be a feature")
	}
	if features["gender"] != "Male" {
		t.Fatalf("expected gender feature preserved, got %v", features)
	}
}

func TestParseCustomersCSV_SameFileSameBatchID(t *testing.T) {
	content := "customerID,email\n0001-TEST,a@x.com\n"
	b1, _ := parseCustomersCSV(makeMultipartFile(t, "customers", "customers.csv", content))
	b2, _ := parseCustomersCSV(makeMultipartFile(t, "customers", "customers.csv", content))
	if b1.ID != b2.ID {
		t.Fatalf("same upload identity must yield same batch ID: %s vs %s", b1.ID, b2.ID)
	}
}

func TestUploadAndExportFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := &Handler{
		Sessions: session.NewStore(),
		Scorer: &scoring.Scorer{
			Classifier: fixedClassifier{prob: 0.8},
			Thresholds: scoring.DefaultThresholds,
		},
		Validator: validator.New(),
		Logger:    zerolog.Nop(),
		TopN:      5,
	}
	r := gin.New()
	r.POST("/api/upload", h.Upload)
	r.GET("/api/batches/:id/export", h.BatchExport)
	r.GET("/api/batches/:id/report", h.BatchReport)

	content := "customerID,email,complaint,TotalCharges\n0001-TEST,a@x.com,Slow internet,abc\n0002-TEST,b@x.com,Bad billing,29.85\n"
	req := uploadRequest(t, "customers", "customers.csv", content)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var summary UploadSummary
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Rows != 2 {
		t.Fatalf("expected 2 rows, got %d", summary.Rows)
	}
	if len(summary.Top) != 2 {
		t.Fatalf("expected 2 top-risk rows from a 2-row batch, got %d", len(summary.Top))
	}
	if summary.Top[0].RiskLevel != "High Risk" {
		t.Fatalf("expected High Risk at p=0.8, got %s", summary.Top[0].RiskLevel)
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/batches/"+summary.BatchID+"/export", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("export: expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "health_score,Rank,Risk_Level") {
		t.Fatalf("export missing derived columns:\n%s", body)
	}
	if !strings.Contains(body, ",0,") && !strings.Contains(body, ",0\n") {
		t.Fatalf("expected coerced TotalCharges 0 in export:\n%s", body)
	}

	// No pass has run yet, so the report endpoint must say so.
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/batches/"+summary.BatchID+"/report", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("report before pass: expected 404, got %d", w.Code)
	}
}

func TestHealthzReportsModel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{
		Scorer: &scoring.Scorer{Classifier: classifier.MockClassifier{ModelVersion: "mock-v1"}},
		Logger: zerolog.Nop(),
	}
	r := gin.New()
	r.GET("/healthz", h.Healthz)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected ok status, got %q", body["status"])
	}
	if body["model"] != "mock-v1" {
		t.Fatalf("expected model version in health response, got %q", body["model"])
	}

	// A classifier without a version still reads as ready.
	h.Scorer.Classifier = fixedClassifier{prob: 0.5}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["model"] != "ready" {
		t.Fatalf("expected ready, got %q", body["model"])
	}
}

func TestUploadRejectsNonCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{
		Sessions:  session.NewStore(),
		Scorer:    &scoring.Scorer{Classifier: fixedClassifier{prob: 0.5}, Thresholds: scoring.DefaultThresholds},
		Validator: validator.New(),
		Logger:    zerolog.Nop(),
		TopN:      5,
	}
	r := gin.New()
	r.POST("/api/upload", h.Upload)

	req := uploadRequest(t, "customers", "customers.txt", "customerID\n1\n")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-csv upload, got %d", w.Code)
	}
}

func uploadRequest(t *testing.T, fieldName, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(fieldName, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write content: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req, _ := http.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func makeMultipartFile(t *testing.T, fieldName, filename, content string) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(fieldName, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write content: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	reader := multipart.NewReader(&buf, writer.Boundary())
	form, err := reader.ReadForm(int64(buf.Len()))
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	files := form.File[fieldName]
	if len(files) == 0 {
		t.Fatalf("no file headers found")
	}
	return files[0]
}
