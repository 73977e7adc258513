package models

import "time"

// Column names with special meaning in uploaded customer tables.
const (
	ColCustomerID   = "customerID"
	ColChurn        = "Churn"
	ColEmail        = "email"
	ColComplaint    = "complaint"
	ColTotalCharges = "TotalCharges"
)

// Outreach attempt statuses.
const (
	StatusSent             = "Sent"
	StatusFailedToSend     = "Failed to Send"
	StatusGenerationFailed = "Generation Failed"
)

// Risk tiers derived from health score.
const (
	RiskHigh    = "High Risk"
	RiskMedium  = "Medium Risk"
	RiskHealthy = "Healthy"
)

// CustomerRecord is one row of an uploaded customer table. Values keeps
// every original column so the scored table can be exported without loss;
// ID, Email and Complaint are lifted out because scoring and outreach
// address them directly.
type CustomerRecord struct {
	ID        string            `json:"customer_id"`
	Email     string            `json:"email"`
	Complaint string            `json:"complaint"`
	Values    map[string]string `json:"values"`
}

// FeatureVector returns the columns fed to the classifier: everything
// except the customer identifier and any ground-truth churn label.
func (r CustomerRecord) FeatureVector() map[string]string {
	features := make(map[string]string, len(r.Values))
	for col, v := range r.Values {
		if col == ColCustomerID || col == ColChurn {
			continue
		}
		features[col] = v
	}
	return features
}

// Batch is one uploaded customer table. ID doubles as the idempotency
// key for outreach: it is derived from the filename and row count, so
// re-uploading the same file maps to the same session entry.
type Batch struct {
	ID       string           `json:"id"`
	Filename string           `json:"filename"`
	Columns  []string         `json:"columns"`
	Records  []CustomerRecord `json:"records"`
	Uploaded time.Time        `json:"uploaded"`
}

// ScoredRecord is a CustomerRecord with the derived churn columns.
type ScoredRecord struct {
	CustomerRecord
	HealthScore float64 `json:"health_score"`
	Rank        int     `json:"rank"`
	RiskLevel   string  `json:"risk_level"`
}

// OutreachAttempt records one delivery attempt for one top-risk customer.
// Immutable once recorded; lives for the session only.
type OutreachAttempt struct {
	CustomerID  string    `json:"customer_id"`
	Email       string    `json:"email"`
	Status      string    `json:"status"`
	HealthScore float64   `json:"health_score"`
	Detail      string    `json:"detail,omitempty"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// DeliveryReport aggregates the attempts of one outreach pass.
type DeliveryReport struct {
	BatchID    string            `json:"batch_id"`
	Mode       string            `json:"mode"`
	Attempts   []OutreachAttempt `json:"attempts"`
	SentCount  int               `json:"sent_count"`
	FailCount  int               `json:"fail_count"`
	FinishedAt time.Time         `json:"finished_at"`
}
