package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/churnhealth/backend/internal/models"
)

// Build aggregates the attempts of one pass into a delivery report.
func Build(batchID, mode string, attempts []models.OutreachAttempt) *models.DeliveryReport {
	r := &models.DeliveryReport{
		BatchID:    batchID,
		Mode:       mode,
		Attempts:   attempts,
		FinishedAt: time.Now().UTC(),
	}
	for _, a := range attempts {
		if a.Status == models.StatusSent {
			r.SentCount++
		} else {
			r.FailCount++
		}
	}
	return r
}

// Derived column names appended to the exported table. They match the
// dashboard's historical export format, hence the mixed casing.
const (
	ColHealthScore = "health_score"
	ColRank        = "Rank"
	ColRiskLevel   = "Risk_Level"
)

// WriteCSV serializes the full scored table in rank order: every
// original column followed by the derived columns. Numeric text uses
// the shortest exact decimal representation.
func WriteCSV(w io.Writer, columns []string, scored []models.ScoredRecord) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(columns)+3)
	header = append(header, columns...)
	header = append(header, ColHealthScore, ColRank, ColRiskLevel)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, rec := range scored {
		row := make([]string, 0, len(header))
		for _, col := range columns {
			row = append(row, rec.Values[col])
		}
		row = append(row,
			strconv.FormatFloat(rec.HealthScore, 'g', -1, 64),
			strconv.Itoa(rec.Rank),
			rec.RiskLevel,
		)
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
