package amqp

import (
	"encoding/json"
	"time"

	"ffsync/internal/core"

	"github.com/google/uuid"
)

// ReportMessage carries one batch-write report. Every report of a collector
// run shares the same RunID.
type ReportMessage struct {
	ID        string           `json:"id"`
	RunID     string           `json:"run_id"`
	Timestamp time.Time        `json:"timestamp"`
	Report    core.WriteReport `json:"report"`
}

func NewReportMessage(runID string, report core.WriteReport) *ReportMessage {
	return &ReportMessage{
		ID:        uuid.NewString(),
		RunID:     runID,
		Timestamp: time.Now(),
		Report:    report,
	}
}

func (m *ReportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportMessageFromJSON(data []byte) (*ReportMessage, error) {
	var msg ReportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
