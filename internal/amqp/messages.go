package amqp

import (
	"encoding/json"
	"time"
)

// ExportEvent records the outcome of a single export job. It carries no
// expense data, only what is needed to audit who exported what and how it ended.
type ExportEvent struct {
	JobID     string    `json:"job_id"`
	OwnerID   int64     `json:"owner_id"`
	Format    string    `json:"format"`
	State     string    `json:"state"`
	Rows      int       `json:"rows"`
	Bytes     int64     `json:"bytes"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExportEvent creates an event stamped with the current time
func NewExportEvent(jobID string, ownerID int64, format, state string) *ExportEvent {
	return &ExportEvent{
		JobID:     jobID,
		OwnerID:   ownerID,
		Format:    format,
		State:     state,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *ExportEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ExportEventFromJSON creates an event from JSON bytes
func ExportEventFromJSON(data []byte) (*ExportEvent, error) {
	var ev ExportEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
