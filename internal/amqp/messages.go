package amqp

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// JobMessage tells a worker to process one upload job. It carries only the
// job id; the worker loads the job row from the database.
type JobMessage struct {
	JobID     string    `json:"job_id"`
	Attempt   int       `json:"attempt"`
	Timestamp time.Time `json:"timestamp"`
}

// NewJobMessage creates a first-attempt message for a job.
func NewJobMessage(jobID string) *JobMessage {
	return &JobMessage{
		JobID:     jobID,
		Attempt:   1,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *JobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// JobMessageFromJSON creates a message from JSON bytes
func JobMessageFromJSON(data []byte) (*JobMessage, error) {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(msg.JobID) == "" {
		return nil, errors.New("job message missing job_id")
	}
	return &msg, nil
}
