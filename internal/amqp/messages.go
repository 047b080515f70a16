package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type JobType string

const (
	// JobExport writes a project workbook and sends it to the cloud target.
	JobExport JobType = "export"
	// JobBackup uploads a copy of the database file.
	JobBackup JobType = "backup"
)

const (
	TargetDrive  = "drive"
	TargetSheets = "sheets"
)

// JobMessage carries only identifiers; the worker reads everything else
// from the record store when the job runs.
type JobMessage struct {
	Type      JobType   `json:"type"`
	ProjectID int64     `json:"project_id,omitempty"`
	Target    string    `json:"target,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExportJob(projectID int64, target string) *JobMessage {
	return &JobMessage{Type: JobExport, ProjectID: projectID, Target: target, Timestamp: time.Now()}
}

func NewBackupJob() *JobMessage {
	return &JobMessage{Type: JobBackup, Target: TargetDrive, Timestamp: time.Now()}
}

func (m *JobMessage) Validate() error {
	switch m.Type {
	case JobExport:
		if m.ProjectID <= 0 {
			return errors.New("export job without project id")
		}
		if m.Target != TargetDrive && m.Target != TargetSheets {
			return fmt.Errorf("unknown export target %q", m.Target)
		}
	case JobBackup:
	default:
		return fmt.Errorf("unknown job type %q", m.Type)
	}
	return nil
}

func (m *JobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// JobMessageFromJSON decodes and validates a job.
func JobMessageFromJSON(data []byte) (*JobMessage, error) {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
