package worker

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedJob indicates a job payload that is missing required fields or
// is not valid JSON. Malformed jobs are acknowledged and dropped at the
// boundary without touching the store.
var ErrMalformedJob = errors.New("worker: malformed job payload")

// Job is one face-analysis request consumed from the queue.
type Job struct {
	ReportID string
	ImageURL string
}

// Outcome is the completion event published downstream after a job.
type Outcome struct {
	ReportID string `json:"reportId"`
	Success  bool   `json:"success"`
}

// stringID decodes an opaque identifier that upstream producers send either
// as a JSON string (GUIDs) or as a bare number.
type stringID string

func (s *stringID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = stringID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = stringID(n.String())
	return nil
}

// ParseJob decodes a queue message body of the form
//
//	{"message": {"ReportId"|"reportId": id, "ImageUrl"|"imageUrl": url}}
//
// Both casing variants are accepted (JSON field matching is
// case-insensitive). A payload missing either field yields ErrMalformedJob.
func ParseJob(body []byte) (Job, error) {
	var envelope struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Job{}, fmt.Errorf("%w: %w", ErrMalformedJob, err)
	}
	if len(envelope.Message) == 0 {
		return Job{}, fmt.Errorf("%w: missing message", ErrMalformedJob)
	}

	var msg struct {
		ReportID stringID `json:"reportId"`
		ImageURL string   `json:"imageUrl"`
	}
	if err := json.Unmarshal(envelope.Message, &msg); err != nil {
		return Job{}, fmt.Errorf("%w: %w", ErrMalformedJob, err)
	}
	if msg.ReportID == "" || msg.ImageURL == "" {
		return Job{}, fmt.Errorf("%w: missing reportId or imageUrl", ErrMalformedJob)
	}

	return Job{
		ReportID: string(msg.ReportID),
		ImageURL: msg.ImageURL,
	}, nil
}
