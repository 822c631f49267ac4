package model

import (
	"fmt"
	"time"
)

// SubmissionType distinguishes the two kinds of pending submissions.
type SubmissionType string

const (
	SubmissionLevel      SubmissionType = "level"
	SubmissionCompletion SubmissionType = "completion"
)

// SubmissionStatus is the moderation state of a submission. Approval
// and rejection are terminal removals from the collection, so the only
// status a persisted submission ever carries is pending.
type SubmissionStatus string

const (
	SubmissionPending SubmissionStatus = "pending"
)

// Submission is a pending level or completion awaiting moderation.
// The payload fields depend on Type: a level submission carries
// LevelName/Creators/Video/Tags, a completion carries LevelID/Video/Percent.
type Submission struct {
	ID   string         `json:"id"`
	Type SubmissionType `json:"type"`

	LevelName string   `json:"levelName,omitempty"`
	Creators  []string `json:"creators,omitempty"`
	Video     string   `json:"video,omitempty"`
	Tags      []string `json:"tags,omitempty"`

	LevelID string `json:"levelId,omitempty"`
	Percent int    `json:"percent,omitempty"`

	SubmittedBy string           `json:"submittedBy"`
	Status      SubmissionStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// Validate checks the Submission has valid field values for its type.
func (s *Submission) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("id is required")
	}
	if s.SubmittedBy == "" {
		return fmt.Errorf("submittedBy is required")
	}
	switch s.Type {
	case SubmissionLevel:
		if s.LevelName == "" {
			return fmt.Errorf("level submission needs a level name")
		}
		for _, tag := range s.Tags {
			if !ValidTag(tag) {
				return fmt.Errorf("unknown tag %q", tag)
			}
		}
	case SubmissionCompletion:
		if s.LevelID == "" {
			return fmt.Errorf("completion submission needs a level reference")
		}
		if s.Percent < 0 || s.Percent > 100 {
			return fmt.Errorf("percent must be between 0 and 100 (got %d)", s.Percent)
		}
	default:
		return fmt.Errorf("unknown submission type %q", s.Type)
	}
	return nil
}
