package model

import (
	"fmt"
	"time"
)

// LevelStatus is the publication state of a level.
type LevelStatus string

const (
	LevelPending   LevelStatus = "pending"
	LevelPublished LevelStatus = "published"
)

// LevelTags is the fixed tag vocabulary for levels.
var LevelTags = []string{
	"wave",
	"ship",
	"ufo",
	"timing",
	"memory",
	"duals",
	"fast-paced",
	"nerve-control",
	"straight-fly",
}

// ValidTag reports whether tag is part of the fixed vocabulary.
func ValidTag(tag string) bool {
	for _, t := range LevelTags {
		if t == tag {
			return true
		}
	}
	return false
}

// Level is a list entry. Published levels carry a placement; placements
// across all published levels always form a dense 1..N sequence.
type Level struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Creators    []string    `json:"creators,omitempty"`
	Video       string      `json:"video,omitempty"`
	Status      LevelStatus `json:"status"`
	Placement   int         `json:"placement,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	SubmittedBy string      `json:"submittedBy,omitempty"`
	ApprovedBy  string      `json:"approvedBy,omitempty"`
	ApprovedAt  time.Time   `json:"approvedAt,omitempty"`
}

// Validate checks the Level has valid field values.
func (l *Level) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("id is required")
	}
	if l.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch l.Status {
	case LevelPending:
		if l.Placement != 0 {
			return fmt.Errorf("pending level must not have a placement (got %d)", l.Placement)
		}
	case LevelPublished:
		if l.Placement < 1 {
			return fmt.Errorf("published level needs a positive placement (got %d)", l.Placement)
		}
	default:
		return fmt.Errorf("unknown status %q", l.Status)
	}
	for _, tag := range l.Tags {
		if !ValidTag(tag) {
			return fmt.Errorf("unknown tag %q", tag)
		}
	}
	return nil
}
