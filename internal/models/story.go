package models

import (
	"errors"
	"time"
)

// Story is a persisted cluster of documents describing the same event.
type Story struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Topic            Topic     `json:"topic"`
	Region           Region    `json:"region"`
	RepresentativeID string    `json:"representative_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// StoryWithMembers pairs a story with the identifiers of its member documents.
type StoryWithMembers struct {
	Story     Story    `json:"story"`
	MemberIDs []string `json:"member_ids"`
}

// ErrNotFound is returned by stores when a requested record does not exist.
var ErrNotFound = errors.New("not found")
