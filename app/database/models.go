package database

import (
	"time"
)

// Post statuses. A post starts as DRAFT, must be APPROVED before it can
// be published, and ends up POSTED or FAILED. FAILED posts can be
// re-approved for another attempt; POSTED is terminal. Deleting a post is
// a forced FAILED transition, rows are never removed.
const (
	StatusDraft    = "DRAFT"
	StatusApproved = "APPROVED"
	StatusPosted   = "POSTED"
	StatusFailed   = "FAILED"
)

// DeletedByUserError is the last_error text recorded when an operator
// deletes a post.
const DeletedByUserError = "deleted by user"

// Post represents a queued page post.
//
// Media and publish outcomes carry two representations: a legacy scalar
// column (first element, kept for readability and old consumers) and a
// JSON-encoded list column. Once a list column is populated it is
// authoritative; the raw JSON text is kept on the struct and decoded in
// the post package so every consumer sees one normalized shape.
type Post struct {
	ID                int64
	Topic             string
	Main              string
	ExtraRequirements string
	Mandatory         string

	ImageURL           string
	ImageFileName      string
	ImageURLsJSON      string
	ImageFileNamesJSON string
	VideoURL           string
	VideoFileName      string
	VideoURLsJSON      string
	VideoFileNamesJSON string

	PageID string
	Status string

	SEOKeywordsJSON string
	AITitle         string
	AIContent       string
	Caption         string

	FBPostID       string
	FBPostURL      string
	FBPostIDsJSON  string
	FBPostURLsJSON string
	PostedAt       string // RFC 3339, empty until posted

	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PostedOutcome carries the publish result persisted on a successful
// POSTED transition.
type PostedOutcome struct {
	PageID         string
	FBPostID       string
	FBPostURL      string
	FBPostIDsJSON  string
	FBPostURLsJSON string
	PostedAt       string
}
