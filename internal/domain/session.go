package domain

import (
	"time"
)

// SessionID is the externally assigned identifier of a chat session.
type SessionID string

// String returns the string representation of the SessionID.
func (id SessionID) String() string {
	return string(id)
}

// Publication status sentinels. Any other non-empty value of
// Session.PublicationStatus is the public hosting URL of the video.
const (
	StatusUnset      = ""
	StatusGenerating = "generating"
	StatusError      = "error"
)

// NoScriptFound is the sentinel the extraction model emits for a
// script that is missing from the conversation.
const NoScriptFound = "No script found."

// PublicationGraceWindow is how long a freshly published URL is still
// reported as "generating". The hosting provider needs a few minutes
// after upload before the link is reliably reachable.
const PublicationGraceWindow = 7 * time.Minute

// Script is the two-part script payload extracted from a conversation.
type Script struct {
	Script1 string `json:"script1"`
	Script2 string `json:"script2"`
}

// Session tracks one user's script-and-video workflow instance.
// Rows are created by the chat component; this service reads and
// updates the script and publication fields.
type Session struct {
	ID                SessionID
	OwnerID           string
	Script            *Script
	PublicationStatus string
	PublishedAt       *time.Time
	LeaseOwner        string
	LeaseExpiry       *time.Time
	CreatedAt         time.Time
}

// HasScript reports whether a script has been stored for the session.
func (s *Session) HasScript() bool {
	return s.Script != nil
}

// DisplayStatus returns the publication status as it should be shown
// to clients. A URL younger than the grace window reads as
// "generating" so callers never see a link before it is reachable.
func (s *Session) DisplayStatus(now time.Time) string {
	switch s.PublicationStatus {
	case StatusUnset, StatusGenerating, StatusError:
		return s.PublicationStatus
	}
	if s.PublishedAt != nil && now.Sub(*s.PublishedAt) < PublicationGraceWindow {
		return StatusGenerating
	}
	return s.PublicationStatus
}

// LeaseHeld reports whether a generation lease is active at now.
func (s *Session) LeaseHeld(now time.Time) bool {
	return s.LeaseOwner != "" && s.LeaseExpiry != nil && s.LeaseExpiry.After(now)
}
