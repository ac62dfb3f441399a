package models

import (
	"strings"
	"time"

	id "trapper/pkg/domain"
)

type Status string

const (
	StatusNew         Status = "new"
	StatusNeedsReview Status = "needs_review"
	StatusActive      Status = "active"
	StatusScheduled   Status = "scheduled"
	StatusInProgress  Status = "in_progress"
	StatusPaused      Status = "paused"
	StatusResolved    Status = "resolved"
	StatusClosed      Status = "closed"
)

var validStatuses = map[Status]bool{
	StatusNew: true, StatusNeedsReview: true, StatusActive: true,
	StatusScheduled: true, StatusInProgress: true, StatusPaused: true,
	StatusResolved: true, StatusClosed: true,
}

func (s Status) IsValid() bool { return validStatuses[s] }

type ArchiveReason string

const (
	ArchiveDuplicate         ArchiveReason = "duplicate"
	ArchiveDenied            ArchiveReason = "denied"
	ArchiveReferredElsewhere ArchiveReason = "referred_elsewhere"
)

// Request is one case record. Entities attach to it through request links
// and through the primary place and person references.
type Request struct {
	ID              id.EntityID
	CaseNumber      string
	Status          Status
	ArchiveReason   ArchiveReason
	PrimaryPlaceID  *id.EntityID
	PrimaryPersonID *id.EntityID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CoerceArchiveReason maps free-form case status text to an archive reason.
func CoerceArchiveReason(raw string) ArchiveReason {
	s := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	switch s {
	case "duplicate request", "duplicate", "dup":
		return ArchiveDuplicate
	case "denied":
		return ArchiveDenied
	case "referred elsewhere", "referred", "refer elsewhere":
		return ArchiveReferredElsewhere
	}
	return ""
}

// FallbackStatus is the state a request settles into once its assignments
// are gone. Terminal archive reasons carry their own terminal status; a
// request with no specific reason goes back to the intake default.
func FallbackStatus(reason ArchiveReason) Status {
	switch reason {
	case ArchiveDuplicate, ArchiveDenied:
		return StatusClosed
	case ArchiveReferredElsewhere:
		return StatusResolved
	}
	return StatusNew
}
