package models

import (
	"time"

	"github.com/google/uuid"
)

// Field length limits enforced before a heartbeat reaches the session store.
const (
	MaxProjectLen  = 64
	MaxLanguageLen = 32
	MaxEditorLen   = 32
	MaxHostnameLen = 32
)

// Fingerprint is the four-field identity of a heartbeat. Two heartbeats
// belong to the same session only if all four fields match exactly; a nil
// field matches only nil.
type Fingerprint struct {
	ProjectName *string `json:"project_name,omitempty"`
	Language    *string `json:"language,omitempty"`
	EditorName  *string `json:"editor_name,omitempty"`
	Hostname    *string `json:"hostname,omitempty"`
}

func (f Fingerprint) Equal(other Fingerprint) bool {
	return eqStrPtr(f.ProjectName, other.ProjectName) &&
		eqStrPtr(f.Language, other.Language) &&
		eqStrPtr(f.EditorName, other.EditorName) &&
		eqStrPtr(f.Hostname, other.Hostname)
}

func eqStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Heartbeat is the client-submitted activity snapshot.
type Heartbeat struct {
	Fingerprint
	Hidden bool `json:"hidden"`
}

// Activity is a finalized, persisted session record.
type Activity struct {
	ID              int64     `json:"id"`
	UserID          uuid.UUID `json:"-"`
	StartTime       time.Time `json:"start_time"`
	DurationSeconds int64     `json:"duration"`
	ProjectName     *string   `json:"project_name"`
	Language        *string   `json:"language"`
	EditorName      *string   `json:"editor_name"`
	Hostname        *string   `json:"hostname"`
	Hidden          bool      `json:"hidden"`
}

// ActivityFilter holds the optional, AND-combined query filters. From and To
// are inclusive.
type ActivityFilter struct {
	From        *time.Time
	To          *time.Time
	MinDuration *int64
	EditorName  *string
	Language    *string
	Hostname    *string
	ProjectName *string
}

// CodingTimeSteps are the rolling duration sums, recomputed on demand.
type CodingTimeSteps struct {
	AllTime   int64 `json:"all_time"`
	PastMonth int64 `json:"past_month"`
	PastWeek  int64 `json:"past_week"`
}
