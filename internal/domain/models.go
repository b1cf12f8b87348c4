// Package domain defines the persistence models for scheduled posts and their
// submission history. These types are mapped with GORM and form the core data
// layer of the post scheduling application.
package domain

import (
	"time"
)

// ScheduledPost represents a content item queued for future dispatch to an
// external destination platform. Posts are owned by a user and accumulate an
// append-only history of submission attempts.
//
// Fields:
//   - ID: stable UUID primary key (char(36)), assigned on creation.
//   - UserID: identifier of the owning user; indexed for quota and listing
//     queries. Immutable after creation.
//   - Title / Body: content to be dispatched.
//   - Target: destination identifier (subreddit, channel, ...), opaque here.
//   - SubmissionDate: absolute instant at which dispatch should occur. Stored
//     in UTC; converted to/from the user's local time only at the HTTP
//     boundary.
//   - ExternalID: identifier assigned by the destination platform once a
//     dispatch succeeds; nil until then and never overwritten afterwards.
//   - Dispatched: true once at least one dispatch attempt has succeeded.
//   - ResubmitEnabled: whether the dispatch worker may re-attempt submission
//     after a failed or score-checked attempt.
//   - Version: optimistic concurrency token; every mutation of the row (or an
//     append to its history) performs a conditional write against it.
//   - History: submission attempts in append order (composition; attempts
//     have no lifecycle of their own and are removed with the post).
//
// ExternalID, Dispatched, and History are never taken from a client-supplied
// update payload; they are re-sourced from the stored row on every update.
type ScheduledPost struct {
	ID              string    `json:"id"               gorm:"type:char(36);primaryKey"`
	UserID          string    `json:"user_id"          gorm:"type:varchar(64);not null;index:idx_user_posts"`
	Title           string    `json:"title"            gorm:"type:varchar(255);not null"`
	Body            string    `json:"body"             gorm:"type:text"`
	Target          string    `json:"target"           gorm:"type:varchar(255);not null"`
	SubmissionDate  time.Time `json:"submission_date"  gorm:"not null;index:idx_user_posts_due"`
	ExternalID      *string   `json:"external_id,omitempty" gorm:"type:varchar(64)"`
	Dispatched      bool      `json:"dispatched"       gorm:"not null;default:false"`
	ResubmitEnabled bool      `json:"resubmit_enabled" gorm:"not null;default:false"`
	Version         int64     `json:"-"                gorm:"not null;default:0"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// History holds the submission attempts, loaded in append order.
	// Attempts are cascade-deleted with the post.
	History []SubmissionResponse `json:"-" gorm:"foreignKey:PostID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ScheduledPost.
func (ScheduledPost) TableName() string { return "scheduled_posts" }

// SubmissionResponse records the outcome of a single dispatch attempt for a
// scheduled post. Rows are immutable once created, and the auto-incremented
// primary key preserves append order independently of clock resolution.
//
// Fields:
//   - ID: monotonically increasing primary key (append order).
//   - PostID: foreign key to the owning scheduled post (indexed).
//   - SubmittedAt: instant of the dispatch attempt.
//   - OutcomeSummary: short description of the attempt result
//     (e.g. "submitted", "rejected: rate limited").
//   - ScoreCheckAt: optional instant of a later follow-up score check;
//     nil when no follow-up has occurred.
type SubmissionResponse struct {
	ID             uint64     `json:"id"              gorm:"primaryKey;autoIncrement"`
	PostID         string     `json:"post_id"         gorm:"type:char(36);not null;index:idx_post_history"`
	SubmittedAt    time.Time  `json:"submitted_at"    gorm:"not null"`
	OutcomeSummary string     `json:"outcome_summary" gorm:"type:varchar(255);not null"`
	ScoreCheckAt   *time.Time `json:"score_check_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// TableName returns the database table name for SubmissionResponse.
func (SubmissionResponse) TableName() string { return "submission_responses" }
