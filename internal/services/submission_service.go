// Package services – SubmissionService
//
// This file implements the submission history tracker: the dispatch worker
// reports each attempt outcome here, and the REST layer derives the
// human-readable status of a post from the resulting history. Appends are
// strictly ordered and never reorder or drop existing entries; a successful
// outcome marks the post dispatched and pins its external identifier.
package services

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-post-scheduler/internal/domain"
	"github.com/tbourn/go-post-scheduler/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StatusNotSent is the summary reported for a post with an empty history.
const StatusNotSent = "Not sent yet"

// statusMaxRunes bounds the summary status to fit compact UI surfaces. The
// full untruncated detail remains available through the history view.
const statusMaxRunes = 30

// localTimeLayout is how attempt timestamps are rendered in the caller's
// timezone for the detailed status view.
const localTimeLayout = "2006-01-02 15:04:05 MST"

// Outcome describes the result of one dispatch attempt as reported by the
// dispatch worker.
type Outcome struct {
	// Summary is a short machine/human description of the result
	// (e.g. "submitted", "rejected: rate limited").
	Summary string
	// Success marks an accepted submission; it flips the post to dispatched.
	Success bool
	// ExternalID is the identifier assigned by the destination platform on
	// success. Ignored for unsuccessful attempts.
	ExternalID string
	// SubmittedAt is the instant of the attempt; zero means now.
	SubmittedAt time.Time
	// ScoreCheckAt is the optional instant of a later follow-up check.
	ScoreCheckAt *time.Time
}

// SubmissionView is one entry of the detailed status, with timestamps
// rendered in the caller's local timezone. ScoreCheckAt is omitted entirely
// when no follow-up check has happened.
type SubmissionView struct {
	SubmittedAt    string `json:"submitted_at"`
	OutcomeSummary string `json:"outcome_summary"`
	ScoreCheckAt   string `json:"score_check_at,omitempty"`
}

// SubmissionRepo defines the repository contract required by SubmissionService.
type SubmissionRepo interface {
	// AppendSubmission atomically records an attempt and updates the post.
	AppendSubmission(ctx context.Context, db *gorm.DB, postID string, resp *domain.SubmissionResponse, success bool, externalID string) error

	// ListSubmissions returns a post's history in append order.
	ListSubmissions(ctx context.Context, db *gorm.DB, postID string) ([]domain.SubmissionResponse, error)
}

// SubmissionService appends dispatch outcomes and derives post status.
type SubmissionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the submission repository used by this service.
	Repo SubmissionRepo
}

// NewSubmissionService constructs a SubmissionService.
func NewSubmissionService(db *gorm.DB, r SubmissionRepo) *SubmissionService {
	return &SubmissionService{DB: db, Repo: r}
}

// Record appends one attempt outcome to a post's history. On success it also
// marks the post dispatched and stores the external id (first success only;
// later outcomes never overwrite it). A lost version race against a
// concurrent post update is retried once, then surfaced as
// ErrConflictingUpdate. Returns the persisted response row.
func (s *SubmissionService) Record(ctx context.Context, postID string, outcome Outcome) (*domain.SubmissionResponse, error) {
	tr := otel.Tracer("services/SubmissionService")
	ctx, span := tr.Start(ctx, "Record",
		trace.WithAttributes(
			attribute.String("post.id", postID),
			attribute.Bool("outcome.success", outcome.Success),
		),
	)
	defer span.End()

	submittedAt := outcome.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = time.Now().UTC()
	}

	for attempt := 0; attempt < 2; attempt++ {
		resp := &domain.SubmissionResponse{
			SubmittedAt:    submittedAt.UTC(),
			OutcomeSummary: outcome.Summary,
			ScoreCheckAt:   outcome.ScoreCheckAt,
		}
		err := s.Repo.AppendSubmission(ctx, s.DB, postID, resp, outcome.Success, outcome.ExternalID)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, repo.ErrStaleVersion) {
			continue
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return nil, ErrConflictingUpdate
}

// History returns the full submission history of a post in append order.
func (s *SubmissionService) History(ctx context.Context, postID string) ([]domain.SubmissionResponse, error) {
	return s.Repo.ListSubmissions(ctx, s.DB, postID)
}

// StatusOf derives the compact status of a post from its loaded history:
// StatusNotSent when the history is empty, otherwise the latest entry's
// outcome summary truncated to at most 30 runes.
func StatusOf(post *domain.ScheduledPost) string {
	if post == nil || len(post.History) == 0 {
		return StatusNotSent
	}
	last := post.History[len(post.History)-1]
	return truncateStatus(last.OutcomeSummary)
}

// DetailedStatus renders the full history with timestamps converted to loc.
// An empty history yields an empty (non-nil) slice.
func DetailedStatus(post *domain.ScheduledPost, loc *time.Location) []SubmissionView {
	if loc == nil {
		loc = time.UTC
	}
	if post == nil {
		return []SubmissionView{}
	}
	out := make([]SubmissionView, 0, len(post.History))
	for _, r := range post.History {
		v := SubmissionView{
			SubmittedAt:    r.SubmittedAt.In(loc).Format(localTimeLayout),
			OutcomeSummary: r.OutcomeSummary,
		}
		if r.ScoreCheckAt != nil {
			v.ScoreCheckAt = r.ScoreCheckAt.In(loc).Format(localTimeLayout)
		}
		out = append(out, v)
	}
	return out
}

// truncateStatus clips a summary to the display bound by rune count.
func truncateStatus(s string) string {
	if utf8.RuneCountInString(s) <= statusMaxRunes {
		return s
	}
	return string([]rune(s)[:statusMaxRunes])
}
