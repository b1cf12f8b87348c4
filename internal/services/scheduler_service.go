// Package services – SchedulerService
//
// This file implements the scheduled-post lifecycle: creating a post under
// quota control, updating it while re-sourcing the dispatch-owned fields from
// storage, deleting it together with its history, and reading it fully
// materialized. Identity, privilege, and timezone of the acting user are
// explicit parameters on every operation; the engine carries no ambient
// request state.
//
// Concurrency: create runs its quota check and insert inside a per-user
// critical section so concurrent schedule calls never over-admit. Per-post
// writes go through an optimistic version column; a lost race is retried once
// internally and then surfaced as ErrConflictingUpdate.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// user and post identifiers.
package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-post-scheduler/internal/domain"
	"github.com/tbourn/go-post-scheduler/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// User carries the externally-resolved identity of the acting user. The
// auth/session layer owns how these values are obtained; the engine only
// consumes them.
type User struct {
	// ID identifies the owner of the posts being operated on.
	ID string
	// Unlimited bypasses quota enforcement when true.
	Unlimited bool
	// Location is the user's local timezone, used for the daily quota
	// boundary. nil falls back to UTC.
	Location *time.Location
}

// PostRepo defines the repository contract required by SchedulerService.
type PostRepo interface {
	// CreatePost inserts a new post, assigning its identity.
	CreatePost(ctx context.Context, db *gorm.DB, p *domain.ScheduledPost) error

	// GetPost fetches a post with its history, scoped to the owner.
	GetPost(ctx context.Context, db *gorm.DB, id, userID string) (*domain.ScheduledPost, error)

	// UpdatePost conditionally writes mutable fields against expectedVersion.
	UpdatePost(ctx context.Context, db *gorm.DB, p *domain.ScheduledPost, expectedVersion int64) error

	// DeletePost removes a post and cascades its history.
	DeletePost(ctx context.Context, db *gorm.DB, id, userID string) error
}

// SchedulerService owns the scheduled-post lifecycle.
type SchedulerService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the post repository used by this service.
	Repo PostRepo
	// Quota is consulted on create for non-privileged users.
	Quota *QuotaService

	// Now is the clock used for quota windows; tests may override it.
	Now func() time.Time

	// userLocks serializes quota-check-then-create per user id.
	userLocks sync.Map // string -> *sync.Mutex
}

// NewSchedulerService constructs a SchedulerService.
func NewSchedulerService(db *gorm.DB, r PostRepo, quota *QuotaService) *SchedulerService {
	return &SchedulerService{DB: db, Repo: r, Quota: quota, Now: time.Now}
}

// lockUser returns the mutex guarding create admission for userID.
func (s *SchedulerService) lockUser(userID string) *sync.Mutex {
	v, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Schedule creates a new scheduled post owned by user. Unless the user holds
// the unlimited privilege, the remaining daily quota is checked first and the
// call fails with ErrQuotaExceeded when it is 0. Check and insert run under a
// per-user lock, so concurrent calls admit at most the remaining count.
//
// The returned post carries its assigned id, dispatched=false, no external id,
// and an empty history.
func (s *SchedulerService) Schedule(ctx context.Context, user User, draft domain.ScheduledPost, resubmitEnabled bool) (*domain.ScheduledPost, error) {
	tr := otel.Tracer("services/SchedulerService")
	ctx, span := tr.Start(ctx, "Schedule",
		trace.WithAttributes(
			attribute.String("user.id", user.ID),
			attribute.Bool("user.unlimited", user.Unlimited),
		),
	)
	defer span.End()

	draft.UserID = user.ID
	draft.ResubmitEnabled = resubmitEnabled

	if !user.Unlimited {
		mu := s.lockUser(user.ID)
		mu.Lock()
		defer mu.Unlock()

		remaining, err := s.Quota.Remaining(ctx, user.ID, s.Now(), user.Location)
		if err != nil {
			return nil, err
		}
		if remaining == 0 {
			return nil, ErrQuotaExceeded
		}
	}

	if err := s.Repo.CreatePost(ctx, s.DB, &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

// Update overwrites the content fields, submission date, and resubmit flag of
// an existing post. ExternalID, Dispatched, and History are always re-sourced
// from the stored row; whatever the incoming payload carries for them is
// ignored. Quota is not re-checked: it applies to net-new scheduling only.
//
// A lost optimistic-version race is retried once with a fresh read; losing
// again returns ErrConflictingUpdate. Returns the post as persisted.
func (s *SchedulerService) Update(ctx context.Context, user User, incoming domain.ScheduledPost, resubmitEnabled bool) (*domain.ScheduledPost, error) {
	tr := otel.Tracer("services/SchedulerService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(
			attribute.String("user.id", user.ID),
			attribute.String("post.id", incoming.ID),
		),
	)
	defer span.End()

	for attempt := 0; attempt < 2; attempt++ {
		stored, err := s.Repo.GetPost(ctx, s.DB, incoming.ID, user.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrPostNotFound
			}
			return nil, err
		}

		merged := mergePost(stored, &incoming, resubmitEnabled)
		err = s.Repo.UpdatePost(ctx, s.DB, merged, stored.Version)
		if err == nil {
			merged.Version = stored.Version + 1
			return merged, nil
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

// Delete removes a post and its entire submission history. Deleting an absent
// (or already-deleted) id fails with ErrPostNotFound rather than silently
// succeeding.
func (s *SchedulerService) Delete(ctx context.Context, user User, id string) error {
	tr := otel.Tracer("services/SchedulerService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.String("user.id", user.ID),
			attribute.String("post.id", id),
		),
	)
	defer span.End()

	err := s.Repo.DeletePost(ctx, s.DB, id, user.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPostNotFound
	}
	return err
}

// Get returns a post fully materialized with its submission history, or
// ErrPostNotFound.
func (s *SchedulerService) Get(ctx context.Context, user User, id string) (*domain.ScheduledPost, error) {
	tr := otel.Tracer("services/SchedulerService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(
			attribute.String("user.id", user.ID),
			attribute.String("post.id", id),
		),
	)
	defer span.End()

	post, err := s.Repo.GetPost(ctx, s.DB, id, user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return post, nil
}

// mergePost builds the post state to persist from the stored row and an
// incoming update. Content fields, the submission date, and the resubmit flag
// come from the update; identity and the dispatch-owned fields (ExternalID,
// Dispatched, History) always come from storage.
func mergePost(stored, incoming *domain.ScheduledPost, resubmitEnabled bool) *domain.ScheduledPost {
	merged := *stored
	merged.Title = incoming.Title
	merged.Body = incoming.Body
	merged.Target = incoming.Target
	merged.SubmissionDate = incoming.SubmissionDate
	merged.ResubmitEnabled = resubmitEnabled
	return &merged
}
