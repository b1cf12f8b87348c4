// Package services – QuotaService
//
// This file implements the daily scheduling quota. A non-privileged user may
// only schedule a configured number of posts per calendar day; the day
// boundary is the user's local one, resolved by the caller and passed in as a
// time.Location. The computation is a pure read: it never mutates state and
// an empty store simply yields the full quota.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// QuotaRepo defines the repository contract required by QuotaService.
type QuotaRepo interface {
	// CountPending returns the number of not-yet-dispatched posts owned by
	// userID whose submission date falls within [from, to).
	CountPending(ctx context.Context, db *gorm.DB, userID string, from, to time.Time) (int64, error)
}

// QuotaService computes how many posts a user may still schedule today.
type QuotaService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the quota repository used by this service.
	Repo QuotaRepo

	// DailyLimit is the configured maximum of posts per user per day.
	DailyLimit int
}

// NewQuotaService constructs a QuotaService with the given daily maximum.
// Limits below 1 are coerced to 1.
func NewQuotaService(db *gorm.DB, r QuotaRepo, dailyLimit int) *QuotaService {
	if dailyLimit < 1 {
		dailyLimit = 1
	}
	return &QuotaService{DB: db, Repo: r, DailyLimit: dailyLimit}
}

// Remaining returns the number of posts userID may still schedule within the
// calendar day containing now in loc. It counts undispatched posts due that
// day, subtracts them from the daily limit, and floors the result at 0.
func (s *QuotaService) Remaining(ctx context.Context, userID string, now time.Time, loc *time.Location) (int, error) {
	tr := otel.Tracer("services/QuotaService")
	ctx, span := tr.Start(ctx, "Remaining",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	to := from.AddDate(0, 0, 1)

	used, err := s.Repo.CountPending(ctx, s.DB, userID, from.UTC(), to.UTC())
	if err != nil {
		return 0, err
	}
	remaining := s.DailyLimit - int(used)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
