// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ScheduledPost model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a post is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - Conditional writes that lose an optimistic-version race return
//     ErrStaleVersion; callers decide whether to retry or surface the
//     conflict.
//   - On other DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// This repository is designed to be wrapped by the service layer
// (see services.SchedulerService) which enforces quota, merge, and
// concurrency rules.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-post-scheduler/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrStaleVersion is returned when a conditional write matched no rows
// because the stored version advanced since it was read.
var ErrStaleVersion = errors.New("stale version")

// CreatePost inserts a new scheduled post. The ID is a randomly generated
// UUID, CreatedAt is set to UTC, and the optimistic version starts at 0.
// Dispatched, ExternalID, and History are forced to their zero values; a
// freshly scheduled post has never been sent. The argument is mutated in
// place so the caller sees the persisted identity.
func CreatePost(ctx context.Context, db *gorm.DB, p *domain.ScheduledPost) error {
	p.ID = uuid.NewString()
	p.Dispatched = false
	p.ExternalID = nil
	p.History = nil
	p.Version = 0
	p.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(p).Error
}

// GetPost fetches a single post by its ID and owner (userID), fully
// materialized with its submission history in append order. If the record
// does not exist (or is owned by someone else), it returns ErrNotFound.
func GetPost(ctx context.Context, db *gorm.DB, id, userID string) (*domain.ScheduledPost, error) {
	var post domain.ScheduledPost
	err := db.WithContext(ctx).
		Preload("History", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Where("id = ? AND user_id = ?", id, userID).
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// UpdatePost performs a conditional write of the mutable fields of a post
// (content, submission date, resubmit flag) against the expected optimistic
// version. On success the stored version is bumped by one.
//
// Returns ErrStaleVersion when the row exists but its version moved on, and
// ErrNotFound when no row with that id/owner exists at all.
func UpdatePost(ctx context.Context, db *gorm.DB, p *domain.ScheduledPost, expectedVersion int64) error {
	res := db.WithContext(ctx).
		Model(&domain.ScheduledPost{}).
		Where("id = ? AND user_id = ? AND version = ?", p.ID, p.UserID, expectedVersion).
		Updates(map[string]any{
			"title":            p.Title,
			"body":             p.Body,
			"target":           p.Target,
			"submission_date":  p.SubmissionDate,
			"resubmit_enabled": p.ResubmitEnabled,
			"version":          expectedVersion + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish a vanished row from a lost version race.
		var n int64
		if err := db.WithContext(ctx).
			Model(&domain.ScheduledPost{}).
			Where("id = ? AND user_id = ?", p.ID, p.UserID).
			Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrStaleVersion
	}
	return nil
}

// DeletePost removes a post and its entire submission history in one
// transaction. If no post with that id/owner exists, it returns ErrNotFound;
// a repeated delete of the same id therefore also fails with ErrNotFound.
func DeletePost(ctx context.Context, db *gorm.DB, id, userID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).
			Delete(&domain.ScheduledPost{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("post_id = ?", id).
			Delete(&domain.SubmissionResponse{}).Error
	})
}

// CountPosts returns the total number of scheduled posts owned by userID.
func CountPosts(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ScheduledPost{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListPostsPage returns a slice of posts for userID ordered by the given
// column expression (e.g. "title ASC"), starting at offset and bounded to
// limit rows. The caller validates the order expression against an
// allow-list; nothing is interpolated from raw user input here.
func ListPostsPage(ctx context.Context, db *gorm.DB, userID, order string, offset, limit int) ([]domain.ScheduledPost, error) {
	var out []domain.ScheduledPost
	err := db.WithContext(ctx).
		Preload("History", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Where("user_id = ?", userID).
		Order(order).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountPending returns the number of posts owned by userID that are not yet
// dispatched and whose submission date falls within [from, to). It backs the
// daily quota computation; the window bounds are the caller's local day
// converted to absolute instants.
func CountPending(ctx context.Context, db *gorm.DB, userID string, from, to time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ScheduledPost{}).
		Where("user_id = ? AND dispatched = ? AND submission_date >= ? AND submission_date < ?",
			userID, false, from, to).
		Count(&total).Error
	return total, err
}
