// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the append-only
// SubmissionResponse history of a scheduled post.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-post-scheduler/internal/domain"
)

// AppendSubmission records one dispatch attempt for a post in a single
// transaction: it inserts the SubmissionResponse row and performs a
// conditional update of the owning post keyed on its optimistic version.
//
// When success is true, the post is marked dispatched and externalID is
// stored, but only if the post has not been dispatched before; once set,
// the external identifier is never overwritten. Every append bumps the post
// version so concurrent content updates cannot interleave with it silently.
//
// Returns ErrNotFound when the post does not exist and ErrStaleVersion when
// the conditional write lost a race; in both cases nothing is persisted.
func AppendSubmission(ctx context.Context, db *gorm.DB, postID string, resp *domain.SubmissionResponse, success bool, externalID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post domain.ScheduledPost
		if err := tx.Where("id = ?", postID).First(&post).Error; err != nil {
			return err
		}

		resp.ID = 0
		resp.PostID = postID
		resp.CreatedAt = time.Now().UTC()
		if err := tx.Create(resp).Error; err != nil {
			return err
		}

		updates := map[string]any{"version": post.Version + 1}
		if success && !post.Dispatched {
			updates["dispatched"] = true
			if externalID != "" {
				updates["external_id"] = externalID
			}
		}
		res := tx.Model(&domain.ScheduledPost{}).
			Where("id = ? AND version = ?", postID, post.Version).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleVersion
		}
		return nil
	})
}

// ListSubmissions returns the full submission history of a post in append
// order. An empty slice means the post has never been attempted.
func ListSubmissions(ctx context.Context, db *gorm.DB, postID string) ([]domain.SubmissionResponse, error) {
	var out []domain.SubmissionResponse
	err := db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}
