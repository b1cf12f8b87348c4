package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-post-scheduler/internal/domain"
)

func TestAppendSubmission_MissingPost(t *testing.T) {
	db := newPostRepoDB(t, &domain.ScheduledPost{}, &domain.SubmissionResponse{})

	r := &domain.SubmissionResponse{SubmittedAt: time.Now().UTC(), OutcomeSummary: "submitted"}
	err := AppendSubmission(context.Background(), db, "missing", r, true, "t3_x")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	var n int64
	if err := db.Model(&domain.SubmissionResponse{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no rows persisted, got %d", n)
	}
}

func TestAppendSubmission_SuccessMarksDispatchedAndPinsExternalID(t *testing.T) {
	db := newPostRepoDB(t, &domain.ScheduledPost{}, &domain.SubmissionResponse{})
	p := seedPost(t, db, "u1")

	first := &domain.SubmissionResponse{SubmittedAt: time.Now().UTC(), OutcomeSummary: "submitted"}
	if err := AppendSubmission(context.Background(), db, p.ID, first, true, "t3_first"); err != nil {
		t.Fatalf("AppendSubmission: %v", err)
	}
	if first.ID == 0 || first.PostID != p.ID {
		t.Fatalf("response identity not assigned: %+v", first)
	}

	got, err := GetPost(context.Background(), db, p.ID, "u1")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if !got.Dispatched || got.ExternalID == nil || *got.ExternalID != "t3_first" {
		t.Fatalf("dispatch state not recorded: %+v", got)
	}
	if got.Version != 1 {
		t.Fatalf("version = %d, want 1", got.Version)
	}

	// A later success must never replace the pinned external id.
	second := &domain.SubmissionResponse{SubmittedAt: time.Now().UTC(), OutcomeSummary: "resubmitted"}
	if err := AppendSubmission(context.Background(), db, p.ID, second, true, "t3_other"); err != nil {
		t.Fatalf("AppendSubmission(second): %v", err)
	}
	got, err = GetPost(context.Background(), db, p.ID, "u1")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if *got.ExternalID != "t3_first" {
		t.Fatalf("external id overwritten: %q", *got.ExternalID)
	}
	if len(got.History) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(got.History))
	}
}

func TestAppendSubmission_FailureKeepsUndispatched(t *testing.T) {
	db := newPostRepoDB(t, &domain.ScheduledPost{}, &domain.SubmissionResponse{})
	p := seedPost(t, db, "u1")

	r := &domain.SubmissionResponse{SubmittedAt: time.Now().UTC(), OutcomeSummary: "rejected: rate limited"}
	if err := AppendSubmission(context.Background(), db, p.ID, r, false, ""); err != nil {
		t.Fatalf("AppendSubmission: %v", err)
	}

	got, err := GetPost(context.Background(), db, p.ID, "u1")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if got.Dispatched || got.ExternalID != nil {
		t.Fatalf("failed attempt changed dispatch state: %+v", got)
	}
	if got.Version != 1 {
		t.Fatalf("append must still bump version, got %d", got.Version)
	}
	if len(got.History) != 1 {
		t.Fatalf("expected 1 history row, got %d", len(got.History))
	}
}

func TestListSubmissions_AppendOrderAndEmpty(t *testing.T) {
	db := newPostRepoDB(t, &domain.ScheduledPost{}, &domain.SubmissionResponse{})
	p := seedPost(t, db, "u1")

	if rows, err := ListSubmissions(context.Background(), db, p.ID); err != nil || len(rows) != 0 {
		t.Fatalf("expected empty history, got %v, %v", rows, err)
	}

	at := time.Date(2025, 3, 1, 18, 30, 5, 0, time.UTC)
	score := at.Add(2 * time.Hour)
	entries := []domain.SubmissionResponse{
		{SubmittedAt: at, OutcomeSummary: "rejected: rate limited"},
		{SubmittedAt: at, OutcomeSummary: "submitted", ScoreCheckAt: &score},
	}
	for i := range entries {
		if err := AppendSubmission(context.Background(), db, p.ID, &entries[i], i == 1, "t3_x"); err != nil {
			t.Fatalf("AppendSubmission(%d): %v", i, err)
		}
	}

	rows, err := ListSubmissions(context.Background(), db, p.ID)
	if err != nil {
		t.Fatalf("ListSubmissions: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].OutcomeSummary != "rejected: rate limited" || rows[1].OutcomeSummary != "submitted" {
		t.Fatalf("append order lost: %+v", rows)
	}
	if rows[0].ScoreCheckAt != nil || rows[1].ScoreCheckAt == nil {
		t.Fatalf("score check round-trip mismatch: %+v", rows)
	}
}
