package domain

import (
	"testing"
	"time"
)

func TestIdempotency_UniquePerUserAndKey(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	now := time.Now().UTC()
	base := Idempotency{
		ID:        "rec-1",
		UserID:    "u1",
		Key:       "k1",
		PostID:    "p1",
		Status:    201,
		ExpiresAt: now.Add(time.Hour),
	}
	if err := db.Create(&base).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	// Same (user, key): rejected by ux_user_key.
	dupe := base
	dupe.ID = "rec-2"
	if err := db.Create(&dupe).Error; err == nil {
		t.Fatalf("expected unique violation for same (user, key)")
	}

	// Same key for another user: allowed.
	other := base
	other.ID = "rec-3"
	other.UserID = "u2"
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("same key, other user: %v", err)
	}
}
