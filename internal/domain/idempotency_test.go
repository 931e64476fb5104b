package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func idemRow(id, user, conv, key string, now time.Time) *Idempotency {
	return &Idempotency{
		ID:             id,
		UserID:         user,
		ConversationID: conv,
		Key:            key,
		MessageID:      "m-" + id,
		Status:         201,
		CreatedAt:      now,
		ExpiresAt:      now.Add(time.Hour),
	}
}

func TestIdempotency_KeyIsScopedPerUserAndConversation(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	if !m.HasIndex(&Idempotency{}, "ux_user_conv_key") {
		t.Fatalf("expected composite index ux_user_conv_key")
	}
	if !m.HasIndex(&Idempotency{}, "idx_idempotency_expires_at") {
		t.Fatalf("expected an index on expires_at for purging")
	}

	now := time.Now().UTC()
	// The same tempId may be reused by another user or in another conversation.
	for _, rec := range []*Idempotency{
		idemRow("1", "buyer", "c1", "tmp-1", now),
		idemRow("2", "seller", "c1", "tmp-1", now),
		idemRow("3", "buyer", "c2", "tmp-1", now),
	} {
		if err := db.Create(rec).Error; err != nil {
			t.Fatalf("insert %s: %v", rec.ID, err)
		}
	}

	if err := db.Create(idemRow("4", "buyer", "c1", "tmp-1", now)).Error; err == nil {
		t.Fatalf("expected UNIQUE violation on (user_id, conversation_id, key)")
	}

	var got Idempotency
	if err := db.First(&got, "user_id = ? AND conversation_id = ? AND key = ?", "seller", "c1", "tmp-1").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.MessageID != "m-2" || got.Status != 201 || !got.ExpiresAt.After(got.CreatedAt) {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestIdempotency_RequiredColumnsRejectNull(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	now := time.Now().UTC()
	names := []string{"id", "user_id", "conversation_id", "key", "message_id", "status", "created_at", "expires_at"}
	for i, col := range names {
		vals := []any{"x-" + col, "u1", "c1", "k-" + col, "m1", 201, now, now.Add(time.Hour)}
		vals[i] = nil
		err := db.Exec(`INSERT INTO idempotency ("id","user_id","conversation_id","key","message_id","status","created_at","expires_at")
		                VALUES (?,?,?,?,?,?,?,?)`, vals...).Error
		if err == nil {
			t.Fatalf("expected NOT NULL violation for %q", col)
		}
	}
}
