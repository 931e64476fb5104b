package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cbanluta2700/agrismart--sub002/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestConversationsStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	if _, _, _, err := ConversationsStats(context.Background(), db, "u1"); err == nil {
		t.Fatalf("expected error due to missing conversations table")
	}
}

func TestConversationsStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, chatModels...)
	count, maxAt, reads, err := ConversationsStats(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("ConversationsStats error: %v", err)
	}
	if count != 0 || maxAt != nil || reads != 0 {
		t.Fatalf("expected (0, nil, 0), got (%d, %v, %d)", count, maxAt, reads)
	}
}

func TestConversationsStats_Success_FilterMaxAndReads(t *testing.T) {
	db := newTestDB(t, chatModels...)

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC) // max for u1
	t3 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)   // u1 not a member

	seedConversation(t, db, "a", t1, "u1", "u2")
	seedConversation(t, db, "b", t2, "u1", "u3")
	seedConversation(t, db, "c", t3, "u2", "u3")
	seedMessage(t, db, "m1", "a", "u2", t1)
	if err := db.Omit("Message").Create(&domain.ReadMarker{ID: "r1", MessageID: "m1", ConversationID: "a", UserID: "u1", CreatedAt: t1}).Error; err != nil {
		t.Fatalf("seed marker: %v", err)
	}

	count, maxAt, reads, err := ConversationsStats(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("ConversationsStats error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
	if maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("expected maxUpdatedAt %v, got %v", t2, maxAt)
	}
	if reads != 1 {
		t.Fatalf("expected 1 read marker, got %d", reads)
	}
}
