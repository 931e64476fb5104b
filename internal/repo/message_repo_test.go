package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cbanluta2700/agrismart--sub002/internal/domain"
)

func TestCreateMessage_InsertsAndGet(t *testing.T) {
	db := newTestDB(t, chatModels...)
	ctx := context.Background()
	at := time.Now().UTC()
	seedConversation(t, db, "c1", at, "x", "y")

	m, err := CreateMessage(ctx, db, "c1", "x", "hello", at)
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if m.ID == "" || m.SenderID != "x" || m.ConversationID != "c1" || !m.CreatedAt.Equal(at) {
		t.Fatalf("unexpected message: %+v", m)
	}

	got, err := GetMessage(ctx, db, m.ID)
	if err != nil || got.Content != "hello" {
		t.Fatalf("GetMessage: err=%v got=%+v", err, got)
	}
	if _, err := GetMessage(ctx, db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCountMessages_ErrorAndSuccess(t *testing.T) {
	ctx := context.Background()
	if _, err := CountMessages(ctx, newTestDB(t), "c1"); err == nil {
		t.Fatalf("expected error when messages table is missing")
	}

	db := newTestDB(t, chatModels...)
	at := time.Now().UTC()
	seedConversation(t, db, "c1", at, "x")
	seedConversation(t, db, "c2", at, "x")
	seedMessage(t, db, "m1", "c1", "x", at)
	seedMessage(t, db, "m2", "c1", "x", at.Add(time.Second))
	seedMessage(t, db, "m3", "c2", "x", at)

	n, err := CountMessages(ctx, db, "c1")
	if err != nil || n != 2 {
		t.Fatalf("CountMessages = %d, %v; want 2", n, err)
	}
}

func TestListMessagesPage_PaginationAndOrder(t *testing.T) {
	db := newTestDB(t, chatModels...)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seedConversation(t, db, "c1", base, "x")
	seedMessage(t, db, "m3", "c1", "x", base.Add(2*time.Second))
	seedMessage(t, db, "m1", "c1", "x", base)
	seedMessage(t, db, "m2b", "c1", "x", base.Add(time.Second))
	seedMessage(t, db, "m2a", "c1", "x", base.Add(time.Second))

	page1, err := ListMessagesPage(ctx, db, "c1", 0, 2)
	if err != nil {
		t.Fatalf("page1: %v", err)
	}
	page2, err := ListMessagesPage(ctx, db, "c1", 2, 2)
	if err != nil {
		t.Fatalf("page2: %v", err)
	}
	got := []string{page1[0].ID, page1[1].ID, page2[0].ID, page2[1].ID}
	want := []string{"m1", "m2a", "m2b", "m3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order mismatch: got %v want %v", got, want)
		}
	}
}

func TestListUnreadMessages_ExcludesOwnAndRead(t *testing.T) {
	db := newTestDB(t, chatModels...)
	ctx := context.Background()
	base := time.Now().UTC()
	seedConversation(t, db, "c1", base, "x", "y")
	seedMessage(t, db, "m1", "c1", "x", base)
	seedMessage(t, db, "m2", "c1", "x", base.Add(time.Second))
	seedMessage(t, db, "own", "c1", "y", base.Add(2*time.Second))

	if err := db.Omit("Message").Create(&domain.ReadMarker{ID: "r1", MessageID: "m1", ConversationID: "c1", UserID: "y", CreatedAt: base}).Error; err != nil {
		t.Fatalf("seed marker: %v", err)
	}

	got, err := ListUnreadMessages(ctx, db, "c1", "y")
	if err != nil {
		t.Fatalf("ListUnreadMessages: %v", err)
	}
	if len(got) != 1 || got[0].ID != "m2" {
		t.Fatalf("expected only m2 unread for y, got %+v", got)
	}

	// x never sees their own messages as unread, and y's message is unread for x.
	got, err = ListUnreadMessages(ctx, db, "c1", "x")
	if err != nil || len(got) != 1 || got[0].ID != "own" {
		t.Fatalf("expected only y's message unread for x, got %+v (err=%v)", got, err)
	}
}

func TestUnreadCounts_PerConversation(t *testing.T) {
	db := newTestDB(t, chatModels...)
	ctx := context.Background()
	base := time.Now().UTC()
	seedConversation(t, db, "c1", base, "x", "y")
	seedConversation(t, db, "c2", base, "x", "y")
	seedConversation(t, db, "c3", base, "x", "y")
	seedMessage(t, db, "a1", "c1", "x", base)
	seedMessage(t, db, "a2", "c1", "x", base.Add(time.Second))
	seedMessage(t, db, "b1", "c2", "y", base)
	seedMessage(t, db, "c1m", "c3", "x", base)
	_ = db.Omit("Message").Create(&domain.ReadMarker{ID: "r", MessageID: "c1m", ConversationID: "c3", UserID: "y", CreatedAt: base}).Error

	counts, err := UnreadCounts(ctx, db, "y", []string{"c1", "c2", "c3"})
	if err != nil {
		t.Fatalf("UnreadCounts: %v", err)
	}
	if counts["c1"] != 2 || counts["c2"] != 0 || counts["c3"] != 0 {
		t.Fatalf("unexpected counts: %v", counts)
	}

	empty, err := UnreadCounts(ctx, db, "y", nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty map for no ids, got %v (err=%v)", empty, err)
	}
}

func TestLastMessages_NewestPerConversation(t *testing.T) {
	db := newTestDB(t, chatModels...)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seedConversation(t, db, "c1", base, "x")
	seedConversation(t, db, "c2", base, "x")
	seedConversation(t, db, "c3", base, "x")
	seedMessage(t, db, "old", "c1", "x", base)
	seedMessage(t, db, "new", "c1", "x", base.Add(time.Minute))
	seedMessage(t, db, "tie-a", "c2", "x", base)
	seedMessage(t, db, "tie-b", "c2", "x", base)

	last, err := LastMessages(ctx, db, []string{"c1", "c2", "c3"})
	if err != nil {
		t.Fatalf("LastMessages: %v", err)
	}
	if last["c1"].ID != "new" {
		t.Fatalf("c1 last = %q, want new", last["c1"].ID)
	}
	if last["c2"].ID != "tie-b" {
		t.Fatalf("c2 last = %q, want tie-b", last["c2"].ID)
	}
	if _, ok := last["c3"]; ok {
		t.Fatalf("c3 has no messages and must be absent")
	}
}

func TestReadMessageIDs(t *testing.T) {
	db := newTestDB(t, chatModels...)
	ctx := context.Background()
	base := time.Now().UTC()
	seedConversation(t, db, "c1", base, "x", "y", "z")
	seedMessage(t, db, "m1", "c1", "x", base)
	seedMessage(t, db, "m2", "c1", "x", base)
	for _, rm := range []domain.ReadMarker{
		{ID: "r1", MessageID: "m1", ConversationID: "c1", UserID: "y"},
		{ID: "r2", MessageID: "m1", ConversationID: "c1", UserID: "z"},
	} {
		rm := rm
		if err := db.Omit("Message").Create(&rm).Error; err != nil {
			t.Fatalf("seed marker: %v", err)
		}
	}

	read, err := ReadMessageIDs(ctx, db, []string{"m1", "m2"})
	if err != nil {
		t.Fatalf("ReadMessageIDs: %v", err)
	}
	if !read["m1"] || read["m2"] {
		t.Fatalf("unexpected read set: %v", read)
	}
}
