package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cbanluta2700/agrismart--sub002/internal/domain"
	"github.com/cbanluta2700/agrismart--sub002/internal/realtime"
	"github.com/cbanluta2700/agrismart--sub002/internal/realtime/realtimetest"
	"github.com/cbanluta2700/agrismart--sub002/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// clock hands out strictly increasing timestamps.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Now().UTC().Add(time.Hour).Truncate(time.Second)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type harness struct {
	db    *gorm.DB
	reg   *realtime.Registry
	authz *Authorizer
	sync  *Synchronizer
	relay *Relay
	reads *ReadService
	convs *ConversationService
	users *UserService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := newTestDB(t)
	reg := realtime.NewRegistry()
	authz := &Authorizer{DB: db}
	syn := NewSynchronizer(db, reg)
	relay := NewRelay(db, reg, authz, syn, 100, time.Hour)
	relay.now = newClock().Now
	return &harness{
		db:    db,
		reg:   reg,
		authz: authz,
		sync:  syn,
		relay: relay,
		reads: &ReadService{DB: db, Registry: reg, Authz: authz, Sync: syn},
		convs: &ConversationService{DB: db, Authz: authz, Sync: syn},
		users: NewUserService(db, syn),
	}
}

// connect registers a recording connection for userID.
func (h *harness) connect(userID string) *realtimetest.Conn {
	c := realtimetest.NewConn(userID)
	h.reg.Register(userID, c)
	return c
}

// conversation creates a conversation directly in the store, bypassing the
// list refresh so tests start from silent connections.
func (h *harness) conversation(t *testing.T, members ...string) string {
	t.Helper()
	require.NoError(t, repo.EnsureUsers(context.Background(), h.db, members))
	c, err := repo.CreateConversation(context.Background(), h.db, members, nil, nil)
	require.NoError(t, err)
	return c.ID
}

func (h *harness) send(t *testing.T, from string, origin realtime.Conn, convID, content, tempID string) realtime.NewMessage {
	t.Helper()
	ack, err := h.relay.Send(context.Background(), from, origin, realtime.SendMessage{
		ConversationID: convID,
		Content:        content,
		TempID:         tempID,
	})
	require.NoError(t, err)
	return ack
}

func (h *harness) messageCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(&domain.Message{}).Count(&n).Error)
	return n
}

func newMessages(c *realtimetest.Conn) []realtime.NewMessage {
	var out []realtime.NewMessage
	for _, ev := range c.OfType(realtime.TypeNewMessage) {
		out = append(out, ev.(realtime.NewMessage))
	}
	return out
}

func readReceipts(c *realtimetest.Conn) []realtime.MessageRead {
	var out []realtime.MessageRead
	for _, ev := range c.OfType(realtime.TypeMessageRead) {
		out = append(out, ev.(realtime.MessageRead))
	}
	return out
}

func errorEvents(c *realtimetest.Conn) []realtime.ErrorEvent {
	var out []realtime.ErrorEvent
	for _, ev := range c.OfType(realtime.TypeError) {
		out = append(out, ev.(realtime.ErrorEvent))
	}
	return out
}

// lastList returns the most recent conversation list pushed to c.
func lastList(t *testing.T, c *realtimetest.Conn) realtime.ConversationListUpdate {
	t.Helper()
	lists := c.OfType(realtime.TypeConversationListUpdate)
	require.NotEmpty(t, lists, "no conversation-list-update received")
	return lists[len(lists)-1].(realtime.ConversationListUpdate)
}

func summaryFor(list realtime.ConversationListUpdate, convID string) (domain.ConversationSummary, bool) {
	for _, s := range list {
		if s.ID == convID {
			return s, true
		}
	}
	return domain.ConversationSummary{}, false
}
