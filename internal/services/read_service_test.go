package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbanluta2700/agrismart--sub002/internal/domain"
	"github.com/cbanluta2700/agrismart--sub002/internal/realtime"
	"github.com/cbanluta2700/agrismart--sub002/internal/repo"
)

func markerCount(t *testing.T, h *harness) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(&domain.ReadMarker{}).Count(&n).Error)
	return n
}

func TestMarkRead_NotifiesSenderPerMessage(t *testing.T) {
	h := newHarness(t)
	c1 := h.conversation(t, "buyer", "seller")
	m1 := h.send(t, "buyer", nil, c1, "first", "")
	m2 := h.send(t, "buyer", nil, c1, "second", "")

	buyer := h.connect("buyer")
	seller := h.connect("seller")

	ids, err := h.reads.MarkRead(context.Background(), "seller", seller, realtime.MarkRead{ConversationID: c1})
	require.NoError(t, err)
	assert.Equal(t, []string{m1.ID, m2.ID}, ids)
	assert.Equal(t, int64(2), markerCount(t, h))

	receipts := readReceipts(buyer)
	require.Len(t, receipts, 2)
	assert.Equal(t, realtime.MessageRead{ConversationID: c1, MessageID: m1.ID, ReadBy: "seller"}, receipts[0])
	assert.Equal(t, realtime.MessageRead{ConversationID: c1, MessageID: m2.ID, ReadBy: "seller"}, receipts[1])

	// Never echoed to the reader.
	assert.Empty(t, readReceipts(seller))

	sellerList := lastList(t, seller)
	sum, ok := summaryFor(sellerList, c1)
	require.True(t, ok)
	assert.Equal(t, int64(0), sum.UnreadCount)
	assert.NotEmpty(t, buyer.OfType(realtime.TypeConversationListUpdate))
}

func TestMarkRead_SecondCallIsSilent(t *testing.T) {
	h := newHarness(t)
	c1 := h.conversation(t, "buyer", "seller")
	h.send(t, "buyer", nil, c1, "hi", "")

	buyer := h.connect("buyer")
	seller := h.connect("seller")

	_, err := h.reads.MarkRead(context.Background(), "seller", seller, realtime.MarkRead{ConversationID: c1})
	require.NoError(t, err)
	before := markerCount(t, h)
	buyer.Reset()
	seller.Reset()

	ids, err := h.reads.MarkRead(context.Background(), "seller", seller, realtime.MarkRead{ConversationID: c1})
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, before, markerCount(t, h))
	assert.Empty(t, buyer.Events())
	assert.Empty(t, seller.Events())
}

func TestMarkRead_OwnMessagesAreNotMarked(t *testing.T) {
	h := newHarness(t)
	c1 := h.conversation(t, "buyer", "seller")
	h.send(t, "buyer", nil, c1, "mine", "")
	buyer := h.connect("buyer")

	ids, err := h.reads.MarkRead(context.Background(), "buyer", buyer, realtime.MarkRead{ConversationID: c1})
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, int64(0), markerCount(t, h))
	assert.Empty(t, buyer.Events())
}

func TestMarkRead_OnlyNewMessagesAfterEarlierRead(t *testing.T) {
	h := newHarness(t)
	c1 := h.conversation(t, "buyer", "seller")
	h.send(t, "buyer", nil, c1, "one", "")
	_, err := h.reads.MarkRead(context.Background(), "seller", nil, realtime.MarkRead{ConversationID: c1})
	require.NoError(t, err)

	m2 := h.send(t, "buyer", nil, c1, "two", "")
	buyer := h.connect("buyer")

	ids, err := h.reads.MarkRead(context.Background(), "seller", nil, realtime.MarkRead{ConversationID: c1})
	require.NoError(t, err)
	assert.Equal(t, []string{m2.ID}, ids)
	receipts := readReceipts(buyer)
	require.Len(t, receipts, 1)
	assert.Equal(t, m2.ID, receipts[0].MessageID)
}

func TestMarkRead_GroupsReceiptsBySender(t *testing.T) {
	h := newHarness(t)
	c1 := h.conversation(t, "buyer", "seller", "agent")
	fromBuyer := h.send(t, "buyer", nil, c1, "from buyer", "")
	fromAgent := h.send(t, "agent", nil, c1, "from agent", "")

	buyer := h.connect("buyer")
	agent := h.connect("agent")

	_, err := h.reads.MarkRead(context.Background(), "seller", nil, realtime.MarkRead{ConversationID: c1})
	require.NoError(t, err)

	b := readReceipts(buyer)
	require.Len(t, b, 1)
	assert.Equal(t, fromBuyer.ID, b[0].MessageID)
	a := readReceipts(agent)
	require.Len(t, a, 1)
	assert.Equal(t, fromAgent.ID, a[0].MessageID)
}

func TestMarkRead_RaceLeavesDisjointReports(t *testing.T) {
	h := newHarness(t)
	c1 := h.conversation(t, "buyer", "seller")
	m1 := h.send(t, "buyer", nil, c1, "one", "")
	h.send(t, "buyer", nil, c1, "two", "")

	// A second device already stored a marker for m1 between the unread
	// query and the insert.
	inserted, err := repo.CreateReadMarkers(context.Background(), h.db, c1, "seller", []string{m1.ID})
	require.NoError(t, err)
	require.Equal(t, []string{m1.ID}, inserted)

	buyer := h.connect("buyer")
	ids, err := h.reads.MarkRead(context.Background(), "seller", nil, realtime.MarkRead{ConversationID: c1})
	require.NoError(t, err)
	assert.NotContains(t, ids, m1.ID)
	assert.Len(t, ids, 1)
	assert.Len(t, readReceipts(buyer), 1)
}

func TestMarkRead_RejectsNonParticipant(t *testing.T) {
	h := newHarness(t)
	c1 := h.conversation(t, "buyer", "seller")
	h.send(t, "buyer", nil, c1, "secret", "")
	buyer := h.connect("buyer")
	intruder := h.connect("intruder")

	_, err := h.reads.MarkRead(context.Background(), "intruder", intruder, realtime.MarkRead{ConversationID: c1})
	require.ErrorIs(t, err, ErrNotParticipant)

	errs := errorEvents(intruder)
	require.Len(t, errs, 1)
	assert.Empty(t, errs[0].TempID)
	assert.Empty(t, buyer.Events())
	assert.Equal(t, int64(0), markerCount(t, h))
}
