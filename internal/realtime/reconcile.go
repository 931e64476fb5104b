package realtime

// PendingMessage is a client-side optimistic entry. Until the server
// acknowledges it, Confirmed is false and ID is empty.
type PendingMessage struct {
	TempID    string
	Confirmed bool
	Message   NewMessage
}

// Reconcile folds an acknowledgment into the pending list. The entry whose
// TempID matches ack.TempID is replaced by the confirmed message carrying the
// server-assigned id. The input slice is not modified. The boolean reports
// whether a match was found; an ack without a tempId never matches.
func Reconcile(pending []PendingMessage, ack NewMessage) ([]PendingMessage, bool) {
	out := make([]PendingMessage, len(pending))
	copy(out, pending)
	if ack.TempID == "" {
		return out, false
	}
	for i := range out {
		if out[i].TempID == ack.TempID && !out[i].Confirmed {
			out[i] = PendingMessage{TempID: ack.TempID, Confirmed: true, Message: ack}
			return out, true
		}
	}
	return out, false
}

// Rollback drops the unconfirmed entry named by an error event's tempId.
// Confirmed entries are never removed.
func Rollback(pending []PendingMessage, ev ErrorEvent) ([]PendingMessage, bool) {
	out := make([]PendingMessage, 0, len(pending))
	removed := false
	for _, p := range pending {
		if !removed && ev.TempID != "" && p.TempID == ev.TempID && !p.Confirmed {
			removed = true
			continue
		}
		out = append(out, p)
	}
	return out, removed
}
