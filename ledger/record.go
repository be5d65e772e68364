package ledger

import "time"

// ReinforcementRecord tracks compensation trades attached to one original
// position. It is created on the first reinforcement, consulted and updated
// on every subsequent one, and discarded when the parent closes. It is the
// sole source of truth for the scheduler's cap and cooldown gates.
type ReinforcementRecord struct {
	ParentTicket string
	Count        int
	TotalVolume  float64
	LastTime     time.Time
}

// Record returns a copy of the reinforcement record for a parent ticket.
// ok is false when no reinforcement has been issued yet.
func (l *Ledger) Record(parentTicket string) (ReinforcementRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[parentTicket]
	if !ok {
		return ReinforcementRecord{ParentTicket: parentTicket}, false
	}
	return *r, true
}

// RecordReinforcement stamps one executed reinforcement against a parent
// position: count up, volume accumulated, last-time set.
func (l *Ledger) RecordReinforcement(parentTicket string, lots float64, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.records[parentTicket]
	if !ok {
		r = &ReinforcementRecord{ParentTicket: parentTicket}
		l.records[parentTicket] = r
	}
	r.Count++
	r.TotalVolume += lots
	r.LastTime = at
}
