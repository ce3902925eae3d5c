// Package dedup prevents repeat alerts for the same symbol within one
// calendar trading date. The store owns the alerted-set exclusively; the
// date match is re-derived on every read, so yesterday's state behaves as
// empty today without any cleanup job.
package dedup

import "context"

// DateLayout is the calendar-day key shared by all store implementations.
const DateLayout = "2006-01-02"

// Store gates re-alerting within a trading date.
type Store interface {
	// AlreadyAlerted reports whether the symbol was alerted on the given day.
	AlreadyAlerted(ctx context.Context, day, symbol string) (bool, error)
	// RecordAlerted adds symbols to the day's alerted set. Writes must be
	// read-modify-write safe under concurrent scheduled runs.
	RecordAlerted(ctx context.Context, day string, symbols []string) error
}
