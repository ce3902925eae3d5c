package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertRecord captures one dispatched symbol alert for auditing. The dedup
// gate itself lives in the dedup package; this table only answers "what was
// sent and why".
type AlertRecord struct {
	ID         int64
	RunTS      time.Time
	Mode       string
	Symbol     string
	Venue      string
	ChangePct  decimal.Decimal
	Conditions []string
	CreatedAt  time.Time
}
