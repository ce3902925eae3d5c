package market

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Venue identifies one of the monitored market segments.
type Venue string

const (
	VenueUS Venue = "US"
	VenueHK Venue = "HK"
	VenueCN Venue = "CN"
)

// ParseVenue normalizes a venue string from configuration.
func ParseVenue(s string) (Venue, error) {
	switch Venue(s) {
	case VenueUS, VenueHK, VenueCN:
		return Venue(s), nil
	}
	switch s {
	case "us":
		return VenueUS, nil
	case "hk":
		return VenueHK, nil
	case "cn", "a":
		return VenueCN, nil
	}
	return "", fmt.Errorf("unknown venue %q", s)
}

// Label 返回市场的中文名称，用于推送文案。
func (v Venue) Label() string {
	switch v {
	case VenueUS:
		return "美股"
	case VenueHK:
		return "港股"
	case VenueCN:
		return "A股"
	}
	return string(v)
}

// Quote is the canonical per-symbol record every adapter normalizes into.
type Quote struct {
	Symbol    string
	Name      string
	Venue     Venue
	Price     decimal.Decimal
	PrevClose decimal.Decimal
	// HasPrevClose is false when the provider could not supply a previous
	// close; ChangePct is zero-valued and not meaningful in that case.
	HasPrevClose bool
	ChangePct    decimal.Decimal
	Volume       int64
	AsOf         time.Time
}

// DisplayName falls back to the symbol when no name is known.
func (q Quote) DisplayName() string {
	if q.Name != "" {
		return q.Name
	}
	return q.Symbol
}

// Bar is one completed (or in-progress, for the current session) daily bar.
type Bar struct {
	Date   time.Time
	Close  decimal.Decimal
	Volume int64
}
