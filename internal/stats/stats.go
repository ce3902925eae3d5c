package stats

import (
	"github.com/shopspring/decimal"

	"github.com/yzeng1018/stock-monitor/internal/market"
)

// Stats summarizes a trailing bar series for rule evaluation.
type Stats struct {
	High      decimal.Decimal
	Low       decimal.Decimal
	VolumeAvg decimal.Decimal
	Samples   int
	// Insufficient marks a series shorter than the requested window. The
	// values above are still computed from whatever bars were available so
	// callers can decide which rules remain evaluable.
	Insufficient bool
}

// Compute derives window extrema and the average volume over the last
// `window` bars of the given series. The series must already exclude the
// current session. An empty series yields zero stats with Insufficient set.
func Compute(bars []market.Bar, window int) Stats {
	if window > 0 && len(bars) > window {
		bars = bars[len(bars)-window:]
	}

	st := Stats{Samples: len(bars), Insufficient: len(bars) < window}
	if len(bars) == 0 {
		return st
	}

	st.High = bars[0].Close
	st.Low = bars[0].Close
	volSum := decimal.Zero
	for _, bar := range bars {
		if bar.Close.GreaterThan(st.High) {
			st.High = bar.Close
		}
		if bar.Close.LessThan(st.Low) {
			st.Low = bar.Close
		}
		volSum = volSum.Add(decimal.NewFromInt(bar.Volume))
	}
	st.VolumeAvg = volSum.Div(decimal.NewFromInt(int64(len(bars))))
	return st
}

// VolumeRatio divides the current session volume by the trailing average.
// The second return is false when the average is zero or missing; the rule
// using the ratio must treat that as "not evaluable", never as zero.
func (s Stats) VolumeRatio(volume int64) (decimal.Decimal, bool) {
	if !s.VolumeAvg.IsPositive() {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromInt(volume).Div(s.VolumeAvg), true
}
