package rules

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/yzeng1018/stock-monitor/internal/market"
	"github.com/yzeng1018/stock-monitor/internal/stats"
)

// Kind names one of the three trigger rules.
type Kind string

const (
	KindPriceMove   Kind = "price_move"
	KindNewExtreme  Kind = "new_extreme"
	KindVolumeSpike Kind = "volume_spike"
)

// Direction of a triggered condition.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// Condition describes one triggered rule for a quote.
type Condition struct {
	Kind      Kind
	Direction string
	Magnitude decimal.Decimal
	Message   string
}

// Thresholds parameterize one evaluation pass. They are configuration, not
// separate code paths: intraday and close modes differ only in values.
type Thresholds struct {
	PriceChangePct   decimal.Decimal
	VolumeMultiplier decimal.Decimal
}

// Evaluate runs the three independent rules against a single quote and its
// trailing-window statistics. It is pure: no I/O, no shared state, and
// re-evaluating the same inputs yields identical conditions. Any subset of
// rules may fire; an empty result means no alert.
//
// The window-dependent rules (new extreme, volume spike) are skipped when the
// statistics were built from fewer sessions than the window asked for; the
// price-move rule still runs.
func Evaluate(q market.Quote, st stats.Stats, th Thresholds) []Condition {
	conditions := make([]Condition, 0, 3)

	// 条件1：当日涨跌幅超过阈值。
	if q.HasPrevClose && q.ChangePct.Abs().GreaterThanOrEqual(th.PriceChangePct) {
		direction := DirectionUp
		label := "大涨"
		if q.ChangePct.IsNegative() {
			direction = DirectionDown
			label = "大跌"
		}
		conditions = append(conditions, Condition{
			Kind:      KindPriceMove,
			Direction: direction,
			Magnitude: q.ChangePct,
			Message: fmt.Sprintf("📊 条件1 %s：%s%%（阈值 ±%s%%）",
				label, signedPct(q.ChangePct), th.PriceChangePct.String()),
		})
	}

	if !st.Insufficient && st.Samples > 0 {
		// 条件2：价格创窗口期新高/新低。New-high is checked first: in a
		// degenerate single-bar window where high == low a quote could
		// satisfy both, and the high reading wins by convention.
		switch {
		case q.Price.GreaterThanOrEqual(st.High):
			conditions = append(conditions, Condition{
				Kind:      KindNewExtreme,
				Direction: DirectionUp,
				Magnitude: q.Price,
				Message: fmt.Sprintf("🏔️ 条件2 价格创近%d日新高：当前 %s ≥ 区间最高 %s",
					st.Samples, q.Price.String(), st.High.String()),
			})
		case q.Price.LessThanOrEqual(st.Low):
			conditions = append(conditions, Condition{
				Kind:      KindNewExtreme,
				Direction: DirectionDown,
				Magnitude: q.Price,
				Message: fmt.Sprintf("🕳️ 条件2 价格创近%d日新低：当前 %s ≤ 区间最低 %s",
					st.Samples, q.Price.String(), st.Low.String()),
			})
		}

		// 条件3：成交量异常放大。Only evaluable when the trailing average
		// is positive; an undefined ratio never fires, regardless of volume.
		if ratio, ok := st.VolumeRatio(q.Volume); ok {
			if ratio.GreaterThanOrEqual(th.VolumeMultiplier) {
				conditions = append(conditions, Condition{
					Kind:      KindVolumeSpike,
					Direction: DirectionUp,
					Magnitude: ratio,
					Message: fmt.Sprintf("🔥 条件3 成交量异常：今日 %d，是%d日均量的 %s 倍",
						q.Volume, st.Samples, ratio.StringFixed(1)),
				})
			}
		}
	}

	return conditions
}

func signedPct(d decimal.Decimal) string {
	s := d.StringFixed(2)
	if !d.IsNegative() {
		return "+" + s
	}
	return s
}
