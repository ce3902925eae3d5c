package rules

import (
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/yzeng1018/stock-monitor/internal/market"
	"github.com/yzeng1018/stock-monitor/internal/stats"
)

func quoteOf(price, prevClose float64, volume int64) market.Quote {
	p := decimal.NewFromFloat(price)
	prev := decimal.NewFromFloat(prevClose)
	return market.Quote{
		Symbol:       "TEST",
		Venue:        market.VenueUS,
		Price:        p,
		PrevClose:    prev,
		HasPrevClose: true,
		ChangePct:    p.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)),
		Volume:       volume,
	}
}

func statsOf(high, low, volumeAvg float64, samples int) stats.Stats {
	return stats.Stats{
		High:      decimal.NewFromFloat(high),
		Low:       decimal.NewFromFloat(low),
		VolumeAvg: decimal.NewFromFloat(volumeAvg),
		Samples:   samples,
	}
}

func thresholdsOf(pricePct, volumeMult float64) Thresholds {
	return Thresholds{
		PriceChangePct:   decimal.NewFromFloat(pricePct),
		VolumeMultiplier: decimal.NewFromFloat(volumeMult),
	}
}

func conditionOf(conds []Condition, kind Kind) (Condition, bool) {
	for _, c := range conds {
		if c.Kind == kind {
			return c, true
		}
	}
	return Condition{}, false
}

func TestPriceMoveFires(t *testing.T) {
	// 112 on a previous close of 100 is +12.00%.
	q := quoteOf(112, 100, 1000)
	st := statsOf(200, 50, 1000, 30)

	conds := Evaluate(q, st, thresholdsOf(7.0, 99))
	cond, ok := conditionOf(conds, KindPriceMove)
	if !ok {
		t.Fatal("+12% 在阈值 7% 下应触发条件1")
	}
	if cond.Direction != DirectionUp {
		t.Fatalf("方向应为 up, 实际 %s", cond.Direction)
	}
	if !strings.Contains(cond.Message, "+12.00%") {
		t.Fatalf("消息应包含 +12.00%%, 实际 %q", cond.Message)
	}
}

func TestPriceMoveBelowThreshold(t *testing.T) {
	q := quoteOf(112, 100, 1000)
	st := statsOf(200, 50, 1000, 30)

	conds := Evaluate(q, st, thresholdsOf(12.5, 99))
	if _, ok := conditionOf(conds, KindPriceMove); ok {
		t.Fatal("+12% 在阈值 12.5% 下不应触发条件1")
	}
}

func TestPriceMoveDown(t *testing.T) {
	q := quoteOf(88, 100, 1000)
	st := statsOf(200, 50, 1000, 30)

	conds := Evaluate(q, st, thresholdsOf(7.0, 99))
	cond, ok := conditionOf(conds, KindPriceMove)
	if !ok {
		t.Fatal("-12% 应触发条件1")
	}
	if cond.Direction != DirectionDown {
		t.Fatalf("方向应为 down, 实际 %s", cond.Direction)
	}
}

func TestPriceMoveSkippedWithoutPrevClose(t *testing.T) {
	q := quoteOf(112, 100, 1000)
	q.HasPrevClose = false
	st := statsOf(200, 50, 1000, 30)

	conds := Evaluate(q, st, thresholdsOf(0.0, 99))
	if _, ok := conditionOf(conds, KindPriceMove); ok {
		t.Fatal("缺少昨收价时条件1不应评估")
	}
}

func TestNewHighBoundaryInclusive(t *testing.T) {
	// price == windowHigh fires as a new high (boundary is >=).
	q := quoteOf(50, 49, 1000)
	st := statsOf(50.0, 30.0, 1000, 30)

	conds := Evaluate(q, st, thresholdsOf(99, 99))
	cond, ok := conditionOf(conds, KindNewExtreme)
	if !ok {
		t.Fatal("price == windowHigh 应触发新高")
	}
	if cond.Direction != DirectionUp {
		t.Fatalf("应为新高而非新低, 实际 %s", cond.Direction)
	}
}

func TestNewLow(t *testing.T) {
	q := quoteOf(29, 30, 1000)
	st := statsOf(50.0, 30.0, 1000, 30)

	conds := Evaluate(q, st, thresholdsOf(99, 99))
	cond, ok := conditionOf(conds, KindNewExtreme)
	if !ok {
		t.Fatal("price < windowLow 应触发新低")
	}
	if cond.Direction != DirectionDown {
		t.Fatalf("应为新低, 实际 %s", cond.Direction)
	}
}

func TestNewHighWinsDegenerateWindow(t *testing.T) {
	// Single-bar window where high == low == price: the high reading wins.
	q := quoteOf(40, 40, 1000)
	st := statsOf(40.0, 40.0, 1000, 1)

	conds := Evaluate(q, st, thresholdsOf(99, 99))
	cond, ok := conditionOf(conds, KindNewExtreme)
	if !ok {
		t.Fatal("退化窗口应仍触发条件2")
	}
	if cond.Direction != DirectionUp {
		t.Fatalf("高低重合时应按新高处理, 实际 %s", cond.Direction)
	}
	if len(conds) != 1 {
		t.Fatalf("条件2只应触发一次, 实际 %d 条", len(conds))
	}
}

func TestVolumeSpikeThresholds(t *testing.T) {
	q := quoteOf(10, 10, 300000)
	st := statsOf(50, 5, 100000, 30)

	// ratio = 3.00: fires at 2.5, not at 3.5.
	conds := Evaluate(q, st, thresholdsOf(99, 2.5))
	if _, ok := conditionOf(conds, KindVolumeSpike); !ok {
		t.Fatal("倍数 3.0 在阈值 2.5 下应触发条件3")
	}

	conds = Evaluate(q, st, thresholdsOf(99, 3.5))
	if _, ok := conditionOf(conds, KindVolumeSpike); ok {
		t.Fatal("倍数 3.0 在阈值 3.5 下不应触发条件3")
	}
}

func TestVolumeSpikeUndefinedAverage(t *testing.T) {
	q := quoteOf(10, 10, 99999999)
	st := statsOf(50, 5, 0, 30)

	conds := Evaluate(q, st, thresholdsOf(99, 0.0001))
	if _, ok := conditionOf(conds, KindVolumeSpike); ok {
		t.Fatal("均量为 0 时条件3永远不应触发")
	}
}

func TestWindowRulesSkippedOnInsufficientHistory(t *testing.T) {
	q := quoteOf(112, 100, 99999999)
	st := statsOf(50, 5, 1, 2)
	st.Insufficient = true

	conds := Evaluate(q, st, thresholdsOf(7.0, 1.0))
	if _, ok := conditionOf(conds, KindPriceMove); !ok {
		t.Fatal("历史不足时条件1仍应评估")
	}
	if _, ok := conditionOf(conds, KindNewExtreme); ok {
		t.Fatal("历史不足时条件2应跳过")
	}
	if _, ok := conditionOf(conds, KindVolumeSpike); ok {
		t.Fatal("历史不足时条件3应跳过")
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	q := quoteOf(112, 100, 300000)
	st := statsOf(110, 90, 100000, 30)
	th := thresholdsOf(7.0, 2.5)

	first := Evaluate(q, st, th)
	second := Evaluate(q, st, th)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("相同输入重复评估结果应一致:\n%v\n%v", first, second)
	}
	if len(first) != 3 {
		t.Fatalf("该行情应同时触发三个条件, 实际 %d", len(first))
	}
}

func TestNoConditions(t *testing.T) {
	q := quoteOf(100.5, 100, 1000)
	st := statsOf(110, 90, 100000, 30)

	conds := Evaluate(q, st, thresholdsOf(7.0, 2.5))
	if len(conds) != 0 {
		t.Fatalf("平稳行情不应触发任何条件: %v", conds)
	}
}
