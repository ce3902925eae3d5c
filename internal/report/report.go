// Package report turns a run's triggered records into outbound messages.
// Everything here is a pure function of its inputs so formatting is
// unit-testable before any notifier is involved.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yzeng1018/stock-monitor/internal/market"
	"github.com/yzeng1018/stock-monitor/internal/rules"
	"github.com/yzeng1018/stock-monitor/internal/stats"
)

// Entry is one triggered symbol with everything the formatter needs.
type Entry struct {
	Quote       market.Quote
	Stats       stats.Stats
	Conditions  []rules.Condition
	News        []string
	NewsSummary string
}

// AlertMessage renders the single aggregate message for a run. K triggered
// symbols always produce exactly one (title, body) pair; the caller must not
// invoke this with zero entries. When byMagnitude is set entries are ordered
// by absolute change percentage descending (intraday-style summaries);
// otherwise the original fetch order is kept (close-of-day summaries).
func AlertMessage(byMagnitude bool, entries []Entry, now time.Time) (string, string) {
	ordered := entries
	if byMagnitude {
		ordered = make([]Entry, len(entries))
		copy(ordered, entries)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Quote.ChangePct.Abs().GreaterThan(ordered[j].Quote.ChangePct.Abs())
		})
	}

	title := fmt.Sprintf("🚨 股票异动提醒（%d 支）", len(ordered))

	sections := make([]string, 0, len(ordered))
	for _, entry := range ordered {
		sections = append(sections, renderEntry(entry, now))
	}
	return title, strings.Join(sections, "\n\n---\n\n")
}

func renderEntry(entry Entry, now time.Time) string {
	q := entry.Quote
	emoji := "📈"
	if q.ChangePct.IsNegative() {
		emoji = "📉"
	}

	lines := []string{
		fmt.Sprintf("## %s %s（%s）", emoji, q.DisplayName(), q.Symbol),
		fmt.Sprintf("**市场**：%s", q.Venue.Label()),
		fmt.Sprintf("**当前价**：%s", q.Price.String()),
	}
	if q.HasPrevClose {
		lines = append(lines, fmt.Sprintf("**今日涨跌**：%s%%", signedPct(q.ChangePct)))
	}
	if entry.Stats.Samples > 0 {
		lines = append(lines, fmt.Sprintf("**近%d日区间**：%s ～ %s",
			entry.Stats.Samples, entry.Stats.Low.String(), entry.Stats.High.String()))
		lines = append(lines, volumeLine(q, entry.Stats))
	}
	lines = append(lines,
		fmt.Sprintf("**推送时间**：%s", now.Format("2006-01-02 15:04")),
		"",
		"### 触发原因",
	)
	for _, cond := range entry.Conditions {
		lines = append(lines, "- "+cond.Message)
	}

	if len(entry.News) > 0 {
		lines = append(lines, "", "### 相关新闻")
		for _, headline := range entry.News {
			lines = append(lines, "- "+headline)
		}
	}
	if entry.NewsSummary != "" {
		lines = append(lines, "", "### 新闻摘要", entry.NewsSummary)
	}

	return strings.Join(lines, "\n")
}

func volumeLine(q market.Quote, st stats.Stats) string {
	avg := st.VolumeAvg.Round(0).String()
	if ratio, ok := st.VolumeRatio(q.Volume); ok {
		return fmt.Sprintf("**今日成交量**：%d（%d日均量：%s | %s倍）",
			q.Volume, st.Samples, avg, ratio.StringFixed(1))
	}
	return fmt.Sprintf("**今日成交量**：%d（%d日均量：%s | 倍数不可用）",
		q.Volume, st.Samples, avg)
}

// DailySummary renders the ranking digest over every evaluated quote.
func DailySummary(quotes []market.Quote, now time.Time) (string, string) {
	title := "📊 每日股票汇总"
	if len(quotes) == 0 {
		return title, "今日无数据"
	}

	ranked := make([]market.Quote, 0, len(quotes))
	for _, q := range quotes {
		if q.HasPrevClose {
			ranked = append(ranked, q)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ChangePct.GreaterThan(ranked[j].ChangePct)
	})

	lines := []string{
		fmt.Sprintf("# 📊 股票日报 %s", now.Format("2006-01-02")),
		"",
		fmt.Sprintf("**监控股票数**：%d 支", len(quotes)),
		"",
	}

	gainers := topGainers(ranked, 5)
	if len(gainers) > 0 {
		lines = append(lines, "### 🚀 今日涨幅前5")
		for _, q := range gainers {
			lines = append(lines, rankLine(q))
		}
	}

	losers := topLosers(ranked, 5)
	if len(losers) > 0 {
		lines = append(lines, "", "### 🔴 今日跌幅前5")
		for _, q := range losers {
			lines = append(lines, rankLine(q))
		}
	}

	return title, strings.Join(lines, "\n")
}

func topGainers(ranked []market.Quote, n int) []market.Quote {
	out := make([]market.Quote, 0, n)
	for _, q := range ranked {
		if !q.ChangePct.IsPositive() {
			break
		}
		out = append(out, q)
		if len(out) >= n {
			break
		}
	}
	return out
}

func topLosers(ranked []market.Quote, n int) []market.Quote {
	if len(ranked) == 0 {
		return nil
	}
	start := len(ranked) - n
	if start < 0 {
		start = 0
	}
	tail := ranked[start:]

	// Worst performer first.
	out := make([]market.Quote, 0, len(tail))
	for i := len(tail) - 1; i >= 0; i-- {
		out = append(out, tail[i])
	}
	return out
}

func rankLine(q market.Quote) string {
	return fmt.Sprintf("- **%s**（%s）%s%% @ %s",
		q.DisplayName(), q.Symbol, signedPct(q.ChangePct), q.Price.String())
}

func signedPct(d decimal.Decimal) string {
	s := d.StringFixed(2)
	if !d.IsNegative() {
		return "+" + s
	}
	return s
}
