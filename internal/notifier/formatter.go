package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"StockLens/internal/indicator"
	"StockLens/internal/model"
)

// Report is the content of an analysis report.
type Report struct {
	Code        string
	Period      model.Period
	GeneratedAt time.Time
	Signals     []model.SignalEvent
	Indicators  []model.IndicatorOutput
}

// FormatMarkdownReport renders a report as Markdown.
func FormatMarkdownReport(r Report) string {
	lines := []string{
		fmt.Sprintf("# %s 分析报告", r.Code),
		"",
		fmt.Sprintf("- 周期: %s", r.Period),
		fmt.Sprintf("- 生成时间: %s", r.GeneratedAt.Format("2006-01-02 15:04:05")),
		"",
		"## 信号摘要",
	}
	for _, s := range r.Signals {
		lines = append(lines, "- "+s.Text)
	}
	lines = append(lines, "", "## 指标概览")
	for _, ind := range r.Indicators {
		lines = append(lines, fmt.Sprintf("- %s (%s)", ind.Name, ind.PlotType))
	}
	return strings.Join(lines, "\n")
}

// FormatSignalAlert formats newly detected watchlist signals for Telegram.
func FormatSignalAlert(code string, period model.Period, barDate string, lastClose float64, events []model.SignalEvent) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔔 <b>%s</b> | %s | %s\n", html.EscapeString(code), periodLabel(period), barDate))
	b.WriteString(fmt.Sprintf("收盘价: %.2f\n\n", lastClose))
	for _, e := range events {
		b.WriteString(fmt.Sprintf("%s %s\n", signalIcon(e.Kind), html.EscapeString(e.Text)))
	}
	return b.String()
}

// FormatSignalReply answers an on-demand signal query.
func FormatSignalReply(code string, period model.Period, events []model.SignalEvent) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>%s</b> %s信号\n\n", html.EscapeString(code), periodLabel(period)))
	if len(events) == 0 {
		b.WriteString("暂无信号")
		return b.String()
	}
	for _, e := range events {
		b.WriteString(fmt.Sprintf("%s %s\n", signalIcon(e.Kind), html.EscapeString(e.Text)))
	}
	return b.String()
}

// FormatIndicatorList lists the registered indicators.
func FormatIndicatorList(configs []indicator.Config) string {
	var b strings.Builder
	b.WriteString("📐 <b>可用指标</b>\n\n")
	for _, c := range configs {
		b.WriteString(fmt.Sprintf("• %s (%s) %s\n", c.Name, c.Type, formatParams(c.Params)))
	}
	return b.String()
}

// HelpText lists the bot commands.
func HelpText() string {
	return "可用命令:\n" +
		"• /signals &lt;代码&gt; [daily|weekly|monthly]\n" +
		"• /indicators\n" +
		"• /watch &lt;代码&gt;\n" +
		"• /unwatch &lt;代码&gt;\n" +
		"• /list\n" +
		"• /scan"
}

func formatParams(p any) string {
	switch v := p.(type) {
	case indicator.MAParams:
		parts := make([]string, len(v.Periods))
		for i, n := range v.Periods {
			parts[i] = fmt.Sprint(n)
		}
		return "periods=" + strings.Join(parts, ",")
	case indicator.MACDParams:
		return fmt.Sprintf("fast=%d slow=%d signal=%d", v.Fast, v.Slow, v.Signal)
	case indicator.KDJParams:
		return fmt.Sprintf("length=%d smooth_k=%d smooth_d=%d", v.Length, v.SmoothK, v.SmoothD)
	case indicator.RSIParams:
		return fmt.Sprintf("length=%d", v.Length)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func periodLabel(p model.Period) string {
	switch p {
	case model.PeriodWeekly:
		return "周线"
	case model.PeriodMonthly:
		return "月线"
	default:
		return "日线"
	}
}

func signalIcon(kind model.SignalKind) string {
	switch kind {
	case model.SignalGoldenCross:
		return "📈"
	case model.SignalDeathCross:
		return "📉"
	case model.SignalOverbought:
		return "⚠️"
	case model.SignalOversold:
		return "🎣"
	default:
		return "•"
	}
}
