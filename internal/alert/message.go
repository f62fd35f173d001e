package alert

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vikram1211/polymarket-whale-bot/internal/domain"
)

// Urgency tiers for the alert header.
const (
	highScore   = 70
	mediumScore = 50
)

// FormatAlert renders the Telegram message body in HTML parse mode. All
// upstream-controlled strings pass through html.EscapeString.
func FormatAlert(a *Alert) string {
	emoji, urgency := "\U0001F4CA", "LOW"
	switch {
	case a.Score.Total >= highScore:
		emoji, urgency = "\U0001F6A8\U0001F40B", "HIGH"
	case a.Score.Total >= mediumScore:
		emoji, urgency = "⚠️\U0001F40B", "MEDIUM"
	}

	t := a.Trade
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>WHALE ALERT</b> [%s]\n\n", emoji, urgency)
	fmt.Fprintf(&b, "<b>Market:</b> %s\n", html.EscapeString(marketTitle(a)))
	fmt.Fprintf(&b, "<b>Bet:</b> %s (%s)\n", html.EscapeString(t.Outcome), t.Side)
	fmt.Fprintf(&b, "<b>Amount:</b> %s\n", formatUSD(t.Notional))
	fmt.Fprintf(&b, "<b>Price:</b> %.2f (%d%% implied)\n\n", t.Price, impliedPct(t))

	fmt.Fprintf(&b, "<b>Trader:</b> %s\n", html.EscapeString(traderName(a)))
	fmt.Fprintf(&b, "• Account age: %s\n", accountAge(a))
	if a.Profile != nil && a.Profile.TradeCount > 0 {
		fmt.Fprintf(&b, "• Trades: %d (avg %s)\n", a.Profile.TradeCount, formatUSD(decimal.NewFromFloat(a.Profile.AvgTradeUSD)))
	}
	b.WriteString("\n")

	if len(a.Score.Parts) > 0 {
		b.WriteString("<b>Signals:</b>\n")
		for _, p := range a.Score.Parts {
			fmt.Fprintf(&b, "• %s +%d\n", p.Name, p.Points)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "<b>Whale Score:</b> %d/100\n\n", a.Score.Total)
	fmt.Fprintf(&b, "\U0001F517 <a href=\"https://polygonscan.com/tx/%s\">View Transaction</a>", t.ID)
	return b.String()
}

// FormatStartup is the notice sent when the bot comes online.
func FormatStartup(minTrade decimal.Decimal, minScore int) string {
	return fmt.Sprintf("\U0001F40B Whale bot online\nMin trade: %s · Min score: %d/100",
		formatUSD(minTrade), minScore)
}

// FormatShutdown is the notice sent on a clean stop.
func FormatShutdown() string {
	return "\U0001F40B Whale bot shutting down"
}

func marketTitle(a *Alert) string {
	if a.Trade.Title != "" {
		return a.Trade.Title
	}
	if a.Market != nil && a.Market.Question != "" {
		return a.Market.Question
	}
	return "Unknown Market"
}

func traderName(a *Alert) string {
	if a.Profile != nil {
		return a.Profile.DisplayName()
	}
	return domain.ShortWallet(a.Trade.Wallet)
}

func accountAge(a *Alert) string {
	if a.Profile == nil {
		return "unknown"
	}
	days := a.Profile.AgeDays(a.CreatedAt)
	if days < 0 {
		return "unknown"
	}
	if days == 0 {
		return "under a day"
	}
	return fmt.Sprintf("%d days", days)
}

// impliedPct mirrors the market's read of the fill: a buy at 0.35 implies
// 35%, a sell at 0.35 implies 65% for the opposite side.
func impliedPct(t *domain.Trade) int {
	if t.IsBuy() {
		return t.ImpliedPct()
	}
	return 100 - t.ImpliedPct()
}

// formatUSD renders a dollar amount with thousands separators, e.g.
// 2500 -> "$2,500.00".
func formatUSD(amount decimal.Decimal) string {
	s := amount.Abs().StringFixed(2)
	intPart, fracPart, _ := strings.Cut(s, ".")

	var grouped strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(digit)
	}

	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	return fmt.Sprintf("%s$%s.%s", sign, grouped.String(), fracPart)
}
