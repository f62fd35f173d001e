package alert

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/vikram1211/polymarket-whale-bot/internal/domain"
	"github.com/vikram1211/polymarket-whale-bot/internal/score"
)

func sampleAlert() *Alert {
	now := time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)
	return &Alert{
		ID: "a1",
		Trade: &domain.Trade{
			ID:       "0xdeadbeef",
			Market:   "0xcond",
			Outcome:  "Yes",
			Side:     domain.SideBuy,
			Price:    0.35,
			Size:     7142.86,
			Notional: decimal.NewFromInt(2500),
			Wallet:   "0xabcdef1234567890abcdef1234567890abcdef12",
			Title:    "Will the measure pass?",
		},
		Profile: &domain.WalletProfile{
			Wallet:      "0xabcdef1234567890abcdef1234567890abcdef12",
			CreatedAt:   now.Add(-8 * 24 * time.Hour),
			Pseudonym:   "Prudent-Pelican",
			TradeCount:  3,
			AvgTradeUSD: 40,
		},
		Score: score.Score{
			Total: 43,
			Parts: []score.Part{
				{Name: "fresh_wallet", Points: 26},
				{Name: "timing", Points: 11},
				{Name: "longshot", Points: 6},
			},
		},
		CreatedAt: now,
	}
}

func TestFormatUSD(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2500", "$2,500.00"},
		{"999.5", "$999.50"},
		{"1234567.891", "$1,234,567.89"},
		{"0.35", "$0.35"},
		{"-1200", "-$1,200.00"},
	}
	for _, tc := range cases {
		d, err := decimal.NewFromString(tc.in)
		assert.NoError(t, err)
		assert.Equal(t, tc.want, formatUSD(d), "input %s", tc.in)
	}
}

func TestFormatAlertCoreFields(t *testing.T) {
	msg := FormatAlert(sampleAlert())

	assert.Contains(t, msg, "$2,500.00")
	assert.Contains(t, msg, "35% implied")
	assert.Contains(t, msg, "Will the measure pass?")
	assert.Contains(t, msg, "Yes (BUY)")
	assert.Contains(t, msg, "Prudent-Pelican")
	assert.Contains(t, msg, "Account age: 8 days")
	assert.Contains(t, msg, "fresh_wallet +26")
	assert.Contains(t, msg, "timing +11")
	assert.Contains(t, msg, "longshot +6")
	assert.Contains(t, msg, "<b>Whale Score:</b> 43/100")
	assert.Contains(t, msg, "https://polygonscan.com/tx/0xdeadbeef")
	assert.Contains(t, msg, "[LOW]")
}

func TestFormatAlertUrgencyTiers(t *testing.T) {
	a := sampleAlert()

	a.Score.Total = 72
	assert.Contains(t, FormatAlert(a), "[HIGH]")

	a.Score.Total = 55
	assert.Contains(t, FormatAlert(a), "[MEDIUM]")

	a.Score.Total = 43
	assert.Contains(t, FormatAlert(a), "[LOW]")
}

func TestFormatAlertEscapesMarkup(t *testing.T) {
	a := sampleAlert()
	a.Trade.Title = `Will <b>"chaos"</b> & panic win?`

	msg := FormatAlert(a)
	assert.Contains(t, msg, "Will &lt;b&gt;&#34;chaos&#34;&lt;/b&gt; &amp; panic win?")
	assert.NotContains(t, msg, "<b>\"chaos\"</b>")
}

func TestFormatAlertWithoutProfile(t *testing.T) {
	a := sampleAlert()
	a.Profile = nil

	msg := FormatAlert(a)
	assert.Contains(t, msg, "0xabcd…ef12")
	assert.Contains(t, msg, "Account age: unknown")
	assert.NotContains(t, msg, "Trades:")
}

func TestImpliedPctForSells(t *testing.T) {
	a := sampleAlert()
	a.Trade.Side = domain.SideSell

	assert.Contains(t, FormatAlert(a), "65% implied")
}

func TestSummaryLine(t *testing.T) {
	line := sampleAlert().Summary()
	assert.Equal(t, "12:00:00 $2,500.00 BUY Yes @35% score 43", line)
}

func TestStartupAndShutdownNotices(t *testing.T) {
	startup := FormatStartup(decimal.NewFromInt(2000), 40)
	assert.Contains(t, startup, "$2,000.00")
	assert.Contains(t, startup, "40/100")
	assert.False(t, strings.Contains(startup, "<"), "notices are plain text")

	assert.NotEmpty(t, FormatShutdown())
}
