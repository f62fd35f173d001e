package domain

import "time"

// WalletProfile is the account context behind a trade: how old the wallet is
// and what its trading history looks like in aggregate. Fetched on first
// enrichment need, cached with a fixed ttl, refreshed on expiry.
type WalletProfile struct {
	Wallet      string
	CreatedAt   time.Time // zero when the upstream did not report it
	Name        string
	Pseudonym   string
	TradeCount  int     // lifetime number of trades
	AvgTradeUSD float64 // lifetime average trade size, 0 when unknown
}

// AgeAt returns the account age at the given instant, or -1 when the
// creation time is unknown.
func (w *WalletProfile) AgeAt(now time.Time) time.Duration {
	if w.CreatedAt.IsZero() {
		return -1
	}
	return now.Sub(w.CreatedAt)
}

// AgeDays returns the account age in whole days at the given instant,
// or -1 when unknown.
func (w *WalletProfile) AgeDays(now time.Time) int {
	age := w.AgeAt(now)
	if age < 0 {
		return -1
	}
	return int(age.Hours() / 24)
}

// DisplayName picks the best human-readable name for alert text.
func (w *WalletProfile) DisplayName() string {
	if w.Name != "" {
		return w.Name
	}
	if w.Pseudonym != "" {
		return w.Pseudonym
	}
	return ShortWallet(w.Wallet)
}

// ShortWallet renders an address as 0x1234…abcd for display.
func ShortWallet(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
