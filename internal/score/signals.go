package score

import (
	"math"
	"time"
)

// Signal names accepted in a weights file.
const (
	SignalFreshWallet   = "fresh_wallet"
	SignalSizeAnomaly   = "size_anomaly"
	SignalTiming        = "timing"
	SignalLongshot      = "longshot"
	SignalConcentration = "concentration"
)

// minTradesForAverage is the history depth below which a wallet's average
// trade size is treated as unknown rather than anomalous.
const minTradesForAverage = 5

// freshWallet scores young wallets. A wallet created today earns the full
// weight; points decay linearly to zero at maxAgeDays. Wallets with an
// unknown creation time score nothing.
type freshWallet struct {
	maxAgeDays int
	weight     float64
}

func NewFreshWallet(maxAgeDays int, weight float64) Signal {
	return &freshWallet{maxAgeDays: maxAgeDays, weight: weight}
}

func (s *freshWallet) Name() string { return SignalFreshWallet }

func (s *freshWallet) Points(in Input) float64 {
	if in.Profile == nil {
		return 0
	}
	age := in.Profile.AgeDays(in.Now)
	if age < 0 || age > s.maxAgeDays {
		return 0
	}
	return s.weight * float64(s.maxAgeDays-age) / float64(s.maxAgeDays)
}

// sizeAnomaly scores trades far above the wallet's usual size. The scale is
// logarithmic: points start at the configured multiple of the wallet's
// average and reach the full weight at eight times that multiple. Wallets
// without enough history to trust the average score nothing.
type sizeAnomaly struct {
	multiplier float64
	weight     float64
}

func NewSizeAnomaly(multiplier, weight float64) Signal {
	return &sizeAnomaly{multiplier: multiplier, weight: weight}
}

func (s *sizeAnomaly) Name() string { return SignalSizeAnomaly }

func (s *sizeAnomaly) Points(in Input) float64 {
	if in.Profile == nil || in.Trade == nil {
		return 0
	}
	if in.Profile.TradeCount < minTradesForAverage || in.Profile.AvgTradeUSD <= 0 {
		return 0
	}
	notional, _ := in.Trade.Notional.Float64()
	ratio := notional / in.Profile.AvgTradeUSD
	if ratio < s.multiplier {
		return 0
	}
	scaled := math.Log2(ratio/s.multiplier) / 3
	return s.weight * math.Min(1, scaled)
}

// timing scores trades placed close to market resolution. Points grow
// linearly from zero at the lookback horizon to the full weight at the end
// date. Markets without a known end date, or already past it, score nothing.
type timing struct {
	lookback time.Duration
	weight   float64
}

func NewTiming(lookback time.Duration, weight float64) Signal {
	return &timing{lookback: lookback, weight: weight}
}

func (s *timing) Name() string { return SignalTiming }

func (s *timing) Points(in Input) float64 {
	if in.Market == nil || in.Market.EndDate.IsZero() {
		return 0
	}
	remaining := in.Market.TimeToEnd(in.Now)
	if remaining <= 0 || remaining >= s.lookback {
		return 0
	}
	return s.weight * (1 - float64(remaining)/float64(s.lookback))
}

// longshot scores buys of cheap outcomes. Points grow linearly below the
// probability threshold and reach the full weight at half of it. Sells are
// ignored: dumping a cheap outcome is not a conviction bet.
type longshot struct {
	threshold float64
	weight    float64
}

func NewLongshot(threshold, weight float64) Signal {
	return &longshot{threshold: threshold, weight: weight}
}

func (s *longshot) Name() string { return SignalLongshot }

func (s *longshot) Points(in Input) float64 {
	if in.Trade == nil || !in.Trade.IsBuy() {
		return 0
	}
	if in.Trade.Price <= 0 || in.Trade.Price >= s.threshold {
		return 0
	}
	scaled := (s.threshold - in.Trade.Price) / (s.threshold / 2)
	return s.weight * math.Min(1, scaled)
}

// concentration scores wallets whose open portfolio is focused on the
// traded market. Points start at minPct of portfolio value and grow
// linearly to the full weight at 100%. An empty portfolio counts as full
// concentration: the wallet is going all in on its first position.
type concentration struct {
	minPct float64
	weight float64
}

func NewConcentration(minPct, weight float64) Signal {
	return &concentration{minPct: minPct, weight: weight}
}

func (s *concentration) Name() string { return SignalConcentration }

func (s *concentration) Points(in Input) float64 {
	if in.Trade == nil {
		return 0
	}
	var total, target float64
	for _, p := range in.Positions {
		v := p.Value()
		if v <= 0 {
			continue
		}
		total += v
		if p.ConditionID == in.Trade.Market {
			target += v
		}
	}
	pct := 100.0
	if total > 0 {
		pct = target / total * 100
	}
	if pct < s.minPct || s.minPct >= 100 {
		return 0
	}
	return s.weight * (pct - s.minPct) / (100 - s.minPct)
}
