package score

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vikram1211/polymarket-whale-bot/internal/config"
)

type weightsFile struct {
	Signals []weightSpec `yaml:"signals"`
}

type weightSpec struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

func defaultWeights() []weightSpec {
	return []weightSpec{
		{Name: SignalFreshWallet, Weight: 30},
		{Name: SignalSizeAnomaly, Weight: 25},
		{Name: SignalTiming, Weight: 20},
		{Name: SignalLongshot, Weight: 25},
	}
}

// FromConfig builds the scoring engine. Without a weights file the default
// signal set applies; with one, the file replaces the set entirely. A
// malformed file or an unknown signal name is a startup error, never a
// silent fallback.
func FromConfig(cfg *config.Config) (*Engine, error) {
	specs := defaultWeights()
	if cfg.SignalsFile != "" {
		loaded, err := loadWeights(cfg.SignalsFile)
		if err != nil {
			return nil, err
		}
		specs = loaded
	}

	signals := make([]Signal, 0, len(specs))
	for _, spec := range specs {
		if spec.Weight < 0 {
			return nil, fmt.Errorf("signal %q has negative weight %g", spec.Name, spec.Weight)
		}
		if spec.Weight == 0 {
			continue
		}
		sig, err := build(spec, cfg)
		if err != nil {
			return nil, err
		}
		signals = append(signals, sig)
	}
	if len(signals) == 0 {
		return nil, fmt.Errorf("no signals enabled")
	}
	return NewEngine(signals...), nil
}

func loadWeights(path string) ([]weightSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read signals file %s", path)
	}
	var file weightsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, errors.Wrapf(err, "parse signals file %s", path)
	}
	if len(file.Signals) == 0 {
		return nil, fmt.Errorf("signals file %s defines no signals", path)
	}
	return file.Signals, nil
}

func build(spec weightSpec, cfg *config.Config) (Signal, error) {
	switch spec.Name {
	case SignalFreshWallet:
		return NewFreshWallet(cfg.FreshWalletMaxAgeDays, spec.Weight), nil
	case SignalSizeAnomaly:
		return NewSizeAnomaly(cfg.SizeAnomalyMultiplier, spec.Weight), nil
	case SignalTiming:
		return NewTiming(cfg.TimingLookback(), spec.Weight), nil
	case SignalLongshot:
		return NewLongshot(cfg.LongshotProbThreshold, spec.Weight), nil
	case SignalConcentration:
		return NewConcentration(cfg.ConcentrationMinPct, spec.Weight), nil
	default:
		return nil, fmt.Errorf("unknown signal %q (known: %s, %s, %s, %s, %s)",
			spec.Name, SignalFreshWallet, SignalSizeAnomaly, SignalTiming, SignalLongshot, SignalConcentration)
	}
}
