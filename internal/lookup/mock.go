package lookup

import (
	"context"
	"sync"

	"github.com/vikram1211/polymarket-whale-bot/internal/domain"
)

// MockDataAPI is a canned DataAPI for tests. Calls counts invocations per
// method so tests can assert that cheap filter stages never reach upstream.
// The zero value is ready to use; NewMockDataAPI just pre-allocates the maps.
type MockDataAPI struct {
	mu sync.Mutex

	PositionsByWallet map[string][]domain.Position
	SummaryByWallet   map[string]TradeSummary

	Calls map[string]int
	ErrOn map[string]error // method name -> error to return
}

func NewMockDataAPI() *MockDataAPI {
	return &MockDataAPI{
		PositionsByWallet: make(map[string][]domain.Position),
		SummaryByWallet:   make(map[string]TradeSummary),
		Calls:             make(map[string]int),
		ErrOn:             make(map[string]error),
	}
}

// record counts the call and reports any configured error. Caller holds mu.
func (m *MockDataAPI) record(method string) error {
	if m.Calls == nil {
		m.Calls = make(map[string]int)
	}
	m.Calls[method]++
	return m.ErrOn[method]
}

func (m *MockDataAPI) Positions(ctx context.Context, wallet string) ([]domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("positions"); err != nil {
		return nil, err
	}
	return m.PositionsByWallet[wallet], nil
}

func (m *MockDataAPI) TradeSummary(ctx context.Context, wallet string) (TradeSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("trade_summary"); err != nil {
		return TradeSummary{}, err
	}
	return m.SummaryByWallet[wallet], nil
}

// CallCount returns how often a method has been invoked.
func (m *MockDataAPI) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[method]
}

// MockGammaAPI is a canned GammaAPI for tests. The zero value is ready to use.
type MockGammaAPI struct {
	mu sync.Mutex

	ProfileByWallet map[string]*domain.WalletProfile
	MarketByID      map[string]*domain.MarketInfo
	Active          []*domain.MarketInfo

	Calls map[string]int
	ErrOn map[string]error
}

func NewMockGammaAPI() *MockGammaAPI {
	return &MockGammaAPI{
		ProfileByWallet: make(map[string]*domain.WalletProfile),
		MarketByID:      make(map[string]*domain.MarketInfo),
		Calls:           make(map[string]int),
		ErrOn:           make(map[string]error),
	}
}

// record counts the call and reports any configured error. Caller holds mu.
func (m *MockGammaAPI) record(method string) error {
	if m.Calls == nil {
		m.Calls = make(map[string]int)
	}
	m.Calls[method]++
	return m.ErrOn[method]
}

func (m *MockGammaAPI) Profile(ctx context.Context, wallet string) (*domain.WalletProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("profile"); err != nil {
		return nil, err
	}
	if p, ok := m.ProfileByWallet[wallet]; ok {
		return p, nil
	}
	return nil, notFoundErr("gamma:profile:get", errContext("no profile for "+wallet))
}

func (m *MockGammaAPI) Market(ctx context.Context, conditionID string) (*domain.MarketInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("market"); err != nil {
		return nil, err
	}
	if info, ok := m.MarketByID[conditionID]; ok {
		return info, nil
	}
	return nil, notFoundErr("gamma:markets:get", errContext("no market for "+conditionID))
}

func (m *MockGammaAPI) ActiveMarkets(ctx context.Context, limit int) ([]*domain.MarketInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("active_markets"); err != nil {
		return nil, err
	}
	return m.Active, nil
}

// CallCount returns how often a method has been invoked.
func (m *MockGammaAPI) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[method]
}

// errContext is a tiny error wrapper so mocks need no extra imports.
type errContext string

func (e errContext) Error() string { return string(e) }
