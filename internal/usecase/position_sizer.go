package usecase

import (
	"errors"
	"fmt"
	"math"

	"github.com/vitos/options_alerts/internal/domain"
)

var ErrInvalidAccount = errors.New("invalid account input")

const (
	baseBudgetFraction = 0.02
	maxIVMultiplier    = 1.5
	// DefaultSpreadWidth stands in when legs do not describe a width.
	DefaultSpreadWidth = 5.0
)

type SizerConfig struct {
	MinContracts int
	MaxContracts int
}

func DefaultSizerConfig() SizerConfig {
	return SizerConfig{MinContracts: 1, MaxContracts: 10}
}

// PositionSizer turns an approved alert into a contract count under a risk
// budget.
type PositionSizer struct {
	cfg SizerConfig
}

func NewPositionSizer(cfg SizerConfig) *PositionSizer {
	if cfg.MinContracts < 1 {
		cfg.MinContracts = 1
	}
	if cfg.MaxContracts < cfg.MinContracts {
		cfg.MaxContracts = cfg.MinContracts
	}
	return &PositionSizer{cfg: cfg}
}

// ivMultiplier maps IV rank to a budget tier. Rich premium earns a larger
// budget, capped at maxIVMultiplier.
func ivMultiplier(ivRank float64) float64 {
	switch {
	case ivRank < 25:
		return 0.5
	case ivRank < 50:
		return 0.75
	case ivRank < 75:
		return 1.0
	default:
		return maxIVMultiplier
	}
}

func (s *PositionSizer) Size(alert *domain.Alert, accountValue, ivRank, portfolioRisk float64, weeklyBreach bool) (domain.SizeResult, error) {
	if math.IsNaN(accountValue) || math.IsInf(accountValue, 0) {
		return domain.SizeResult{}, fmt.Errorf("%w: account value %v", ErrInvalidAccount, accountValue)
	}
	if math.IsNaN(ivRank) || math.IsNaN(portfolioRisk) {
		return domain.SizeResult{}, fmt.Errorf("%w: iv rank %v, portfolio risk %v", ErrInvalidAccount, ivRank, portfolioRisk)
	}
	if accountValue <= 0 {
		return domain.SizeResult{}, nil
	}

	// 1. Budget from IV tier, discounted by risk already committed
	discount := 1 - portfolioRisk/domain.MaxTotalExposure
	if discount < 0 {
		discount = 0
	} else if discount > 1 {
		discount = 1
	}
	budget := accountValue * baseBudgetFraction * ivMultiplier(ivRank) * discount

	// 2. Hard per-trade cap, enforced again here regardless of the gate
	capFraction := math.Min(alert.RiskFraction(), domain.MaxRiskPerTrade)
	if hardCap := capFraction * accountValue; budget > hardCap {
		budget = hardCap
	}

	// 3. Weekly drawdown halves exposure
	if weeklyBreach {
		budget /= 2
	}

	// 4. Risk fraction actually used
	riskFraction := budget / accountValue

	// 5-6. Contracts from per-contract max loss
	width := SpreadWidth(alert.Legs())
	perContract := (width - alert.EntryPrice()) * domain.ContractMultiplier
	if perContract <= 0 {
		// Debit wider than the structure: the premium is the loss.
		perContract = alert.EntryPrice() * domain.ContractMultiplier
	}

	// 7. Clamp to configured bounds; the floor never buys past the budget
	affordable := int(math.Floor(budget / perContract))
	contracts := affordable
	if contracts > 0 {
		if contracts < s.cfg.MinContracts {
			contracts = s.cfg.MinContracts
		}
		if contracts > s.cfg.MaxContracts {
			contracts = s.cfg.MaxContracts
		}
	}
	contracts = min(contracts, affordable)
	if contracts < 0 {
		contracts = 0
	}

	return domain.SizeResult{
		RiskFraction: riskFraction,
		Contracts:    contracts,
		DollarRisk:   budget,
		MaxLoss:      float64(contracts) * perContract,
	}, nil
}

// SpreadWidth derives the width of a structure from its legs. Iron condors
// use the wider of the two wings.
func SpreadWidth(legs []domain.Leg) float64 {
	var width float64
	switch len(legs) {
	case 2:
		width = math.Abs(legs[0].Strike - legs[1].Strike)
	case 4:
		width = math.Max(sideWidth(legs, domain.OptionPut), sideWidth(legs, domain.OptionCall))
	}
	if width <= 0 {
		return DefaultSpreadWidth
	}
	return width
}

func sideWidth(legs []domain.Leg, t domain.OptionType) float64 {
	var strikes []float64
	for _, l := range legs {
		if l.Type == t {
			strikes = append(strikes, l.Strike)
		}
	}
	if len(strikes) < 2 {
		return 0
	}
	low, high := strikes[0], strikes[0]
	for _, k := range strikes[1:] {
		low = math.Min(low, k)
		high = math.Max(high, k)
	}
	return high - low
}
