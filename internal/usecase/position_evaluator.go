package usecase

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"github.com/vitos/options_alerts/internal/domain"
)

// IntrinsicEvaluator marks option structures from the underlying price:
// intrinsic value per leg plus the entry premium decayed with the square root
// of remaining time. It needs no chain data, which makes it good enough for
// exit alerts but not for fills.
type IntrinsicEvaluator struct{}

func NewIntrinsicEvaluator() *IntrinsicEvaluator {
	return &IntrinsicEvaluator{}
}

func legIntrinsic(l domain.Leg, price float64) float64 {
	if l.Type == domain.OptionCall {
		return math.Max(0, price-l.Strike)
	}
	return math.Max(0, l.Strike-price)
}

func (e *IntrinsicEvaluator) Evaluate(pos *domain.TrackedPosition, price float64, dte int) (domain.Evaluation, error) {
	if price <= 0 {
		return domain.Evaluation{}, fmt.Errorf("invalid price %.4f for %s", price, pos.Ticker)
	}
	if len(pos.Legs) == 0 {
		return domain.Evaluation{}, fmt.Errorf("position %s has no legs", pos.TradeID)
	}
	basis := pos.Basis()
	if basis <= 0 {
		return domain.Evaluation{}, fmt.Errorf("position %s has no premium basis", pos.TradeID)
	}

	// Value of the structure to its holder: long legs add, short legs subtract.
	intrinsic := 0.0
	for _, l := range pos.Legs {
		v := legIntrinsic(l, price)
		if l.Action == domain.ActionSell {
			v = -v
		}
		intrinsic += v
	}
	if pos.IsCredit() {
		// Cost to buy the structure back.
		intrinsic = -intrinsic
	}
	intrinsic = math.Max(0, intrinsic)
	if width := SpreadWidth(pos.Legs); len(pos.Legs) > 1 && intrinsic > width {
		intrinsic = width
	}

	extrinsic := 0.0
	if dte > 0 {
		total := pos.Expiration.Sub(pos.OpenedAt).Hours() / 24
		if total < 1 {
			total = 1
		}
		remaining := math.Min(1, float64(dte)/total)
		extrinsic = basis * math.Sqrt(remaining)
	}
	mark := intrinsic + extrinsic

	contracts := pos.Contracts
	if contracts <= 0 {
		contracts = 1
	}
	perShare := decimal.NewFromFloat(mark).Sub(decimal.NewFromFloat(basis))
	if pos.IsCredit() {
		perShare = perShare.Neg()
	}
	pnl := perShare.
		Mul(decimal.NewFromInt(domain.ContractMultiplier)).
		Mul(decimal.NewFromInt(int64(contracts))).
		Round(2)

	ev := domain.Evaluation{PnL: pnl.InexactFloat64(), Mark: mark}
	if dte < 0 {
		ev.Reason = "expired"
	}
	return ev, nil
}
