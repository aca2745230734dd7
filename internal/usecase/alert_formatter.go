package usecase

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vitos/options_alerts/internal/domain"
)

var kindLabels = map[domain.StrategyKind]string{
	domain.KindCreditSpread:  "CREDIT SPREAD",
	domain.KindIronCondor:    "IRON CONDOR",
	domain.KindMomentumSwing: "MOMENTUM SWING",
	domain.KindEarningsPlay:  "EARNINGS PLAY",
	domain.KindGammaLotto:    "GAMMA LOTTO",
}

// AlertFormatter renders entry and exit alerts as plain text for push
// delivery.
type AlertFormatter struct{}

func NewAlertFormatter() *AlertFormatter {
	return &AlertFormatter{}
}

func money(v float64) string {
	d := decimal.NewFromFloat(v)
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

func pct(fraction float64) string {
	return decimal.NewFromFloat(fraction).Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}

func (f *AlertFormatter) FormatEntry(a *domain.Alert) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s | %s | %s confidence\n", kindLabels[a.Kind()], a.Ticker(), strings.ToUpper(string(a.Confidence())))
	fmt.Fprintf(&b, "Score: %.0f/100\n", a.Score())
	fmt.Fprintf(&b, "Direction: %s\n", a.Direction())

	b.WriteString("Legs:\n")
	for _, l := range a.Legs() {
		fmt.Fprintf(&b, "  %s %s %s exp %s\n",
			strings.ToUpper(string(l.Action)),
			decimal.NewFromFloat(l.Strike).String(),
			strings.ToUpper(string(l.Type)),
			l.Expiration.Format("2006-01-02"))
	}

	if a.Kind().IsCredit() {
		fmt.Fprintf(&b, "Credit: %s\n", money(a.EntryPrice()))
	} else {
		fmt.Fprintf(&b, "Debit: %s\n", money(a.EntryPrice()))
	}
	fmt.Fprintf(&b, "Stop loss: %s\n", money(a.StopLoss()))
	fmt.Fprintf(&b, "Profit target: %s\n", money(a.ProfitTarget()))
	fmt.Fprintf(&b, "Risk: %s of account\n", pct(a.RiskFraction()))

	if size, ok := a.Size(); ok {
		fmt.Fprintf(&b, "Size: %d contracts, risk %s (%s), max loss %s\n",
			size.Contracts, money(size.DollarRisk), pct(size.RiskFraction), money(size.MaxLoss))
	}
	if a.Thesis() != "" {
		fmt.Fprintf(&b, "Thesis: %s\n", a.Thesis())
	}
	if a.Management() != "" {
		fmt.Fprintf(&b, "Management: %s\n", a.Management())
	}
	fmt.Fprintf(&b, "Timing: %s", a.TimeSensitivity())
	if exp, ok := a.ExpiresAt(); ok {
		fmt.Fprintf(&b, " (valid until %s)", exp.Format("15:04 MST"))
	}
	return b.String()
}

var exitHeadlines = map[string]string{
	ReasonProfitTarget:       "PROFIT TARGET HIT",
	ReasonStopLoss:           "STOP LOSS HIT",
	ReasonTimeDecayWarning:   "TIME DECAY WARNING",
	ReasonPostEventClose:     "POST-EVENT CLOSE",
	ReasonTrailingActivation: "TRAILING STOP ACTIVATED",
	ReasonTrailingTriggered:  "TRAILING STOP TRIGGERED",
	ReasonExpiredWorthless:   "EXPIRED WORTHLESS",
}

func (f *AlertFormatter) FormatExit(pos *domain.TrackedPosition, reason string, pnl float64, detail string) string {
	headline, ok := exitHeadlines[reason]
	if !ok {
		headline = strings.ToUpper(strings.ReplaceAll(reason, "_", " "))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "EXIT | %s | %s\n", pos.Ticker, headline)
	fmt.Fprintf(&b, "Trade: %s (%s)\n", pos.TradeID, pos.StrategyType)
	sign := ""
	if pnl > 0 {
		sign = "+"
	}
	fmt.Fprintf(&b, "P&L: %s%s", sign, money(pnl))
	if basis := pos.BasisDollars(); basis > 0 {
		fmt.Fprintf(&b, " (%s%s of basis)", sign, pct(pnl/basis))
	}
	if detail != "" {
		fmt.Fprintf(&b, "\n%s", detail)
	}
	return b.String()
}
