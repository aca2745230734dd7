package usecase

import (
	"time"
	_ "time/tzdata"
)

// Gamma trailing stop levels, in multiples of the entry debit.
const (
	TrailingActivationMultiple = 3.0
	TrailingFloorMultiple      = 2.0
)

var marketTZ = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*3600)
	}
	return loc
}()

func minutesToClose(now time.Time) float64 {
	ny := now.In(marketTZ)
	closeAt := time.Date(ny.Year(), ny.Month(), ny.Day(), 16, 0, 0, 0, marketTZ)
	return closeAt.Sub(ny).Minutes()
}

func profitTarget(multiple float64, template string) ExitRule {
	return ExitRule{
		Reason:   ReasonProfitTarget,
		Trigger:  func(c *ExitCheck) bool { return c.PnLMultiple() >= multiple },
		Template: template,
	}
}

func stopLoss(multiple float64, template string) ExitRule {
	return ExitRule{
		Reason:   ReasonStopLoss,
		Trigger:  func(c *ExitCheck) bool { return c.PnLMultiple() <= -multiple },
		Template: template,
	}
}

func MomentumMonitorSpec() MonitorSpec {
	return MonitorSpec{
		Name:   "momentum",
		Claims: []string{"momentum"},
		Rules: []ExitRule{
			profitTarget(0.5, "{ticker} up {pnl} ({pct}). Take profits on the swing."),
			stopLoss(0.5, "{ticker} down {pnl} ({pct}). Momentum failed, close it."),
			{
				Reason: ReasonTimeDecayWarning,
				Trigger: func(c *ExitCheck) bool {
					return c.DTE <= 5 && c.PnL < 0
				},
				Template: "{dte} DTE left and still red ({pnl}). Theta is accelerating.",
			},
		},
	}
}

func EarningsMonitorSpec() MonitorSpec {
	return MonitorSpec{
		Name:   "earnings",
		Claims: []string{"earnings"},
		Rules: []ExitRule{
			profitTarget(0.5, "{ticker} up {pnl} ({pct}) into the event."),
			stopLoss(0.6, "{ticker} down {pnl} ({pct}). Cut before the print."),
			{
				Reason: ReasonPostEventClose,
				Trigger: func(c *ExitCheck) bool {
					ev := c.Position.EventDate
					if ev == nil {
						return false
					}
					y, m, d := ev.Date()
					dayAfter := time.Date(y, m, d, 0, 0, 0, 0, ev.Location()).AddDate(0, 0, 1)
					return !c.Now.Before(dayAfter)
				},
				Template: "Event has passed. Close {ticker} at {pnl}, the IV crush is done.",
			},
		},
	}
}

func GammaMonitorSpec() MonitorSpec {
	return MonitorSpec{
		Name:     "gamma",
		Claims:   []string{"gamma", "lotto"},
		Trailing: true,
		Rules: []ExitRule{
			{
				Reason: ReasonTrailingActivation,
				Trigger: func(c *ExitCheck) bool {
					if c.Trailing == nil || c.Trailing.Activated {
						return false
					}
					if c.PnL > TrailingActivationMultiple*c.Basis {
						c.Trailing.Activated = true
						return true
					}
					return false
				},
				Template: "{ticker} lotto up {pnl}. Trailing stop armed at 2x the debit.",
			},
			{
				Reason: ReasonTrailingTriggered,
				Trigger: func(c *ExitCheck) bool {
					return c.Trailing != nil && c.Trailing.Activated && c.PnL < TrailingFloorMultiple*c.Basis
				},
				Template: "{ticker} gave back to {pnl}. Trailing stop hit, close now.",
			},
			{
				Reason: ReasonExpiredWorthless,
				Trigger: func(c *ExitCheck) bool {
					return c.DTE <= 0 && c.PnLMultiple() <= -0.9
				},
				Template: "{ticker} lotto expiring worthless ({pnl}). Let it go.",
			},
		},
	}
}

func ZeroDTEMonitorSpec() MonitorSpec {
	return MonitorSpec{
		Name:   "0dte",
		Claims: []string{"0dte"},
		Rules: []ExitRule{
			profitTarget(0.5, "{ticker} 0DTE captured {pnl} ({pct}). Close, don't get greedy."),
			stopLoss(1.0, "{ticker} 0DTE down {pnl} ({pct}). Stop hit."),
			{
				Reason: ReasonTimeDecayWarning,
				Trigger: func(c *ExitCheck) bool {
					left := minutesToClose(c.Now)
					return c.DTE <= 0 && left >= 0 && left <= 30
				},
				Template: "Under 30 minutes to the close. Flatten {ticker} ({pnl}).",
			},
		},
	}
}

func IronCondorMonitorSpec() MonitorSpec {
	return MonitorSpec{
		Name:   "iron_condor",
		Claims: []string{"condor"},
		Rules: []ExitRule{
			profitTarget(0.5, "{ticker} condor at {pnl} ({pct} of credit). Take it off."),
			stopLoss(2.0, "{ticker} condor down {pnl} ({pct} of credit). Close or roll the tested side."),
			{
				Reason: ReasonTimeDecayWarning,
				Trigger: func(c *ExitCheck) bool {
					return c.DTE <= 21
				},
				Template: "{ticker} condor at {dte} DTE. Gamma risk rising, manage or close.",
			},
		},
	}
}

// DefaultMonitorSpecs returns one spec per strategy family.
func DefaultMonitorSpecs() []MonitorSpec {
	return []MonitorSpec{
		MomentumMonitorSpec(),
		EarningsMonitorSpec(),
		GammaMonitorSpec(),
		ZeroDTEMonitorSpec(),
		IronCondorMonitorSpec(),
	}
}
