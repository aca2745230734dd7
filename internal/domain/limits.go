package domain

import "time"

// Portfolio safety limits. These are fixed on purpose and are not read from
// configuration.
const (
	MaxRiskPerTrade        = 0.05
	MaxTotalExposure       = 0.15
	ExposureTolerance      = 1e-9
	DailyLossLimit         = -0.03
	WeeklyLossLimit        = -0.06
	MaxCorrelatedPositions = 3
	StopCooldown           = 4 * time.Hour
)

// ContractMultiplier is the number of shares per equity option contract.
const ContractMultiplier = 100
