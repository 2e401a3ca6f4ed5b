package command

import "time"

// Metrics receives operational measurements from the command handlers.
type Metrics interface {
	RewardAwarded(rewardType string)
	RewardConsumed(rewardType string)
	RewardsExpired(n int)
	PointsCredited(source string, amount int64)
	LevelUp()
	ConflictRetry(operation string)
	ObserveOperation(operation string, err error, elapsed time.Duration)
}

// NopMetrics discards all measurements.
type NopMetrics struct{}

func (NopMetrics) RewardAwarded(string)                          {}
func (NopMetrics) RewardConsumed(string)                         {}
func (NopMetrics) RewardsExpired(int)                            {}
func (NopMetrics) PointsCredited(string, int64)                  {}
func (NopMetrics) LevelUp()                                      {}
func (NopMetrics) ConflictRetry(string)                          {}
func (NopMetrics) ObserveOperation(string, error, time.Duration) {}
