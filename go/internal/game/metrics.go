package game

import "time"

// MetricsCollector records gameplay metrics.
type MetricsCollector interface {
	RecordGameStarted(variant string)
	RecordRoundCleared(variant string, points int, reaction time.Duration)
	RecordGameOver(variant string, reason EndReason, score, rounds int)
}

// NoOpMetricsCollector is used when metrics aren't needed
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordGameStarted(variant string) {}
func (NoOpMetricsCollector) RecordRoundCleared(variant string, points int, reaction time.Duration) {}
func (NoOpMetricsCollector) RecordGameOver(variant string, reason EndReason, score, rounds int) {}
