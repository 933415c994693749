package service

import (
	"sync"
	"time"
)

// MetricsCollector tracks performance metrics for registry operations
type MetricsCollector struct {
	mu sync.RWMutex

	initializeStartTime time.Time
	initializeEndTime   time.Time
	initializeCount     int
	initializeTotalTime time.Duration

	voteStartTime time.Time
	voteEndTime   time.Time
	voteCount     int
	voteTotalTime time.Duration

	rejectedCount int
}

// OperationMetrics contains timing information for an operation
type OperationMetrics struct {
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Count          int       `json:"count"`
	ProcessingTime int64     `json:"processing_time_ms"`
}

// MetricsResponse provides the metrics for all operations
type MetricsResponse struct {
	Initialization OperationMetrics `json:"initialization"`
	Voting         OperationMetrics `json:"voting"`
	RejectedCount  int              `json:"rejected_count"`
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// RecordInitialize records one completed initialization and its duration.
func (mc *MetricsCollector) RecordInitialize(start time.Time) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now()
	if mc.initializeCount == 0 {
		mc.initializeStartTime = start
	}
	mc.initializeCount++
	mc.initializeEndTime = now
	mc.initializeTotalTime += now.Sub(start)
}

// RecordVote records one accepted vote and its duration.
func (mc *MetricsCollector) RecordVote(start time.Time) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now()
	if mc.voteCount == 0 {
		mc.voteStartTime = start
	}
	mc.voteCount++
	mc.voteEndTime = now
	mc.voteTotalTime += now.Sub(start)
}

// RecordRejection counts an operation that failed with a terminal error.
func (mc *MetricsCollector) RecordRejection() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.rejectedCount++
}

// GetMetrics returns a snapshot of the collected metrics.
func (mc *MetricsCollector) GetMetrics() *MetricsResponse {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return &MetricsResponse{
		Initialization: OperationMetrics{
			StartTime:      mc.initializeStartTime,
			EndTime:        mc.initializeEndTime,
			Count:          mc.initializeCount,
			ProcessingTime: mc.initializeTotalTime.Milliseconds(),
		},
		Voting: OperationMetrics{
			StartTime:      mc.voteStartTime,
			EndTime:        mc.voteEndTime,
			Count:          mc.voteCount,
			ProcessingTime: mc.voteTotalTime.Milliseconds(),
		},
		RejectedCount: mc.rejectedCount,
	}
}
