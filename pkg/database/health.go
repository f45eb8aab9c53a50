package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Pool utilization thresholds above which Health reports a degraded
// status even though the database is reachable. caseforge's enrichment
// queue can burst to QueueConfig.WorkerCount concurrent stage executions,
// each holding a connection for the duration of an ent query; a pool
// sitting above these thresholds is a leading indicator of exhaustion
// before requests actually start blocking on PingContext.
const (
	degradedUtilization  = 0.75
	unhealthyUtilization = 0.95
)

// HealthStatus represents database health and connection pool statistics.
type HealthStatus struct {
	Status          string        `json:"status"`
	ResponseTime    time.Duration `json:"response_time_ms"`
	OpenConnections int           `json:"open_connections"`
	InUse           int           `json:"in_use"`
	Idle            int           `json:"idle"`
	WaitCount       int64         `json:"wait_count"`
	WaitDuration    time.Duration `json:"wait_duration_ms"`
	MaxOpenConns    int           `json:"max_open_conns"`
	PoolUtilization float64       `json:"pool_utilization"`
}

// Health checks database connectivity and grades the result against
// connection pool utilization: "healthy" when the pool has headroom,
// "degraded" when it's busy enough to warrant attention but still
// serving, and "unhealthy" when the ping fails or the pool is saturated.
func Health(ctx context.Context, db *sql.DB) (*HealthStatus, error) {
	start := time.Now()

	if err := db.PingContext(ctx); err != nil {
		return &HealthStatus{
			Status:       "unhealthy",
			ResponseTime: time.Since(start),
		}, err
	}

	stats := db.Stats()

	var utilization float64
	if stats.MaxOpenConnections > 0 {
		utilization = float64(stats.InUse) / float64(stats.MaxOpenConnections)
	}

	status := "healthy"
	switch {
	case utilization >= unhealthyUtilization:
		status = "unhealthy"
	case utilization >= degradedUtilization:
		status = "degraded"
	}

	result := &HealthStatus{
		Status:          status,
		ResponseTime:    time.Since(start),
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		WaitCount:       stats.WaitCount,
		WaitDuration:    stats.WaitDuration,
		MaxOpenConns:    stats.MaxOpenConnections,
		PoolUtilization: utilization,
	}
	if status == "unhealthy" {
		return result, errPoolSaturated
	}
	return result, nil
}

var errPoolSaturated = errors.New("database: connection pool saturated")
