package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	MQTT          MQTTMetrics     `json:"mqtt"`
	Bridge        *BridgeMetrics  `json:"bridge,omitempty"`
	Entities      EntityMetrics   `json:"entities"`
	Database      DatabaseMetrics `json:"database"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

// BridgeMetrics contains Airzone bridge statistics.
type BridgeMetrics struct {
	Connected         bool   `json:"connected"`
	Status            string `json:"status"`
	EntitiesManaged   int    `json:"entities_managed"`
	CommandsProcessed uint64 `json:"commands_processed"`
	StatesPublished   uint64 `json:"states_published"`
	PollErrors        uint64 `json:"poll_errors"`
}

// EntityMetrics contains climate entity statistics.
type EntityMetrics struct {
	Total  int            `json:"total"`
	ByKind map[string]int `json:"by_kind"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns comprehensive system metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	// Collect runtime stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
	}

	// MQTT metrics (if available)
	if s.mqtt != nil {
		metrics.MQTT = MQTTMetrics{
			Connected: s.mqtt.IsConnected(),
		}
	}

	// Bridge metrics (if available)
	if s.bridge != nil {
		stats := s.bridge.GetMetrics()
		metrics.Bridge = &BridgeMetrics{
			Connected:         stats.Connected,
			Status:            stats.Status,
			EntitiesManaged:   stats.EntitiesManaged,
			CommandsProcessed: stats.CommandsProcessed,
			StatesPublished:   stats.StatesPublished,
			PollErrors:        stats.PollErrors,
		}
	}

	// Entity stats
	entities := s.entityList()
	metrics.Entities = EntityMetrics{
		Total:  len(entities),
		ByKind: make(map[string]int),
	}
	for _, e := range entities {
		metrics.Entities.ByKind[string(e.Kind())]++
	}

	// Database stats (if available)
	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
