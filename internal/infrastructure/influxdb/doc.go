// Package influxdb provides InfluxDB connectivity for Railgate Core.
//
// It wraps the official influxdb-client-go v2 library with Railgate-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Transition metrics (duration, poll reads, outcome per operation)
//   - Power state samples for fleet dashboards
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "railgate",
//	    Bucket: "metrics",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Record a transition
//	client.WriteTransitionMetric("gpu_gx", "enable", "ok", 150*time.Microsecond, 3)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This keeps a burst of transitions from turning into a burst of HTTP requests.
package influxdb
