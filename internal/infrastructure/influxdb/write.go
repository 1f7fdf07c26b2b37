package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteTransitionMetric records one completed power-domain transition.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - domain: Power domain name (e.g., "gpu_gx")
//   - operation: The transition that ran (enable, disable, set_mode)
//   - outcome: ok or error
//   - duration: Wall-clock time the transition took
//   - pollReads: Status reads performed by the transition's final poll
//
// Example:
//
//	client.WriteTransitionMetric("gpu_gx", "enable", "ok", 150*time.Microsecond, 3)
func (c *Client) WriteTransitionMetric(domain, operation, outcome string, duration time.Duration, pollReads int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"transition",
		map[string]string{
			"domain":    domain,
			"operation": operation,
			"outcome":   outcome,
		},
		map[string]interface{}{
			"duration_us": duration.Microseconds(),
			"poll_reads":  pollReads,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDomainState records a point-in-time power state sample.
//
// Used for fleet dashboards that chart which rails are up over time.
//
// Parameters:
//   - domain: Power domain name
//   - enabled: Whether the rail is powered
//   - mode: Control mode (normal, fast)
func (c *Client) WriteDomainState(domain string, enabled bool, mode string) {
	if !c.IsConnected() {
		return
	}

	up := 0
	if enabled {
		up = 1
	}

	point := write.NewPoint(
		"domain_state",
		map[string]string{
			"domain": domain,
			"mode":   mode,
		},
		map[string]interface{}{
			"enabled": up,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("daemon_stats",
//	    map[string]string{"host": "rail-01"},
//	    map[string]interface{}{"domains_enabled": 12})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
