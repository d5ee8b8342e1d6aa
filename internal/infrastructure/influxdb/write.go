package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteClimateMetric writes a single climate measurement to InfluxDB.
//
// This is the primary method for recording climate telemetry data.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - entityID: Unique identifier for the climate entity (e.g., "zone_12345")
//   - measurement: The metric name (e.g., "temperature_c", "target_temperature_c")
//   - value: The numeric value to record
//
// Example:
//
//	client.WriteClimateMetric("zone_12345", "temperature_c", 21.5)
//	client.WriteClimateMetric("zone_12345", "humidity_percent", 43.0)
func (c *Client) WriteClimateMetric(entityID string, measurement string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"climate_metrics",
		map[string]string{
			"entity_id":   entityID,
			"measurement": measurement,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteClimateState writes a full climate snapshot in one point.
//
// Tags carry the entity identity and mode (low cardinality); fields
// carry the temperature readings. Missing readings are omitted.
//
// Parameters:
//   - entityID: Climate entity identifier
//   - mode: Current operating mode string (e.g., "HEAT")
//   - fields: Numeric readings keyed by field name
func (c *Client) WriteClimateState(entityID string, mode string, fields map[string]interface{}) {
	if !c.IsConnected() || len(fields) == 0 {
		return
	}

	point := write.NewPoint(
		"climate_state",
		map[string]string{
			"entity_id": entityID,
			"mode":      mode,
		},
		fields,
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
//	client.WritePoint("bridge_stats",
//	    map[string]string{"bridge": "azbridge-01"},
//	    map[string]interface{}{"poll_duration_ms": 125.0, "entities": 6})
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
