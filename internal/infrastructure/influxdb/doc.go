// Package influxdb provides time-series recording for the availability service.
//
// Status transitions and outbox drain outcomes are written to InfluxDB v2
// so operators can chart device churn and delivery throughput over time.
// The integration is optional and controlled by config (influxdb.enabled).
//
// Writes are non-blocking: points are batched by the client library and
// flushed asynchronously. Write failures are surfaced via the SetOnError
// callback rather than returned to callers, so a slow or unavailable
// InfluxDB never blocks event processing.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    // influxdb.ErrDisabled means the integration is turned off
//	}
//	defer client.Close()
//
//	client.WriteStatusChange("dev-42", "available", "unavailable")
package influxdb
