package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteStatusChange records one device status transition. For a device the
// service has never seen before, previous is "none". Non-blocking: the point
// is queued and flushed by the batching write API.
func (c *Client) WriteStatusChange(deviceID, previous, next string) {
	c.write("availability_status",
		map[string]string{
			"device_id": deviceID,
			"status":    next,
		},
		map[string]interface{}{
			"previous_status": previous,
			"transition":      previous + "->" + next,
		})
}

// WriteOutboxDrain records the outcome of one outbox drain cycle, charting
// delivery throughput against publish failures.
func (c *Client) WriteOutboxDrain(delivered, failed int) {
	c.write("outbox_drain",
		map[string]string{},
		map[string]interface{}{
			"delivered": delivered,
			"failed":    failed,
		})
}

// write queues one point stamped with the current time. A no-op while
// disconnected, matching the best-effort contract of the recorders.
func (c *Client) write(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
