package influxdb

import "errors"

// Sentinel errors; callers discriminate with errors.Is. ErrDisabled is the
// expected outcome when the integration is switched off in config, and the
// entry point treats it as "run without history recording".
var (
	ErrNotConnected     = errors.New("influxdb: not connected")
	ErrConnectionFailed = errors.New("influxdb: connection failed")
	ErrDisabled         = errors.New("influxdb: disabled in configuration")
)
