package readiness

import "errors"

// ErrNotReady is returned when the service did not accept a connection before the deadline.
var ErrNotReady = errors.New("service not ready")
