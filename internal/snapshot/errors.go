package snapshot

import "errors"

// ErrUpstreamUnavailable reports a failed or misconfigured market-data
// provider call. It is caught at the service boundary and degraded to a
// zero-valued snapshot; it never propagates into the metrics engine.
var ErrUpstreamUnavailable = errors.New("market data provider unavailable")
