// Package metrics serves the operational debug surface: expvar counters
// and pprof, on a separate listener from the public health endpoints so
// it can stay bound to localhost.
package metrics

import "expvar"

// ExposeStats publishes a computed snapshot under /debug/vars as
// "whalebot". Call once at startup; expvar panics on duplicate names.
func ExposeStats(snapshot func() any) {
	expvar.Publish("whalebot", expvar.Func(snapshot))
}
