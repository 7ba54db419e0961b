// Package metrics exposes Prometheus metrics for rebuild passes and request
// resolution.
//
// Every Metrics value owns its registry, so tests can create isolated
// instances. All methods are safe to call on a nil *Metrics, which lets
// components treat metrics as optional.
//
//	m := metrics.New()
//	m.ObserveRebuild(metrics.ResultSuccess, 12*time.Millisecond)
//	m.ObserveResolve(metrics.OutcomeHit)
//	http.Handle("/metrics", m.Handler())
//
// Metric names:
//
//   - collmock_rebuilds_total{result}
//   - collmock_rebuild_duration_seconds
//   - collmock_collections{state}
//   - collmock_endpoints
//   - collmock_resolutions_total{outcome}
//   - collmock_watch_events_total{op}
//
// Go runtime and process collectors are registered as well.
package metrics
