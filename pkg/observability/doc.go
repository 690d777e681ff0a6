/*
Package observability turns experiment lifecycle hooks into Prometheus metrics and
debug logs.

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := observability.Combine(metrics.Hooks(), observability.DebugHooks(logger))
	exp, err := cohort.New(ctx, "checkout", cohort.WithStore(store), cohort.WithLifecycleHooks(hooks))
*/
package observability
