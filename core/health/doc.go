// Package health provides HTTP probes for long-running tailqueue consumers.
//
// Handlers:
//   - Liveness: Process is running (no dependency checks)
//   - Readiness: All stores are reachable
//   - NoContent: Returns 204 for minimal overhead
//
// Usage:
//
//	mux := health.NewMux(logger,
//		mongo.Healthcheck(client),
//		positions.Healthcheck,
//	)
//	go http.ListenAndServe(":8081", mux)
//
// Dependency checks must follow func(context.Context) error signature:
//
//	func checkStore(ctx context.Context) error {
//		return store.Healthcheck(ctx)
//	}
package health
