// Package server runs a small HTTP server with graceful shutdown. tailq uses
// it to expose health probes next to a long-running subscriber.
//
// Start blocks until the context is canceled or the listener fails; on
// cancellation it shuts the server down within the configured timeout:
//
//	srv := server.New(":8081", server.WithLogger(log))
//	g.Go(srv.Run(ctx, health.NewMux(log, store.Healthcheck)))
//
// Settings can be loaded from the environment with NewFromConfig:
//
//	var cfg server.Config
//	config.MustLoad(&cfg)
//	srv, err := server.NewFromConfig(cfg, server.WithLogger(log))
package server
