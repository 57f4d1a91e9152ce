// Package redis connects to Redis for the tailqueue Redis Streams store.
//
// Connect validates the URL scheme, then pings with exponential backoff until
// the server answers or cfg.ConnectTimeout runs out:
//
//	var cfg redis.Config
//	config.MustLoad(&cfg) // REDIS_URL, REDIS_RETRY_ATTEMPTS, REDIS_RETRY_INTERVAL, REDIS_CONNECT_TIMEOUT
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	store := redisstore.New(client, redisstore.WithLogger(log))
//
// Healthcheck returns a func(context.Context) error suitable for
// health.Readiness. Failures wrap ErrHealthcheckFailed; startup failures wrap
// ErrNotReady, ErrUnsupportedScheme or ErrInvalidConnectionURL.
package redis
