// Package mongo connects to MongoDB for the tailqueue capped-collection store.
//
// New and NewWithDatabase connect and ping, retrying RetryAttempts times with
// RetryInterval between attempts. Managed clusters often need several seconds
// after a cold start before they accept connections, and a process that gives
// up on the first failed ping would crash-loop during that window.
//
//	var cfg mongo.Config
//	if err := config.Load(&cfg); err != nil { // MONGODB_* variables
//		return err
//	}
//
//	db, err := mongo.NewWithDatabase(ctx, cfg, "tailqueue")
//	if err != nil {
//		return err
//	}
//	defer db.Client().Disconnect(context.Background())
//
//	store, err := mongostore.NewStore(db, mongostore.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	q, err := tailqueue.NewWithStore[ExampleMessage](ctx, store)
//
// Capped collections and tailable cursors work on replica sets and standalone
// servers alike. Sharded capped collections are not supported by MongoDB.
//
// Healthcheck returns a ping function for readiness probes. Errors:
//
//   - ErrEmptyConnectionURL: MONGODB_URL is missing
//   - ErrFailedToConnectToMongo: every attempt failed (joined with the last cause)
//   - ErrHealthcheckFailed: ping failed
package mongo
