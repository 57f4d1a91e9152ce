// Package redisstore backs tailqueue with Redis Streams.
//
// A log named "orders" is the stream "tailqueue:log:orders". Producers append
// with XADD MAXLEN ~ and consumers block on XREAD with the last delivered
// entry id. Positions are fields of the hash "tailqueue:positions".
//
// Streams are bounded by entry count, not bytes. CreateLog stores the byte
// capacity and derives the stream length from WithEntrySizeHint (256 bytes
// by default), so a 100 MiB log keeps roughly 400k entries. Trimming with "~"
// is approximate and may keep slightly more.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	store := redisstore.New(client, redisstore.WithBlock(2*time.Second))
//	q, err := tailqueue.NewWithStore[ExampleMessage](ctx, store)
package redisstore
