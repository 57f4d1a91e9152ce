// Package pebblestore backs tailqueue with an embedded Pebble database, for
// single-host deployments that need durability without running a server.
//
// Entries are stored under big-endian sequence keys, so iteration order is
// append order, and carry a crc32c checksum. Each log keeps a byte capacity in
// its metadata key; an append that overflows it deletes the oldest entries in
// the same batch. Cursors block on an in-process notification channel, so all
// producers and consumers of a log must share one Store.
//
//	store, err := pebblestore.Open(pebblestore.Options{DataDir: "/var/lib/tailq"})
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	q, err := tailqueue.NewWithStore[ExampleMessage](ctx, store)
package pebblestore
