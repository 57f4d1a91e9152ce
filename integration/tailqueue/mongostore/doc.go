// Package mongostore backs tailqueue with MongoDB.
//
// Each log is a capped collection named after the queue. Records are inserted
// as {_id: ObjectID, enqueued: date, message: payload} and read back with a
// tailable await cursor sorted by $natural, so consumers block on the server
// until new documents arrive. Positions are kept in the _queueIndex collection
// as {_id: key, last: ObjectID}.
//
//	db, err := mongo.NewWithDatabase(ctx, cfg, "queues")
//	if err != nil {
//		return err
//	}
//	store := mongostore.New(db, mongostore.WithLogger(log))
//	q, err := tailqueue.NewWithStore[ExampleMessage](ctx, store)
//
// Payloads are stored as binary by default. WithDocumentPayloads together with
// BSONCodec stores them as sub-documents that can be queried from the shell.
//
// ObjectIDs are generated by the producer. Two producers on different hosts
// can insert out of ObjectID order; natural order still matches insertion
// order, but a consumer that resumes from a stored position skips records
// whose ObjectID sorts below it.
package mongostore
