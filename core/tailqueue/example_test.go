package tailqueue_test

import (
	"context"
	"fmt"
	"log"

	"github.com/dmitrymomot/tailqueue/core/tailqueue"
)

func Example() {
	ctx := context.Background()

	store := tailqueue.NewMemoryStore()
	defer store.Close()

	type Greeting struct {
		Text string `json:"text"`
	}

	producer, err := tailqueue.NewWithStore[Greeting](ctx, store)
	if err != nil {
		log.Fatal(err)
	}
	// Every consumer sees every message.
	alice, err := tailqueue.NewWithStore[Greeting](ctx, store, tailqueue.WithConsumerID("alice"))
	if err != nil {
		log.Fatal(err)
	}
	bob, err := tailqueue.NewWithStore[Greeting](ctx, store, tailqueue.WithConsumerID("bob"))
	if err != nil {
		log.Fatal(err)
	}

	for _, text := range []string{"hello", "world"} {
		if err := producer.Send(ctx, Greeting{Text: text}); err != nil {
			log.Fatal(err)
		}
	}

	for _, q := range []*tailqueue.Queue[Greeting]{alice, bob} {
		for range 2 {
			msg, err := q.Receive(ctx)
			if err != nil {
				log.Fatal(err)
			}
			fmt.Println(q.PositionKey(), msg.Text)
		}
	}

	// Output:
	// Greeting:alice hello
	// Greeting:alice world
	// Greeting:bob hello
	// Greeting:bob world
}
