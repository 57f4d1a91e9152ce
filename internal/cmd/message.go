package cmd

// ExampleMessage is the payload exchanged by the publish, subscribe and demo commands.
type ExampleMessage struct {
	Number int    `json:"number" bson:"number"`
	Name   string `json:"name" bson:"name"`
}
