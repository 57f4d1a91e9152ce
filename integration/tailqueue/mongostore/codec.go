package mongostore

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// BSONCodec encodes payloads as BSON documents of the form {v: <message>}.
// Used together with WithDocumentPayloads, messages are stored as readable
// sub-documents instead of opaque binary.
type BSONCodec struct{}

type bsonValue struct {
	V any `bson:"v"`
}

func (BSONCodec) Marshal(v any) ([]byte, error) {
	return bson.Marshal(bsonValue{V: v})
}

func (BSONCodec) Unmarshal(data []byte, v any) error {
	raw, err := bson.Raw(data).LookupErr("v")
	if err != nil {
		return err
	}
	return raw.Unmarshal(v)
}
