package proto

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec frames messages for one connection.
type Codec interface {
	Name() string
	// Binary reports whether frames are binary rather than text.
	Binary() bool
	Encode(msg ServerMessage) ([]byte, error)
	Decode(data []byte) (ClientMessage, error)
}

// CodecByName selects a codec from the connection's query string. An empty
// name selects JSON.
func CodecByName(name string) (Codec, bool) {
	switch name {
	case "", "json":
		return JSONCodec{}, true
	case "msgpack":
		return MsgpackCodec{}, true
	}
	return nil, false
}

type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }
func (JSONCodec) Binary() bool { return false }

func (JSONCodec) Encode(msg ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONCodec) Decode(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("decode json message: %w", err)
	}
	return finish(msg)
}

// MsgpackCodec shares the JSON field names so both encodings carry the same
// schema.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }
func (MsgpackCodec) Binary() bool { return true }

func (MsgpackCodec) Encode(msg ServerMessage) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(msg); err != nil {
		return nil, fmt.Errorf("encode msgpack message: %w", err)
	}
	return buf.Bytes(), nil
}

func (MsgpackCodec) Decode(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&msg); err != nil {
		return ClientMessage{}, fmt.Errorf("decode msgpack message: %w", err)
	}
	return finish(msg)
}

func finish(msg ClientMessage) (ClientMessage, error) {
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if err := msg.validate(); err != nil {
		return ClientMessage{}, err
	}
	return msg, nil
}
