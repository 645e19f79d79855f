package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
)

// Pool of buffers to avoid allocating one per frame
var bufferPool = sync.Pool{
	New: func() any {
		return &bytes.Buffer{}
	},
}

// Marshal serializes a message to a JSON frame.
func Marshal(msg *Message) ([]byte, error) {
	if msg == nil || msg.Type == "" {
		return nil, ErrUnknownMessageType
	}

	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(msg); err != nil {
		return nil, err
	}

	// Copy out of the pooled buffer, dropping the encoder's newline
	out := make([]byte, buf.Len()-1)
	copy(out, buf.Bytes())
	return out, nil
}

// Unmarshal parses a JSON frame. A frame without a type is rejected.
func Unmarshal(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrBadRequest)
	}
	return &msg, nil
}

// decodeData unmarshals the payload into v. An empty payload leaves v at
// its zero value.
func decodeData(msg *Message, v any) error {
	if len(msg.Data) == 0 || string(msg.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadRequest, msg.Type, err)
	}
	return nil
}

// Decode unmarshals the payload into v.
func (m *Message) Decode(v any) error {
	return decodeData(m, v)
}
