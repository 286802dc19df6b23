// ABOUTME: Wire envelope exchanged with the browser agent and its JSON codec.
// ABOUTME: Decode rejects malformed frames with DecodeError; Encode stamps the send time.

package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind is the envelope type field.
type Kind string

const (
	KindRequest  Kind = "request"
	KindResponse Kind = "response"
	KindError    Kind = "error"
)

// Valid reports whether k is one of the three wire kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindRequest, KindResponse, KindError:
		return true
	}
	return false
}

// IsReply reports whether k completes a pending call.
func (k Kind) IsReply() bool {
	return k == KindResponse || k == KindError
}

// Envelope is a single wire message in either direction.
type Envelope struct {
	ID     string
	Kind   Kind
	Action string
	Data   json.RawMessage
	SentAt time.Time
}

// ErrorPayload is the data carried by an error envelope.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DefaultErrorCode is used when an error envelope's data is not an object.
const DefaultErrorCode = "remote_error"

// ErrorPayload extracts the code and message of an error envelope.
// Data that is not a JSON object is reported verbatim as the message.
func (e Envelope) ErrorPayload() ErrorPayload {
	var p ErrorPayload
	trimmed := bytes.TrimSpace(e.Data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &p); err == nil {
			return p
		}
	}
	p.Code = DefaultErrorCode
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		p.Message = s
	} else {
		p.Message = string(trimmed)
	}
	return p
}

// NewRequest builds a request envelope, marshaling payload as its data.
func NewRequest(id, action string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshaling %s payload: %w", action, err)
	}
	return Envelope{ID: id, Kind: KindRequest, Action: action, Data: data}, nil
}

// DecodeError reports a structurally invalid inbound frame.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return "decode envelope: " + e.Reason + ": " + e.Err.Error()
	}
	return "decode envelope: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err is a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// wireEnvelope is the JSON shape on the socket.
type wireEnvelope struct {
	ID        string          `json:"id"`
	Type      Kind            `json:"type"`
	Action    string          `json:"action"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

var nullData = json.RawMessage("null")

// Codec encodes and decodes envelopes against a clock.
type Codec struct {
	// Now supplies the send timestamp. Nil means time.Now.
	Now func() time.Time
}

func (c Codec) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Decode parses one inbound frame. Every failure is a *DecodeError.
func (c Codec) Decode(raw []byte) (Envelope, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Envelope{}, &DecodeError{Reason: "empty message"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Envelope{}, &DecodeError{Reason: "invalid JSON", Err: err}
	}
	if fields == nil {
		return Envelope{}, &DecodeError{Reason: "message is not an object"}
	}

	id, err := requiredString(fields, "id")
	if err != nil {
		return Envelope{}, err
	}
	kind, err := requiredString(fields, "type")
	if err != nil {
		return Envelope{}, err
	}
	if !Kind(kind).Valid() {
		return Envelope{}, &DecodeError{Reason: fmt.Sprintf("unknown type %q", kind)}
	}
	action, err := requiredString(fields, "action")
	if err != nil {
		return Envelope{}, err
	}

	env := Envelope{
		ID:     id,
		Kind:   Kind(kind),
		Action: action,
		Data:   nullData,
	}
	if data, ok := fields["data"]; ok {
		env.Data = data
	}

	if rawTS, ok := fields["timestamp"]; ok {
		var ts *string
		if err := json.Unmarshal(rawTS, &ts); err != nil {
			return Envelope{}, &DecodeError{Reason: "field timestamp must be a string", Err: err}
		}
		if ts != nil {
			// An unparsable timestamp is not fatal; the value is informational.
			if t, err := time.Parse(time.RFC3339Nano, *ts); err == nil {
				env.SentAt = t
			}
		}
	}

	return env, nil
}

func requiredString(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok {
		return "", &DecodeError{Reason: "missing field " + name}
	}
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &DecodeError{Reason: "field " + name + " must be a string", Err: err}
	}
	if s == nil || *s == "" {
		return "", &DecodeError{Reason: "field " + name + " is empty"}
	}
	return *s, nil
}

// Encode serializes env for the socket, stamping a fresh send time.
func (c Codec) Encode(env Envelope) ([]byte, error) {
	if env.ID == "" {
		return nil, errors.New("encode envelope: id is required")
	}
	if env.Action == "" {
		return nil, errors.New("encode envelope: action is required")
	}
	if !env.Kind.Valid() {
		return nil, fmt.Errorf("encode envelope: unknown type %q", env.Kind)
	}

	data := env.Data
	if len(data) == 0 {
		data = nullData
	} else if !json.Valid(data) {
		return nil, errors.New("encode envelope: data is not valid JSON")
	}

	return json.Marshal(wireEnvelope{
		ID:        env.ID,
		Type:      env.Kind,
		Action:    env.Action,
		Data:      data,
		Timestamp: c.now().UTC().Format(time.RFC3339Nano),
	})
}

var defaultCodec Codec

// Decode parses raw with the wall-clock codec.
func Decode(raw []byte) (Envelope, error) {
	return defaultCodec.Decode(raw)
}

// Encode serializes env with the wall-clock codec.
func Encode(env Envelope) ([]byte, error) {
	return defaultCodec.Encode(env)
}
