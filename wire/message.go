package wire

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// TagSet registers the message types on a shared cbor.TagSet, matching
// server/cborplugin's convention of reserving unassigned tag numbers
// (1400-18299 per IANA) for each wire-visible struct.
var TagSet = cbor.NewTagSet()

func init() {
	must := func(t reflect.Type, tag uint64) {
		if err := TagSet.Add(cbor.TagOptions{EncTag: cbor.EncTagRequired, DecTag: cbor.DecTagRequired}, t, tag); err != nil {
			panic(err)
		}
	}
	must(reflect.TypeOf(CommandRequest{}), 1450)
	must(reflect.TypeOf(CommandResponse{}), 1451)
}

// HgetRequest retrieves a single key from a table.
type HgetRequest struct {
	Table string `cbor:"1,keyasint"`
	Key   string `cbor:"2,keyasint"`
}

// HsetRequest writes a single key/value pair into a table.
type HsetRequest struct {
	Table string `cbor:"1,keyasint"`
	Pair  Kvpair `cbor:"2,keyasint"`
}

// HgetallRequest lists every pair in a table.
type HgetallRequest struct {
	Table string `cbor:"1,keyasint"`
}

// HmgetRequest retrieves a batch of keys from a table.
type HmgetRequest struct {
	Table string   `cbor:"1,keyasint"`
	Keys  []string `cbor:"2,keyasint"`
}

// HmsetRequest writes a batch of pairs into a table.
type HmsetRequest struct {
	Table string   `cbor:"1,keyasint"`
	Pairs []Kvpair `cbor:"2,keyasint"`
}

// HdelRequest removes a single key from a table.
type HdelRequest struct {
	Table string `cbor:"1,keyasint"`
	Key   string `cbor:"2,keyasint"`
}

// HmdelRequest removes a batch of keys from a table.
type HmdelRequest struct {
	Table string   `cbor:"1,keyasint"`
	Keys  []string `cbor:"2,keyasint"`
}

// HexistRequest checks whether a single key exists in a table.
type HexistRequest struct {
	Table string `cbor:"1,keyasint"`
	Key   string `cbor:"2,keyasint"`
}

// HmexistRequest checks whether each of a batch of keys exists in a table.
type HmexistRequest struct {
	Table string   `cbor:"1,keyasint"`
	Keys  []string `cbor:"2,keyasint"`
}

// SubscribeRequest opens a new subscription on topic.
type SubscribeRequest struct {
	Topic string `cbor:"1,keyasint"`
}

// UnsubscribeRequest removes subscriber SubscriberID from topic.
type UnsubscribeRequest struct {
	Topic        string `cbor:"1,keyasint"`
	SubscriberID uint32 `cbor:"2,keyasint"`
}

// PublishRequest broadcasts values to every current subscriber of topic.
type PublishRequest struct {
	Topic  string  `cbor:"1,keyasint"`
	Values []Value `cbor:"2,keyasint"`
}

// CommandRequest is a discriminated union over every command variant.
// Exactly one pointer field is expected to be non-nil; dispatch treats an
// all-nil request as an invalid command, following the
// server/cborplugin.ControlCommand "command.SendMessage != nil" style of
// union discrimination.
type CommandRequest struct {
	Hget    *HgetRequest    `cbor:"1,keyasint,omitempty"`
	Hset    *HsetRequest    `cbor:"2,keyasint,omitempty"`
	Hgetall *HgetallRequest `cbor:"3,keyasint,omitempty"`
	Hmget   *HmgetRequest   `cbor:"4,keyasint,omitempty"`
	Hmset   *HmsetRequest   `cbor:"5,keyasint,omitempty"`
	Hdel    *HdelRequest    `cbor:"6,keyasint,omitempty"`
	Hmdel   *HmdelRequest   `cbor:"7,keyasint,omitempty"`
	Hexist  *HexistRequest  `cbor:"8,keyasint,omitempty"`
	Hmexist *HmexistRequest `cbor:"9,keyasint,omitempty"`

	Subscribe   *SubscribeRequest   `cbor:"10,keyasint,omitempty"`
	Unsubscribe *UnsubscribeRequest `cbor:"11,keyasint,omitempty"`
	Publish     *PublishRequest     `cbor:"12,keyasint,omitempty"`
}

// IsStreaming reports whether req names one of the streaming command
// variants (Subscribe/Unsubscribe/Publish).
func (req *CommandRequest) IsStreaming() bool {
	return req.Subscribe != nil || req.Unsubscribe != nil || req.Publish != nil
}

// CommandResponse carries a status, a human-readable message, and the
// ordered values/pairs produced by a command. The zero CommandResponse is
// the distinguished sentinel meaning "not a unary response".
type CommandResponse struct {
	Status  uint32   `cbor:"1,keyasint"`
	Message string   `cbor:"2,keyasint,omitempty"`
	Values  []Value  `cbor:"3,keyasint,omitempty"`
	Pairs   []Kvpair `cbor:"4,keyasint,omitempty"`
}

// IsSentinel reports whether resp is the all-default sentinel response.
func (resp *CommandResponse) IsSentinel() bool {
	return resp.Status == 0 && resp.Message == "" && len(resp.Values) == 0 && len(resp.Pairs) == 0
}

// OK builds a status-200 response with the given values.
func OK(values ...Value) *CommandResponse {
	return &CommandResponse{Status: 200, Values: values}
}

// OKPairs builds a status-200 response with the given pairs.
func OKPairs(pairs []Kvpair) *CommandResponse {
	return &CommandResponse{Status: 200, Pairs: pairs}
}

// Error builds a response carrying the given status and message.
func Error(status uint32, message string) *CommandResponse {
	return &CommandResponse{Status: status, Message: message}
}

// Marshal serializes a CommandRequest.
func (req *CommandRequest) Marshal() ([]byte, error) {
	return cbor.Marshal(req)
}

// UnmarshalRequest deserializes a CommandRequest.
func UnmarshalRequest(b []byte) (*CommandRequest, error) {
	req := new(CommandRequest)
	if err := cbor.Unmarshal(b, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Marshal serializes a CommandResponse.
func (resp *CommandResponse) Marshal() ([]byte, error) {
	return cbor.Marshal(resp)
}

// UnmarshalResponse deserializes a CommandResponse.
func UnmarshalResponse(b []byte) (*CommandResponse, error) {
	resp := new(CommandResponse)
	if err := cbor.Unmarshal(b, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
