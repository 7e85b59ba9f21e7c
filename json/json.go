// Wrap json library to control encoding.

package json

import (
	"github.com/Velocidex/json"
	"github.com/Velocidex/ordereddict"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

type EncOpts = json.EncOpts

// Dicts keep their insertion order when encoded.
func MarshalJSONDict(v interface{}, opts *json.EncOpts) ([]byte, error) {
	self, ok := v.(*ordereddict.Dict)
	if !ok {
		return nil, json.EncoderCallbackSkip
	}

	result := []byte("{")
	for idx, k := range self.Keys() {
		if idx > 0 {
			result = append(result, ',')
		}

		k_escaped, err := json.MarshalWithOptions(k, opts)
		if err != nil {
			return nil, err
		}
		result = append(result, k_escaped...)
		result = append(result, ':')

		value, _ := self.Get(k)
		v_bytes, err := json.MarshalWithOptions(value, opts)
		if err != nil {
			v_bytes = []byte("null")
		}
		result = append(result, v_bytes...)
	}
	result = append(result, '}')
	return result, nil
}

// Protobuf payloads (annotation exports) are encoded with protojson
// so well known types like structpb render naturally.
func MarshalProtobuf(v interface{}, opts *json.EncOpts) ([]byte, error) {
	message, ok := v.(proto.Message)
	if !ok {
		return nil, json.EncoderCallbackSkip
	}

	options := protojson.MarshalOptions{
		UseProtoNames:   true,
		EmitUnpopulated: false,
	}
	return options.Marshal(message)
}
