package json

import (
	"github.com/Velocidex/json"
	"github.com/Velocidex/ordereddict"
	"google.golang.org/protobuf/types/known/structpb"
)

type encoderHandler struct {
	sample interface{}
	cb     json.EncoderCallback
}

// Process rows are ordereddicts and annotation exports are structpb
// values, possibly nested inside a row.
var handlers = []encoderHandler{
	{ordereddict.NewDict(), MarshalJSONDict},
	{&structpb.Struct{}, MarshalProtobuf},
	{&structpb.Value{}, MarshalProtobuf},
	{&structpb.ListValue{}, MarshalProtobuf},
}

func NewEncOpts() *json.EncOpts {
	opts := json.NewEncOpts()
	for _, h := range handlers {
		opts.WithCallback(h.sample, h.cb)
	}
	return opts
}
