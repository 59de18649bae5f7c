package protocol

import (
	"encoding/binary"
	"fmt"
	"math"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EncodeReply builds the per-message acknowledgement document.
// Grading applications block on this reply before sending the next
// update; {result: 1} is success, {result: 0, error: ...} is failure.
func EncodeReply(ok bool, errMsg string) ([]byte, error) {
	var doc bson.D
	if ok {
		doc = bson.D{{Key: "result", Value: int32(1)}}
	} else {
		if errMsg == "" {
			errMsg = "unknown error"
		}
		doc = bson.D{
			{Key: "result", Value: int32(0)},
			{Key: "error", Value: errMsg},
		}
	}
	out, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reply: %w", err)
	}
	return out, nil
}

// EncodeLUTUpdate builds a command-shape setLUT document carrying the
// samples as a binary float32 blob, the compact form grading
// applications send.
func EncodeLUTUpdate(service, channel string, size, channels int, data []float32) ([]byte, error) {
	if len(data) != size*size*size*channels {
		return nil, fmt.Errorf("data length %d does not match size %d with %d channels", len(data), size, channels)
	}

	blob := make([]byte, len(data)*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}

	doc := bson.D{
		{Key: "command", Value: commandSetLUT},
	}
	if service != "" {
		doc = append(doc, bson.E{Key: "service", Value: service})
	}
	if channel != "" && channel != DefaultChannel {
		doc = append(doc, bson.E{Key: "instance", Value: channel})
	}
	doc = append(doc, bson.E{Key: "arguments", Value: bson.D{
		{Key: "lutSize", Value: int32(size)},
		{Key: "channels", Value: int32(channels)},
		{Key: "lutData", Value: primitive.Binary{Subtype: 0x00, Data: blob}},
	}})

	out, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode LUT update: %w", err)
	}
	return out, nil
}

// EncodeCommand builds a generic command-shape document. Used for
// commands the server acknowledges without acting on, such as setCDL.
func EncodeCommand(command string, arguments map[string]interface{}) ([]byte, error) {
	doc := bson.D{{Key: "command", Value: command}}
	if len(arguments) > 0 {
		args := make(bson.D, 0, len(arguments))
		for key, value := range arguments {
			args = append(args, bson.E{Key: key, Value: value})
		}
		doc = append(doc, bson.E{Key: "arguments", Value: args})
	}
	out, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s command: %w", command, err)
	}
	return out, nil
}

// DecodeReply parses an acknowledgement document, returning the result
// flag and the error text for failures.
func DecodeReply(doc []byte) (bool, string, error) {
	raw := bson.Raw(doc)
	if err := raw.Validate(); err != nil {
		return false, "", fmt.Errorf("invalid reply document: %w", err)
	}
	v, err := raw.LookupErr("result")
	if err != nil {
		return false, "", fmt.Errorf("reply missing result field")
	}
	result, ok := asInt(v)
	if !ok {
		return false, "", fmt.Errorf("reply result is not an integer")
	}
	if result == 1 {
		return true, "", nil
	}
	return false, lookupString(raw, "error"), nil
}
