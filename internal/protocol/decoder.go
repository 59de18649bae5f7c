package protocol

import (
	"encoding/binary"
	"math"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Command and record type discriminators recognized as LUT updates.
// Anything else decodes to KindIgnore.
const (
	commandSetLUT = "setLUT"
	commandSetCDL = "setCDL"
)

var lutUpdateTypes = map[string]bool{
	"setLUT": true,
	"lut":    true,
}

// Decode decodes one framed BSON document into a LUTMessage.
//
// Two document shapes are recognized: the command shape
// ({command: "setLUT", arguments: {...}}) used by grading applications,
// and the flat shape ({type: "setLUT", data: [...], ...}). Documents with
// an unrecognized command or type decode to KindIgnore rather than
// erroring.
func Decode(doc []byte) (*LUTMessage, error) {
	raw := bson.Raw(doc)
	if err := raw.Validate(); err != nil {
		return nil, decodeErrorf("invalid document: %v", err)
	}

	msg := &LUTMessage{
		Kind:    KindIgnore,
		Service: lookupString(raw, "service"),
		Channel: lookupChannel(raw),
	}

	if cmd, ok := lookupStringOK(raw, "command"); ok {
		return decodeCommand(raw, msg, cmd)
	}

	recType, ok := lookupStringOK(raw, "type")
	if !ok {
		return nil, decodeErrorf("document has neither command nor type discriminator")
	}
	if !lutUpdateTypes[recType] {
		return msg, nil
	}

	if err := decodePayload(raw, msg); err != nil {
		return nil, err
	}
	msg.Kind = KindLUT
	return msg, nil
}

// decodeCommand handles the {command, arguments} document shape.
func decodeCommand(raw bson.Raw, msg *LUTMessage, cmd string) (*LUTMessage, error) {
	switch cmd {
	case commandSetLUT:
	case commandSetCDL:
		// CDL grades are accepted but not processed.
		return msg, nil
	default:
		return msg, nil
	}

	argsVal, err := raw.LookupErr("arguments")
	if err != nil {
		return nil, decodeErrorf("setLUT command missing arguments")
	}
	args, ok := argsVal.DocumentOK()
	if !ok {
		return nil, decodeErrorf("setLUT arguments is not a document")
	}

	if err := decodePayload(args, msg); err != nil {
		return nil, err
	}
	msg.Kind = KindLUT
	return msg, nil
}

// decodePayload extracts the sample data and dimension metadata from the
// container document into msg.
func decodePayload(container bson.Raw, msg *LUTMessage) error {
	var data []float32
	binaryPayload := false

	binVal, binErr := container.LookupErr("lutData")
	arrVal, arrErr := container.LookupErr("data")
	switch {
	case binErr == nil:
		_, raw, ok := binVal.BinaryOK()
		if !ok {
			return decodeErrorf("lutData is not binary")
		}
		if len(raw)%4 != 0 {
			return decodeErrorf("lutData length %d is not a multiple of 4", len(raw))
		}
		data = make([]float32, len(raw)/4)
		for i := range data {
			data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
		binaryPayload = true
	case arrErr == nil:
		arr, ok := arrVal.ArrayOK()
		if !ok {
			return decodeErrorf("data is not an array")
		}
		var err error
		data, err = decodeFloatArray(arr)
		if err != nil {
			return err
		}
	default:
		return decodeErrorf("message missing data payload")
	}

	channels, err := lookupChannels(container, binaryPayload)
	if err != nil {
		return err
	}

	size, err := inferCubeSize(len(data), channels)
	if err != nil {
		return err
	}

	// An explicit size must agree with the payload-derived one.
	for _, key := range []string{"size", "lutSize"} {
		if v, lerr := container.LookupErr(key); lerr == nil {
			explicit, ok := asInt(v)
			if !ok {
				return decodeErrorf("%s is not an integer", key)
			}
			if int(explicit) != size {
				return decodeErrorf("declared size %d does not match payload-derived size %d", explicit, size)
			}
		}
	}

	msg.Size = size
	msg.Channels = channels
	msg.Data = data
	return nil
}

// decodeFloatArray converts a BSON array into float32 samples.
// Integer elements are accepted; anything non-numeric is a DecodeError.
func decodeFloatArray(arr bson.Raw) ([]float32, error) {
	elems, err := arr.Elements()
	if err != nil {
		return nil, decodeErrorf("malformed data array: %v", err)
	}
	out := make([]float32, 0, len(elems))
	for i, el := range elems {
		v := el.Value()
		switch v.Type {
		case bsontype.Double:
			out = append(out, float32(v.Double()))
		case bsontype.Int32:
			out = append(out, float32(v.Int32()))
		case bsontype.Int64:
			out = append(out, float32(v.Int64()))
		default:
			return nil, decodeErrorf("data[%d] is %s, want a number", i, v.Type)
		}
	}
	return out, nil
}

// lookupChannels reads the channel count, defaulting to 4 for binary
// payloads (RGBA float32 blobs) and 3 for array payloads.
func lookupChannels(container bson.Raw, binaryPayload bool) (int, error) {
	v, err := container.LookupErr("channels")
	if err != nil {
		if binaryPayload {
			return 4, nil
		}
		return 3, nil
	}
	n, ok := asInt(v)
	if !ok {
		return 0, decodeErrorf("channels is not an integer")
	}
	if n != 3 && n != 4 {
		return 0, decodeErrorf("channel count %d not in {3, 4}", n)
	}
	return int(n), nil
}

// inferCubeSize derives the cube edge from the sample count. The count
// must be an exact cube times channels with at least 2 points per axis.
func inferCubeSize(valueCount, channels int) (int, error) {
	if valueCount == 0 || valueCount%channels != 0 {
		return 0, decodeErrorf("payload of %d values is not divisible by %d channels", valueCount, channels)
	}
	perChannel := valueCount / channels
	n := 0
	for (n+1)*(n+1)*(n+1) <= perChannel {
		n++
	}
	if n < 2 || n*n*n != perChannel {
		return 0, decodeErrorf("payload of %d values is not a perfect cube of %d channels", valueCount, channels)
	}
	return n, nil
}

// lookupChannel resolves the channel identifier from "channel" or
// "instance", accepting strings and integers; absent means "default".
func lookupChannel(raw bson.Raw) string {
	for _, key := range []string{"channel", "instance"} {
		v, err := raw.LookupErr(key)
		if err != nil {
			continue
		}
		if s, ok := v.StringValueOK(); ok && s != "" {
			return s
		}
		if n, ok := asInt(v); ok {
			return strconv.FormatInt(n, 10)
		}
	}
	return DefaultChannel
}

func lookupString(raw bson.Raw, key string) string {
	s, _ := lookupStringOK(raw, key)
	return s
}

func lookupStringOK(raw bson.Raw, key string) (string, bool) {
	v, err := raw.LookupErr(key)
	if err != nil {
		return "", false
	}
	return v.StringValueOK()
}

// asInt widens any BSON integer (or integral double) to int64.
func asInt(v bson.RawValue) (int64, bool) {
	switch v.Type {
	case bsontype.Int32:
		return int64(v.Int32()), true
	case bsontype.Int64:
		return v.Int64(), true
	case bsontype.Double:
		d := v.Double()
		if d == math.Trunc(d) {
			return int64(d), true
		}
	}
	return 0, false
}

