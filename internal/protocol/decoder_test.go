package protocol

import (
	"encoding/binary"
	"math"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func mustMarshal(t *testing.T, doc interface{}) []byte {
	t.Helper()
	out, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("bson.Marshal() error = %v", err)
	}
	return out
}

func floatBlob(values []float32) primitive.Binary {
	blob := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return primitive.Binary{Subtype: 0x00, Data: blob}
}

func floatArray(n int) bson.A {
	arr := make(bson.A, n)
	for i := range arr {
		arr[i] = float64(i) / float64(n)
	}
	return arr
}

func TestDecodeCommandShape(t *testing.T) {
	// 2^3 RGBA lattice with values that exercise bit-exactness.
	values := make([]float32, 2*2*2*4)
	for i := range values {
		values[i] = float32(i)*0.125 - 1.5
	}
	values[3] = float32(math.Inf(1))

	doc := mustMarshal(t, bson.D{
		{Key: "command", Value: "setLUT"},
		{Key: "service", Value: "grader"},
		{Key: "instance", Value: "hero"},
		{Key: "arguments", Value: bson.D{
			{Key: "lutSize", Value: int32(2)},
			{Key: "lutData", Value: floatBlob(values)},
		}},
	})

	msg, err := Decode(doc)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if msg.Kind != KindLUT {
		t.Fatalf("Kind = %q, want %q", msg.Kind, KindLUT)
	}
	if msg.Service != "grader" || msg.Channel != "hero" {
		t.Errorf("identity = (%q, %q), want (grader, hero)", msg.Service, msg.Channel)
	}
	if msg.Size != 2 || msg.Channels != 4 {
		t.Errorf("shape = (%d, %d), want (2, 4)", msg.Size, msg.Channels)
	}
	for i := range values {
		if math.Float32bits(msg.Data[i]) != math.Float32bits(values[i]) {
			t.Fatalf("data[%d] = %v, want %v bit-exact", i, msg.Data[i], values[i])
		}
	}
}

func TestDecodeFlatShape(t *testing.T) {
	doc := mustMarshal(t, bson.D{
		{Key: "type", Value: "setLUT"},
		{Key: "channel", Value: "a"},
		{Key: "size", Value: int32(2)},
		{Key: "channels", Value: int32(3)},
		{Key: "data", Value: floatArray(2 * 2 * 2 * 3)},
	})

	msg, err := Decode(doc)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if msg.Kind != KindLUT {
		t.Fatalf("Kind = %q, want %q", msg.Kind, KindLUT)
	}
	if msg.Channel != "a" || msg.Size != 2 || msg.Channels != 3 {
		t.Errorf("got (%q, %d, %d), want (a, 2, 3)", msg.Channel, msg.Size, msg.Channels)
	}
	if len(msg.Data) != 24 {
		t.Errorf("len(Data) = %d, want 24", len(msg.Data))
	}
}

func TestDecodeDefaults(t *testing.T) {
	doc := mustMarshal(t, bson.D{
		{Key: "type", Value: "setLUT"},
		{Key: "data", Value: floatArray(2 * 2 * 2 * 3)},
	})

	msg, err := Decode(doc)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if msg.Channel != DefaultChannel {
		t.Errorf("Channel = %q, want %q", msg.Channel, DefaultChannel)
	}
	if msg.Channels != 3 {
		t.Errorf("Channels = %d, want 3 (array default)", msg.Channels)
	}
}

func TestDecodeIntegerChannelIdentifier(t *testing.T) {
	doc := mustMarshal(t, bson.D{
		{Key: "type", Value: "setLUT"},
		{Key: "instance", Value: int32(7)},
		{Key: "data", Value: floatArray(2 * 2 * 2 * 3)},
	})

	msg, err := Decode(doc)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if msg.Channel != "7" {
		t.Errorf("Channel = %q, want %q", msg.Channel, "7")
	}
}

func TestDecodeIgnoredMessages(t *testing.T) {
	tests := []struct {
		name string
		doc  bson.D
	}{
		{
			name: "setCDL command",
			doc: bson.D{
				{Key: "command", Value: "setCDL"},
				{Key: "arguments", Value: bson.D{{Key: "slope", Value: bson.A{1.0, 1.0, 1.0}}}},
			},
		},
		{
			name: "unknown command",
			doc:  bson.D{{Key: "command", Value: "setWipe"}},
		},
		{
			name: "unknown record type",
			doc:  bson.D{{Key: "type", Value: "heartbeat"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode(mustMarshal(t, tt.doc))
			if err != nil {
				t.Fatalf("Decode() error = %v, want ignore", err)
			}
			if msg.Kind != KindIgnore {
				t.Errorf("Kind = %q, want %q", msg.Kind, KindIgnore)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  bson.D
	}{
		{
			name: "no discriminator",
			doc:  bson.D{{Key: "data", Value: floatArray(24)}},
		},
		{
			name: "missing payload",
			doc:  bson.D{{Key: "type", Value: "setLUT"}},
		},
		{
			name: "non-cube payload",
			doc: bson.D{
				{Key: "type", Value: "setLUT"},
				{Key: "channels", Value: int32(3)},
				{Key: "data", Value: floatArray(4000)},
			},
		},
		{
			name: "declared size disagrees",
			doc: bson.D{
				{Key: "type", Value: "setLUT"},
				{Key: "size", Value: int32(3)},
				{Key: "data", Value: floatArray(2 * 2 * 2 * 3)},
			},
		},
		{
			name: "non-numeric data entry",
			doc: bson.D{
				{Key: "type", Value: "setLUT"},
				{Key: "data", Value: bson.A{0.5, "oops", 0.25}},
			},
		},
		{
			name: "bad channel count",
			doc: bson.D{
				{Key: "type", Value: "setLUT"},
				{Key: "channels", Value: int32(5)},
				{Key: "data", Value: floatArray(2 * 2 * 2 * 3)},
			},
		},
		{
			name: "single lattice point",
			doc: bson.D{
				{Key: "type", Value: "setLUT"},
				{Key: "data", Value: floatArray(3)},
			},
		},
		{
			name: "setLUT without arguments",
			doc:  bson.D{{Key: "command", Value: "setLUT"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(mustMarshal(t, tt.doc))
			if err == nil {
				t.Fatal("Decode() should fail")
			}
			if _, ok := err.(*DecodeError); !ok {
				t.Errorf("error type = %T, want *DecodeError", err)
			}
		})
	}
}

func TestEncodeDecodeLUTUpdateRoundTrip(t *testing.T) {
	data := make([]float32, 3*3*3*3)
	for i := range data {
		data[i] = float32(i)*0.5 - 4
	}

	doc, err := EncodeLUTUpdate("lutbox", "main", 3, 3, data)
	if err != nil {
		t.Fatalf("EncodeLUTUpdate() error = %v", err)
	}

	msg, err := Decode(doc)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if msg.Kind != KindLUT || msg.Size != 3 || msg.Channels != 3 {
		t.Fatalf("decoded shape = (%q, %d, %d), want (lut-update, 3, 3)", msg.Kind, msg.Size, msg.Channels)
	}
	if msg.Service != "lutbox" || msg.Channel != "main" {
		t.Errorf("identity = (%q, %q)", msg.Service, msg.Channel)
	}
	for i := range data {
		if math.Float32bits(msg.Data[i]) != math.Float32bits(data[i]) {
			t.Fatalf("data[%d] changed in transit", i)
		}
	}
}

func TestEncodeDecodeReply(t *testing.T) {
	tests := []struct {
		name    string
		ok      bool
		errMsg  string
		wantErr string
	}{
		{name: "success", ok: true},
		{name: "failure with message", ok: false, errMsg: "bad cube", wantErr: "bad cube"},
		{name: "failure without message", ok: false, wantErr: "unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := EncodeReply(tt.ok, tt.errMsg)
			if err != nil {
				t.Fatalf("EncodeReply() error = %v", err)
			}
			ok, errMsg, err := DecodeReply(doc)
			if err != nil {
				t.Fatalf("DecodeReply() error = %v", err)
			}
			if ok != tt.ok {
				t.Errorf("ok = %v, want %v", ok, tt.ok)
			}
			if !tt.ok && errMsg != tt.wantErr {
				t.Errorf("errMsg = %q, want %q", errMsg, tt.wantErr)
			}
		})
	}
}
