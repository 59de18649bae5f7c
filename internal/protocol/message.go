package protocol

import "fmt"

// Message kind constants. Unknown commands and record types decode to
// KindIgnore rather than erroring, preserving forward compatibility with
// protocol extensions.
const (
	KindLUT    = "lut-update"
	KindIgnore = "ignore"
)

// DefaultChannel is used when a message carries no channel or instance
// identifier.
const DefaultChannel = "default"

// LUTMessage is one decoded protocol unit. It is constructed per received
// network message, consumed once by the converter, then discarded.
type LUTMessage struct {
	Kind     string    // KindLUT or KindIgnore
	Service  string    // sending application, may be empty
	Channel  string    // logical grading channel
	Size     int       // cube edge N
	Channels int       // 3 or 4
	Data     []float32 // flat samples, len = N^3 * Channels
}

// FramingError reports a malformed or oversized length prefix. It is
// connection-fatal: the owning connection must be closed.
type FramingError struct {
	Reason string
}

func (e *FramingError) Error() string {
	return "framing error: " + e.Reason
}

// DecodeError reports a framed message that cannot be decoded into a
// LUTMessage. It is message-fatal: the message is dropped but the
// connection stays open.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "decode error: " + e.Reason
}

func decodeErrorf(format string, args ...interface{}) *DecodeError {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}
