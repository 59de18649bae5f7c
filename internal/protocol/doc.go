// Package protocol implements the OpenGradeIO wire protocol.
//
// Grading applications push LUT updates over a plain TCP stream of BSON
// documents. Each document is self-describing: its first 4 bytes are the
// little-endian total length, so the stream can be framed without any
// out-of-band delimiters.
//
// # Framing
//
// Framer assembles complete documents from arbitrary read chunks. Message
// boundaries do not align with reads: a single read may carry a partial
// document or several documents, and the framer buffers accordingly. A
// declared length beyond the configured ceiling is a FramingError and the
// owning connection must be closed.
//
// # Document Shapes
//
// The canonical LUT update is the command shape:
//
//	{ command: "setLUT",
//	  service: "<application>",          // optional
//	  instance: "<channel>",             // optional, default "default"
//	  arguments: {
//	    lutSize: 33,                     // optional, validated if present
//	    lutData: <binary float32 LE> } }
//
// A flat shape is also accepted:
//
//	{ type: "setLUT", channel: "a", size: 16, channels: 3, data: [ ... ] }
//
// Documents with an unrecognized command or type (setCDL among them)
// decode to KindIgnore: they are acknowledged and skipped, never treated
// as errors, so protocol extensions remain compatible.
//
// # Dimension Validation
//
// The cube size is inferred from the payload length (cube root of
// count/channels) and must be an exact cube of at least 2 points per
// axis; an explicit size field must agree. Violations are DecodeErrors:
// the message is dropped, the connection stays open.
//
// # Replies
//
// Every processed document is acknowledged with {result: 1} or
// {result: 0, error: "..."}; senders block on this acknowledgement.
package protocol
