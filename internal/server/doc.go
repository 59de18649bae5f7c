// Package server implements the TCP front end of the LUT service.
//
// Clients speak the OpenGradeIO wire protocol: a stream of BSON documents
// where each document's leading int32 gives its own length. The server
// runs one goroutine per connection with a private framer, so a slow or
// misbehaving client never stalls the others.
//
// Failure handling is tiered. A framing failure poisons the byte stream
// and closes that connection. A decode or validation failure drops only
// the offending message; the client gets a {result: 0} reply and the
// connection keeps going. A backend failure is reported the same way and
// the next valid update retries delivery from scratch.
package server
