// Package wire implements the MQTT v5.0 control-packet codec: fixed header,
// variable byte integer, properties, and each control-packet body.
package wire

import "errors"

// Sentinel errors returned by Decode. The root package translates these at
// the call site into the reason codes exposed to embedders (NetworkError,
// BadProperties).
var (
	// ErrIncomplete means buf does not yet hold a complete packet; the
	// caller should accumulate more bytes and retry.
	ErrIncomplete = errors.New("wire: incomplete packet")

	// ErrMalformed means buf can never become valid no matter how many
	// more bytes arrive (bad varint, truncated fields, bad UTF-8, ...).
	ErrMalformed = errors.New("wire: malformed packet")

	// ErrBadProperties means a decoded property identifier is not on the
	// whitelist for the enclosing packet type, or violates its multiplicity.
	ErrBadProperties = errors.New("wire: bad properties")

	// ErrPacketTooLarge means the fixed header's remaining-length exceeds
	// the configured maxPacketSize.
	ErrPacketTooLarge = errors.New("wire: packet exceeds maximum size")
)
