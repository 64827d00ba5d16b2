// Package storage implements the PacketStorage contract: persistence for
// unacknowledged outbound QoS 1/2 packet bodies, addressed by packet
// identifier.
package storage

import "errors"

// ErrStorageFull is returned by Save when the body cannot be stored without
// evicting an unreleased entry. The ring implementation never evicts
// unreleased entries; the qos engine passes this error through, and the
// root client surfaces it to the publisher as StorageError.
var ErrStorageFull = errors.New("storage: insufficient capacity")

// PacketStorage persists the wire bytes of outbound QoS 1/2 publishes
// across a reconnect, so they can be replayed with DUP=1 before any new
// traffic. Implementations must tolerate Load being called for an id that
// was never saved or was already released (returning ok=false).
//
// The engine guarantees Load is never called concurrently with Save/Release
// for the same id, and that slices returned by Load remain valid until the
// matching Release.
type PacketStorage interface {
	// Save stores body under id, replacing any previous body saved under
	// the same id (the QoS2 PUBREC→PUBREL transition re-saves the same id
	// with the PUBREL bytes in place of the original PUBLISH bytes).
	Save(id uint16, body []byte) error

	// Release discards the body stored under id. A Release for an id with
	// no stored body is a no-op.
	Release(id uint16)

	// Load returns the body stored under id, split into head and tail
	// slices so ring-buffer implementations can return a wrapped region
	// without copying; head and tail concatenated reproduce the original
	// bytes passed to Save. Implementations that never wrap return the
	// whole body as head and a nil tail. ok is false if id has no stored
	// body.
	Load(id uint16) (head, tail []byte, ok bool)
}
