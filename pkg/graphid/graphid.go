// Package graphid implements the packed 64-bit vertex/edge identifier.
//
// An ID packs a 16-bit label identifier into the high bits and a 48-bit
// local identifier into the low bits: label.local, displayed as
// "labid.locid". All identifier generation goes through the storage
// engine's counter service; this package only knows how to pack, unpack,
// and validate the two halves.
package graphid

import (
	"errors"
	"fmt"
)

const (
	// LocalBits is the width of the local identifier half.
	LocalBits = 48
	// MaxLocal is the largest local identifier that fits in LocalBits.
	MaxLocal = (uint64(1) << LocalBits) - 1
	// MaxLabel is the largest label identifier that fits in the remaining
	// 16 bits.
	MaxLabel = uint64(1)<<16 - 1
)

// ErrLocalOutOfRange is returned by New when locid does not fit in 48 bits.
// The label half needs no equivalent check: it is typed uint16, so it can
// never carry a value wider than the 16 bits New packs it into.
var ErrLocalOutOfRange = errors.New("graphid: local id out of range")

// ID is a packed 64-bit graph identifier.
type ID uint64

// New packs a label id and a local id into an ID, rejecting a local id
// that would not fit in the low 48 bits. The uint16 label id always fits
// in the high 16 bits.
func New(labid uint16, locid uint64) (ID, error) {
	if locid > MaxLocal {
		return 0, fmt.Errorf("%w: %d", ErrLocalOutOfRange, locid)
	}
	return ID(uint64(labid)<<LocalBits | locid), nil
}

// Raw returns the identifier's 64-bit representation.
func (id ID) Raw() uint64 {
	return uint64(id)
}

// FromRaw reconstructs an ID from its 64-bit representation. The
// representation is trusted to have come from Raw or storage, so it is
// never range-checked again.
func FromRaw(raw uint64) ID {
	return ID(raw)
}

// Label returns the 16-bit label identifier packed into the high bits.
func (id ID) Label() uint16 {
	return uint16(uint64(id) >> LocalBits)
}

// Local returns the 48-bit local identifier packed into the low bits.
func (id ID) Local() uint64 {
	return uint64(id) & MaxLocal
}

// String renders the identifier as "labid.locid".
func (id ID) String() string {
	return fmt.Sprintf("%d.%d", id.Label(), id.Local())
}
