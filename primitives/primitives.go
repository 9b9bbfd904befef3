// Package primitives implements decoders for the network and disk
// encodings of chain data structures: blocks, transactions, address
// records, undo data, filters and key derivation material.
//
// Every decoder reads from a serialization.Stream and honors its format
// version. Malformed or truncated input is reported as an error of the
// format category; decoders never read past the end of the stream.
package primitives

import (
	"math"

	"github.com/btcsuite/btcd/wire"

	"github.com/oasisprotocol/chainfuzz/common/errors"
	"github.com/oasisprotocol/chainfuzz/common/serialization"
)

// ModuleName is the module name used for error definitions.
const ModuleName = "primitives"

// SerializeNoWitness is the format version flag that disables the
// segregated witness transaction encoding.
const SerializeNoWitness = 0x40000000

var (
	// ErrInvalidKeySize is the error returned when an extended key payload
	// does not have the expected length.
	ErrInvalidKeySize = errors.New(ModuleName, 1, errors.CategoryValue, "primitives: invalid extended key size")
	// ErrAddrManKeySize is the error returned when an address manager
	// snapshot carries a bucket key of an unexpected size.
	ErrAddrManKeySize = errors.New(ModuleName, 2, errors.CategoryFormat, "primitives: incorrect address manager key size")
	// ErrAddrManLimit is the error returned when an address manager
	// snapshot has more entries than its tables can hold.
	ErrAddrManLimit = errors.New(ModuleName, 3, errors.CategoryFormat, "primitives: address manager entry count exceeds limit")
	// ErrAddrManInconsistent is the error returned when a decoded address
	// manager fails its consistency check.
	ErrAddrManInconsistent = errors.New(ModuleName, 4, errors.CategoryInternal, "primitives: address manager inconsistent")
)

// txEncoding returns the transaction encoding selected by the format
// version.
func txEncoding(version uint32) wire.MessageEncoding {
	if version&SerializeNoWitness != 0 {
		return wire.BaseEncoding
	}
	return wire.WitnessEncoding
}

// readVarUint32 reads a VARINT that must fit into 32 bits.
func readVarUint32(s *serialization.Stream) (uint32, error) {
	v, err := s.ReadVarInt()
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, serialization.ErrVarIntOverflow
	}
	return uint32(v), nil
}
