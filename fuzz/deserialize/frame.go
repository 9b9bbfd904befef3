package deserialize

import (
	"encoding/binary"

	"github.com/oasisprotocol/chainfuzz/common/serialization"
)

// SelectorSize is the size of the little-endian target selector that
// prefixes every input.
const SelectorSize = 4

// Frame splits raw into the target selector and a stream over the rest of
// the input. The format version is decoded from the stream and set on it
// before any target decoding takes place.
//
// It returns false if the input is too short to carry a selector or if
// the version cannot be decoded.
func Frame(raw []byte) (uint32, *serialization.Stream, bool) {
	if len(raw) < SelectorSize {
		return 0, nil, false
	}
	selector := binary.LittleEndian.Uint32(raw[:SelectorSize])

	s := serialization.NewStream(raw[SelectorSize:], serialization.InitProtoVersion)
	version, err := s.ReadVersion()
	if err != nil {
		return selector, nil, false
	}
	if err = s.SetVersion(version); err != nil {
		// A fresh stream always accepts its version.
		panic(err)
	}
	return selector, s, true
}

// EncodeInput builds an input that Frame splits into the given target,
// format version and payload.
func EncodeInput(id TargetID, version uint32, payload []byte) []byte {
	var w serialization.Writer
	w.PutUint32(uint32(id)).PutCompactSize(uint64(version)).PutBytes(payload)
	return w.Bytes()
}
