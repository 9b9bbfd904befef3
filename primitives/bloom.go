package primitives

import (
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil/bloom"

	"github.com/oasisprotocol/chainfuzz/common/serialization"
)

// BloomFilter is a probabilistic membership filter loaded from its
// filterload encoding.
//
// A filter with no data bytes matches everything and ignores inserts,
// since there are no bits to hash into.
type BloomFilter struct {
	inner *bloom.Filter

	size      int
	hashFuncs uint32
	tweak     uint32
	flags     wire.BloomUpdateType
}

// DecodeBloomFilter decodes a bloom filter. The filter data and hash
// function count are bounded by the filterload message limits.
//
// The filter layout does not depend on the stream version, so the message
// is always decoded at the version that introduced it.
func DecodeBloomFilter(s *serialization.Stream) (*BloomFilter, error) {
	var msg wire.MsgFilterLoad
	if err := msg.BtcDecode(s, wire.BIP0037Version, wire.BaseEncoding); err != nil {
		return nil, serialization.FormatError(err)
	}
	return &BloomFilter{
		inner:     bloom.LoadFilter(&msg),
		size:      len(msg.Filter),
		hashFuncs: msg.HashFuncs,
		tweak:     msg.Tweak,
		flags:     msg.Flags,
	}, nil
}

// Size returns the size of the filter data in bytes.
func (f *BloomFilter) Size() int {
	return f.size
}

// Insert adds data to the filter.
func (f *BloomFilter) Insert(data []byte) {
	if f.size == 0 {
		return
	}
	f.inner.Add(data)
}

// Contains returns true iff data may have been inserted into the filter.
func (f *BloomFilter) Contains(data []byte) bool {
	if f.size == 0 {
		return true
	}
	return f.inner.Matches(data)
}

// Clear resets all filter bits while keeping its parameters.
func (f *BloomFilter) Clear() {
	f.inner.Reload(wire.NewMsgFilterLoad(make([]byte, f.size), f.hashFuncs, f.tweak, f.flags))
}
