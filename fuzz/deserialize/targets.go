package deserialize

import (
	"bytes"

	"github.com/btcsuite/btcd/wire"

	"github.com/oasisprotocol/chainfuzz/common/errors"
	"github.com/oasisprotocol/chainfuzz/common/serialization"
	"github.com/oasisprotocol/chainfuzz/primitives"
)

// TargetID is the selector value of a decode target.
type TargetID uint32

// Decode targets. The numbering is part of the input format, so new
// targets are only ever appended.
const (
	TargetBlockHeader TargetID = iota
	TargetBlock
	TargetTransaction
	TargetBlockLocator
	TargetAddrMan
	TargetBanEntry
	TargetTxUndo
	TargetBlockUndo
	TargetCoins
	TargetNetAddr
	TargetService
	TargetMessageHeader
	TargetAddress
	TargetInv
	TargetBloomFilter
	TargetDiskBlockIndex
	TargetTxOutCompressor
	TargetExtKey
	TargetExtPubKey
	TargetUint256
	TargetBlockMerkleRoot

	targetCount
)

// String returns the name of the target.
func (id TargetID) String() string {
	if t, ok := Lookup(uint32(id)); ok {
		return t.Name
	}
	return "[unknown target]"
}

// Target describes a decode target.
type Target struct {
	// Name is the name of the target.
	Name string
	// Decode decodes a value from the stream.
	Decode func(*serialization.Stream) (interface{}, error)
	// Exercise, if set, is called with every successfully decoded value.
	Exercise func(interface{}) error
	// Benign are the error categories that denote an input the target
	// legitimately rejects.
	Benign []errors.Category
}

// IsBenign returns true iff err belongs to one of the target's benign
// categories.
func (t *Target) IsBenign(err error) bool {
	cat := errors.CategoryOf(err)
	for _, b := range t.Benign {
		if cat == b {
			return true
		}
	}
	return false
}

var (
	formatOnly = []errors.Category{errors.CategoryFormat}
	// Extended key decoders validate the payload length themselves and
	// reject a wrong one with a value error.
	formatOrKeySize = []errors.Category{errors.CategoryFormat, errors.CategoryValue}

	// bloomElement is the element inserted into decoded bloom filters.
	bloomElement = bytes.Repeat([]byte{0xaa}, 100)
)

var targets = [targetCount]Target{
	TargetBlockHeader: {
		Name:   "block_header",
		Decode: decoder(primitives.DecodeBlockHeader),
		Benign: formatOnly,
	},
	TargetBlock: {
		Name:   "block",
		Decode: decoder(primitives.DecodeBlock),
		Benign: formatOnly,
	},
	TargetTransaction: {
		Name:   "transaction",
		Decode: decoder(primitives.DecodeTransaction),
		Benign: formatOnly,
	},
	TargetBlockLocator: {
		Name:   "block_locator",
		Decode: decoder(primitives.DecodeBlockLocator),
		Benign: formatOnly,
	},
	TargetAddrMan: {
		Name:     "addrman",
		Decode:   decoder(primitives.DecodeAddrMan),
		Exercise: exercise((*primitives.AddrMan).Check),
		Benign:   formatOnly,
	},
	TargetBanEntry: {
		Name:   "ban_entry",
		Decode: decoder(primitives.DecodeBanEntry),
		Benign: formatOnly,
	},
	TargetTxUndo: {
		Name:   "tx_undo",
		Decode: decoder(primitives.DecodeTxUndo),
		Benign: formatOnly,
	},
	TargetBlockUndo: {
		Name:   "block_undo",
		Decode: decoder(primitives.DecodeBlockUndo),
		Benign: formatOnly,
	},
	TargetCoins: {
		Name:   "coins",
		Decode: decoder(primitives.DecodeCoins),
		Benign: formatOnly,
	},
	TargetNetAddr: {
		Name:   "net_addr",
		Decode: decoder(primitives.DecodeNetAddr),
		Benign: formatOnly,
	},
	TargetService: {
		Name:   "service",
		Decode: decoder(primitives.DecodeService),
		Benign: formatOnly,
	},
	TargetMessageHeader: {
		Name:     "message_header",
		Decode:   decoder(primitives.DecodeMessageHeader),
		Exercise: exercise(exerciseMessageHeader),
		Benign:   formatOnly,
	},
	TargetAddress: {
		Name:   "address",
		Decode: decoder(primitives.DecodeAddress),
		Benign: formatOnly,
	},
	TargetInv: {
		Name:   "inv",
		Decode: decoder(primitives.DecodeInv),
		Benign: formatOnly,
	},
	TargetBloomFilter: {
		Name:     "bloom_filter",
		Decode:   decoder(primitives.DecodeBloomFilter),
		Exercise: exercise(exerciseBloomFilter),
		Benign:   formatOnly,
	},
	TargetDiskBlockIndex: {
		Name:   "disk_block_index",
		Decode: decoder(primitives.DecodeDiskBlockIndex),
		Benign: formatOnly,
	},
	TargetTxOutCompressor: {
		Name:   "txout_compressor",
		Decode: decoder(primitives.DecodeCompressedTxOut),
		Benign: formatOnly,
	},
	TargetExtKey: {
		Name:   "ext_key",
		Decode: decoder(primitives.DecodeExtKey),
		Benign: formatOrKeySize,
	},
	TargetExtPubKey: {
		Name:   "ext_pubkey",
		Decode: decoder(primitives.DecodeExtPubKey),
		Benign: formatOrKeySize,
	},
	TargetUint256: {
		Name:   "uint256",
		Decode: decoder(primitives.DecodeUint256),
		Benign: formatOnly,
	},
	TargetBlockMerkleRoot: {
		Name:   "block_merkle_root",
		Decode: decoder(primitives.DecodeBlockMerkleRoot),
		Benign: formatOnly,
	},
}

// Lookup returns a copy of the target with the given selector.
func Lookup(selector uint32) (Target, bool) {
	if selector >= uint32(targetCount) {
		return Target{}, false
	}
	return targets[selector].clone(), true
}

// Targets returns copies of all targets, indexed by selector.
func Targets() []Target {
	all := make([]Target, 0, len(targets))
	for i := range targets {
		all = append(all, targets[i].clone())
	}
	return all
}

func (t *Target) clone() Target {
	c := *t
	c.Benign = append([]errors.Category(nil), t.Benign...)
	return c
}

func decoder[T any](fn func(*serialization.Stream) (T, error)) func(*serialization.Stream) (interface{}, error) {
	return func(s *serialization.Stream) (interface{}, error) {
		v, err := fn(s)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

func exercise[T any](fn func(T) error) func(interface{}) error {
	return func(v interface{}) error {
		return fn(v.(T))
	}
}

// exerciseMessageHeader validates the header against an all-zero network
// magic. The verdict is discarded, most headers fail it.
func exerciseMessageHeader(h *primitives.MessageHeader) error {
	_ = h.IsValid(wire.BitcoinNet(0))
	return nil
}

func exerciseBloomFilter(f *primitives.BloomFilter) error {
	f.Insert(bloomElement)
	if !f.Contains(bloomElement) {
		return errors.WithContext(ErrExercise, "bloom filter does not contain an inserted element")
	}
	f.Clear()
	return nil
}
