package primitives

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/oasisprotocol/chainfuzz/common/serialization"
)

// Block index status flags that control which file positions are stored.
const (
	BlockHaveData = 8
	BlockHaveUndo = 16
)

// DiskBlockIndex is a block index entry as stored in the block tree
// database.
type DiskBlockIndex struct {
	ClientVersion int32
	Height        int32
	Status        uint32
	TxCount       uint32
	File          int32
	DataPos       uint32
	UndoPos       uint32
	Header        wire.BlockHeader
}

// BlockHash returns the hash of the indexed block.
func (idx *DiskBlockIndex) BlockHash() chainhash.Hash {
	return idx.Header.BlockHash()
}

// DecodeDiskBlockIndex decodes a block index entry.
func DecodeDiskBlockIndex(s *serialization.Stream) (*DiskBlockIndex, error) {
	var (
		idx DiskBlockIndex
		v   uint32
		err error
	)
	if v, err = readVarUint32(s); err != nil {
		return nil, err
	}
	idx.ClientVersion = int32(v)
	if v, err = readVarUint32(s); err != nil {
		return nil, err
	}
	idx.Height = int32(v)
	if idx.Status, err = readVarUint32(s); err != nil {
		return nil, err
	}
	if idx.TxCount, err = readVarUint32(s); err != nil {
		return nil, err
	}
	if idx.Status&(BlockHaveData|BlockHaveUndo) != 0 {
		if v, err = readVarUint32(s); err != nil {
			return nil, err
		}
		idx.File = int32(v)
	}
	if idx.Status&BlockHaveData != 0 {
		if idx.DataPos, err = readVarUint32(s); err != nil {
			return nil, err
		}
	}
	if idx.Status&BlockHaveUndo != 0 {
		if idx.UndoPos, err = readVarUint32(s); err != nil {
			return nil, err
		}
	}
	if err = idx.Header.Deserialize(s); err != nil {
		return nil, serialization.FormatError(err)
	}
	return &idx, nil
}

// DecodeUint256 decodes a 256-bit digest.
func DecodeUint256(s *serialization.Stream) (*chainhash.Hash, error) {
	h, err := s.ReadHash()
	if err != nil {
		return nil, err
	}
	return &h, nil
}
