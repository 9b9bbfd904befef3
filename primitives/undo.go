package primitives

import (
	"github.com/btcsuite/btcd/wire"

	"github.com/oasisprotocol/chainfuzz/common/serialization"
)

// TxInUndo is the information needed to restore a spent output.
type TxInUndo struct {
	TxOut    *wire.TxOut
	Height   uint32
	Coinbase bool
	// Version of the transaction that created the output, only present
	// when Height is non-zero.
	Version int32
}

// TxUndo is the undo information of a single transaction.
type TxUndo struct {
	PrevOuts []*TxInUndo
}

// BlockUndo is the undo information of a block, excluding its coinbase.
type BlockUndo struct {
	TxUndo []*TxUndo
}

func decodeTxInUndo(s *serialization.Stream) (*TxInUndo, error) {
	code, err := readVarUint32(s)
	if err != nil {
		return nil, err
	}
	u := TxInUndo{
		Height:   code / 2,
		Coinbase: code&1 != 0,
	}
	if u.Height > 0 {
		version, err := readVarUint32(s)
		if err != nil {
			return nil, err
		}
		u.Version = int32(version)
	}
	if u.TxOut, err = DecodeCompressedTxOut(s); err != nil {
		return nil, err
	}
	return &u, nil
}

// DecodeTxUndo decodes the undo information of a transaction.
func DecodeTxUndo(s *serialization.Stream) (*TxUndo, error) {
	prevOuts, err := serialization.ReadVector(s, decodeTxInUndo)
	if err != nil {
		return nil, err
	}
	return &TxUndo{PrevOuts: prevOuts}, nil
}

// DecodeBlockUndo decodes the undo information of a block.
func DecodeBlockUndo(s *serialization.Stream) (*BlockUndo, error) {
	txUndo, err := serialization.ReadVector(s, DecodeTxUndo)
	if err != nil {
		return nil, err
	}
	return &BlockUndo{TxUndo: txUndo}, nil
}
