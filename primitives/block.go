package primitives

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"

	"github.com/oasisprotocol/chainfuzz/common/serialization"
)

// BlockLocator is a list of block hashes describing a position in the
// chain, densest near the tip.
type BlockLocator struct {
	Version int32
	Have    []chainhash.Hash
}

// MerkleRoot is the merkle root of a block's transactions.
type MerkleRoot struct {
	Root chainhash.Hash
	// Mutated is set when two identical hashes were paired at some level
	// of the tree, which lets different transaction lists share a root.
	Mutated bool
}

// DecodeBlockHeader decodes a block header.
func DecodeBlockHeader(s *serialization.Stream) (*wire.BlockHeader, error) {
	var h wire.BlockHeader
	if err := h.BtcDecode(s, s.Version(), txEncoding(s.Version())); err != nil {
		return nil, serialization.FormatError(err)
	}
	return &h, nil
}

// DecodeBlock decodes a full block.
func DecodeBlock(s *serialization.Stream) (*wire.MsgBlock, error) {
	var b wire.MsgBlock
	if err := b.BtcDecode(s, s.Version(), txEncoding(s.Version())); err != nil {
		return nil, serialization.FormatError(err)
	}
	return &b, nil
}

// DecodeTransaction decodes a transaction.
func DecodeTransaction(s *serialization.Stream) (*wire.MsgTx, error) {
	var tx wire.MsgTx
	if err := tx.BtcDecode(s, s.Version(), txEncoding(s.Version())); err != nil {
		return nil, serialization.FormatError(err)
	}
	return &tx, nil
}

// DecodeBlockLocator decodes a block locator.
func DecodeBlockLocator(s *serialization.Stream) (*BlockLocator, error) {
	version, err := s.ReadInt32()
	if err != nil {
		return nil, err
	}
	have, err := serialization.ReadVector(s, (*serialization.Stream).ReadHash)
	if err != nil {
		return nil, err
	}
	return &BlockLocator{
		Version: version,
		Have:    have,
	}, nil
}

// DecodeBlockMerkleRoot decodes a full block and computes the merkle root
// of its transactions.
func DecodeBlockMerkleRoot(s *serialization.Stream) (*MerkleRoot, error) {
	b, err := DecodeBlock(s)
	if err != nil {
		return nil, err
	}
	root, mutated := BlockMerkleRoot(b)
	return &MerkleRoot{
		Root:    root,
		Mutated: mutated,
	}, nil
}

// BlockMerkleRoot computes the merkle root of the block's transactions and
// reports whether the tree is mutated.
func BlockMerkleRoot(b *wire.MsgBlock) (chainhash.Hash, bool) {
	txs := btcutil.NewBlock(b).Transactions()
	hashes := make([]chainhash.Hash, 0, len(txs))
	for _, tx := range txs {
		hashes = append(hashes, *tx.Hash())
	}
	return ComputeMerkleRoot(hashes)
}

// ComputeMerkleRoot computes the merkle root of the given leaves. An odd
// level is completed by duplicating its last hash. The hashes slice is
// used as scratch space.
func ComputeMerkleRoot(hashes []chainhash.Hash) (chainhash.Hash, bool) {
	var mutated bool
	var pair [2 * chainhash.HashSize]byte
	for len(hashes) > 1 {
		for i := 0; i+1 < len(hashes); i += 2 {
			if hashes[i] == hashes[i+1] {
				mutated = true
			}
		}
		if len(hashes)%2 == 1 {
			hashes = append(hashes, hashes[len(hashes)-1])
		}
		for i := 0; i < len(hashes)/2; i++ {
			copy(pair[:chainhash.HashSize], hashes[2*i][:])
			copy(pair[chainhash.HashSize:], hashes[2*i+1][:])
			hashes[i] = chainhash.DoubleHashH(pair[:])
		}
		hashes = hashes[:len(hashes)/2]
	}
	if len(hashes) == 0 {
		return chainhash.Hash{}, mutated
	}
	return hashes[0], mutated
}
