package primitives

import (
	"github.com/btcsuite/btcd/wire"

	"github.com/oasisprotocol/chainfuzz/common/serialization"
)

// Coins are the unspent outputs of a single transaction. Spent outputs
// are nil.
type Coins struct {
	Version  int32
	Coinbase bool
	Outputs  []*wire.TxOut
	Height   uint32
}

// IsPruned returns true iff all outputs are spent.
func (c *Coins) IsPruned() bool {
	for _, out := range c.Outputs {
		if out != nil {
			return false
		}
	}
	return true
}

// DecodeCoins decodes an unspent output record.
//
// The header code packs the coinbase flag in bit 0, the availability of
// the first two outputs in bits 1 and 2 and the number of non-zero
// availability bitmap bytes that follow in the remaining bits (minus one
// if neither of the first two outputs is available).
func DecodeCoins(s *serialization.Stream) (*Coins, error) {
	version, err := readVarUint32(s)
	if err != nil {
		return nil, err
	}
	code, err := readVarUint32(s)
	if err != nil {
		return nil, err
	}

	avail := []bool{code&2 != 0, code&4 != 0}
	maskCode := code / 8
	if code&6 == 0 {
		maskCode++
	}
	for maskCode > 0 {
		mask, err := s.ReadByte()
		if err != nil {
			return nil, err
		}
		for p := uint(0); p < 8; p++ {
			avail = append(avail, mask&(1<<p) != 0)
		}
		if mask != 0 {
			maskCode--
		}
	}

	c := Coins{
		Version:  int32(version),
		Coinbase: code&1 != 0,
		Outputs:  make([]*wire.TxOut, len(avail)),
	}
	for i, ok := range avail {
		if !ok {
			continue
		}
		if c.Outputs[i], err = DecodeCompressedTxOut(s); err != nil {
			return nil, err
		}
	}
	if c.Height, err = readVarUint32(s); err != nil {
		return nil, err
	}

	// Drop trailing spent outputs.
	for len(c.Outputs) > 0 && c.Outputs[len(c.Outputs)-1] == nil {
		c.Outputs = c.Outputs[:len(c.Outputs)-1]
	}
	if len(c.Outputs) == 0 {
		c.Outputs = nil
	}

	return &c, nil
}
