package primitives

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/oasisprotocol/chainfuzz/common/serialization"
)

// numSpecialScripts is the number of script templates with a dedicated
// compressed form.
const numSpecialScripts = 6

// specialScriptSize returns the payload size of a special script template.
func specialScriptSize(kind uint32) int {
	if kind == 0 || kind == 1 {
		return 20
	}
	return 32
}

// DecompressAmount reverses the amount compression used by the disk
// formats. Arithmetic wraps on overflow like the encoder's.
func DecompressAmount(x uint64) uint64 {
	if x == 0 {
		return 0
	}
	x--
	e := x % 10
	x /= 10
	var n uint64
	if e < 9 {
		d := x%9 + 1
		x /= 9
		n = x*10 + d
	} else {
		n = x + 1
	}
	for ; e > 0; e-- {
		n *= 10
	}
	return n
}

// DecodeCompressedTxOut decodes a transaction output in its compressed
// disk form.
func DecodeCompressedTxOut(s *serialization.Stream) (*wire.TxOut, error) {
	amount, err := s.ReadVarInt()
	if err != nil {
		return nil, err
	}
	script, err := decodeCompressedScript(s)
	if err != nil {
		return nil, err
	}
	return wire.NewTxOut(int64(DecompressAmount(amount)), script), nil
}

func decodeCompressedScript(s *serialization.Stream) ([]byte, error) {
	size, err := readVarUint32(s)
	if err != nil {
		return nil, err
	}
	if size < numSpecialScripts {
		payload, err := s.ReadBytes(specialScriptSize(size))
		if err != nil {
			return nil, err
		}
		return decompressScript(size, payload)
	}

	size -= numSpecialScripts
	if size > txscript.MaxScriptSize {
		// Oversized scripts are replaced by an unspendable one.
		if err = s.Skip(uint64(size)); err != nil {
			return nil, err
		}
		return []byte{txscript.OP_RETURN}, nil
	}
	return s.ReadBytes(int(size))
}

// decompressScript rebuilds a special script template. A compressed
// public key that is not on the curve yields an empty script.
func decompressScript(kind uint32, payload []byte) ([]byte, error) {
	b := txscript.NewScriptBuilder()
	switch kind {
	case 0x00:
		b.AddOp(txscript.OP_DUP).AddOp(txscript.OP_HASH160).AddData(payload).
			AddOp(txscript.OP_EQUALVERIFY).AddOp(txscript.OP_CHECKSIG)
	case 0x01:
		b.AddOp(txscript.OP_HASH160).AddData(payload).AddOp(txscript.OP_EQUAL)
	case 0x02, 0x03:
		compressed := append([]byte{byte(kind)}, payload...)
		b.AddData(compressed).AddOp(txscript.OP_CHECKSIG)
	case 0x04, 0x05:
		compressed := append([]byte{byte(kind - 2)}, payload...)
		pk, err := btcec.ParsePubKey(compressed)
		if err != nil {
			return []byte{}, nil
		}
		b.AddData(pk.SerializeUncompressed()).AddOp(txscript.OP_CHECKSIG)
	}
	return b.Script()
}
