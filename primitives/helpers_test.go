package primitives

import (
	"bytes"

	"github.com/oasisprotocol/chainfuzz/common/serialization"
)

// encoder builds test encodings.
type encoder struct {
	serialization.Writer
}

func (e *encoder) u8(v uint8) *encoder {
	e.PutUint8(v)
	return e
}

func (e *encoder) u16be(v uint16) *encoder {
	e.PutUint16BE(v)
	return e
}

func (e *encoder) u32(v uint32) *encoder {
	e.PutUint32(v)
	return e
}

func (e *encoder) u64(v uint64) *encoder {
	e.PutUint64(v)
	return e
}

func (e *encoder) raw(b []byte) *encoder {
	e.PutBytes(b)
	return e
}

func (e *encoder) compactSize(v uint64) *encoder {
	e.PutCompactSize(v)
	return e
}

func (e *encoder) varInt(n uint64) *encoder {
	e.PutVarInt(n)
	return e
}

func (e *encoder) stream(version uint32) *serialization.Stream {
	return serialization.NewStream(e.Bytes(), version)
}

func repeat(b byte, n int) []byte {
	return bytes.Repeat([]byte{b}, n)
}
