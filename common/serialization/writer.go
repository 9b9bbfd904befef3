package serialization

import (
	"bytes"
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Writer builds encodings that a Stream reads back. Writes to the
// underlying buffer cannot fail, so the Put methods chain.
type Writer struct {
	buf bytes.Buffer
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

// Bytes returns the encoding written so far.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Reset discards everything written so far.
func (w *Writer) Reset() {
	w.buf.Reset()
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// PutUint8 writes a byte.
func (w *Writer) PutUint8(v uint8) *Writer {
	_ = w.buf.WriteByte(v)
	return w
}

// PutUint16BE writes a big-endian uint16.
func (w *Writer) PutUint16BE(v uint16) *Writer {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return w.PutBytes(b[:])
}

// PutUint32 writes a little-endian uint32.
func (w *Writer) PutUint32(v uint32) *Writer {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return w.PutBytes(b[:])
}

// PutUint64 writes a little-endian uint64.
func (w *Writer) PutUint64(v uint64) *Writer {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return w.PutBytes(b[:])
}

// PutBytes writes raw bytes.
func (w *Writer) PutBytes(p []byte) *Writer {
	_, _ = w.buf.Write(p)
	return w
}

// PutHash writes a 256-bit digest.
func (w *Writer) PutHash(h chainhash.Hash) *Writer {
	return w.PutBytes(h[:])
}

// PutCompactSize writes a minimally encoded CompactSize.
func (w *Writer) PutCompactSize(v uint64) *Writer {
	switch {
	case v < 0xfd:
		return w.PutUint8(uint8(v))
	case v <= 0xffff:
		w.PutUint8(0xfd)
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(v))
		return w.PutBytes(b[:])
	case v <= 0xffffffff:
		return w.PutUint8(0xfe).PutUint32(uint32(v))
	default:
		return w.PutUint8(0xff).PutUint64(v)
	}
}

// PutVarInt writes an MSB base-128 VARINT.
func (w *Writer) PutVarInt(n uint64) *Writer {
	var tmp [10]byte
	l := 0
	for {
		tmp[l] = byte(n & 0x7f)
		if l > 0 {
			tmp[l] |= 0x80
		}
		if n <= 0x7f {
			break
		}
		n = (n >> 7) - 1
		l++
	}
	for ; l >= 0; l-- {
		_ = w.buf.WriteByte(tmp[l])
	}
	return w
}
