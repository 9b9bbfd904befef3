// Package serialization implements the version-aware byte stream used to
// decode network and disk encodings of chain data structures.
package serialization

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/oasisprotocol/chainfuzz/common/errors"
)

// ModuleName is the module name used for error definitions.
const ModuleName = "serialization"

const (
	// InitProtoVersion is the protocol version a stream starts with before
	// the peer's version is known.
	InitProtoVersion uint32 = 209

	// MaxSize is the largest length prefix a stream accepts.
	MaxSize = 0x02000000

	// maxPrealloc bounds the number of elements a vector pre-allocates
	// before its elements have actually been read.
	maxPrealloc = 1024
)

var (
	// ErrTruncated is the error returned when a read runs past the end of
	// the stream.
	ErrTruncated = errors.New(ModuleName, 1, errors.CategoryFormat, "serialization: stream truncated")
	// ErrNonCanonical is the error returned when a CompactSize is not
	// minimally encoded.
	ErrNonCanonical = errors.New(ModuleName, 2, errors.CategoryFormat, "serialization: non-canonical compact size")
	// ErrSizeTooLarge is the error returned when a length prefix exceeds
	// MaxSize.
	ErrSizeTooLarge = errors.New(ModuleName, 3, errors.CategoryFormat, "serialization: size too large")
	// ErrVarIntOverflow is the error returned when a VARINT does not fit
	// into 64 bits.
	ErrVarIntOverflow = errors.New(ModuleName, 4, errors.CategoryFormat, "serialization: varint overflow")
	// ErrVersionRange is the error returned when a decoded version does
	// not fit a signed 32-bit integer.
	ErrVersionRange = errors.New(ModuleName, 5, errors.CategoryFormat, "serialization: version out of range")
	// ErrMalformed is the error returned for any other malformed encoding.
	ErrMalformed = errors.New(ModuleName, 6, errors.CategoryFormat, "serialization: malformed encoding")
	// ErrVersionAlreadySet is the error returned when the version of a
	// stream is set more than once.
	ErrVersionAlreadySet = errors.New(ModuleName, 7, errors.CategoryInternal, "serialization: version already set")
)

// Stream is a read cursor over a byte buffer tagged with a format version.
//
// The cursor only moves forward. Every successful field read advances it,
// even if a later field of the same structure fails to decode.
type Stream struct {
	buf []byte
	pos int

	version    uint32
	versionSet bool
}

// NewStream creates a new stream over buf with the given initial version.
// The buffer is never modified.
func NewStream(buf []byte, version uint32) *Stream {
	return &Stream{
		buf:     buf,
		version: version,
	}
}

// Version returns the current format version.
func (s *Stream) Version() uint32 {
	return s.version
}

// SetVersion sets the format version. It may only be called once.
func (s *Stream) SetVersion(version uint32) error {
	if s.versionSet {
		return ErrVersionAlreadySet
	}
	s.version = version
	s.versionSet = true
	return nil
}

// Len returns the number of unread bytes.
func (s *Stream) Len() int {
	return len(s.buf) - s.pos
}

// Offset returns the number of bytes consumed so far.
func (s *Stream) Offset() int {
	return s.pos
}

// Read implements io.Reader. Reads that cannot be fully satisfied still
// consume the remaining bytes, as a short read would on a real stream.
func (s *Stream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if s.Len() == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.buf[s.pos:])
	s.pos += n
	return n, nil
}

// next consumes and returns the next n bytes.
func (s *Stream) next(n int) ([]byte, error) {
	if n < 0 || n > s.Len() {
		s.pos = len(s.buf)
		return nil, ErrTruncated
	}
	b := s.buf[s.pos : s.pos+n]
	s.pos += n
	return b, nil
}

// ReadFull fills p from the stream.
func (s *Stream) ReadFull(p []byte) error {
	b, err := s.next(len(p))
	if err != nil {
		return err
	}
	copy(p, b)
	return nil
}

// ReadBytes returns a copy of the next n bytes.
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	b, err := s.next(n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

// Skip discards the next n bytes.
func (s *Stream) Skip(n uint64) error {
	if n > uint64(s.Len()) {
		s.pos = len(s.buf)
		return ErrTruncated
	}
	s.pos += int(n)
	return nil
}

// ReadByte reads a single byte.
func (s *Stream) ReadByte() (byte, error) {
	b, err := s.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint16 reads a little-endian uint16.
func (s *Stream) ReadUint16() (uint16, error) {
	b, err := s.next(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadUint16BE reads a big-endian uint16, as used for network ports.
func (s *Stream) ReadUint16BE() (uint16, error) {
	b, err := s.next(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// ReadUint32 reads a little-endian uint32.
func (s *Stream) ReadUint32() (uint32, error) {
	b, err := s.next(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadInt32 reads a little-endian int32.
func (s *Stream) ReadInt32() (int32, error) {
	v, err := s.ReadUint32()
	return int32(v), err
}

// ReadUint64 reads a little-endian uint64.
func (s *Stream) ReadUint64() (uint64, error) {
	b, err := s.next(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadInt64 reads a little-endian int64.
func (s *Stream) ReadInt64() (int64, error) {
	v, err := s.ReadUint64()
	return int64(v), err
}

// ReadHash reads a 256-bit digest.
func (s *Stream) ReadHash() (chainhash.Hash, error) {
	var h chainhash.Hash
	b, err := s.next(chainhash.HashSize)
	if err != nil {
		return h, err
	}
	copy(h[:], b)
	return h, nil
}

// ReadCompactSize reads a CompactSize length prefix and checks it against
// MaxSize.
func (s *Stream) ReadCompactSize() (uint64, error) {
	v, err := s.readCompactSize()
	if err != nil {
		return 0, err
	}
	if v > MaxSize {
		return 0, ErrSizeTooLarge
	}
	return v, nil
}

func (s *Stream) readCompactSize() (uint64, error) {
	discriminant, err := s.ReadByte()
	if err != nil {
		return 0, err
	}

	var v, min uint64
	switch discriminant {
	case 0xff:
		if v, err = s.ReadUint64(); err != nil {
			return 0, err
		}
		min = 0x100000000
	case 0xfe:
		var v32 uint32
		if v32, err = s.ReadUint32(); err != nil {
			return 0, err
		}
		v, min = uint64(v32), 0x10000
	case 0xfd:
		var v16 uint16
		if v16, err = s.ReadUint16(); err != nil {
			return 0, err
		}
		v, min = uint64(v16), 0xfd
	default:
		return uint64(discriminant), nil
	}
	if v < min {
		return 0, ErrNonCanonical
	}
	return v, nil
}

// ReadVarInt reads an MSB base-128 VARINT as used by the disk formats.
func (s *Stream) ReadVarInt() (uint64, error) {
	var n uint64
	for {
		ch, err := s.ReadByte()
		if err != nil {
			return 0, err
		}
		if n > (math.MaxUint64 >> 7) {
			return 0, ErrVarIntOverflow
		}
		n = (n << 7) | uint64(ch&0x7f)
		if ch&0x80 == 0 {
			return n, nil
		}
		if n == math.MaxUint64 {
			return 0, ErrVarIntOverflow
		}
		n++
	}
}

// ReadVersion reads a format version, encoded as a CompactSize.
func (s *Stream) ReadVersion() (uint32, error) {
	v, err := s.readCompactSize()
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt32 {
		return 0, ErrVersionRange
	}
	return uint32(v), nil
}

// ReadVector reads a CompactSize element count followed by that many
// elements, each decoded by fn. Elements are decoded one by one, so a
// large count on a short stream fails on exhaustion, not on allocation.
func ReadVector[T any](s *Stream, fn func(*Stream) (T, error)) ([]T, error) {
	n, err := s.ReadCompactSize()
	if err != nil {
		return nil, err
	}
	prealloc := n
	if prealloc > maxPrealloc {
		prealloc = maxPrealloc
	}
	v := make([]T, 0, prealloc)
	for i := uint64(0); i < n; i++ {
		elem, err := fn(s)
		if err != nil {
			return nil, err
		}
		v = append(v, elem)
	}
	return v, nil
}

// FormatError maps an error returned by a decoder reading from a stream to
// a coded error. Stream errors are returned as is, truncation reported by
// io helpers becomes ErrTruncated and wire protocol errors become
// ErrMalformed. Any other error is returned unchanged.
func FormatError(err error) error {
	if err == nil {
		return nil
	}
	if errors.CategoryOf(err) != errors.CategoryUnknown {
		return err
	}

	var msgErr *wire.MessageError
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return errors.WithContext(ErrTruncated, err.Error())
	case errors.As(err, &msgErr):
		return errors.WithContext(ErrMalformed, msgErr.Error())
	default:
		return err
	}
}
