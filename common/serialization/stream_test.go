package serialization

import (
	"fmt"
	"io"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/chainfuzz/common/errors"
)

func TestStreamFixedWidth(t *testing.T) {
	require := require.New(t)

	s := NewStream([]byte{
		0x01,
		0x02, 0x01,
		0x20, 0x8d,
		0x04, 0x03, 0x02, 0x01,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
	}, InitProtoVersion)
	require.EqualValues(InitProtoVersion, s.Version())

	b, err := s.ReadByte()
	require.NoError(err, "ReadByte")
	require.EqualValues(0x01, b)
	u16, err := s.ReadUint16()
	require.NoError(err, "ReadUint16")
	require.EqualValues(0x0102, u16)
	port, err := s.ReadUint16BE()
	require.NoError(err, "ReadUint16BE")
	require.EqualValues(8333, port)
	u32, err := s.ReadUint32()
	require.NoError(err, "ReadUint32")
	require.EqualValues(0x01020304, u32)
	u64, err := s.ReadUint64()
	require.NoError(err, "ReadUint64")
	require.EqualValues(uint64(0x0102030405060708), u64)

	require.Equal(0, s.Len())
	require.Equal(17, s.Offset())

	_, err = s.ReadByte()
	require.ErrorIs(err, ErrTruncated)
}

func TestStreamTruncationAdvances(t *testing.T) {
	require := require.New(t)

	s := NewStream([]byte{0xaa, 0xbb, 0xcc}, InitProtoVersion)
	_, err := s.ReadByte()
	require.NoError(err)
	_, err = s.ReadUint32()
	require.ErrorIs(err, ErrTruncated)
	require.Equal(errors.CategoryFormat, errors.CategoryOf(err))
	require.Equal(3, s.Offset(), "failed read must consume the remainder")
	require.Equal(0, s.Len())
}

func TestStreamCompactSize(t *testing.T) {
	for _, tc := range []struct {
		raw      []byte
		expected uint64
		err      error
	}{
		{[]byte{0x00}, 0, nil},
		{[]byte{0xfc}, 0xfc, nil},
		{[]byte{0xfd, 0xfd, 0x00}, 0xfd, nil},
		{[]byte{0xfd, 0xfc, 0x00}, 0, ErrNonCanonical},
		{[]byte{0xfe, 0x00, 0x00, 0x01, 0x00}, 0x10000, nil},
		{[]byte{0xfe, 0xff, 0xff, 0x00, 0x00}, 0, ErrNonCanonical},
		{[]byte{0xfe, 0x01, 0x00, 0x00, 0x02}, 0, ErrSizeTooLarge},
		{[]byte{0xff, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}, 0, ErrSizeTooLarge},
		{[]byte{0xfd, 0x01}, 0, ErrTruncated},
		{nil, 0, ErrTruncated},
	} {
		t.Run(fmt.Sprintf("%x", tc.raw), func(t *testing.T) {
			v, err := NewStream(tc.raw, InitProtoVersion).ReadCompactSize()
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, v)
		})
	}
}

func TestStreamVarInt(t *testing.T) {
	for _, tc := range []struct {
		raw      []byte
		expected uint64
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7f}, 0x7f},
		{[]byte{0x80, 0x00}, 0x80},
		{[]byte{0x80, 0x7f}, 0xff},
		{[]byte{0x82, 0xfe, 0x7f}, 0xffff},
		{[]byte{0x8e, 0xfe, 0xfe, 0xff, 0x00}, 0x100000000},
	} {
		v, err := NewStream(tc.raw, InitProtoVersion).ReadVarInt()
		require.NoError(t, err, "ReadVarInt(%x)", tc.raw)
		require.Equal(t, tc.expected, v, "ReadVarInt(%x)", tc.raw)
	}

	overflow := make([]byte, 11)
	for i := range overflow {
		overflow[i] = 0xff
	}
	_, err := NewStream(overflow, InitProtoVersion).ReadVarInt()
	require.ErrorIs(t, err, ErrVarIntOverflow)

	_, err = NewStream([]byte{0x80}, InitProtoVersion).ReadVarInt()
	require.ErrorIs(t, err, ErrTruncated)
}

func TestStreamVersion(t *testing.T) {
	require := require.New(t)

	s := NewStream([]byte{0xfe, 0x71, 0x11, 0x01, 0x00}, InitProtoVersion)
	v, err := s.ReadVersion()
	require.NoError(err, "ReadVersion")
	require.EqualValues(70001, v)
	require.NoError(s.SetVersion(v), "SetVersion")
	require.EqualValues(70001, s.Version())

	err = s.SetVersion(1)
	require.ErrorIs(err, ErrVersionAlreadySet)
	require.Equal(errors.CategoryInternal, errors.CategoryOf(err))
	require.EqualValues(70001, s.Version(), "version must not change once set")

	_, err = NewStream([]byte{0xfe, 0x00, 0x00, 0x00, 0x80}, InitProtoVersion).ReadVersion()
	require.ErrorIs(err, ErrVersionRange)
}

func TestReadVector(t *testing.T) {
	require := require.New(t)

	s := NewStream([]byte{0x03, 0x01, 0x02, 0x03}, InitProtoVersion)
	v, err := ReadVector(s, (*Stream).ReadByte)
	require.NoError(err, "ReadVector")
	require.Equal([]byte{1, 2, 3}, v)

	// A huge count backed by too few bytes fails on exhaustion.
	s = NewStream([]byte{0xfe, 0x00, 0x00, 0x00, 0x01, 0x01}, InitProtoVersion)
	_, err = ReadVector(s, (*Stream).ReadUint32)
	require.ErrorIs(err, ErrTruncated)
}

func TestFormatError(t *testing.T) {
	require := require.New(t)

	require.NoError(FormatError(nil))
	require.ErrorIs(FormatError(io.EOF), ErrTruncated)
	require.ErrorIs(FormatError(io.ErrUnexpectedEOF), ErrTruncated)
	require.ErrorIs(FormatError(fmt.Errorf("header: %w", io.ErrUnexpectedEOF)), ErrTruncated)
	require.ErrorIs(FormatError(&wire.MessageError{Func: "test", Description: "bad"}), ErrMalformed)
	require.ErrorIs(FormatError(ErrSizeTooLarge), ErrSizeTooLarge)

	other := fmt.Errorf("something else")
	require.Equal(other, FormatError(other))
	require.Equal(errors.CategoryUnknown, errors.CategoryOf(FormatError(other)))
}

func TestWriterReadBack(t *testing.T) {
	require := require.New(t)

	sizes := []uint64{0, 0xfc, 0xfd, 0xffff, 0x10000, MaxSize}
	varInts := []uint64{0, 0x7f, 0x80, 0x4000, 0xffffffff, 1 << 62}

	var w Writer
	for _, v := range sizes {
		w.PutCompactSize(v)
	}
	for _, v := range varInts {
		w.PutVarInt(v)
	}
	w.PutUint16BE(8333).PutUint32(7).PutUint64(9).PutHash(chainhash.Hash{0x01})

	s := NewStream(w.Bytes(), InitProtoVersion)
	for _, v := range sizes {
		got, err := s.ReadCompactSize()
		require.NoError(err, "ReadCompactSize")
		require.Equal(v, got)
	}
	for _, v := range varInts {
		got, err := s.ReadVarInt()
		require.NoError(err, "ReadVarInt")
		require.Equal(v, got)
	}
	port, err := s.ReadUint16BE()
	require.NoError(err)
	require.EqualValues(8333, port)
	u32, err := s.ReadUint32()
	require.NoError(err)
	require.EqualValues(7, u32)
	u64, err := s.ReadUint64()
	require.NoError(err)
	require.EqualValues(9, u64)
	h, err := s.ReadHash()
	require.NoError(err)
	require.Equal(chainhash.Hash{0x01}, h)
	require.Equal(0, s.Len())

	w.Reset()
	require.Equal(0, w.Len())
}
