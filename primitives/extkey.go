package primitives

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil/hdkeychain"

	"github.com/oasisprotocol/chainfuzz/common/errors"
	"github.com/oasisprotocol/chainfuzz/common/serialization"
)

// ExtKeySize is the size of an encoded extended key without its version
// bytes: depth, parent fingerprint, child number, chain code and key.
const ExtKeySize = 74

// readExtKeyPayload reads the length-prefixed extended key payload. A
// length other than ExtKeySize is rejected before the payload is read.
func readExtKeyPayload(s *serialization.Stream) ([]byte, error) {
	n, err := s.ReadCompactSize()
	if err != nil {
		return nil, err
	}
	if n != ExtKeySize {
		return nil, errors.WithContext(ErrInvalidKeySize, fmt.Sprintf("got %d", n))
	}
	return s.ReadBytes(ExtKeySize)
}

func newExtendedKey(version [4]byte, code, key []byte, private bool) *hdkeychain.ExtendedKey {
	return hdkeychain.NewExtendedKey(
		version[:],
		key,
		code[9:41],
		code[1:5],
		code[0],
		binary.BigEndian.Uint32(code[5:9]),
		private,
	)
}

// DecodeExtKey decodes an extended private key.
func DecodeExtKey(s *serialization.Stream) (*hdkeychain.ExtendedKey, error) {
	code, err := readExtKeyPayload(s)
	if err != nil {
		return nil, err
	}
	// code[41] is the zero padding byte of the private key.
	return newExtendedKey(chaincfg.MainNetParams.HDPrivateKeyID, code, code[42:], true), nil
}

// DecodeExtPubKey decodes an extended public key.
func DecodeExtPubKey(s *serialization.Stream) (*hdkeychain.ExtendedKey, error) {
	code, err := readExtKeyPayload(s)
	if err != nil {
		return nil, err
	}
	return newExtendedKey(chaincfg.MainNetParams.HDPublicKeyID, code, code[41:], false), nil
}
