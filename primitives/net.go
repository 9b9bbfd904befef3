package primitives

import (
	"bytes"
	"net"
	"time"

	"github.com/btcsuite/btcd/wire"

	"github.com/oasisprotocol/chainfuzz/common/serialization"
)

// messageHeaderChecksumSize is the size of the payload checksum in a
// message header.
const messageHeaderChecksumSize = 4

// MessageHeader is the header preceding every network message.
type MessageHeader struct {
	Magic    wire.BitcoinNet
	Command  [wire.CommandSize]byte
	Length   uint32
	Checksum [messageHeaderChecksumSize]byte
}

// CommandString returns the command with its NUL padding removed.
func (h *MessageHeader) CommandString() string {
	return string(bytes.TrimRight(h.Command[:], "\x00"))
}

// IsValid checks the header against the expected network magic. The
// command must be printable ASCII followed only by NUL padding and the
// payload length must not exceed serialization.MaxSize.
func (h *MessageHeader) IsValid(magic wire.BitcoinNet) bool {
	if h.Magic != magic {
		return false
	}

	padding := false
	for _, c := range h.Command {
		switch {
		case c == 0:
			padding = true
		case padding:
			return false
		case c < ' ' || c > 0x7e:
			return false
		}
	}

	return h.Length <= serialization.MaxSize
}

// DecodeMessageHeader decodes a message header.
func DecodeMessageHeader(s *serialization.Stream) (*MessageHeader, error) {
	var h MessageHeader
	magic, err := s.ReadUint32()
	if err != nil {
		return nil, err
	}
	h.Magic = wire.BitcoinNet(magic)
	if err = s.ReadFull(h.Command[:]); err != nil {
		return nil, err
	}
	if h.Length, err = s.ReadUint32(); err != nil {
		return nil, err
	}
	if err = s.ReadFull(h.Checksum[:]); err != nil {
		return nil, err
	}
	return &h, nil
}

// DecodeNetAddr decodes a bare 16-byte network address.
func DecodeNetAddr(s *serialization.Stream) (net.IP, error) {
	return s.ReadBytes(net.IPv6len)
}

// DecodeService decodes a network address followed by a big-endian port.
func DecodeService(s *serialization.Stream) (*wire.NetAddress, error) {
	var na wire.NetAddress
	if err := readService(s, &na); err != nil {
		return nil, err
	}
	return &na, nil
}

func readService(s *serialization.Stream, na *wire.NetAddress) error {
	ip, err := DecodeNetAddr(s)
	if err != nil {
		return err
	}
	port, err := s.ReadUint16BE()
	if err != nil {
		return err
	}
	na.IP = ip
	na.Port = port
	return nil
}

// DecodeAddress decodes an address record as relayed between peers. The
// timestamp is only present from wire.NetAddressTimeVersion on.
func DecodeAddress(s *serialization.Stream) (*wire.NetAddress, error) {
	var na wire.NetAddress
	if s.Version() >= wire.NetAddressTimeVersion {
		ts, err := s.ReadUint32()
		if err != nil {
			return nil, err
		}
		na.Timestamp = time.Unix(int64(ts), 0)
	}
	services, err := s.ReadUint64()
	if err != nil {
		return nil, err
	}
	na.Services = wire.ServiceFlag(services)
	if err = readService(s, &na); err != nil {
		return nil, err
	}
	return &na, nil
}

// DecodeInv decodes an inventory item.
func DecodeInv(s *serialization.Stream) (*wire.InvVect, error) {
	typ, err := s.ReadUint32()
	if err != nil {
		return nil, err
	}
	hash, err := s.ReadHash()
	if err != nil {
		return nil, err
	}
	return wire.NewInvVect(wire.InvType(typ), &hash), nil
}

// DecodeBanEntry decodes a ban list entry.
func DecodeBanEntry(s *serialization.Stream) (*BanEntry, error) {
	var (
		be  BanEntry
		err error
	)
	if be.Version, err = s.ReadInt32(); err != nil {
		return nil, err
	}
	if be.CreateTime, err = s.ReadInt64(); err != nil {
		return nil, err
	}
	if be.BanUntil, err = s.ReadInt64(); err != nil {
		return nil, err
	}
	if be.Reason, err = s.ReadByte(); err != nil {
		return nil, err
	}
	return &be, nil
}

// BanEntry is a ban list entry.
type BanEntry struct {
	Version    int32
	CreateTime int64
	BanUntil   int64
	Reason     uint8
}
