package primitives

import (
	"fmt"
	"net"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/oasisprotocol/chainfuzz/common/errors"
	"github.com/oasisprotocol/chainfuzz/common/serialization"
)

const (
	// AddrManNewBucketCount is the number of buckets of the new table.
	AddrManNewBucketCount = 1024
	// AddrManTriedBucketCount is the number of buckets of the tried table.
	AddrManTriedBucketCount = 256
	// AddrManBucketSize is the number of slots per bucket.
	AddrManBucketSize = 64
	// AddrManNewBucketsPerAddress is the maximum number of new buckets an
	// address may be referenced from.
	AddrManNewBucketsPerAddress = 8

	addrManKeySize = 32
	// addrManBucketsFlag is XOR-ed into the serialized bucket count by all
	// formats except the initial one.
	addrManBucketsFlag = 1 << 30
)

// AddrInfo is an address manager entry.
type AddrInfo struct {
	Address     *wire.NetAddress
	Source      net.IP
	LastSuccess int64
	Attempts    int32

	// RefCount is the number of new buckets referencing the entry.
	RefCount int
}

// AddrMan is a decoded address manager snapshot.
type AddrMan struct {
	Format uint8
	Key    chainhash.Hash

	New   []*AddrInfo
	Tried []*AddrInfo
	// Buckets are the entry indices of each new bucket. They are only
	// populated when the snapshot's bucket layout matches the current one.
	Buckets [][]int32
}

func decodeAddrInfo(s *serialization.Stream) (*AddrInfo, error) {
	var (
		info AddrInfo
		err  error
	)
	if info.Address, err = DecodeAddress(s); err != nil {
		return nil, err
	}
	if info.Source, err = DecodeNetAddr(s); err != nil {
		return nil, err
	}
	if info.LastSuccess, err = s.ReadInt64(); err != nil {
		return nil, err
	}
	if info.Attempts, err = s.ReadInt32(); err != nil {
		return nil, err
	}
	return &info, nil
}

// DecodeAddrMan decodes an address manager snapshot.
func DecodeAddrMan(s *serialization.Stream) (*AddrMan, error) {
	var (
		am  AddrMan
		err error
	)
	if am.Format, err = s.ReadByte(); err != nil {
		return nil, err
	}
	keySize, err := s.ReadByte()
	if err != nil {
		return nil, err
	}
	if keySize != addrManKeySize {
		return nil, errors.WithContext(ErrAddrManKeySize, fmt.Sprintf("got %d", keySize))
	}
	if am.Key, err = s.ReadHash(); err != nil {
		return nil, err
	}
	nNew, err := s.ReadInt32()
	if err != nil {
		return nil, err
	}
	nTried, err := s.ReadInt32()
	if err != nil {
		return nil, err
	}
	nBuckets, err := s.ReadInt32()
	if err != nil {
		return nil, err
	}
	if am.Format != 0 {
		nBuckets ^= addrManBucketsFlag
	}
	if nNew > AddrManNewBucketCount*AddrManBucketSize {
		return nil, errors.WithContext(ErrAddrManLimit, fmt.Sprintf("new entries: %d", nNew))
	}
	if nTried > AddrManTriedBucketCount*AddrManBucketSize {
		return nil, errors.WithContext(ErrAddrManLimit, fmt.Sprintf("tried entries: %d", nTried))
	}

	for i := int32(0); i < nNew; i++ {
		info, err := decodeAddrInfo(s)
		if err != nil {
			return nil, err
		}
		am.New = append(am.New, info)
	}
	for i := int32(0); i < nTried; i++ {
		info, err := decodeAddrInfo(s)
		if err != nil {
			return nil, err
		}
		am.Tried = append(am.Tried, info)
	}

	// Bucket positions are only usable if the layout matches, otherwise
	// they are read and dropped and every new entry gets a single
	// reference.
	usable := am.Format == 1 && nBuckets == AddrManNewBucketCount
	if usable {
		am.Buckets = make([][]int32, AddrManNewBucketCount)
	}
	for bucket := int32(0); bucket < nBuckets; bucket++ {
		size, err := s.ReadInt32()
		if err != nil {
			return nil, err
		}
		for i := int32(0); i < size; i++ {
			idx, err := s.ReadInt32()
			if err != nil {
				return nil, err
			}
			if !usable || idx < 0 || idx >= int32(len(am.New)) {
				continue
			}
			info := am.New[idx]
			if len(am.Buckets[bucket]) >= AddrManBucketSize || info.RefCount >= AddrManNewBucketsPerAddress {
				continue
			}
			am.Buckets[bucket] = append(am.Buckets[bucket], idx)
			info.RefCount++
		}
	}
	if !usable {
		for _, info := range am.New {
			info.RefCount = 1
		}
		return &am, nil
	}

	am.pruneUnreferenced()

	return &am, nil
}

// pruneUnreferenced drops new entries that no bucket references and
// renumbers the bucket indices.
func (am *AddrMan) pruneUnreferenced() {
	remap := make([]int32, len(am.New))
	kept := am.New[:0]
	for i, info := range am.New {
		if info.RefCount == 0 {
			remap[i] = -1
			continue
		}
		remap[i] = int32(len(kept))
		kept = append(kept, info)
	}
	am.New = kept
	for _, bucket := range am.Buckets {
		for i, idx := range bucket {
			bucket[i] = remap[idx]
		}
	}
}

// Check verifies the internal consistency of the snapshot.
func (am *AddrMan) Check() error {
	refs := make([]int, len(am.New))
	for b, bucket := range am.Buckets {
		if len(bucket) > AddrManBucketSize {
			return errors.WithContext(ErrAddrManInconsistent, fmt.Sprintf("bucket %d overfull", b))
		}
		for _, idx := range bucket {
			if idx < 0 || int(idx) >= len(am.New) {
				return errors.WithContext(ErrAddrManInconsistent, fmt.Sprintf("bucket %d: dangling index %d", b, idx))
			}
			refs[idx]++
		}
	}
	for i, info := range am.New {
		if info.RefCount < 1 || info.RefCount > AddrManNewBucketsPerAddress {
			return errors.WithContext(ErrAddrManInconsistent, fmt.Sprintf("entry %d: refcount %d", i, info.RefCount))
		}
		if am.Buckets != nil && refs[i] != info.RefCount {
			return errors.WithContext(ErrAddrManInconsistent, fmt.Sprintf("entry %d: %d references, refcount %d", i, refs[i], info.RefCount))
		}
	}
	if len(am.Tried) > AddrManTriedBucketCount*AddrManBucketSize {
		return errors.WithContext(ErrAddrManInconsistent, "tried table overfull")
	}
	return nil
}
