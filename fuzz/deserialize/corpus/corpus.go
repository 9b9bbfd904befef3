// Package corpus generates seed inputs for the deserialization fuzzer.
package corpus

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil/base58"
	"github.com/btcsuite/btcutil/hdkeychain"
	bip39 "github.com/tyler-smith/go-bip39"

	commonFuzz "github.com/oasisprotocol/chainfuzz/common/fuzz"
	"github.com/oasisprotocol/chainfuzz/common/serialization"
	"github.com/oasisprotocol/chainfuzz/fuzz/deserialize"
	"github.com/oasisprotocol/chainfuzz/primitives"
)

// Sample is a single corpus input.
type Sample struct {
	// Name is the file name stem of the sample.
	Name string
	// Target is the target selected by the sample.
	Target deserialize.TargetID
	// Data is the framed input.
	Data []byte
	// Blob is the generator output the sample was built from, if any.
	// Replaying it through a blob filler rebuilds the same sample.
	Blob []byte
}

type headerFields struct {
	Version    int32
	PrevBlock  [chainhash.HashSize]byte
	MerkleRoot [chainhash.HashSize]byte
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32
}

type txInFields struct {
	Hash      [chainhash.HashSize]byte
	Index     uint32
	SigScript []byte
	Sequence  uint32
}

type txOutFields struct {
	Value    int64
	PkScript []byte
}

type txFields struct {
	Version  int32
	Inputs   []txInFields
	Outputs  []txOutFields
	LockTime uint32
}

type addressFields struct {
	Timestamp uint32
	Services  uint64
	IP        [net.IPv6len]byte
	Port      uint16
}

type addrInfoFields struct {
	Address     addressFields
	Source      [net.IPv6len]byte
	LastSuccess int64
	Attempts    int32
}

type compressedTxOutFields struct {
	Amount uint64
	// Kind selects a special script template if below 6.
	Kind   uint8
	Script []byte
}

type undoFields struct {
	Height   uint32
	Coinbase bool
	Version  uint32
	Out      compressedTxOutFields
}

type extKeyFields struct {
	Entropy  [16]byte
	Derive   bool
	ChildNum uint32
}

type indexFields struct {
	ClientVersion uint32
	Height        uint32
	Status        uint32
	TxCount       uint32
	File          uint32
	DataPos       uint32
	UndoPos       uint32
	Header        headerFields
}

type builder func(f *commonFuzz.Filler) (uint32, []byte)

var builders = map[deserialize.TargetID]builder{
	deserialize.TargetBlockHeader:     buildBlockHeader,
	deserialize.TargetBlock:           buildBlock,
	deserialize.TargetTransaction:     buildTransaction,
	deserialize.TargetBlockLocator:    buildBlockLocator,
	deserialize.TargetAddrMan:         buildAddrMan,
	deserialize.TargetBanEntry:        buildBanEntry,
	deserialize.TargetTxUndo:          buildTxUndo,
	deserialize.TargetBlockUndo:       buildBlockUndo,
	deserialize.TargetCoins:           buildCoins,
	deserialize.TargetNetAddr:         buildNetAddr,
	deserialize.TargetService:         buildService,
	deserialize.TargetMessageHeader:   buildMessageHeader,
	deserialize.TargetAddress:         buildAddress,
	deserialize.TargetInv:             buildInv,
	deserialize.TargetBloomFilter:     buildBloomFilter,
	deserialize.TargetDiskBlockIndex:  buildDiskBlockIndex,
	deserialize.TargetTxOutCompressor: buildCompressedTxOut,
	deserialize.TargetExtKey:          buildExtKey,
	deserialize.TargetExtPubKey:       buildExtPubKey,
	deserialize.TargetUint256:         buildUint256,
	deserialize.TargetBlockMerkleRoot: buildBlock,
}

// Generate returns samplesPerTarget valid inputs for every target,
// followed by a fixed set of edge case inputs. The output only depends on
// the arguments.
func Generate(samplesPerTarget int, seed int64) []Sample {
	targets := deserialize.Targets()

	var samples []Sample
	for i := 0; i < samplesPerTarget; i++ {
		for id := range targets {
			tid := deserialize.TargetID(id)
			build, ok := builders[tid]
			if !ok {
				panic(fmt.Sprintf("corpus: no builder for target %s", tid))
			}
			f := commonFuzz.NewFiller(seed + int64(i)*int64(len(targets)) + int64(id))
			version, payload := build(f)
			samples = append(samples, Sample{
				Name:   fmt.Sprintf("%s_%02d", targets[id].Name, i),
				Target: tid,
				Data:   deserialize.EncodeInput(tid, version, payload),
				Blob:   f.Blob(),
			})
		}
	}

	return append(samples, edgeCases()...)
}

func edgeCases() []Sample {
	bloom := buildMinimalBloomFilter()

	var header serialization.Writer
	header.PutUint32(uint32(wire.TestNet3))
	var cmd [wire.CommandSize]byte
	copy(cmd[:], wire.CmdPing)
	header.PutBytes(cmd[:]).PutUint32(8).PutBytes([]byte{0xde, 0xad, 0xbe, 0xef})

	return []Sample{
		{
			Name:   "edge_empty_block_header",
			Target: deserialize.TargetBlockHeader,
			Data:   deserialize.EncodeInput(deserialize.TargetBlockHeader, 0, nil),
		},
		{
			Name:   "edge_minimal_bloom_filter",
			Target: deserialize.TargetBloomFilter,
			Data:   deserialize.EncodeInput(deserialize.TargetBloomFilter, 0, bloom),
		},
		{
			Name:   "edge_foreign_message_header",
			Target: deserialize.TargetMessageHeader,
			Data:   deserialize.EncodeInput(deserialize.TargetMessageHeader, 0, header.Bytes()),
		},
		{
			Name:   "edge_ext_key_size",
			Target: deserialize.TargetExtKey,
			Data:   deserialize.EncodeInput(deserialize.TargetExtKey, 0, []byte{primitives.ExtKeySize - 1}),
		},
	}
}

func buildMinimalBloomFilter() []byte {
	var w serialization.Writer
	msg := wire.NewMsgFilterLoad([]byte{0x00}, 1, 0, wire.BloomUpdateNone)
	if err := msg.BtcEncode(&w, wire.BIP0037Version, wire.BaseEncoding); err != nil {
		panic(err)
	}
	return w.Bytes()
}

func newBlockHeader(h *headerFields) *wire.BlockHeader {
	return &wire.BlockHeader{
		Version:    h.Version,
		PrevBlock:  chainhash.Hash(h.PrevBlock),
		MerkleRoot: chainhash.Hash(h.MerkleRoot),
		Timestamp:  unixTime(h.Timestamp),
		Bits:       h.Bits,
		Nonce:      h.Nonce,
	}
}

func newTx(fields *txFields) *wire.MsgTx {
	tx := wire.NewMsgTx(fields.Version)
	for _, in := range fields.Inputs {
		hash := chainhash.Hash(in.Hash)
		txIn := wire.NewTxIn(wire.NewOutPoint(&hash, in.Index), in.SigScript, nil)
		txIn.Sequence = in.Sequence
		tx.AddTxIn(txIn)
	}
	for _, out := range fields.Outputs {
		tx.AddTxOut(wire.NewTxOut(out.Value, out.PkScript))
	}
	tx.LockTime = fields.LockTime
	return tx
}

type encoder interface {
	BtcEncode(w io.Writer, pver uint32, enc wire.MessageEncoding) error
}

func encode(msg encoder, version uint32, enc wire.MessageEncoding) []byte {
	var w serialization.Writer
	if err := msg.BtcEncode(&w, version, enc); err != nil {
		panic(fmt.Sprintf("corpus: failed to encode sample: %s", err))
	}
	return w.Bytes()
}

func buildBlockHeader(f *commonFuzz.Filler) (uint32, []byte) {
	var h headerFields
	f.Fill(&h)
	return wire.ProtocolVersion, encode(newBlockHeader(&h), wire.ProtocolVersion, wire.WitnessEncoding)
}

func buildBlock(f *commonFuzz.Filler) (uint32, []byte) {
	var (
		h   headerFields
		txs []txFields
	)
	f.Fill(&h)
	f.Fill(&txs)

	b := wire.NewMsgBlock(newBlockHeader(&h))
	for i := range txs {
		_ = b.AddTransaction(newTx(&txs[i]))
	}
	return wire.ProtocolVersion, encode(b, wire.ProtocolVersion, wire.WitnessEncoding)
}

func buildTransaction(f *commonFuzz.Filler) (uint32, []byte) {
	var fields txFields
	f.Fill(&fields)
	return wire.ProtocolVersion, encode(newTx(&fields), wire.ProtocolVersion, wire.WitnessEncoding)
}

func buildBlockLocator(f *commonFuzz.Filler) (uint32, []byte) {
	var fields struct {
		Version int32
		Have    [][chainhash.HashSize]byte
	}
	f.Fill(&fields)

	var w serialization.Writer
	w.PutUint32(uint32(fields.Version)).PutCompactSize(uint64(len(fields.Have)))
	for _, h := range fields.Have {
		w.PutBytes(h[:])
	}
	return wire.ProtocolVersion, w.Bytes()
}

func putAddress(w *serialization.Writer, a *addressFields) {
	w.PutUint32(a.Timestamp).PutUint64(a.Services).PutBytes(a.IP[:]).PutUint16BE(a.Port)
}

func buildAddrMan(f *commonFuzz.Filler) (uint32, []byte) {
	var fields struct {
		Key   [32]byte
		New   []addrInfoFields
		Tried []addrInfoFields
	}
	f.Fill(&fields)

	var w serialization.Writer
	w.PutUint8(1).PutUint8(32).PutBytes(fields.Key[:])
	w.PutUint32(uint32(len(fields.New))).PutUint32(uint32(len(fields.Tried)))
	w.PutUint32(primitives.AddrManNewBucketCount ^ (1 << 30))
	for _, tables := range [][]addrInfoFields{fields.New, fields.Tried} {
		for i := range tables {
			info := &tables[i]
			putAddress(&w, &info.Address)
			w.PutBytes(info.Source[:]).PutUint64(uint64(info.LastSuccess)).PutUint32(uint32(info.Attempts))
		}
	}
	// Bucket i references new entry i.
	for bucket := 0; bucket < primitives.AddrManNewBucketCount; bucket++ {
		if bucket < len(fields.New) {
			w.PutUint32(1).PutUint32(uint32(bucket))
			continue
		}
		w.PutUint32(0)
	}
	return wire.ProtocolVersion, w.Bytes()
}

func buildBanEntry(f *commonFuzz.Filler) (uint32, []byte) {
	var fields struct {
		CreateTime uint64
		BanUntil   uint64
		Reason     uint8
	}
	f.Fill(&fields)

	var w serialization.Writer
	w.PutUint32(1).PutUint64(fields.CreateTime).PutUint64(fields.BanUntil).PutUint8(fields.Reason)
	return wire.ProtocolVersion, w.Bytes()
}

func putCompressedTxOut(w *serialization.Writer, out *compressedTxOutFields) {
	w.PutVarInt(out.Amount)
	switch kind := uint64(out.Kind % 8); {
	case kind < 2:
		w.PutVarInt(kind).PutBytes(fitScript(out.Script, 20))
	case kind < 6:
		w.PutVarInt(kind).PutBytes(fitScript(out.Script, 32))
	default:
		w.PutVarInt(uint64(len(out.Script)) + 6).PutBytes(out.Script)
	}
}

// fitScript pads or truncates the script to n bytes.
func fitScript(script []byte, n int) []byte {
	b := make([]byte, n)
	copy(b, script)
	return b
}

func putTxInUndo(w *serialization.Writer, u *undoFields) {
	height := uint64(u.Height % (1 << 24))
	code := height * 2
	if u.Coinbase {
		code++
	}
	w.PutVarInt(code)
	if height > 0 {
		w.PutVarInt(uint64(u.Version))
	}
	putCompressedTxOut(w, &u.Out)
}

func buildTxUndo(f *commonFuzz.Filler) (uint32, []byte) {
	var undo []undoFields
	f.Fill(&undo)

	var w serialization.Writer
	w.PutCompactSize(uint64(len(undo)))
	for i := range undo {
		putTxInUndo(&w, &undo[i])
	}
	return wire.ProtocolVersion, w.Bytes()
}

func buildBlockUndo(f *commonFuzz.Filler) (uint32, []byte) {
	var undo [][]undoFields
	f.Fill(&undo)

	var w serialization.Writer
	w.PutCompactSize(uint64(len(undo)))
	for _, tx := range undo {
		w.PutCompactSize(uint64(len(tx)))
		for i := range tx {
			putTxInUndo(&w, &tx[i])
		}
	}
	return wire.ProtocolVersion, w.Bytes()
}

func buildCoins(f *commonFuzz.Filler) (uint32, []byte) {
	var fields struct {
		Version  uint32
		Coinbase bool
		Outputs  []compressedTxOutFields
		Height   uint32
	}
	f.Fill(&fields)

	// The first output is always unspent, the rest are described by a
	// single availability bitmap byte.
	n := len(fields.Outputs)
	code := uint64(2)
	if fields.Coinbase {
		code |= 1
	}
	var mask uint8
	if n > 2 {
		code |= 4
		for p := 0; p < n-2; p++ {
			mask |= 1 << p
		}
		code |= 8
	} else if n == 2 {
		code |= 4
	}

	var w serialization.Writer
	w.PutVarInt(uint64(fields.Version)).PutVarInt(code)
	if mask != 0 {
		w.PutUint8(mask)
	}
	for i := range fields.Outputs {
		putCompressedTxOut(&w, &fields.Outputs[i])
	}
	w.PutVarInt(uint64(fields.Height))
	return wire.ProtocolVersion, w.Bytes()
}

func buildNetAddr(f *commonFuzz.Filler) (uint32, []byte) {
	var ip [net.IPv6len]byte
	f.Fill(&ip)
	return wire.ProtocolVersion, ip[:]
}

func buildService(f *commonFuzz.Filler) (uint32, []byte) {
	var fields struct {
		IP   [net.IPv6len]byte
		Port uint16
	}
	f.Fill(&fields)

	var w serialization.Writer
	w.PutBytes(fields.IP[:]).PutUint16BE(fields.Port)
	return wire.ProtocolVersion, w.Bytes()
}

var commands = []string{
	wire.CmdVersion,
	wire.CmdVerAck,
	wire.CmdAddr,
	wire.CmdInv,
	wire.CmdGetData,
	wire.CmdBlock,
	wire.CmdTx,
	wire.CmdPing,
	wire.CmdPong,
	wire.CmdFilterLoad,
}

func buildMessageHeader(f *commonFuzz.Filler) (uint32, []byte) {
	var fields struct {
		Command  uint8
		Length   uint32
		Checksum [4]byte
	}
	f.Fill(&fields)

	var cmd [wire.CommandSize]byte
	copy(cmd[:], commands[int(fields.Command)%len(commands)])

	var w serialization.Writer
	w.PutUint32(uint32(wire.MainNet)).PutBytes(cmd[:])
	w.PutUint32(fields.Length % (serialization.MaxSize + 1)).PutBytes(fields.Checksum[:])
	return wire.ProtocolVersion, w.Bytes()
}

func buildAddress(f *commonFuzz.Filler) (uint32, []byte) {
	var a addressFields
	f.Fill(&a)

	var w serialization.Writer
	putAddress(&w, &a)
	return wire.ProtocolVersion, w.Bytes()
}

func buildInv(f *commonFuzz.Filler) (uint32, []byte) {
	var fields struct {
		Type uint8
		Hash [chainhash.HashSize]byte
	}
	f.Fill(&fields)

	var w serialization.Writer
	w.PutUint32(uint32(fields.Type % 4)).PutBytes(fields.Hash[:])
	return wire.ProtocolVersion, w.Bytes()
}

func buildBloomFilter(f *commonFuzz.Filler) (uint32, []byte) {
	var fields struct {
		Filter    []byte
		HashFuncs uint8
		Tweak     uint32
		Flags     uint8
	}
	f.Fill(&fields)

	msg := wire.NewMsgFilterLoad(
		fields.Filter,
		uint32(fields.HashFuncs)%(wire.MaxFilterLoadHashFuncs+1),
		fields.Tweak,
		wire.BloomUpdateType(fields.Flags%3),
	)
	return wire.ProtocolVersion, encode(msg, wire.ProtocolVersion, wire.BaseEncoding)
}

func buildDiskBlockIndex(f *commonFuzz.Filler) (uint32, []byte) {
	var fields indexFields
	f.Fill(&fields)

	status := fields.Status % 32
	var w serialization.Writer
	w.PutVarInt(uint64(fields.ClientVersion)).PutVarInt(uint64(fields.Height))
	w.PutVarInt(uint64(status)).PutVarInt(uint64(fields.TxCount))
	if status&(primitives.BlockHaveData|primitives.BlockHaveUndo) != 0 {
		w.PutVarInt(uint64(fields.File))
	}
	if status&primitives.BlockHaveData != 0 {
		w.PutVarInt(uint64(fields.DataPos))
	}
	if status&primitives.BlockHaveUndo != 0 {
		w.PutVarInt(uint64(fields.UndoPos))
	}
	if err := newBlockHeader(&fields.Header).Serialize(&w); err != nil {
		panic(fmt.Sprintf("corpus: failed to encode sample: %s", err))
	}
	return wire.ProtocolVersion, w.Bytes()
}

func buildCompressedTxOut(f *commonFuzz.Filler) (uint32, []byte) {
	var out compressedTxOutFields
	f.Fill(&out)

	var w serialization.Writer
	putCompressedTxOut(&w, &out)
	return wire.ProtocolVersion, w.Bytes()
}

// newExtKey derives a master key from the mnemonic of the filled entropy,
// optionally followed by one child derivation.
func newExtKey(f *commonFuzz.Filler) *hdkeychain.ExtendedKey {
	var k extKeyFields
	f.Fill(&k)

	mnemonic, err := bip39.NewMnemonic(k.Entropy[:])
	if err != nil {
		panic(fmt.Sprintf("corpus: failed to create mnemonic: %s", err))
	}
	key, err := hdkeychain.NewMaster(bip39.NewSeed(mnemonic, ""), &chaincfg.MainNetParams)
	if err != nil {
		panic(fmt.Sprintf("corpus: failed to derive master key: %s", err))
	}
	if !k.Derive {
		return key
	}
	if child, err := key.Derive(k.ChildNum); err == nil {
		key = child
	}
	return key
}

// putExtKey writes the serialized key without its version bytes and
// checksum.
func putExtKey(w *serialization.Writer, key *hdkeychain.ExtendedKey) {
	raw := base58.Decode(key.String())
	w.PutCompactSize(primitives.ExtKeySize).PutBytes(raw[4 : 4+primitives.ExtKeySize])
}

func buildExtKey(f *commonFuzz.Filler) (uint32, []byte) {
	var w serialization.Writer
	putExtKey(&w, newExtKey(f))
	return wire.ProtocolVersion, w.Bytes()
}

func buildExtPubKey(f *commonFuzz.Filler) (uint32, []byte) {
	pub, err := newExtKey(f).Neuter()
	if err != nil {
		panic(fmt.Sprintf("corpus: failed to neuter key: %s", err))
	}

	var w serialization.Writer
	putExtKey(&w, pub)
	return wire.ProtocolVersion, w.Bytes()
}

func buildUint256(f *commonFuzz.Filler) (uint32, []byte) {
	var h [chainhash.HashSize]byte
	f.Fill(&h)
	return wire.ProtocolVersion, h[:]
}

func unixTime(ts uint32) time.Time {
	return time.Unix(int64(ts), 0)
}

// FileName returns the corpus file name of the sample.
func (s *Sample) FileName() string {
	return s.Name + ".bin"
}

// Structured returns the structured fuzzer input of the sample: the target
// selector byte followed by the blob. It returns nil for samples that were
// not built from a blob.
func (s *Sample) Structured() []byte {
	if s.Blob == nil {
		return nil
	}
	return append([]byte{byte(s.Target)}, s.Blob...)
}

// Build builds a framed input from a structured fuzzer input. The first byte
// selects the target, the rest fills the target's fields. It returns false
// if the selector names no target.
func Build(data []byte) ([]byte, bool) {
	if len(data) == 0 {
		return nil, false
	}
	id := deserialize.TargetID(data[0])
	build, ok := builders[id]
	if !ok {
		return nil, false
	}
	version, payload := build(commonFuzz.NewBlobFiller(data[1:]))
	return deserialize.EncodeInput(id, version, payload), true
}

// FuzzStructured is the structured fuzzer entry point. Inputs are built into
// well formed encodings before they are decoded, so the decoders and
// exercises see deep structures a raw byte fuzzer rarely reaches.
func FuzzStructured(data []byte) int {
	raw, ok := Build(data)
	if !ok {
		return -1
	}
	return deserialize.Fuzz(raw)
}

// Write writes the samples into dir, one file per sample.
func Write(dir string, samples []Sample) error {
	return write(dir, samples, func(s *Sample) []byte { return s.Data })
}

// WriteStructured writes the structured inputs of the samples built from a
// blob into dir, one file per sample.
func WriteStructured(dir string, samples []Sample) error {
	return write(dir, samples, (*Sample).Structured)
}

func write(dir string, samples []Sample, contents func(*Sample) []byte) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("corpus: failed to create directory: %w", err)
	}
	for i := range samples {
		data := contents(&samples[i])
		if data == nil {
			continue
		}
		fn := filepath.Join(dir, samples[i].FileName())
		if err := os.WriteFile(fn, data, 0o600); err != nil {
			return fmt.Errorf("corpus: failed to write sample: %w", err)
		}
	}
	return nil
}
