package deserialize

import (
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/chainfuzz/common/errors"
	"github.com/oasisprotocol/chainfuzz/common/serialization"
	"github.com/oasisprotocol/chainfuzz/primitives"
)

func mustLookup(t *testing.T, id TargetID) Target {
	target, ok := Lookup(uint32(id))
	require.True(t, ok, "Lookup %d", id)
	return target
}

func TestRegistry(t *testing.T) {
	require := require.New(t)

	all := Targets()
	require.Len(all, int(targetCount))

	names := make(map[string]bool)
	for id, target := range all {
		require.NotEmpty(target.Name, "target %d", id)
		require.NotNil(target.Decode, "target %s", target.Name)
		require.Contains(target.Benign, errors.CategoryFormat, "target %s", target.Name)
		require.False(names[target.Name], "duplicate target %s", target.Name)
		names[target.Name] = true
	}

	require.Equal("block_header", TargetBlockHeader.String())
	require.Equal("ext_pubkey", TargetExtPubKey.String())
	require.Equal("block_merkle_root", TargetBlockMerkleRoot.String())
	require.Equal("[unknown target]", targetCount.String())

	_, ok := Lookup(uint32(targetCount))
	require.False(ok, "Lookup past the end")
	_, ok = Lookup(0xffffffff)
	require.False(ok, "Lookup max selector")

	for id, target := range all {
		switch TargetID(id) {
		case TargetExtKey, TargetExtPubKey:
			require.Contains(target.Benign, errors.CategoryValue, "target %s", target.Name)
		default:
			require.NotContains(target.Benign, errors.CategoryValue, "target %s", target.Name)
		}
	}
}

func TestRegistryCopies(t *testing.T) {
	require := require.New(t)

	target := mustLookup(t, TargetBlockHeader)
	target.Name = "changed"
	target.Benign[0] = errors.CategoryInternal
	target.Decode = nil

	again := mustLookup(t, TargetBlockHeader)
	require.Equal("block_header", again.Name)
	require.NotNil(again.Decode)
	require.Equal([]errors.Category{errors.CategoryFormat}, again.Benign)

	// Targets sharing a benign set do not see each other's changes.
	all := Targets()
	all[TargetBlock].Benign[0] = errors.CategoryInternal
	require.Equal([]errors.Category{errors.CategoryFormat}, Targets()[TargetBlock].Benign)
	require.Equal([]errors.Category{errors.CategoryFormat}, mustLookup(t, TargetTransaction).Benign)
	require.Equal(OutcomeBenign, Execute([]byte{0x00, 0x00, 0x00, 0x00, 0x00}).Outcome)
}

func TestFrame(t *testing.T) {
	require := require.New(t)

	for _, raw := range [][]byte{nil, {}, {0x00}, {0x00, 0x00, 0x00}} {
		_, _, ok := Frame(raw)
		require.False(ok, "short input %x", raw)
	}

	// Selector without a version.
	_, _, ok := Frame([]byte{0x01, 0x00, 0x00, 0x00})
	require.False(ok, "missing version")
	// Truncated and non-canonical CompactSize versions.
	_, _, ok = Frame([]byte{0x01, 0x00, 0x00, 0x00, 0xfd, 0x01})
	require.False(ok, "truncated version")
	_, _, ok = Frame([]byte{0x01, 0x00, 0x00, 0x00, 0xfd, 0x01, 0x00})
	require.False(ok, "non-canonical version")
	// Versions must fit into a signed 32-bit integer.
	_, _, ok = Frame([]byte{0x01, 0x00, 0x00, 0x00, 0xfe, 0x00, 0x00, 0x00, 0x80})
	require.False(ok, "version out of range")

	selector, s, ok := Frame([]byte{0x0e, 0x00, 0x00, 0x00, 0xfe, 0x71, 0x11, 0x01, 0x00, 0xaa})
	require.True(ok, "Frame")
	require.EqualValues(TargetBloomFilter, selector)
	require.EqualValues(wire.BIP0037Version, s.Version())
	require.Equal(1, s.Len())
	require.Error(s.SetVersion(0), "version must be set only once")

	raw := EncodeInput(TargetInv, 70001, []byte{0x01, 0x02})
	require.Equal([]byte{0x0d, 0x00, 0x00, 0x00, 0xfe, 0x71, 0x11, 0x01, 0x00, 0x01, 0x02}, raw)
	selector, s, ok = Frame(EncodeInput(TargetExtKey, 0, nil))
	require.True(ok, "Frame")
	require.EqualValues(TargetExtKey, selector)
	require.EqualValues(0, s.Version())
	require.Zero(s.Len())
}

func TestExecuteSkipped(t *testing.T) {
	require := require.New(t)

	for _, raw := range [][]byte{
		nil,
		{0x00, 0x00, 0x00},
		{0x00, 0x00, 0x00, 0x00},
		{0x00, 0x00, 0x00, 0x00, 0xff},
		EncodeInput(targetCount, 0, nil),
		{0xff, 0xff, 0xff, 0xff, 0x00},
	} {
		r := Execute(raw)
		require.Equal(OutcomeSkipped, r.Outcome, "input %x", raw)
		require.Empty(r.Target)
		require.NoError(r.Err)
		require.Equal(-1, Fuzz(raw), "input %x", raw)
		require.NotPanics(func() { Process(raw) }, "input %x", raw)
	}
}

func TestEmptyBlockHeader(t *testing.T) {
	require := require.New(t)

	raw := []byte{0x00, 0x00, 0x00, 0x00, 0x00}
	r := Execute(raw)
	require.Equal("block_header", r.Target)
	require.Equal(OutcomeBenign, r.Outcome)
	require.ErrorIs(r.Err, serialization.ErrTruncated)
	require.Equal(0, Fuzz(raw))
	require.NotPanics(func() { Process(raw) })
}

func TestBloomFilter(t *testing.T) {
	require := require.New(t)

	var w serialization.Writer
	w.PutCompactSize(1).PutUint8(0x00).PutUint32(1).PutUint32(0).PutUint8(0)
	payload := w.Bytes()

	raw := EncodeInput(TargetBloomFilter, wire.BIP0037Version, payload)
	r := Execute(raw)
	require.Equal(OutcomeCompleted, r.Outcome, "minimal filter: %v", r.Err)
	require.Equal(1, Fuzz(raw))

	// The filter is decoded and exercised at any version.
	for _, version := range []uint32{0, serialization.InitProtoVersion, 60000, wire.BIP0037Version - 1} {
		r = Execute(EncodeInput(TargetBloomFilter, version, payload))
		require.Equal(OutcomeCompleted, r.Outcome, "version %d: %v", version, r.Err)
	}

	// An empty filter matches everything.
	w.Reset()
	w.PutCompactSize(0).PutUint32(5).PutUint32(0).PutUint8(0)
	r = Execute(EncodeInput(TargetBloomFilter, wire.BIP0037Version, w.Bytes()))
	require.Equal(OutcomeCompleted, r.Outcome, "empty filter: %v", r.Err)

	// Too many hash functions.
	w.Reset()
	w.PutCompactSize(1).PutUint8(0x00).PutUint32(wire.MaxFilterLoadHashFuncs + 1).PutUint32(0).PutUint8(0)
	r = Execute(EncodeInput(TargetBloomFilter, 0, w.Bytes()))
	require.Equal(OutcomeBenign, r.Outcome)
	require.ErrorIs(r.Err, serialization.ErrMalformed)
}

func TestMessageHeader(t *testing.T) {
	require := require.New(t)

	var cmd [wire.CommandSize]byte
	copy(cmd[:], wire.CmdVersion)
	var w serialization.Writer
	w.PutUint32(uint32(wire.MainNet)).PutBytes(cmd[:]).PutUint32(100).PutBytes([]byte{1, 2, 3, 4})

	raw := EncodeInput(TargetMessageHeader, 0, w.Bytes())
	r := Execute(raw)
	require.Equal(OutcomeCompleted, r.Outcome, "foreign magic: %v", r.Err)
	require.NotPanics(func() { Process(raw) })

	r = Execute(EncodeInput(TargetMessageHeader, 0, w.Bytes()[:20]))
	require.Equal(OutcomeBenign, r.Outcome)
}

func TestKeySizeClassification(t *testing.T) {
	require := require.New(t)

	for _, id := range []TargetID{TargetExtKey, TargetExtPubKey} {
		var w serialization.Writer
		w.PutCompactSize(primitives.ExtKeySize + 1)
		r := Execute(EncodeInput(id, 0, w.Bytes()))
		require.Equal(OutcomeBenign, r.Outcome, "target %s", id)
		require.ErrorIs(r.Err, primitives.ErrInvalidKeySize)
		require.Equal(errors.CategoryValue, errors.CategoryOf(r.Err))
	}

	// The same error raised by any other target is a fault.
	target := mustLookup(t, TargetBlockHeader)
	target.Decode = func(*serialization.Stream) (interface{}, error) {
		return nil, primitives.ErrInvalidKeySize
	}
	r := Run(&target, serialization.NewStream(nil, 0))
	require.Equal(OutcomeFault, r.Outcome)
	require.ErrorIs(r.Err, primitives.ErrInvalidKeySize)
}

func TestClassify(t *testing.T) {
	require := require.New(t)

	target := mustLookup(t, TargetUint256)
	require.Equal(OutcomeCompleted, Classify(&target, nil))
	require.Equal(OutcomeBenign, Classify(&target, serialization.ErrTruncated))
	require.Equal(OutcomeBenign, Classify(&target, errors.WithContext(serialization.ErrNonCanonical, "context")))
	require.Equal(OutcomeFault, Classify(&target, fmt.Errorf("unexpected")))
	require.Equal(OutcomeFault, Classify(&target, serialization.ErrVersionAlreadySet))
	require.Equal(OutcomeFault, Classify(&target, primitives.ErrAddrManInconsistent))
}

func TestExerciseFault(t *testing.T) {
	require := require.New(t)

	target := mustLookup(t, TargetUint256)
	var exercised bool
	target.Exercise = func(v interface{}) error {
		exercised = true
		require.IsType(&chainhash.Hash{}, v)
		return errors.WithContext(ErrExercise, "broken")
	}

	r := Run(&target, serialization.NewStream(make([]byte, 32), 0))
	require.True(exercised)
	require.Equal(OutcomeFault, r.Outcome)
	require.ErrorIs(r.Err, ErrExercise)

	// Exercises only run after a successful decode.
	exercised = false
	r = Run(&target, serialization.NewStream(make([]byte, 31), 0))
	require.False(exercised)
	require.Equal(OutcomeBenign, r.Outcome)
}

func TestFaultPanics(t *testing.T) {
	require := require.New(t)

	r := Result{
		Target:  "block",
		Outcome: OutcomeFault,
		Err:     fmt.Errorf("unexpected"),
	}
	require.Panics(r.mustNotFault)

	for _, o := range []Outcome{OutcomeSkipped, OutcomeBenign, OutcomeCompleted} {
		r.Outcome = o
		require.NotPanics(r.mustNotFault, "outcome %s", o)
	}
}

func TestIdempotent(t *testing.T) {
	require := require.New(t)

	inputs := [][]byte{
		{0x00, 0x00, 0x00, 0x00, 0x00},
		EncodeInput(TargetAddrMan, 0, []byte{0x01, 0x20}),
		EncodeInput(TargetCoins, 0, []byte{0x01, 0x02, 0x00, 0x00, 0x00}),
		EncodeInput(TargetUint256, 0, make([]byte, 40)),
		EncodeInput(TargetExtPubKey, 0, []byte{0x00}),
	}
	for _, raw := range inputs {
		first := Execute(raw)
		second := Execute(raw)
		require.Equal(first.Outcome, second.Outcome, "input %x", raw)
		require.Equal(first.Target, second.Target, "input %x", raw)
		require.Equal(fmt.Sprint(first.Err), fmt.Sprint(second.Err), "input %x", raw)
	}
}

func TestSetup(t *testing.T) {
	require.NotPanics(t, func() {
		Setup()
		Setup()
	})
}
