// Package deserialize implements a fuzzing harness for the decoders in the
// primitives package.
//
// An input starts with a little-endian uint32 selecting the decode target,
// followed by a CompactSize format version. The rest of the input is the
// encoding handed to the target's decoder. Inputs the decoder rejects as
// malformed are uninteresting, any other failure is a fault that crashes
// the fuzzer.
package deserialize

import (
	"encoding/hex"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/oasisprotocol/chainfuzz/common/errors"
)

// ModuleName is the module name used for error definitions.
const ModuleName = "fuzz/deserialize"

// ErrExercise is the error returned when a decoded value misbehaves when
// exercised.
var ErrExercise = errors.New(ModuleName, 1, errors.CategoryInternal, "deserialize: exercise failed")

// secp256k1 generator point, compressed.
const generatorPubKey = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"

var setupOnce sync.Once

// Setup initializes the process wide cryptographic state used by the
// decoders. It is safe to call multiple times.
func Setup() {
	setupOnce.Do(func() {
		raw, err := hex.DecodeString(generatorPubKey)
		if err != nil {
			panic(err)
		}
		// Parsing a compressed point forces the curve parameters and the
		// square root precomputation to be set up.
		if _, err = btcec.ParsePubKey(raw); err != nil {
			panic(err)
		}
	})
}

// Execute runs a single input and returns its result. Unlike Process it
// does not panic on faults.
func Execute(data []byte) Result {
	Setup()

	selector, s, ok := Frame(data)
	if !ok {
		return Result{
			Selector: selector,
			Outcome:  OutcomeSkipped,
		}
	}
	t, ok := Lookup(selector)
	if !ok {
		return Result{
			Selector: selector,
			Outcome:  OutcomeSkipped,
		}
	}

	r := Run(&t, s)
	r.Selector = selector
	return r
}

// Process runs a single input and panics if it causes a fault.
func Process(data []byte) {
	r := Execute(data)
	r.mustNotFault()
}

// Fuzz is the go-fuzz entry point. It returns 1 for inputs that were
// decoded and exercised, 0 for inputs a target rejected and -1 for inputs
// that do not select a target.
func Fuzz(data []byte) int {
	r := Execute(data)
	r.mustNotFault()

	switch r.Outcome {
	case OutcomeCompleted:
		return 1
	case OutcomeBenign:
		return 0
	default:
		return -1
	}
}
