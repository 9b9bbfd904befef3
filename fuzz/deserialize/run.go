package deserialize

import (
	"fmt"

	"github.com/oasisprotocol/chainfuzz/common/errors"
	"github.com/oasisprotocol/chainfuzz/common/serialization"
)

// Outcome is the outcome of a single invocation.
type Outcome uint8

const (
	// OutcomeSkipped is the outcome of an input that does not select a
	// target.
	OutcomeSkipped Outcome = iota
	// OutcomeBenign is the outcome of an input the target rejected as
	// malformed.
	OutcomeBenign
	// OutcomeCompleted is the outcome of an input that was decoded and
	// exercised.
	OutcomeCompleted
	// OutcomeFault is the outcome of an input that caused an unexpected
	// error.
	OutcomeFault
)

// String returns the string representation of an Outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeBenign:
		return "benign"
	case OutcomeCompleted:
		return "completed"
	case OutcomeFault:
		return "fault"
	default:
		return fmt.Sprintf("[unknown outcome: %d]", uint8(o))
	}
}

// Result is the result of a single invocation.
type Result struct {
	// Target is the name of the selected target, empty if none was.
	Target   string
	Selector uint32
	Outcome  Outcome
	// Err is the error that ended the invocation, if any.
	Err error
}

// Classify returns the outcome of an invocation of target t that ended
// with err.
func Classify(t *Target, err error) Outcome {
	switch {
	case err == nil:
		return OutcomeCompleted
	case t.IsBenign(err):
		return OutcomeBenign
	default:
		return OutcomeFault
	}
}

// Run decodes a value of target t from the stream and exercises it.
//
// Panics raised while decoding or exercising are not recovered.
func Run(t *Target, s *serialization.Stream) Result {
	v, err := t.Decode(s)
	if err == nil && t.Exercise != nil {
		err = t.Exercise(v)
	}
	return Result{
		Target:  t.Name,
		Outcome: Classify(t, err),
		Err:     err,
	}
}

// mustNotFault panics if the result is a fault.
func (r *Result) mustNotFault() {
	if r.Outcome != OutcomeFault {
		return
	}
	module, code := errors.Code(r.Err)
	panic(fmt.Errorf("deserialize: target %s (%d): fault (module: %s code: %d): %w",
		r.Target, r.Selector, module, code, r.Err,
	))
}
