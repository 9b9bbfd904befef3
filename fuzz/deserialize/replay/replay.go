// Package replay replays corpus files through the deserialization fuzzer.
package replay

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/oasisprotocol/chainfuzz/common/errors"
	"github.com/oasisprotocol/chainfuzz/common/logging"
	"github.com/oasisprotocol/chainfuzz/fuzz/deserialize"
)

const noTarget = "none"

// Stats are the outcome counts of a replay.
type Stats struct {
	Files    int
	Outcomes map[deserialize.Outcome]int
}

// Replayer replays corpus files.
type Replayer struct {
	logger *logging.Logger

	keepGoing bool
	execute   func([]byte) deserialize.Result
}

// New creates a new replayer. Unless keepGoing is set, the first faulting
// input is re-run so that it panics with the fault.
func New(keepGoing bool) *Replayer {
	initMetrics()

	return &Replayer{
		logger:    logging.GetLogger("fuzz/deserialize/replay"),
		keepGoing: keepGoing,
		execute:   deserialize.Execute,
	}
}

// Replay replays every regular file found in paths, descending into
// directories. It returns the accumulated errors of all faulting or
// unreadable inputs.
func (r *Replayer) Replay(paths []string) (*Stats, error) {
	stats := &Stats{
		Outcomes: make(map[deserialize.Outcome]int),
	}

	var result *multierror.Error
	for _, p := range paths {
		files, err := collectFiles(p)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		for _, fn := range files {
			if err = r.replayFile(fn, stats); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}

	r.logger.Info("replay finished",
		"files", stats.Files,
		"completed", stats.Outcomes[deserialize.OutcomeCompleted],
		"benign", stats.Outcomes[deserialize.OutcomeBenign],
		"skipped", stats.Outcomes[deserialize.OutcomeSkipped],
		"faults", stats.Outcomes[deserialize.OutcomeFault],
	)

	return stats, result.ErrorOrNil()
}

func (r *Replayer) replayFile(fn string, stats *Stats) error {
	data, err := os.ReadFile(fn)
	if err != nil {
		return fmt.Errorf("replay: failed to read input: %w", err)
	}

	res := r.execute(data)
	stats.Files++
	stats.Outcomes[res.Outcome]++

	target := res.Target
	if target == "" {
		target = noTarget
	}
	invocations.With(prometheus.Labels{
		"target":  target,
		"outcome": res.Outcome.String(),
	}).Inc()
	inputBytes.Add(float64(len(data)))

	logger := r.logger.With(
		"file", fn,
		"target", target,
		"selector", res.Selector,
		"outcome", res.Outcome,
	)
	switch res.Outcome {
	case deserialize.OutcomeFault:
		module, code := errors.Code(res.Err)
		logger.Error("input caused a fault",
			"err", res.Err,
			"module", module,
			"code", code,
			"category", errors.CategoryOf(res.Err),
		)
		if !r.keepGoing {
			// Crash with the fault.
			deserialize.Process(data)
		}
		return fmt.Errorf("replay: %s: target %s: %w", fn, target, res.Err)
	case deserialize.OutcomeBenign:
		logger.Debug("input rejected",
			"err", res.Err,
		)
	default:
		logger.Debug("replayed input")
	}
	return nil
}

// collectFiles returns the regular files at p in lexical order.
func collectFiles(p string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(p, func(fn string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, fn)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("replay: failed to collect inputs: %w", err)
	}
	sort.Strings(files)
	return files, nil
}
