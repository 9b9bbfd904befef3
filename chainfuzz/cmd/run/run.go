// Package run implements the corpus replay sub-command.
package run

import (
	"os"

	"github.com/spf13/cobra"

	cmdCommon "github.com/oasisprotocol/chainfuzz/chainfuzz/cmd/common"
	cmdFlags "github.com/oasisprotocol/chainfuzz/chainfuzz/cmd/common/flags"
	"github.com/oasisprotocol/chainfuzz/chainfuzz/cmd/common/metrics"
	"github.com/oasisprotocol/chainfuzz/common/logging"
	"github.com/oasisprotocol/chainfuzz/fuzz/deserialize/replay"
)

var (
	runCmd = &cobra.Command{
		Use:   "run [paths...]",
		Short: "replay corpus files through the deserialization fuzzer",
		Long: "Replays every file in the given paths, descending into directories.\n" +
			"Without paths the corpus directory is replayed.",
		Run: doRun,
	}

	logger = logging.GetLogger("chainfuzz/run")
)

func doRun(cmd *cobra.Command, args []string) {
	paths := args
	if len(paths) == 0 {
		paths = []string{cmdFlags.CorpusDir()}
	}

	svc, err := metrics.New()
	if err != nil {
		cmdCommon.EarlyLogAndExit(err)
	}
	if err = svc.Start(); err != nil {
		cmdCommon.EarlyLogAndExit(err)
	}
	defer svc.Stop()

	if _, err = replay.New(cmdFlags.KeepGoing()).Replay(paths); err != nil {
		logger.Error("replay failed",
			"err", err,
		)
		svc.Stop()
		os.Exit(1)
	}
}

// Register registers the run sub-command.
func Register(parentCmd *cobra.Command) {
	runCmd.Flags().AddFlagSet(cmdFlags.CorpusDirFlags)
	runCmd.Flags().AddFlagSet(cmdFlags.KeepGoingFlags)
	runCmd.Flags().AddFlagSet(metrics.Flags)
	parentCmd.AddCommand(runCmd)
}
