// Package gencorpus implements the corpus generation sub-command.
package gencorpus

import (
	"github.com/spf13/cobra"

	cmdCommon "github.com/oasisprotocol/chainfuzz/chainfuzz/cmd/common"
	cmdFlags "github.com/oasisprotocol/chainfuzz/chainfuzz/cmd/common/flags"
	"github.com/oasisprotocol/chainfuzz/common/logging"
	"github.com/oasisprotocol/chainfuzz/fuzz/deserialize/corpus"
)

var (
	gencorpusCmd = &cobra.Command{
		Use:   "gencorpus",
		Short: "generate a seed corpus for the deserialization fuzzer",
		Run:   doGenCorpus,
	}

	logger = logging.GetLogger("chainfuzz/gencorpus")
)

func doGenCorpus(cmd *cobra.Command, args []string) {
	dir := cmdFlags.CorpusDir()
	samples := corpus.Generate(cmdFlags.CorpusSamples(), cmdFlags.CorpusSeed())
	if err := corpus.Write(dir, samples); err != nil {
		logger.Error("failed to write corpus",
			"err", err,
			"dir", dir,
		)
		cmdCommon.EarlyLogAndExit(err)
	}

	logger.Info("generated corpus",
		"dir", dir,
		"samples", len(samples),
	)

	structuredDir := cmdFlags.CorpusStructuredDir()
	if structuredDir == "" {
		return
	}
	if err := corpus.WriteStructured(structuredDir, samples); err != nil {
		logger.Error("failed to write structured corpus",
			"err", err,
			"dir", structuredDir,
		)
		cmdCommon.EarlyLogAndExit(err)
	}

	logger.Info("generated structured corpus",
		"dir", structuredDir,
	)
}

// Register registers the gencorpus sub-command.
func Register(parentCmd *cobra.Command) {
	gencorpusCmd.Flags().AddFlagSet(cmdFlags.CorpusDirFlags)
	gencorpusCmd.Flags().AddFlagSet(cmdFlags.CorpusGenFlags)
	parentCmd.AddCommand(gencorpusCmd)
}
