// Package cmd implements the commands for the chainfuzz executable.
package cmd

import (
	"os"
	"syscall"

	"github.com/spf13/cobra"

	cmdCommon "github.com/oasisprotocol/chainfuzz/chainfuzz/cmd/common"
	"github.com/oasisprotocol/chainfuzz/chainfuzz/cmd/gencorpus"
	"github.com/oasisprotocol/chainfuzz/chainfuzz/cmd/run"
	"github.com/oasisprotocol/chainfuzz/chainfuzz/cmd/targets"
)

var rootCmd = &cobra.Command{
	Use:   "chainfuzz",
	Short: "Chain data deserialization fuzzer tooling",
}

// RootCommand returns the root (top level) cobra.Command.
func RootCommand() *cobra.Command {
	return rootCmd
}

// Execute spawns the main entry point after handling the config file
// and command line arguments.
func Execute() {
	// Only the owner should have access to the generated corpus.
	syscall.Umask(0o077)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(cmdCommon.InitConfig)

	rootCmd.PersistentFlags().AddFlagSet(cmdCommon.RootFlags)

	// Register all of the sub-commands.
	for _, v := range []func(*cobra.Command){
		gencorpus.Register,
		run.Register,
		targets.Register,
	} {
		v(rootCmd)
	}
}
