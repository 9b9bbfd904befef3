// Package targets implements the target listing sub-command.
package targets

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oasisprotocol/chainfuzz/fuzz/deserialize"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "list the deserialization fuzzer targets",
	Run:   doTargets,
}

func doTargets(cmd *cobra.Command, args []string) {
	for id, t := range deserialize.Targets() {
		benign := make([]string, 0, len(t.Benign))
		for _, c := range t.Benign {
			benign = append(benign, c.String())
		}
		exercised := ""
		if t.Exercise != nil {
			exercised = " (exercised)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%2d %s%s benign: %s\n", id, t.Name, exercised, strings.Join(benign, ","))
	}
}

// Register registers the targets sub-command.
func Register(parentCmd *cobra.Command) {
	parentCmd.AddCommand(targetsCmd)
}
