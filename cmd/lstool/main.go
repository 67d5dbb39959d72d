// Command lstool works on Landstalker ROM images and the data extracted
// from them without starting the editor server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcarmo/landstalker/internal/logging"
)

var (
	LogLevel    string
	LabelsPath  string
	OffsetsPath string
	Region      string
)

var log = logging.For("lstool")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lstool",
		Short:         "Landstalker ROM data tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetOutput(cmd.ErrOrStderr())
			logging.SetLevelFromString(LogLevel)
		},
	}
	root.PersistentFlags().StringVar(&LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&LabelsPath, "labels", "", "labels YAML file")

	root.AddCommand(newLZ77Cmd(), newRomCmd(), newTilesetCmd(), newBehavioursCmd(), newStringsCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "lstool:", err)
		os.Exit(1)
	}
}
