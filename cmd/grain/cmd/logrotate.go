package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psantana5/grain/pkg/logging"
)

var logrotateCmd = &cobra.Command{
	Use:   "logrotate",
	Short: "Print a logrotate configuration for the server log file",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(stdout(cmd), logging.GenerateLogrotateConfig("grain"))
	},
}

func init() {
	rootCmd.AddCommand(logrotateCmd)
}
