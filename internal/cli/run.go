package cli

import (
	"github.com/spf13/cobra"
)

var runMode string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run scans continuously on the configured cadence",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Run(cmd.Context(), runMode)
	},
}

func init() {
	runCmd.Flags().StringVar(&runMode, "mode", "intraday", "Threshold profile to use for every scheduled scan")
}
