package cli

import (
	"github.com/spf13/cobra"
)

var scanMode string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one anomaly scan and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Scan(cmd.Context(), scanMode)
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanMode, "mode", "close", "Threshold profile to use (e.g. intraday, close)")
}
