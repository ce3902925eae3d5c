package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/yzeng1018/stock-monitor/internal/app"
)

var simulateOpts app.SimulateOptions

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次行情异动并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateOpts.Symbol == "" {
			return errors.New("--symbol 必须提供")
		}
		return getApp().SimulateAlert(cmd.Context(), simulateOpts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateOpts.Mode, "mode", "close", "使用的阈值档位")
	simulateCmd.Flags().StringVar(&simulateOpts.Symbol, "symbol", "", "股票代码")
	simulateCmd.Flags().Float64Var(&simulateOpts.Price, "price", 0, "当前价")
	simulateCmd.Flags().Float64Var(&simulateOpts.PrevClose, "prev-close", 0, "昨收价")
	simulateCmd.Flags().Int64Var(&simulateOpts.Volume, "volume", 0, "今日成交量")
	simulateCmd.Flags().Float64Var(&simulateOpts.AvgVolume, "avg-volume", 0, "窗口平均成交量")
	simulateCmd.Flags().Float64Var(&simulateOpts.WindowHigh, "window-high", 0, "窗口最高价（可选）")
	simulateCmd.Flags().Float64Var(&simulateOpts.WindowLow, "window-low", 0, "窗口最低价（可选）")
}
