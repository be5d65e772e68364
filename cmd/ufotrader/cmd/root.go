package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ufotrader",
	Short: "Currency-strength driven FX trading engine",
	Long: `ufotrader analyzes relative currency strength across a basket of majors,
executes externally proposed trades under portfolio risk control, and
reinforces losing positions while their directional thesis still holds.

It provides tools for:
  - Running the live analysis and monitoring cycles against OANDA data
  - Simulating full trading days with scripted prices
  - Journaling trades and equity curves to CSV or SQLite`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
