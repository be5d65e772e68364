package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ufotrader/broker"
	"ufotrader/broker/oanda"
	"ufotrader/broker/plan"
	"ufotrader/broker/sim"
	"ufotrader/config"
	"ufotrader/internal/logging"
	"ufotrader/journal"
	"ufotrader/trader"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading loop against OANDA market data",
	Long: `Run the live analysis and monitoring cycles. Market data comes from the
OANDA REST API; fills are paper-traded at the live quote. Credentials come
from the environment (or a .env file):

  OANDA_TOKEN       API token (required)
  OANDA_ACCOUNT_ID  account for the pricing endpoint (required)
  OANDA_ENV         practice or live (default practice)

Trade proposals are read from the plan file each main cycle, when one
exists, and the file is consumed.

Example:
  ufotrader run -f config.yaml --plan plan.yaml`,
	RunE: runRun,
}

var (
	runConfigPath string
	runPlanPath   string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "config.yaml", "path to YAML config file")
	runCmd.Flags().StringVar(&runPlanPath, "plan", "", "path to the plan file with proposed actions")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(runConfigPath)
	log := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	logging.SetGlobal(log)
	if err != nil {
		log.Warn().Err(err).Str("path", runConfigPath).Msg("config degraded to defaults")
	}

	token := os.Getenv("OANDA_TOKEN")
	accountID := os.Getenv("OANDA_ACCOUNT_ID")
	if token == "" || accountID == "" {
		return fmt.Errorf("OANDA_TOKEN and OANDA_ACCOUNT_ID must be set")
	}
	practice := os.Getenv("OANDA_ENV") != "live"

	data := oanda.NewClient(token, accountID, practice)

	var oracle broker.DecisionOracle
	if runPlanPath != "" {
		oracle = plan.NewFile(runPlanPath)
	}

	j, err := openJournal(cfg)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	tr, err := trader.New(cfg, trader.Collaborators{
		Data:    data,
		Gateway: sim.NewGateway(data),
		Oracle:  oracle,
		Journal: j,
	}, log)
	if err != nil {
		return fmt.Errorf("create trader: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := "practice"
	if !practice {
		env = "live"
	}
	log.Info().Str("env", env).Msg("starting trading loop")
	return tr.Run(ctx)
}

// openJournal builds the configured history sink.
func openJournal(cfg *config.Config) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "csv":
		return journal.NewCSV(cfg.Journal.TradesFile, cfg.Journal.EquityFile)
	case "sqlite":
		return journal.NewSQLite(cfg.Journal.DBPath)
	default:
		return journal.Nop{}, nil
	}
}
