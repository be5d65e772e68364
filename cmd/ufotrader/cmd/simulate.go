package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"ufotrader/broker"
	"ufotrader/broker/sim"
	"ufotrader/config"
	"ufotrader/internal/logging"
	"ufotrader/market"
	"ufotrader/trader"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate a full trading day with synthetic prices",
	Long: `Simulate one trading day from 00:00 to 18:00 UTC. Prices follow a seeded
random walk; the main cycle runs on the configured interval with position
monitoring in between, exactly as the live loop would. Trades are proposed
from the strength snapshot itself: long the strongest currency against the
weakest when the gap is wide enough.

Example:
  ufotrader simulate -f config.yaml --date 2025-08-08 --seed 7`,
	RunE: runSimulate,
}

var (
	simConfigPath string
	simDate       string
	simSeed       int64
)

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVarP(&simConfigPath, "config", "f", "config.yaml", "path to YAML config file")
	simulateCmd.Flags().StringVar(&simDate, "date", "2025-08-08", "simulation date (YYYY-MM-DD)")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 42, "random walk seed")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(simConfigPath)
	log := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	logging.SetGlobal(log)
	if err != nil {
		log.Warn().Err(err).Str("path", simConfigPath).Msg("config degraded to defaults")
	}

	day, err := time.Parse("2006-01-02", simDate)
	if err != nil {
		return fmt.Errorf("parse date: %w", err)
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(18 * time.Hour)

	feed := sim.NewFeed()
	j, err := openJournal(cfg)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	tr, err := trader.New(cfg, trader.Collaborators{
		Data:     feed,
		Calendar: &sim.Calendar{},
		Gateway:  sim.NewGateway(feed),
		Oracle:   &strengthOracle{},
		Journal:  j,
	}, log)
	if err != nil {
		return fmt.Errorf("create trader: %w", err)
	}

	now := start
	tr.SetClock(func() time.Time { return now })

	w := newWalker(simSeed, basketPairs(cfg))

	// Seed five days of history so every timeframe has bars to analyze.
	for at := start.Add(-5 * 24 * time.Hour); at.Before(start); at = at.Add(5 * time.Minute) {
		w.step(at)
	}

	step := cfg.Trader.MonitoringInterval
	mainEvery := cfg.Trader.MainInterval
	ctx := context.Background()

	fmt.Printf("Simulating %s from %s to %s UTC (seed %d)\n",
		day.Format("Monday, January 2, 2006"),
		start.Format("15:04"), end.Format("15:04"), simSeed)
	fmt.Printf("  Main cycle every %s, monitoring every %s\n\n", mainEvery, step)

	mainCycles, monitoringCycles := 0, 0
	for ; !now.After(end); now = now.Add(step) {
		w.step(now)
		w.publish(feed, cfg.Strength.BarCount)

		if int64(now.Sub(start))%int64(mainEvery) == 0 {
			if err := tr.MainCycle(ctx); err != nil {
				log.Error().Err(err).Time("at", now).Msg("main cycle failed")
			}
			mainCycles++
		} else {
			if err := tr.MonitoringCycle(ctx); err != nil {
				log.Error().Err(err).Time("at", now).Msg("monitoring cycle failed")
			}
			monitoringCycles++
		}
	}

	pf := tr.Book().Portfolio()
	closed := tr.Book().ClosedPositions()
	fmt.Printf("Simulation complete:\n")
	fmt.Printf("  Cycles: %d main, %d monitoring\n", mainCycles, monitoringCycles)
	fmt.Printf("  Closed Trades: %d\n", len(closed))
	fmt.Printf("  Open Positions: %d\n", pf.OpenPositions)
	fmt.Printf("  Realized P&L: $%+.2f\n", pf.Realized)
	fmt.Printf("  Final Equity: $%.2f (%+.2f%%)\n", pf.Equity, pf.DrawdownPct)
	return nil
}

// basketPairs resolves the configured pair list, falling back to the
// default basket like the trader itself does.
func basketPairs(cfg *config.Config) []market.Pair {
	pairs := make([]market.Pair, 0, len(cfg.Basket.Pairs))
	for _, sym := range cfg.Basket.Pairs {
		if p, err := market.ParsePair(sym); err == nil {
			pairs = append(pairs, p)
		}
	}
	if len(pairs) == 0 {
		pairs = market.MajorPairs
	}
	return pairs
}

// strengthOracle proposes one trade per cycle from the strength readings in
// the oracle input: strongest currency bought against the weakest, when
// both legs form a tradable pair and the strength gap is wide enough.
type strengthOracle struct{}

const minStrengthGap = 1.0

func (o *strengthOracle) ProposeActions(ctx context.Context, input broker.OracleInput) ([]broker.Action, error) {
	if !input.TradeAllowed {
		return nil, nil
	}

	strongest, weakest := "", ""
	var high, low float64
	for ccy, v := range input.Strength {
		if strongest == "" || v > high {
			strongest, high = ccy, v
		}
		if weakest == "" || v < low {
			weakest, low = ccy, v
		}
	}
	if strongest == "" || strongest == weakest || high-low < minStrengthGap {
		return nil, nil
	}

	for _, p := range market.MajorPairs {
		if p.Base == strongest && p.Quote == weakest {
			return []broker.Action{{Kind: broker.ActionNewTrade, Symbol: p.Symbol(), Direction: "BUY", Volume: 0.1}}, nil
		}
		if p.Base == weakest && p.Quote == strongest {
			return []broker.Action{{Kind: broker.ActionNewTrade, Symbol: p.Symbol(), Direction: "SELL", Volume: 0.1}}, nil
		}
	}
	return nil, nil
}

// timeframeDurations buckets walk steps into bars.
var timeframeDurations = map[market.Timeframe]time.Duration{
	market.M5:  5 * time.Minute,
	market.M15: 15 * time.Minute,
	market.H1:  time.Hour,
	market.H4:  4 * time.Hour,
	market.D1:  24 * time.Hour,
}

// startPrices anchor each walk near a realistic level.
var startPrices = map[string]float64{
	"EURUSD": 1.1000, "GBPUSD": 1.2700, "AUDUSD": 0.6600, "NZDUSD": 0.6000,
	"USDJPY": 150.00, "USDCHF": 0.8700, "USDCAD": 1.3600,
	"EURGBP": 0.8600, "EURJPY": 165.00, "GBPJPY": 190.00,
}

type pairState struct {
	pair  market.Pair
	price float64
	bars  map[market.Timeframe][]market.Bar
}

// walker drives a seeded random walk per pair and aggregates it into bars
// on every timeframe.
type walker struct {
	rng   *rand.Rand
	pairs []*pairState
	at    time.Time
}

func newWalker(seed int64, pairs []market.Pair) *walker {
	w := &walker{rng: rand.New(rand.NewSource(seed))}
	for _, p := range pairs {
		price, ok := startPrices[p.Symbol()]
		if !ok {
			price = 1.2000
		}
		w.pairs = append(w.pairs, &pairState{
			pair:  p,
			price: price,
			bars:  make(map[market.Timeframe][]market.Bar),
		})
	}
	return w
}

// step advances every pair by one walk increment and folds it into bars.
func (w *walker) step(at time.Time) {
	w.at = at
	for _, ps := range w.pairs {
		ps.price *= 1 + w.rng.NormFloat64()*0.0003
		for tf, dur := range timeframeDurations {
			bucket := at.Truncate(dur)
			bars := ps.bars[tf]
			if n := len(bars); n > 0 && bars[n-1].Time.Equal(bucket) {
				last := &bars[n-1]
				if ps.price > last.High {
					last.High = ps.price
				}
				if ps.price < last.Low {
					last.Low = ps.price
				}
				last.Close = ps.price
			} else {
				ps.bars[tf] = append(bars, market.Bar{
					Time: bucket, Open: ps.price, High: ps.price, Low: ps.price, Close: ps.price,
				})
			}
		}
	}
}

// publish loads the latest bars and quote for every pair into the feed.
func (w *walker) publish(feed *sim.Feed, barCount int) {
	for _, ps := range w.pairs {
		for tf := range timeframeDurations {
			bars := ps.bars[tf]
			if len(bars) > barCount {
				bars = bars[len(bars)-barCount:]
			}
			feed.LoadBars(ps.pair, tf, bars)
		}
		half := ps.pair.PipSize() / 2
		feed.SetPrice(ps.pair, market.Price{Bid: ps.price - half, Ask: ps.price + half, Time: w.at})
	}
}
