// Package session maps time to trading-session state and decides when the
// book must be flattened for the day.
package session

import (
	"fmt"
	"time"
)

// State names a time-of-day trading window in the London reference zone.
type State string

const (
	Asian   State = "asian"
	London  State = "london"
	Overlap State = "overlap"
	NewYork State = "ny"
	Between State = "between"
	Closed  State = "closed" // weekend
)

// Event is one economic-calendar entry. Absence of event data never blocks
// the clock's other checks.
type Event struct {
	Time    time.Time
	Country string
	Title   string
	Impact  string
}

// ImpactHigh is the only impact level that forces a session end.
const ImpactHigh = "High"

// Config holds the tunable cutoffs. Zero values fall back to the documented
// defaults via Default().
type Config struct {
	// Weekend weekdays on which trading is disabled outright.
	Weekend []time.Weekday `yaml:"weekend"`
	// EndOfDayHour is the UTC hour at which the analysis day ends.
	EndOfDayHour int `yaml:"end_of_day_hour"`
	// FridayCutoffHour is the London hour for the pre-weekend flatten.
	FridayCutoffHour int `yaml:"friday_cutoff_hour"`
	// EventHorizon is how far ahead a high-impact event forces a flatten.
	EventHorizon time.Duration `yaml:"event_horizon"`
}

// Default returns the standard session configuration.
func Default() Config {
	return Config{
		Weekend:          []time.Weekday{time.Saturday, time.Sunday},
		EndOfDayHour:     20,
		FridayCutoffHour: 21,
		EventHorizon:     60 * time.Minute,
	}
}

// Clock is a pure function of the time it is handed; wall-clock and
// simulated time share it unchanged.
type Clock struct {
	cfg     Config
	loc     *time.Location
	weekend map[time.Weekday]bool
}

// NewClock builds a Clock; cfg zero values take defaults.
func NewClock(cfg Config) *Clock {
	def := Default()
	if len(cfg.Weekend) == 0 {
		cfg.Weekend = def.Weekend
	}
	if cfg.EndOfDayHour <= 0 {
		cfg.EndOfDayHour = def.EndOfDayHour
	}
	if cfg.FridayCutoffHour <= 0 {
		cfg.FridayCutoffHour = def.FridayCutoffHour
	}
	if cfg.EventHorizon <= 0 {
		cfg.EventHorizon = def.EventHorizon
	}

	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		// London is UTC in winter, UTC+1 in summer; UTC keeps the clock
		// usable if the zone database is missing.
		loc = time.UTC
	}

	weekend := make(map[time.Weekday]bool, len(cfg.Weekend))
	for _, d := range cfg.Weekend {
		weekend[d] = true
	}
	return &Clock{cfg: cfg, loc: loc, weekend: weekend}
}

// State returns the session band for t. Weekends yield Closed regardless of
// the hour.
func (c *Clock) State(t time.Time) State {
	local := t.In(c.loc)
	if c.weekend[local.Weekday()] {
		return Closed
	}
	switch h := local.Hour(); {
	case h >= 23 || h < 8:
		return Asian
	case h < 13:
		return London
	case h < 16:
		return Overlap
	case h < 22:
		return NewYork
	default:
		return Between
	}
}

// ShouldTrade reports whether trading is allowed at t, with the session
// label as the reason. Asian hours are flagged lower-priority but tradable.
func (c *Clock) ShouldTrade(t time.Time) (bool, string) {
	switch s := c.State(t); s {
	case Closed:
		return false, "weekend - no trading"
	case Between:
		return false, "between sessions"
	case Asian:
		return true, "asian session - limited trading"
	default:
		return true, fmt.Sprintf("%s session active", s)
	}
}

// ShouldEndSession reports whether open positions must be flattened at t:
// the Friday pre-weekend cutoff, the end-of-day analysis cutoff, or a
// high-impact economic event inside the look-ahead horizon. An empty event
// list never blocks the time checks.
func (c *Clock) ShouldEndSession(t time.Time, events []Event) (bool, string) {
	local := t.In(c.loc)
	if local.Weekday() == time.Friday && local.Hour() >= c.cfg.FridayCutoffHour {
		return true, "weekend closure - friday evening"
	}
	if t.UTC().Hour() >= c.cfg.EndOfDayHour {
		return true, fmt.Sprintf("end of analysis period (%02d:00 UTC)", c.cfg.EndOfDayHour)
	}
	for _, ev := range events {
		if ev.Impact != ImpactHigh {
			continue
		}
		until := ev.Time.Sub(t)
		if until >= 0 && until <= c.cfg.EventHorizon {
			return true, fmt.Sprintf("high-impact event ahead: %s %s at %s",
				ev.Country, ev.Title, ev.Time.UTC().Format("15:04"))
		}
	}
	return false, "normal trading hours"
}

// Multiplier is the per-session reinforcement sizing factor.
func (c *Clock) Multiplier(t time.Time) float64 {
	switch c.State(t) {
	case Asian:
		return 0.7
	case Overlap:
		return 1.5
	case NewYork:
		return 1.2
	case London:
		return 1.0
	default:
		return 1.0
	}
}
