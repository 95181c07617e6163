package store

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PhaseConfig is one scheduled trap/monitor window. All clock fields are
// "HH:MM" in the configured timezone.
type PhaseConfig struct {
	Name       string `yaml:"name"`
	Anchor     string `yaml:"anchor"`      // open time of the trap candle
	Eval       string `yaml:"eval"`        // when the trap range is read
	EntryStart string `yaml:"entry_start"` // breakout monitoring begins
	MonitorEnd string `yaml:"monitor_end"` // breakout monitoring ends
}

type Config struct {
	Mode      string        `yaml:"mode"` // DRY_RUN or LIVE
	Timezone  string        `yaml:"timezone"`
	Symbols   []string      `yaml:"symbols"`
	Timeframe string        `yaml:"timeframe"` // trap candle timeframe, e.g. M15
	Phases    []PhaseConfig `yaml:"phases"`

	Poll struct {
		MinSeconds  int `yaml:"min_seconds"`
		MaxSeconds  int `yaml:"max_seconds"`
		TaskTimeout int `yaml:"task_timeout_seconds"` // per-symbol cycle budget
	} `yaml:"poll"`

	Risk struct {
		Fraction     float64 `yaml:"fraction"`       // equity share risked per trade
		RewardRatio  float64 `yaml:"reward_ratio"`   // target distance / stop distance
		MinStopPrice float64 `yaml:"min_stop_price"` // floor in price units, 0 = venue stops level only
	} `yaml:"risk"`

	Execution struct {
		Magic            int  `yaml:"magic"`
		DeviationPoints  int  `yaml:"deviation_points"`
		RetryOnReject    bool `yaml:"retry_on_reject"`
		ReenterWhileOpen bool `yaml:"reenter_while_open"`
	} `yaml:"execution"`

	Trailing struct {
		Enabled   bool    `yaml:"enabled"`
		Distance  float64 `yaml:"distance"`   // trail gap in price units
		TriggerRR float64 `yaml:"trigger_rr"` // floating gain multiple that arms the trail
	} `yaml:"trailing"`

	Venue struct {
		BridgeURL       string  `yaml:"bridge_url"`
		TimeoutSeconds  int     `yaml:"timeout_seconds"`
		RatePerSecond   float64 `yaml:"rate_per_second"`
		UseTickStream   bool    `yaml:"use_tick_stream"`
		TickStaleMillis int     `yaml:"tick_stale_millis"`
	} `yaml:"venue"`

	Ledger struct {
		Path string `yaml:"path"`
	} `yaml:"ledger"`

	Summary struct {
		Enabled bool   `yaml:"enabled"`
		Time    string `yaml:"time"` // "HH:MM", local to Timezone
	} `yaml:"summary"`

	Metrics struct {
		Addr string `yaml:"addr"` // empty disables the /metrics server
	} `yaml:"metrics"`
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.Mode == "" {
		c.Mode = "DRY_RUN"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.Timeframe == "" {
		c.Timeframe = "M15"
	}
	if c.Poll.MinSeconds == 0 {
		c.Poll.MinSeconds = 1
	}
	if c.Poll.MaxSeconds == 0 {
		c.Poll.MaxSeconds = 60
	}
	if c.Poll.TaskTimeout == 0 {
		c.Poll.TaskTimeout = 20
	}
	if c.Risk.RewardRatio == 0 {
		c.Risk.RewardRatio = 2.0
	}
	if c.Venue.BridgeURL == "" {
		c.Venue.BridgeURL = "http://127.0.0.1:8787"
	}
	if c.Venue.TimeoutSeconds == 0 {
		c.Venue.TimeoutSeconds = 15
	}
	if c.Venue.RatePerSecond == 0 {
		c.Venue.RatePerSecond = 5
	}
	if c.Venue.TickStaleMillis == 0 {
		c.Venue.TickStaleMillis = 1500
	}
	if c.Ledger.Path == "" {
		c.Ledger.Path = "breakout.sqlite"
	}
	if c.Summary.Time == "" {
		c.Summary.Time = "23:55"
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
	}
	if len(c.Symbols) == 0 {
		return errors.New("symbols cannot be empty")
	}
	if len(c.Phases) == 0 {
		return errors.New("phases cannot be empty")
	}
	seen := map[string]bool{}
	for i, p := range c.Phases {
		if p.Name == "" {
			return fmt.Errorf("phases[%d]: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("phases[%d]: duplicate name '%s'", i, p.Name)
		}
		seen[p.Name] = true
		anchor, err := ParseClock(p.Anchor)
		if err != nil {
			return fmt.Errorf("phase %s anchor: %w", p.Name, err)
		}
		eval, err := ParseClock(p.Eval)
		if err != nil {
			return fmt.Errorf("phase %s eval: %w", p.Name, err)
		}
		start, err := ParseClock(p.EntryStart)
		if err != nil {
			return fmt.Errorf("phase %s entry_start: %w", p.Name, err)
		}
		end, err := ParseClock(p.MonitorEnd)
		if err != nil {
			return fmt.Errorf("phase %s monitor_end: %w", p.Name, err)
		}
		if !(anchor <= eval && eval < start && start < end) {
			return fmt.Errorf("phase %s: times must satisfy anchor <= eval < entry_start < monitor_end", p.Name)
		}
	}
	if c.Risk.Fraction <= 0 || c.Risk.Fraction >= 1 {
		return fmt.Errorf("risk.fraction must be in (0,1), got %v", c.Risk.Fraction)
	}
	if c.Risk.RewardRatio <= 0 {
		return fmt.Errorf("risk.reward_ratio must be positive, got %v", c.Risk.RewardRatio)
	}
	if c.Summary.Enabled {
		if _, err := ParseClock(c.Summary.Time); err != nil {
			return fmt.Errorf("summary.time: %w", err)
		}
	}
	return nil
}

// Location resolves the configured timezone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, _ := time.LoadLocation(c.Timezone)
	return loc
}

// ParseClock parses "HH:MM" into minutes from midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock '%s': want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in '%s'", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in '%s'", s)
	}
	return h*60 + m, nil
}
