package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const validConfig = `
mode: DRY_RUN
timezone: Europe/Berlin
symbols: [EURUSD]
phases:
  - name: morning
    anchor: "09:00"
    eval: "09:15"
    entry_start: "09:20"
    monitor_end: "11:30"
risk:
  fraction: 0.01
`

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "M15", cfg.Timeframe)
	assert.Equal(t, 1, cfg.Poll.MinSeconds)
	assert.Equal(t, 60, cfg.Poll.MaxSeconds)
	assert.Equal(t, 20, cfg.Poll.TaskTimeout)
	assert.Equal(t, 2.0, cfg.Risk.RewardRatio)
	assert.Equal(t, "http://127.0.0.1:8787", cfg.Venue.BridgeURL)
	assert.Equal(t, "breakout.sqlite", cfg.Ledger.Path)
	assert.Equal(t, "23:55", cfg.Summary.Time)
	assert.False(t, cfg.Execution.RetryOnReject)
	assert.False(t, cfg.Execution.ReenterWhileOpen)
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{"bad mode", `
mode: PAPER
timezone: UTC
symbols: [EURUSD]
phases:
  - {name: p, anchor: "09:00", eval: "09:15", entry_start: "09:20", monitor_end: "11:30"}
risk: {fraction: 0.01}
`},
		{"no symbols", `
mode: DRY_RUN
timezone: UTC
symbols: []
phases:
  - {name: p, anchor: "09:00", eval: "09:15", entry_start: "09:20", monitor_end: "11:30"}
risk: {fraction: 0.01}
`},
		{"no phases", `
mode: DRY_RUN
timezone: UTC
symbols: [EURUSD]
phases: []
risk: {fraction: 0.01}
`},
		{"phase ordering", `
mode: DRY_RUN
timezone: UTC
symbols: [EURUSD]
phases:
  - {name: p, anchor: "09:00", eval: "09:30", entry_start: "09:20", monitor_end: "11:30"}
risk: {fraction: 0.01}
`},
		{"duplicate phase name", `
mode: DRY_RUN
timezone: UTC
symbols: [EURUSD]
phases:
  - {name: p, anchor: "09:00", eval: "09:15", entry_start: "09:20", monitor_end: "11:30"}
  - {name: p, anchor: "14:00", eval: "14:15", entry_start: "14:20", monitor_end: "16:30"}
risk: {fraction: 0.01}
`},
		{"risk fraction too big", `
mode: DRY_RUN
timezone: UTC
symbols: [EURUSD]
phases:
  - {name: p, anchor: "09:00", eval: "09:15", entry_start: "09:20", monitor_end: "11:30"}
risk: {fraction: 1.5}
`},
		{"bad timezone", `
mode: DRY_RUN
timezone: Mars/Olympus
symbols: [EURUSD]
phases:
  - {name: p, anchor: "09:00", eval: "09:15", entry_start: "09:20", monitor_end: "11:30"}
risk: {fraction: 0.01}
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestParseClock(t *testing.T) {
	t.Parallel()

	m, err := ParseClock("09:15")
	require.NoError(t, err)
	assert.Equal(t, 9*60+15, m)

	m, err = ParseClock("00:00")
	require.NoError(t, err)
	assert.Equal(t, 0, m)

	m, err = ParseClock("23:59")
	require.NoError(t, err)
	assert.Equal(t, 23*60+59, m)

	for _, bad := range []string{"9", "24:00", "12:60", "ab:cd", "12:5:6"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}
