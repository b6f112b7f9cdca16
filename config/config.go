package config

import (
	"time"

	"github.com/sambeau/taylox/pkg/logger"
)

// Config represents the complete taylox configuration
type Config struct {
	BaseDir string        `yaml:"-"` // Directory containing config file, for resolving relative paths
	REPL    REPLConfig    `yaml:"repl"`
	Logging logger.Config `yaml:"logging"`
	Run     RunConfig     `yaml:"run"`
}

// REPLConfig holds interactive prompt settings
type REPLConfig struct {
	Prompt             string `yaml:"prompt"`
	ContinuationPrompt string `yaml:"continuation_prompt"`
	HistoryFile        string `yaml:"history_file"` // empty means $TMPDIR/.taylox_history
	Echo               bool   `yaml:"echo"`         // print the value of a trailing expression statement
}

// RunConfig holds script execution settings
type RunConfig struct {
	Timeout       time.Duration `yaml:"timeout"` // 0 means no deadline
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		REPL: REPLConfig{
			Prompt:             "> ",
			ContinuationPrompt: ".. ",
			Echo:               true,
		},
		Logging: logger.Defaults(),
		Run: RunConfig{
			WatchDebounce: 100 * time.Millisecond,
		},
	}
}
