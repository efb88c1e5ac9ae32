package logger

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

var (
	levels  = []string{"trace", "debug", "info", "warn", "error", "disabled"}
	formats = []string{"json", FormatConsole, FormatPretty}
)

// Config is the logging section of a client config file.
type Config struct {
	Level     string `yaml:"level" mapstructure:"level"`
	Format    string `yaml:"format" mapstructure:"format"`
	Output    string `yaml:"output" mapstructure:"output"` // stdout or stderr
	NoColor   bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp bool   `yaml:"timestamp" mapstructure:"timestamp"`
	Caller    bool   `yaml:"caller" mapstructure:"caller"`
}

// ApplyDefaults fills info/console/stdout and always turns on timestamps.
func (c *Config) ApplyDefaults() {
	c.Level = strings.ToLower(cmp.Or(c.Level, "info"))
	c.Format = strings.ToLower(cmp.Or(c.Format, FormatConsole))
	c.Output = cmp.Or(c.Output, "stdout")
	c.Timestamp = true
}

func (c *Config) Validate() error {
	if !slices.Contains(levels, c.Level) {
		return fmt.Errorf("logging.level: %q is not one of %s", c.Level, strings.Join(levels, ", "))
	}
	if !slices.Contains(formats, c.Format) {
		return fmt.Errorf("logging.format: %q is not one of %s", c.Format, strings.Join(formats, ", "))
	}
	return nil
}
