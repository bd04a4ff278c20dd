/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"fmt"
	"strings"

	"github.com/ssgreg/logf"

	"github.com/acronis/go-cachebatcher/config"
)

const cfgDefaultKeyPrefix = "log"

const (
	cfgKeyLevel          = "level"
	cfgKeyFormat         = "format"
	cfgKeyOutput         = "output"
	cfgKeyNoColor        = "noColor"
	cfgKeyAddCaller      = "addCaller"
	cfgKeyFilePath       = "file.path"
	cfgKeyFileMaxSize    = "file.maxSize"
	cfgKeyFileMaxBackups = "file.maxBackups"
	cfgKeyFileCompress   = "file.compress"
)

// Defaults and limits of the file output.
const (
	DefaultFileMaxSize    = 100 * 1024 * 1024
	MinFileMaxSize        = 1024 * 1024
	DefaultFileMaxBackups = 5
)

// Level is a minimal level of written entries.
type Level string

// Logging levels.
const (
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

func (l Level) logfLevel() logf.Level {
	switch l {
	case LevelError:
		return logf.LevelError
	case LevelWarn:
		return logf.LevelWarn
	case LevelDebug:
		return logf.LevelDebug
	}
	return logf.LevelInfo
}

// Format is an encoding of log entries.
type Format string

// Logging formats.
const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Output is a destination of log entries.
type Output string

// Logging outputs.
const (
	OutputStdout Output = "stdout"
	OutputStderr Output = "stderr"
	OutputFile   Output = "file"
)

var (
	availableLevels  = []string{string(LevelError), string(LevelWarn), string(LevelInfo), string(LevelDebug)}
	availableFormats = []string{string(FormatJSON), string(FormatText)}
	availableOutputs = []string{string(OutputStdout), string(OutputStderr), string(OutputFile)}
)

// Config represents a set of configuration parameters for logging.
type Config struct {
	Level     Level      `mapstructure:"level" yaml:"level" json:"level"`
	Format    Format     `mapstructure:"format" yaml:"format" json:"format"`
	Output    Output     `mapstructure:"output" yaml:"output" json:"output"`
	NoColor   bool       `mapstructure:"noColor" yaml:"noColor" json:"noColor"`
	AddCaller bool       `mapstructure:"addCaller" yaml:"addCaller" json:"addCaller"`
	File      FileConfig `mapstructure:"file" yaml:"file" json:"file"`

	keyPrefix string
}

// FileConfig is a configuration of the rotated file output.
type FileConfig struct {
	Path       string            `mapstructure:"path" yaml:"path" json:"path"`
	MaxSize    config.BytesCount `mapstructure:"maxSize" yaml:"maxSize" json:"maxSize"`
	MaxBackups int               `mapstructure:"maxBackups" yaml:"maxBackups" json:"maxBackups"`
	Compress   bool              `mapstructure:"compress" yaml:"compress" json:"compress"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return NewConfigWithKeyPrefix(cfgDefaultKeyPrefix)
}

// NewConfigWithKeyPrefix creates a new instance of the Config with the key prefix.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for logging in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyLevel, string(LevelInfo))
	dp.SetDefault(cfgKeyFormat, string(FormatJSON))
	dp.SetDefault(cfgKeyOutput, string(OutputStderr))
	dp.SetDefault(cfgKeyFileMaxSize, config.BytesCount(DefaultFileMaxSize).String())
	dp.SetDefault(cfgKeyFileMaxBackups, DefaultFileMaxBackups)
}

// Set sets logging configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	level, err := dp.GetStringFromSet(cfgKeyLevel, availableLevels, true)
	if err != nil {
		return err
	}
	c.Level = Level(strings.ToLower(level))

	format, err := dp.GetStringFromSet(cfgKeyFormat, availableFormats, true)
	if err != nil {
		return err
	}
	c.Format = Format(strings.ToLower(format))

	output, err := dp.GetStringFromSet(cfgKeyOutput, availableOutputs, true)
	if err != nil {
		return err
	}
	c.Output = Output(strings.ToLower(output))

	if c.NoColor, err = dp.GetBool(cfgKeyNoColor); err != nil {
		return err
	}
	if c.AddCaller, err = dp.GetBool(cfgKeyAddCaller); err != nil {
		return err
	}
	return c.setFile(dp)
}

func (c *Config) setFile(dp config.DataProvider) (err error) {
	if c.File.Path, err = dp.GetString(cfgKeyFilePath); err != nil {
		return err
	}
	if c.Output == OutputFile && c.File.Path == "" {
		return dp.WrapKeyErr(cfgKeyFilePath, fmt.Errorf("cannot be empty when %q output is used", OutputFile))
	}
	if c.File.MaxSize, err = dp.GetBytesCount(cfgKeyFileMaxSize); err != nil {
		return err
	}
	if c.File.MaxSize < MinFileMaxSize {
		return dp.WrapKeyErr(cfgKeyFileMaxSize, fmt.Errorf("should be >= %s", config.BytesCount(MinFileMaxSize)))
	}
	if c.File.MaxBackups, err = dp.GetInt(cfgKeyFileMaxBackups); err != nil {
		return err
	}
	if c.File.MaxBackups < 0 {
		return dp.WrapKeyErr(cfgKeyFileMaxBackups, fmt.Errorf("should be >= 0"))
	}
	c.File.Compress, err = dp.GetBool(cfgKeyFileCompress)
	return err
}
