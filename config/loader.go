/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"fmt"
	"io"
)

// Loader fills configuration objects from a Source.
// Defaults of all objects are applied before any of them is set.
type Loader struct {
	source Source
}

// NewDefaultLoader creates a Loader reading data with viper.
// If envVarsPrefix is not empty, environment variables override the data.
func NewDefaultLoader(envVarsPrefix string) *Loader {
	return NewLoader(NewViperSource(envVarsPrefix))
}

// NewLoader creates a Loader on top of the source.
func NewLoader(source Source) *Loader {
	return &Loader{source: source}
}

// LoadFromFile reads the file and sets configuration objects.
// If dataType is empty, it is detected by the file extension.
func (l *Loader) LoadFromFile(path string, dataType DataType, cfg Config, cfgs ...Config) error {
	if dataType == "" {
		var err error
		if dataType, err = DataTypeFromPath(path); err != nil {
			return err
		}
	}
	if err := l.source.ReadFile(path, dataType); err != nil {
		return fmt.Errorf("read configuration file %q: %w", path, err)
	}
	return l.load(append([]Config{cfg}, cfgs...))
}

// LoadFromReader reads the data and sets configuration objects.
func (l *Loader) LoadFromReader(reader io.Reader, dataType DataType, cfg Config, cfgs ...Config) error {
	if err := l.source.Read(reader, dataType); err != nil {
		return err
	}
	return l.load(append([]Config{cfg}, cfgs...))
}

// LoadDefaults sets configuration objects from defaults and environment variables only.
func (l *Loader) LoadDefaults(cfg Config, cfgs ...Config) error {
	return l.load(append([]Config{cfg}, cfgs...))
}

func (l *Loader) load(cfgs []Config) error {
	providers := make([]DataProvider, len(cfgs))
	for i, cfg := range cfgs {
		providers[i] = l.source
		if kp, ok := cfg.(KeyPrefixProvider); ok {
			providers[i] = WithKeyPrefix(l.source, kp.KeyPrefix())
		}
		cfg.SetProviderDefaults(providers[i])
	}
	for i, cfg := range cfgs {
		if err := cfg.Set(providers[i]); err != nil {
			return err
		}
	}
	return nil
}
