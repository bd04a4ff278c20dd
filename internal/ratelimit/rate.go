/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Rate describes the frequency of operations.
// Its text form is N/(s|m|h), for example 10/s, 100/m, 1000/h. Empty text means no limit.
type Rate struct {
	Count    int
	Duration time.Duration
}

// IsZero reports whether the rate is not set.
func (r Rate) IsZero() bool {
	return r.Count == 0 && r.Duration == 0
}

// String returns a string representation of the rate.
// Implements fmt.Stringer interface.
func (r Rate) String() string {
	if r.IsZero() {
		return ""
	}
	var d string
	switch r.Duration {
	case time.Second:
		d = "s"
	case time.Minute:
		d = "m"
	case time.Hour:
		d = "h"
	default:
		d = r.Duration.String()
	}
	return fmt.Sprintf("%d/%s", r.Count, d)
}

// Set parses the rate. Implements pflag.Value interface.
func (r *Rate) Set(s string) error {
	return r.unmarshal(s)
}

// Type returns the type name shown in the command help. Implements pflag.Value interface.
func (r *Rate) Type() string {
	return "rate"
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (r *Rate) UnmarshalText(text []byte) error {
	return r.unmarshal(string(text))
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (r *Rate) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	return r.unmarshal(text)
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (r *Rate) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}
	return r.unmarshal(text)
}

// MarshalText implements the encoding.TextMarshaler interface.
func (r Rate) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Rate) unmarshal(rate string) error {
	rate = strings.TrimSpace(rate)
	if rate == "" || rate == "0" {
		*r = Rate{}
		return nil
	}
	incorrectFormatErr := fmt.Errorf(
		"incorrect format for rate %q, should be N/(s|m|h), for example 10/s, 100/m, 1000/h", rate)
	countStr, unit, ok := strings.Cut(rate, "/")
	if !ok {
		return incorrectFormatErr
	}
	count, err := strconv.Atoi(countStr)
	if err != nil || count <= 0 {
		return incorrectFormatErr
	}
	var dur time.Duration
	switch strings.ToLower(unit) {
	case "s":
		dur = time.Second
	case "m":
		dur = time.Minute
	case "h":
		dur = time.Hour
	default:
		return incorrectFormatErr
	}
	*r = Rate{Count: count, Duration: dur}
	return nil
}
