package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default staffing levels, used when a value is missing or malformed.
const (
	DefaultCooks            = 1
	DefaultWaiters          = 2
	DefaultCleaners         = 1
	DefaultAdmins           = 1
	DefaultMaxShiftsPerWeek = 5
)

// Upper bounds on requirement values. A larger per-shift count is rejected
// rather than sized into a slot list, and no one can work more than
// ShiftsPerWeek shifts.
const (
	MaxCountPerShift = 100
	ShiftsPerWeek    = DaysPerWeek * ShiftCategoryCount
)

// ErrRequirementsOutOfRange is returned by Validate for counts above
// MaxCountPerShift or a quota above ShiftsPerWeek.
var ErrRequirementsOutOfRange = errors.New("requirements out of range")

// Requirements holds resolved staffing levels: slots per (day, shift) for each
// profession, and the weekly quota shared by everyone.
type Requirements struct {
	Counts           [ProfessionCount]int `json:"counts"`
	MaxShiftsPerWeek int                  `json:"max_shifts_per_week"`
}

// DefaultRequirements returns the documented defaults.
func DefaultRequirements() Requirements {
	return Requirements{
		Counts:           [ProfessionCount]int{DefaultCooks, DefaultWaiters, DefaultCleaners, DefaultAdmins},
		MaxShiftsPerWeek: DefaultMaxShiftsPerWeek,
	}
}

// Count returns the per-shift count for a profession.
func (r Requirements) Count(p Profession) int {
	if p < 0 || int(p) >= ProfessionCount {
		return 0
	}
	return r.Counts[p]
}

// SlotsPerShift is the number of slots each (day, shift) combination needs.
// It saturates at math.MaxInt.
func (r Requirements) SlotsPerShift() int {
	total := 0
	for _, c := range r.Counts {
		if c <= 0 {
			continue
		}
		if c > math.MaxInt-total {
			return math.MaxInt
		}
		total += c
	}
	return total
}

// TotalSlots is the number of slots in the weekly horizon. It saturates at
// math.MaxInt.
func (r Requirements) TotalSlots() int {
	per := r.SlotsPerShift()
	if per > math.MaxInt/ShiftsPerWeek {
		return math.MaxInt
	}
	return per * ShiftsPerWeek
}

// Validate reports values outside MaxCountPerShift and ShiftsPerWeek.
func (r Requirements) Validate() error {
	for _, p := range Professions {
		if c := r.Counts[p]; c > MaxCountPerShift {
			return fmt.Errorf("%w: %d %s slots per shift, at most %d", ErrRequirementsOutOfRange, c, p, MaxCountPerShift)
		}
	}
	if r.MaxShiftsPerWeek > ShiftsPerWeek {
		return fmt.Errorf("%w: weekly limit %d, at most %d", ErrRequirementsOutOfRange, r.MaxShiftsPerWeek, ShiftsPerWeek)
	}
	return nil
}

// Count is a raw requirement value as supplied by a caller. It accepts JSON
// numbers or strings so that malformed values can be detected and replaced
// by defaults instead of failing the whole request.
type Count struct {
	raw string
	set bool
}

// CountOf builds a Count from an integer.
func CountOf(n int) Count { return Count{raw: strconv.Itoa(n), set: true} }

// CountFromString builds a Count from free text, e.g. a form field. Empty
// text is treated as missing.
func CountFromString(s string) Count {
	s = strings.TrimSpace(s)
	return Count{raw: s, set: s != ""}
}

// IsSet reports whether a value was supplied.
func (c Count) IsSet() bool { return c.set }

// Resolve parses the value. A missing value yields def. A value that is not
// an integer or is above limit yields def and an error describing why;
// negative values become 0.
func (c Count) Resolve(def, limit int) (int, error) {
	if !c.set {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(c.raw))
	if err != nil {
		return def, fmt.Errorf("malformed value %q", c.raw)
	}
	if v > limit {
		return def, fmt.Errorf("value %q above %d", c.raw, limit)
	}
	if v < 0 {
		v = 0
	}
	return v, nil
}

// MarshalJSON writes integers as numbers and anything else as a string.
func (c Count) MarshalJSON() ([]byte, error) {
	if !c.set {
		return []byte("null"), nil
	}
	if _, err := strconv.Atoi(c.raw); err == nil {
		return []byte(c.raw), nil
	}
	return json.Marshal(c.raw)
}

// UnmarshalJSON accepts a number, a string or null.
func (c *Count) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = Count{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = CountFromString(s)
		return nil
	}
	*c = Count{raw: string(b), set: true}
	return nil
}

// UnmarshalYAML accepts any scalar; null leaves the value missing.
func (c *Count) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" {
		*c = Count{}
		return nil
	}
	*c = CountFromString(node.Value)
	return nil
}

// RequirementsInput is the caller-facing form of Requirements.
type RequirementsInput struct {
	Cooks            Count `json:"cooks" yaml:"cooks"`
	Waiters          Count `json:"waiters" yaml:"waiters"`
	Cleaners         Count `json:"cleaners" yaml:"cleaners"`
	Admins           Count `json:"admins" yaml:"admins"`
	MaxShiftsPerWeek Count `json:"max_shifts_per_week" yaml:"max_shifts_per_week"`
}

// Resolve converts the input into Requirements, substituting defaults for
// malformed or out of range values. Each substitution is reported as a
// warning. A nil input yields the defaults.
func (in *RequirementsInput) Resolve() (Requirements, []string) {
	req := DefaultRequirements()
	if in == nil {
		return req, nil
	}

	var warnings []string
	resolve := func(name string, c Count, def, limit int) int {
		n, err := c.Resolve(def, limit)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v, using default %d", name, err, def))
		}
		return n
	}

	req.Counts[Cook] = resolve("cooks", in.Cooks, DefaultCooks, MaxCountPerShift)
	req.Counts[Waiter] = resolve("waiters", in.Waiters, DefaultWaiters, MaxCountPerShift)
	req.Counts[Cleaner] = resolve("cleaners", in.Cleaners, DefaultCleaners, MaxCountPerShift)
	req.Counts[Admin] = resolve("admins", in.Admins, DefaultAdmins, MaxCountPerShift)
	req.MaxShiftsPerWeek = resolve("max_shifts_per_week", in.MaxShiftsPerWeek, DefaultMaxShiftsPerWeek, ShiftsPerWeek)
	return req, warnings
}

// LoadRequirementsYAML reads a requirements file such as:
//
//	cooks: 1
//	waiters: 2
//	max_shifts_per_week: 5
func LoadRequirementsYAML(path string) (*RequirementsInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading requirements: %w", err)
	}
	var in RequirementsInput
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parsing requirements: %w", err)
	}
	return &in, nil
}
