package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Day is a day of the fixed, calendar-independent weekly cycle.
type Day int

const (
	Monday Day = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// DaysPerWeek is the length of the scheduling horizon.
const DaysPerWeek = 7

// Weekdays is the canonical day order used for slot construction.
var Weekdays = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var dayNames = [DaysPerWeek]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// String returns the lower-case day name.
func (d Day) String() string {
	if d < 0 || int(d) >= DaysPerWeek {
		return fmt.Sprintf("day(%d)", int(d))
	}
	return dayNames[d]
}

// Short returns the three letter label used in grids and spreadsheets.
func (d Day) Short() string {
	s := d.String()
	if len(s) < 3 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:3]
}

// ParseDay accepts full or three letter day names, case-insensitive.
func ParseDay(s string) (Day, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range dayNames {
		if s == name || (len(s) == 3 && strings.HasPrefix(name, s)) {
			return Day(i), nil
		}
	}
	return 0, fmt.Errorf("unknown day %q", s)
}

// MarshalText writes the full lower-case day name.
func (d Day) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText accepts anything ParseDay does.
func (d *Day) UnmarshalText(b []byte) error {
	v, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// ShiftCategory is one of the fixed shift kinds worked each day.
type ShiftCategory int

const (
	Morning ShiftCategory = iota
	DayShift
	Night
)

// ShiftCategoryCount is the size of the shift-category alphabet.
const ShiftCategoryCount = 3

// ShiftCategories is the canonical category order used for slot construction.
var ShiftCategories = []ShiftCategory{Morning, DayShift, Night}

var (
	shiftNames = [ShiftCategoryCount]string{"morning", "day", "night"}
	shiftCodes = [ShiftCategoryCount]string{"M", "D", "N"}
)

// String returns the category name: morning, day or night.
func (c ShiftCategory) String() string {
	if c < 0 || int(c) >= ShiftCategoryCount {
		return fmt.Sprintf("shift(%d)", int(c))
	}
	return shiftNames[c]
}

// Code returns the single letter roster code (M, D or N).
func (c ShiftCategory) Code() string {
	if c < 0 || int(c) >= ShiftCategoryCount {
		return "?"
	}
	return shiftCodes[c]
}

// ParseShiftCategory accepts either a roster code (M/D/N) or a category name.
func ParseShiftCategory(s string) (ShiftCategory, error) {
	s = strings.TrimSpace(s)
	for i := range shiftCodes {
		if strings.EqualFold(s, shiftCodes[i]) || strings.EqualFold(s, shiftNames[i]) {
			return ShiftCategory(i), nil
		}
	}
	return 0, fmt.Errorf("unknown shift category %q", s)
}

// MarshalText writes the category name.
func (c ShiftCategory) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText accepts a roster code or a category name.
func (c *ShiftCategory) UnmarshalText(b []byte) error {
	v, err := ParseShiftCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ShiftSet is a set of shift categories stored as a bitmask.
type ShiftSet uint8

// NewShiftSet builds a set from the given categories.
func NewShiftSet(cats ...ShiftCategory) ShiftSet {
	var s ShiftSet
	for _, c := range cats {
		s = s.Add(c)
	}
	return s
}

// Add returns the set with c included.
func (s ShiftSet) Add(c ShiftCategory) ShiftSet { return s | 1<<uint(c) }

// Has reports whether c is in the set.
func (s ShiftSet) Has(c ShiftCategory) bool { return s&(1<<uint(c)) != 0 }

// Empty reports whether the set has no members.
func (s ShiftSet) Empty() bool { return s == 0 }

// Categories lists the members in canonical order.
func (s ShiftSet) Categories() []ShiftCategory {
	out := make([]ShiftCategory, 0, ShiftCategoryCount)
	for _, c := range ShiftCategories {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Codes renders the set as roster codes joined by ";".
func (s ShiftSet) Codes() string {
	codes := make([]string, 0, ShiftCategoryCount)
	for _, c := range s.Categories() {
		codes = append(codes, c.Code())
	}
	return strings.Join(codes, ";")
}

// ParseShiftCodes parses a ";"-separated code list. Unknown codes are
// returned separately so callers can warn about them.
func ParseShiftCodes(list string) (ShiftSet, []string) {
	var set ShiftSet
	var unknown []string
	for _, part := range strings.Split(list, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		c, err := ParseShiftCategory(part)
		if err != nil {
			unknown = append(unknown, part)
			continue
		}
		set = set.Add(c)
	}
	return set, unknown
}

// MarshalJSON writes the set as a list of category names.
func (s ShiftSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Categories())
}

// UnmarshalJSON reads a list of category names or codes.
func (s *ShiftSet) UnmarshalJSON(b []byte) error {
	var cats []ShiftCategory
	if err := json.Unmarshal(b, &cats); err != nil {
		return err
	}
	*s = NewShiftSet(cats...)
	return nil
}

// Profession is one of the fixed closed set of staff categories.
type Profession int

const (
	Cook Profession = iota
	Waiter
	Cleaner
	Admin
)

// ProfessionCount is the size of the profession set.
const ProfessionCount = 4

// Professions is the canonical profession order. Graph partitions and slot
// positions are built in this order, which fixes tie-breaking.
var Professions = []Profession{Cook, Waiter, Cleaner, Admin}

var professionNames = [ProfessionCount]string{"cook", "waiter", "cleaner", "admin"}

// professionAliases maps roster spellings onto professions.
var professionAliases = map[string]Profession{
	"cook":          Cook,
	"waiter":        Waiter,
	"cleaner":       Cleaner,
	"admin":         Admin,
	"administrator": Admin,
	"повар":         Cook,
	"официант":      Waiter,
	"уборщик":       Cleaner,
	"администратор": Admin,
}

// String returns the English profession name.
func (p Profession) String() string {
	if p < 0 || int(p) >= ProfessionCount {
		return fmt.Sprintf("profession(%d)", int(p))
	}
	return professionNames[p]
}

// ParseProfession resolves a roster spelling, case-insensitive.
func ParseProfession(s string) (Profession, error) {
	p, ok := professionAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown profession %q", s)
	}
	return p, nil
}

// MarshalText writes the English profession name.
func (p Profession) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText accepts any spelling ParseProfession does.
func (p *Profession) UnmarshalText(b []byte) error {
	v, err := ParseProfession(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Person represents a staff member available for shifts
type Person struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Profession Profession `json:"profession"`
	Allowed    ShiftSet   `json:"allowed_shifts,omitempty"`
	Forbidden  ShiftSet   `json:"forbidden_shifts,omitempty"`
	// Index is the position in the graph's person partition, assigned by
	// the graph builder.
	Index int `json:"-"`
}

// Label returns the name, falling back to the ID.
func (p Person) Label() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// ShiftSlot is one concrete unit of required staffing. Its identity is the
// (Day, Category, Profession, Position) tuple.
type ShiftSlot struct {
	Day        Day           `json:"day"`
	Category   ShiftCategory `json:"shift"`
	Profession Profession    `json:"profession"`
	Position   int           `json:"position"`
	Index      int           `json:"-"`
}

// Assignment represents a person-slot pairing
type Assignment struct {
	Day      Day           `json:"day"`
	Category ShiftCategory `json:"shift"`
	PersonID string        `json:"person_id"`
	Name     string        `json:"name,omitempty"`
	// Profession and Position identify the filled slot; they are carried for
	// audit and export.
	Profession Profession `json:"profession"`
	Position   int        `json:"position"`
}

// Edge is one matched person-slot edge of the bipartite graph.
type Edge struct {
	PersonID string    `json:"person_id"`
	Slot     ShiftSlot `json:"slot"`
}

// ConflictReason represents why a slot could not be filled
type ConflictReason struct {
	Slot    ShiftSlot `json:"slot"`
	Reasons []string  `json:"reasons"`
}

// Schedule is the result of one scheduling run
type Schedule struct {
	ID               string           `json:"id"`
	Assignments      []Assignment     `json:"assignments"`
	Workloads        map[string]int   `json:"workloads"`
	FilledCount      int              `json:"filled_count"`
	TotalSlots       int              `json:"total_slots"`
	ScheduleComplete bool             `json:"schedule_complete"`
	FairnessScore    float64          `json:"fairness_score"`
	Passes           int              `json:"passes"`
	Unfilled         []ConflictReason `json:"unfilled,omitempty"`
	MatchedEdges     []Edge           `json:"matched_edges,omitempty"`
	Warnings         []string         `json:"warnings,omitempty"`
	// People is the person partition in graph order; it is not serialized
	// but lets exporters list people with zero assignments.
	People []Person `json:"-"`
}

// ScheduleInput is the data structure for the scheduling endpoint
type ScheduleInput struct {
	Roster       []Person           `json:"roster"`
	Requirements *RequirementsInput `json:"requirements,omitempty"`
	// IncludeGraph asks for the matched-edge audit graph in the response.
	IncludeGraph bool `json:"include_graph,omitempty"`
}

// BatchInput schedules several independent periods in one request.
type BatchInput struct {
	Periods []ScheduleInput `json:"periods"`
}
