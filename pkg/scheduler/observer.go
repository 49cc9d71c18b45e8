package scheduler

import (
	"strconv"
	"strings"

	"github.com/go-logr/logr"

	"github.com/arnavshah/rota-matcher/pkg/models"
)

// Observer is notified at fixed points of a matching run. Implementations
// must not mutate the graph or matching they are handed. Observers shared
// across concurrent runs (see BuildBatch) must be safe for concurrent use.
type Observer interface {
	PassStarted(pass int, order []int)
	Augmented(pass, person int, ok bool)
	Completed(g *Graph, m *Matching)
}

// NopObserver ignores all events.
type NopObserver struct{}

// PassStarted does nothing.
func (NopObserver) PassStarted(int, []int) {}
// Augmented does nothing.
func (NopObserver) Augmented(int, int, bool) {}
// Completed does nothing.
func (NopObserver) Completed(*Graph, *Matching) {}

// LogObserver writes run progress to a logr.Logger. Pass starts are logged
// at V(1), individual augmentations at V(2), and the summary at V(0) with
// the per-person weekly grid at V(1).
type LogObserver struct {
	Logger logr.Logger
}

// NewLogObserver returns an observer logging under the "matcher" name.
func NewLogObserver(logger logr.Logger) *LogObserver {
	return &LogObserver{Logger: logger.WithName("matcher")}
}

// PassStarted logs the pass number and roster size at V(1).
func (o *LogObserver) PassStarted(pass int, order []int) {
	o.Logger.V(1).Info("Starting pass", "pass", pass, "people", len(order))
}

// Augmented logs one augmenting path search at V(2).
func (o *LogObserver) Augmented(pass, person int, ok bool) {
	o.Logger.V(2).Info("Augmenting path search", "pass", pass, "person", person, "found", ok)
}

// Completed logs the run summary, then the weekly grid at V(1).
func (o *LogObserver) Completed(g *Graph, m *Matching) {
	filled := m.Filled()
	o.Logger.Info("Matching completed",
		"people", len(g.People),
		"slots", len(g.Slots),
		"edges", g.EdgeCount(),
		"passes", m.Passes,
		"filled", filled,
		"complete", filled == len(g.Slots))

	if v := o.Logger.V(1); v.Enabled() {
		for i, line := range WeekLines(g, m) {
			v.Info(line, "person", g.People[i].ID)
		}
	}
}

// WeekLines renders one line per person: "W" for a day with a shift, "-"
// otherwise, followed by the weekly total.
func WeekLines(g *Graph, m *Matching) []string {
	worked := make([][models.DaysPerWeek]bool, len(g.People))
	for s, p := range m.Owner {
		if p != Unassigned {
			worked[p][g.Slots[s].Day] = true
		}
	}

	lines := make([]string, len(g.People))
	for i, p := range g.People {
		var b strings.Builder
		b.WriteString(p.Label())
		b.WriteString(": ")
		for _, day := range models.Weekdays {
			if worked[i][day] {
				b.WriteString("W ")
			} else {
				b.WriteString("- ")
			}
		}
		b.WriteString("| Total: ")
		b.WriteString(strconv.Itoa(m.Assigned[i]))
		b.WriteString(" shifts")
		lines[i] = b.String()
	}
	return lines
}
