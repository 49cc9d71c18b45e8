package scheduler

import (
	"fmt"

	"github.com/arnavshah/rota-matcher/pkg/models"
)

// Assemble converts a matching into assignments and workloads. Everyone in
// the graph gets a workload entry, including people with no shifts.
func Assemble(g *Graph, m *Matching, quota int) *models.Schedule {
	sched := &models.Schedule{
		Workloads:  make(map[string]int, len(g.People)),
		TotalSlots: len(g.Slots),
		Passes:     m.Passes,
		People:     g.People,
	}
	for _, p := range g.People {
		sched.Workloads[p.ID] = 0
	}

	for s, pi := range m.Owner {
		if pi == Unassigned {
			continue
		}
		p := g.People[pi]
		slot := g.Slots[s]
		sched.Assignments = append(sched.Assignments, models.Assignment{
			Day:        slot.Day,
			Category:   slot.Category,
			PersonID:   p.ID,
			Name:       p.Name,
			Profession: slot.Profession,
			Position:   slot.Position,
		})
		sched.MatchedEdges = append(sched.MatchedEdges, models.Edge{PersonID: p.ID, Slot: slot})
		sched.Workloads[p.ID]++
	}

	sched.FilledCount = len(sched.Assignments)
	sched.ScheduleComplete = sched.FilledCount == sched.TotalSlots
	sched.FairnessScore = FairnessScore(m.Assigned)
	sched.Unfilled = explainUnfilled(g, m, quota)
	return sched
}

// explainUnfilled records, for every empty slot, why none of the people of
// the slot's profession could take it.
func explainUnfilled(g *Graph, m *Matching, quota int) []models.ConflictReason {
	busy := make([][models.DaysPerWeek]bool, len(g.People))
	for s, p := range m.Owner {
		if p != Unassigned {
			busy[p][g.Slots[s].Day] = true
		}
	}

	var conflicts []models.ConflictReason
	for s, owner := range m.Owner {
		if owner != Unassigned {
			continue
		}
		slot := g.Slots[s]

		candidates := 0
		maxShiftsCount := 0
		sameDayCount := 0
		disallowedCount := 0
		for i, p := range g.People {
			if p.Profession != slot.Profession {
				continue
			}
			candidates++
			if m.Assigned[i] >= quota {
				maxShiftsCount++
			}
			if busy[i][slot.Day] {
				sameDayCount++
			}
			if !CanWork(p, slot.Category) {
				disallowedCount++
			}
		}

		var reasons []string
		if maxShiftsCount > 0 {
			reasons = append(reasons, fmt.Sprintf("%d people were at the weekly limit", maxShiftsCount))
		}
		if sameDayCount > 0 {
			reasons = append(reasons, fmt.Sprintf("%d people already worked that day", sameDayCount))
		}
		if disallowedCount > 0 {
			reasons = append(reasons, fmt.Sprintf("%d people may not work %s shifts", disallowedCount, slot.Category))
		}
		if candidates == 0 {
			reasons = append(reasons, fmt.Sprintf("no %s found in the roster", slot.Profession))
		}
		if len(reasons) == 0 {
			reasons = append(reasons, "no augmenting path reached this slot")
		}

		conflicts = append(conflicts, models.ConflictReason{Slot: slot, Reasons: reasons})
	}
	return conflicts
}
