package scheduler

import "github.com/arnavshah/rota-matcher/pkg/models"

// Unassigned marks a slot with no holder.
const Unassigned = -1

// Matching is the outcome of the augmenting-path search.
type Matching struct {
	// Owner maps slot index to person index, or Unassigned.
	Owner []int
	// Assigned is the number of slots each person holds.
	Assigned []int
	// Passes counts full passes over the people, including the final one
	// that found nothing.
	Passes        int
	Augmentations int
}

// Filled returns the number of assigned slots.
func (m *Matching) Filled() int {
	n := 0
	for _, p := range m.Owner {
		if p != Unassigned {
			n++
		}
	}
	return n
}

// matcher owns all mutable state of one run.
type matcher struct {
	g     *Graph
	quota int
	obs   Observer

	owner    []int
	assigned []int
	// daysHeld[p][d] counts slots person p holds on day d.
	daysHeld [][models.DaysPerWeek]int
	visited  []bool
	// onPath marks people whose attempt is on the current recursion stack.
	onPath []bool
}

// Match computes a maximum matching of g in which nobody works twice on the
// same day or more than quota slots in the week. Passes repeat, with people
// reordered by load before each one, until a pass augments nothing.
func Match(g *Graph, quota int, obs Observer) *Matching {
	if obs == nil {
		obs = NopObserver{}
	}
	m := &matcher{
		g:        g,
		quota:    quota,
		obs:      obs,
		owner:    make([]int, len(g.Slots)),
		assigned: make([]int, len(g.People)),
		daysHeld: make([][models.DaysPerWeek]int, len(g.People)),
		visited:  make([]bool, len(g.Slots)),
		onPath:   make([]bool, len(g.People)),
	}
	for i := range m.owner {
		m.owner[i] = Unassigned
	}

	res := &Matching{}
	for {
		res.Passes++
		order := SearchOrder(m.assigned)
		obs.PassStarted(res.Passes, order)

		improved := 0
		for _, p := range order {
			if m.assigned[p] >= m.quota {
				continue
			}
			clear(m.visited)
			ok := m.augment(p)
			obs.Augmented(res.Passes, p, ok)
			if ok {
				improved++
			}
		}
		res.Augmentations += improved
		if improved == 0 {
			break
		}
	}

	res.Owner = m.owner
	res.Assigned = m.assigned
	obs.Completed(g, res)
	return res
}

// augment looks for an augmenting path starting at person p.
//
// A person already on the recursion stack is not re-entered: moving them
// while an outer attempt of theirs is still choosing a slot could leave
// them with two slots on one day. With that rule a person's holdings are
// fixed for the whole of their own attempt, so reading daysHeld directly
// sees the same busy days as a fresh scan of the matching would.
func (m *matcher) augment(p int) bool {
	if m.assigned[p] >= m.quota || m.onPath[p] {
		return false
	}
	m.onPath[p] = true

	found := false
	for _, s := range m.g.Adjacency[p] {
		if m.visited[s] || m.daysHeld[p][m.g.Slots[s].Day] > 0 {
			continue
		}
		m.visited[s] = true

		holder := m.owner[s]
		if holder == Unassigned || m.augment(holder) {
			if holder != Unassigned {
				m.release(holder, s)
			}
			m.take(p, s)
			found = true
			break
		}
	}

	m.onPath[p] = false
	return found
}

func (m *matcher) take(p, s int) {
	m.owner[s] = p
	m.assigned[p]++
	m.daysHeld[p][m.g.Slots[s].Day]++
}

func (m *matcher) release(p, s int) {
	m.assigned[p]--
	m.daysHeld[p][m.g.Slots[s].Day]--
}
