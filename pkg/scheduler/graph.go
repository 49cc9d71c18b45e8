package scheduler

import "github.com/arnavshah/rota-matcher/pkg/models"

// Graph is the bipartite graph of people and shift slots. Both partitions
// are addressed by dense indices; Adjacency[i] lists the slot indices
// person i can fill.
type Graph struct {
	People    []models.Person
	Slots     []models.ShiftSlot
	Adjacency [][]int
}

// BuildGraph constructs the graph for one week. People are taken per
// profession in canonical order, and within a profession in roster order;
// professions with no required slots are left out entirely.
func BuildGraph(req models.Requirements, roster []models.Person) *Graph {
	g := &Graph{}
	g.buildPeople(req, roster)
	g.buildSlots(req)
	g.buildEdges()
	return g
}

func (g *Graph) buildPeople(req models.Requirements, roster []models.Person) {
	for _, prof := range models.Professions {
		if req.Count(prof) <= 0 {
			continue
		}
		for _, p := range roster {
			if p.Profession != prof {
				continue
			}
			p.Index = len(g.People)
			g.People = append(g.People, p)
		}
	}
}

func (g *Graph) buildSlots(req models.Requirements) {
	g.Slots = make([]models.ShiftSlot, 0, req.TotalSlots())
	for _, day := range models.Weekdays {
		for _, cat := range models.ShiftCategories {
			for _, prof := range models.Professions {
				for pos := 0; pos < req.Count(prof); pos++ {
					g.Slots = append(g.Slots, models.ShiftSlot{
						Day:        day,
						Category:   cat,
						Profession: prof,
						Position:   pos,
						Index:      len(g.Slots),
					})
				}
			}
		}
	}
}

func (g *Graph) buildEdges() {
	g.Adjacency = make([][]int, len(g.People))
	for i, p := range g.People {
		for _, s := range g.Slots {
			if p.Profession == s.Profession && CanWork(p, s.Category) {
				g.Adjacency[i] = append(g.Adjacency[i], s.Index)
			}
		}
	}
}

// EdgeCount returns the total number of person-slot edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, adj := range g.Adjacency {
		n += len(adj)
	}
	return n
}
