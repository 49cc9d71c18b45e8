package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr/funcr"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/rota-matcher/pkg/models"
)

func person(id string, prof models.Profession, allowed, forbidden models.ShiftSet) models.Person {
	return models.Person{ID: id, Name: strings.ToUpper(id), Profession: prof, Allowed: allowed, Forbidden: forbidden}
}

func requirements(cooks, waiters, cleaners, admins, quota int) models.Requirements {
	return models.Requirements{
		Counts:           [models.ProfessionCount]int{cooks, waiters, cleaners, admins},
		MaxShiftsPerWeek: quota,
	}
}

// checkInvariants verifies the properties every matching must have.
func checkInvariants(t *testing.T, g *Graph, m *Matching, quota int) {
	t.Helper()

	held := make([]int, len(g.People))
	days := make([]map[models.Day]bool, len(g.People))
	for i := range days {
		days[i] = map[models.Day]bool{}
	}

	for s, p := range m.Owner {
		if p == Unassigned {
			continue
		}
		slot := g.Slots[s]
		per := g.People[p]
		if days[p][slot.Day] {
			t.Errorf("person %s holds two slots on %s", per.ID, slot.Day)
		}
		days[p][slot.Day] = true
		held[p]++

		if per.Profession != slot.Profession {
			t.Errorf("person %s (%s) assigned to %s slot", per.ID, per.Profession, slot.Profession)
		}
		if !CanWork(per, slot.Category) {
			t.Errorf("person %s assigned to disallowed %s shift", per.ID, slot.Category)
		}
	}

	for i, n := range held {
		if n > quota {
			t.Errorf("person %s holds %d slots, quota %d", g.People[i].ID, n, quota)
		}
		if n != m.Assigned[i] {
			t.Errorf("person %s: Assigned=%d but holds %d", g.People[i].ID, m.Assigned[i], n)
		}
	}

	// No unassigned slot may have an adjacent person with spare quota and a
	// free day.
	for p, adj := range g.Adjacency {
		if held[p] >= quota {
			continue
		}
		for _, s := range adj {
			if m.Owner[s] == Unassigned && !days[p][g.Slots[s].Day] {
				t.Errorf("slot %d left empty although %s could take it", s, g.People[p].ID)
			}
		}
	}
}

func countBy(assignments []models.Assignment, f func(models.Assignment) bool) int {
	n := 0
	for _, a := range assignments {
		if f(a) {
			n++
		}
	}
	return n
}

func TestCanWork(t *testing.T) {
	night := models.NewShiftSet(models.Night)
	morning := models.NewShiftSet(models.Morning)

	tests := []struct {
		name      string
		allowed   models.ShiftSet
		forbidden models.ShiftSet
		want      [models.ShiftCategoryCount]bool
	}{
		{"unrestricted", 0, 0, [3]bool{true, true, true}},
		{"allow-list", morning, 0, [3]bool{true, false, false}},
		{"deny-list", 0, night, [3]bool{true, true, false}},
		{"allow-list wins over deny-list", morning, morning, [3]bool{true, false, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := person("p", models.Cook, tt.allowed, tt.forbidden)
			for _, c := range models.ShiftCategories {
				assert.Equal(t, tt.want[c], CanWork(p, c), c.String())
			}
		})
	}
}

func TestBuildGraph(t *testing.T) {
	roster := []models.Person{
		person("w1", models.Waiter, 0, 0),
		person("c1", models.Cook, 0, models.NewShiftSet(models.Night)),
		person("a1", models.Admin, models.NewShiftSet(models.DayShift), 0),
		person("c2", models.Cook, 0, 0),
	}

	g := BuildGraph(requirements(1, 2, 0, 1, 5), roster)

	ids := make([]string, len(g.People))
	for i, p := range g.People {
		ids[i] = p.ID
		assert.Equal(t, i, p.Index)
	}
	assert.Equal(t, []string{"c1", "c2", "w1", "a1"}, ids)

	// 7 days x 3 shifts x (1 cook + 2 waiters + 1 admin)
	require.Len(t, g.Slots, 84)
	first := g.Slots[0]
	assert.Equal(t, models.ShiftSlot{Day: models.Monday, Category: models.Morning, Profession: models.Cook, Position: 0, Index: 0}, first)
	assert.Equal(t, models.Waiter, g.Slots[1].Profession)
	assert.Equal(t, 0, g.Slots[1].Position)
	assert.Equal(t, 1, g.Slots[2].Position)
	assert.Equal(t, models.Admin, g.Slots[3].Profession)

	assert.Len(t, g.Adjacency[0], 14) // cook without nights
	assert.Len(t, g.Adjacency[1], 21)
	assert.Len(t, g.Adjacency[2], 42) // two waiter positions per shift
	assert.Len(t, g.Adjacency[3], 7)  // admin, day shifts only
	assert.Equal(t, 14+21+42+7, g.EdgeCount())
}

func TestSearchOrder(t *testing.T) {
	assert.Equal(t, []int{1, 3, 0, 4, 2}, SearchOrder([]int{2, 0, 5, 0, 2}))
	assert.Empty(t, SearchOrder(nil))
}

func TestFairnessScore(t *testing.T) {
	assert.Equal(t, 100.0, FairnessScore(nil))
	assert.Equal(t, 100.0, FairnessScore([]int{0, 0}))
	assert.Equal(t, 100.0, FairnessScore([]int{3, 3, 3}))
	assert.Equal(t, 0.0, FairnessScore([]int{0, 0, 0, 9}))
	assert.InDelta(t, 50.0, FairnessScore([]int{1, 3}), 1e-9)
}

// Four cooks who never work nights plus one unrestricted person in every
// other profession.
func TestScenarioForbiddenNights(t *testing.T) {
	noNights := models.NewShiftSet(models.Night)
	roster := []models.Person{
		person("cook1", models.Cook, 0, noNights),
		person("cook2", models.Cook, 0, noNights),
		person("cook3", models.Cook, 0, noNights),
		person("cook4", models.Cook, 0, noNights),
		person("waiter1", models.Waiter, 0, 0),
		person("cleaner1", models.Cleaner, 0, 0),
		person("admin1", models.Admin, 0, 0),
	}
	req := requirements(1, 1, 1, 1, 5)

	sched, err := NewScheduler(nil).Build(req, roster)
	require.NoError(t, err)

	isCook := func(a models.Assignment) bool { return a.Profession == models.Cook }
	assert.Equal(t, 14, countBy(sched.Assignments, isCook))
	assert.Equal(t, 0, countBy(sched.Assignments, func(a models.Assignment) bool {
		return isCook(a) && a.Category == models.Night
	}))
	for _, prof := range []models.Profession{models.Waiter, models.Cleaner, models.Admin} {
		got := countBy(sched.Assignments, func(a models.Assignment) bool { return a.Profession == prof })
		assert.Equal(t, 5, got, prof.String())
	}

	assert.Equal(t, 84, sched.TotalSlots)
	assert.Equal(t, 29, sched.FilledCount)
	assert.False(t, sched.ScheduleComplete)
	assert.Len(t, sched.Unfilled, 84-29)
	for id, n := range sched.Workloads {
		assert.LessOrEqual(t, n, 5, id)
	}

	g := BuildGraph(req, roster)
	checkInvariants(t, g, Match(g, req.MaxShiftsPerWeek, nil), req.MaxShiftsPerWeek)
}

// One person per profession, each allowed only mornings.
func TestScenarioMorningsOnly(t *testing.T) {
	mornings := models.NewShiftSet(models.Morning)
	roster := []models.Person{
		person("cook", models.Cook, mornings, 0),
		person("waiter", models.Waiter, mornings, 0),
		person("cleaner", models.Cleaner, mornings, 0),
		person("admin", models.Admin, mornings, 0),
	}

	sched, err := NewScheduler(nil).Build(requirements(1, 1, 1, 1, 7), roster)
	require.NoError(t, err)

	assert.Len(t, sched.Assignments, 28)
	for _, a := range sched.Assignments {
		assert.Equal(t, models.Morning, a.Category)
	}
	for id, n := range sched.Workloads {
		assert.Equal(t, 7, n, id)
	}
}

func TestBuildEmptyRoster(t *testing.T) {
	// Only cleaners on staff but no cleaners required.
	roster := []models.Person{person("cl", models.Cleaner, 0, 0)}

	sched, err := NewScheduler(nil).Build(requirements(1, 1, 0, 1, 5), roster)
	assert.ErrorIs(t, err, ErrEmptyRoster)
	assert.Nil(t, sched)

	_, err = NewScheduler(nil).Build(models.DefaultRequirements(), nil)
	assert.ErrorIs(t, err, ErrEmptyRoster)
}

func TestBuildEmptyRequirements(t *testing.T) {
	roster := []models.Person{person("c", models.Cook, 0, 0)}

	sched, err := NewScheduler(nil).Build(requirements(0, 0, 0, 0, 5), roster)
	assert.ErrorIs(t, err, ErrEmptyRequirements)
	assert.Nil(t, sched)

	// An empty roster with empty requirements reports the requirements.
	_, err = NewScheduler(nil).Build(requirements(0, 0, 0, 0, 5), nil)
	assert.ErrorIs(t, err, ErrEmptyRequirements)
}

func TestBuildRespectsWeeklyLimit(t *testing.T) {
	roster := []models.Person{
		person("cook1", models.Cook, 0, 0),
		person("cook2", models.Cook, 0, 0),
		person("waiter1", models.Waiter, 0, 0),
		person("cleaner1", models.Cleaner, 0, 0),
		person("admin1", models.Admin, 0, 0),
	}

	sched, err := NewScheduler(nil).Build(requirements(1, 1, 1, 1, 3), roster)
	require.NoError(t, err)

	cooks := countBy(sched.Assignments, func(a models.Assignment) bool { return a.Profession == models.Cook })
	assert.Equal(t, 6, cooks)
	for id, n := range sched.Workloads {
		assert.Equal(t, 3, n, id)
	}
}

func TestAssembleWorkloadsIncludeIdlePeople(t *testing.T) {
	roster := []models.Person{
		person("busy", models.Cook, 0, 0),
		person("idle", models.Cook, models.NewShiftSet(models.Night), 0),
	}
	g := BuildGraph(requirements(1, 0, 0, 0, 7), roster)
	// Shrink the week to one slot that only "busy" can fill.
	g.Slots = g.Slots[:1]
	g.Adjacency = [][]int{{0}, {}}
	m := Match(g, 7, nil)

	sched := Assemble(g, m, 7)
	assert.Equal(t, map[string]int{"busy": 1, "idle": 0}, sched.Workloads)
	assert.True(t, sched.ScheduleComplete)
	assert.Equal(t, []models.Edge{{PersonID: "busy", Slot: g.Slots[0]}}, sched.MatchedEdges)
}

func TestUnfilledReasons(t *testing.T) {
	roster := []models.Person{
		person("cook", models.Cook, models.NewShiftSet(models.Morning), 0),
	}

	sched, err := NewScheduler(nil).Build(requirements(1, 1, 0, 0, 3), roster)
	require.NoError(t, err)

	byKey := map[string][]string{}
	for _, c := range sched.Unfilled {
		byKey[fmt.Sprintf("%s/%s/%s", c.Slot.Day, c.Slot.Category, c.Slot.Profession)] = c.Reasons
	}

	assert.Equal(t, []string{"no waiter found in the roster"}, byKey["monday/morning/waiter"])
	// Monday: cook worked the morning, cannot do nights.
	assert.Equal(t, []string{
		"1 people were at the weekly limit",
		"1 people already worked that day",
		"1 people may not work night shifts",
	}, byKey["monday/night/cook"])
	// Sunday morning: the cook hit the quota of 3 early in the week.
	assert.Equal(t, []string{"1 people were at the weekly limit"}, byKey["sunday/morning/cook"])
}

func TestDeterminism(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	roster := randomRoster(rng, 14)
	req := requirements(1, 2, 1, 1, 4)

	first, err := NewScheduler(nil).Build(req, roster)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := NewScheduler(nil).Build(req, roster)
		require.NoError(t, err)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}
}

func TestRandomRostersKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		roster := randomRoster(rng, 1+rng.Intn(16))
		req := requirements(rng.Intn(3), rng.Intn(3), rng.Intn(2), rng.Intn(2), 1+rng.Intn(7))
		if req.TotalSlots() == 0 {
			continue
		}
		g := BuildGraph(req, roster)
		if len(g.People) == 0 {
			continue
		}
		t.Run(fmt.Sprintf("case%d", i), func(t *testing.T) {
			checkInvariants(t, g, Match(g, req.MaxShiftsPerWeek, nil), req.MaxShiftsPerWeek)
		})
	}
}

func randomRoster(rng *rand.Rand, n int) []models.Person {
	roster := make([]models.Person, n)
	for i := range roster {
		var allowed, forbidden models.ShiftSet
		switch rng.Intn(4) {
		case 1:
			allowed = models.ShiftSet(1 + rng.Intn(7))
		case 2:
			forbidden = models.ShiftSet(1 + rng.Intn(7))
		case 3:
			allowed = models.ShiftSet(1 + rng.Intn(7))
			forbidden = models.ShiftSet(1 + rng.Intn(7))
		}
		roster[i] = person(fmt.Sprintf("p%d", i), models.Professions[rng.Intn(models.ProfessionCount)], allowed, forbidden)
	}
	return roster
}

func TestBuildFillsMissingIDs(t *testing.T) {
	roster := []models.Person{{Name: "Anon", Profession: models.Cook}}

	sched, err := NewScheduler(nil).Build(requirements(1, 0, 0, 0, 5), roster)
	require.NoError(t, err)
	assert.Contains(t, sched.Workloads, "cook-1")
	assert.Empty(t, roster[0].ID)
}

func TestBuildFilledIDsAvoidSuppliedOnes(t *testing.T) {
	roster := []models.Person{
		{Name: "Anon", Profession: models.Cook},
		{ID: "cook-1", Name: "Named", Profession: models.Cook},
		{Name: "Other", Profession: models.Cook},
	}

	sched, err := NewScheduler(nil).Build(requirements(2, 0, 0, 0, 5), roster)
	require.NoError(t, err)
	require.Len(t, sched.Workloads, 3)
	assert.Contains(t, sched.Workloads, "cook-1-2")
	assert.Contains(t, sched.Workloads, "cook-3")
	for id, n := range sched.Workloads {
		assert.LessOrEqual(t, n, 5, id)
	}
}

func TestBuildRejectsDuplicateIDs(t *testing.T) {
	roster := []models.Person{
		person("a", models.Cook, 0, 0),
		person("a", models.Cook, 0, 0),
	}

	sched, err := NewScheduler(nil).Build(requirements(1, 0, 0, 0, 5), roster)
	assert.ErrorIs(t, err, ErrDuplicatePersonID)
	assert.Contains(t, err.Error(), `"a"`)
	assert.Nil(t, sched)

	// People in professions that are not required still count.
	roster[1].Profession = models.Admin
	_, err = NewScheduler(nil).Build(requirements(1, 0, 0, 0, 5), roster)
	assert.ErrorIs(t, err, ErrDuplicatePersonID)
}

func TestBuildRejectsOutOfRangeRequirements(t *testing.T) {
	roster := []models.Person{person("c", models.Cook, 0, 0)}
	s := NewScheduler(nil)

	_, err := s.Build(requirements(math.MaxInt, 0, 0, 0, 5), roster)
	assert.ErrorIs(t, err, models.ErrRequirementsOutOfRange)
	_, err = s.Build(requirements(1, math.MaxInt, math.MaxInt, 0, 5), roster)
	assert.ErrorIs(t, err, models.ErrRequirementsOutOfRange)
	_, err = s.Build(requirements(1, 0, 0, 0, models.ShiftsPerWeek+1), roster)
	assert.ErrorIs(t, err, models.ErrRequirementsOutOfRange)
}

func TestRunReplacesOutOfRangeCounts(t *testing.T) {
	in := &models.RequirementsInput{
		Cooks:            models.CountFromString("9223372036854775807"),
		Waiters:          models.CountOf(0),
		Cleaners:         models.CountOf(0),
		Admins:           models.CountOf(0),
		MaxShiftsPerWeek: models.CountOf(2),
	}
	roster := []models.Person{person("c", models.Cook, 0, 0)}

	sched, err := NewScheduler(nil).RunContext(context.Background(), in, roster)
	require.NoError(t, err)
	assert.Equal(t, 21, sched.TotalSlots)
	assert.Equal(t, 2, sched.FilledCount)
	require.Len(t, sched.Warnings, 1)
	assert.Contains(t, sched.Warnings[0], "cooks")
}

func TestRunReportsMalformedCounts(t *testing.T) {
	in := &models.RequirementsInput{
		Cooks:            models.CountFromString("two"),
		Waiters:          models.CountOf(0),
		Cleaners:         models.CountOf(0),
		Admins:           models.CountOf(0),
		MaxShiftsPerWeek: models.CountOf(2),
	}
	roster := []models.Person{person("c", models.Cook, 0, 0)}

	sched, err := NewScheduler(nil).Run(in, roster)
	require.NoError(t, err)
	assert.Equal(t, 21, sched.TotalSlots)
	assert.Equal(t, 2, sched.FilledCount)
	require.Len(t, sched.Warnings, 1)
	assert.Contains(t, sched.Warnings[0], "cooks")

	sched, err = NewScheduler(nil).RunContext(context.Background(), in, roster)
	require.NoError(t, err)
	assert.Equal(t, 2, sched.FilledCount)
	assert.Len(t, sched.Warnings, 1)
}

func TestBuildBatch(t *testing.T) {
	roster := []models.Person{person("c", models.Cook, 0, 0)}
	s := NewScheduler(nil)

	results, err := s.BuildBatch(context.Background(), []Period{
		{Requirements: requirements(1, 0, 0, 0, 2), Roster: roster},
		{Requirements: requirements(1, 0, 0, 0, 4), Roster: roster},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 2, results[0].FilledCount)
	assert.Equal(t, 4, results[1].FilledCount)

	_, err = s.BuildBatch(context.Background(), []Period{
		{Requirements: requirements(1, 0, 0, 0, 2), Roster: roster},
		{Requirements: requirements(0, 0, 0, 0, 2), Roster: roster},
	})
	assert.ErrorIs(t, err, ErrEmptyRequirements)
	assert.Contains(t, err.Error(), "period 1")
}

func TestBuildContextExpired(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	roster := []models.Person{person("c", models.Cook, 0, 0)}
	sched, err := NewScheduler(nil).BuildContext(ctx, models.DefaultRequirements(), roster)
	if err == nil {
		// The run may win the race against the already closed context.
		require.NotNil(t, sched)
		return
	}
	assert.True(t, errors.Is(err, context.Canceled))
}

// blockingObserver holds every run at its first pass until release is closed.
type blockingObserver struct {
	NopObserver
	release chan struct{}
}

func (b blockingObserver) PassStarted(int, []int) { <-b.release }

type panickingObserver struct{ NopObserver }

func (panickingObserver) PassStarted(int, []int) { panic("observer failed") }

func TestBuildBatchHonorsDeadline(t *testing.T) {
	obs := blockingObserver{release: make(chan struct{})}
	t.Cleanup(func() { close(obs.release) })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	roster := []models.Person{person("c", models.Cook, 0, 0)}
	results, err := NewScheduler(obs).BuildBatch(ctx, []Period{
		{Requirements: requirements(1, 0, 0, 0, 2), Roster: roster},
		{Requirements: requirements(1, 0, 0, 0, 3), Roster: roster},
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, results)
}

func TestBuildContextRecoversPanic(t *testing.T) {
	roster := []models.Person{person("c", models.Cook, 0, 0)}
	s := NewScheduler(panickingObserver{})

	sched, err := s.BuildContext(context.Background(), requirements(1, 0, 0, 0, 2), roster)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "observer failed")
	assert.Nil(t, sched)

	_, err = s.BuildBatch(context.Background(), []Period{
		{Requirements: requirements(1, 0, 0, 0, 2), Roster: roster},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "period 0")
}

type recordingObserver struct {
	passes    int
	successes int
	completed bool
}

func (r *recordingObserver) PassStarted(int, []int) { r.passes++ }
func (r *recordingObserver) Augmented(_, _ int, ok bool) {
	if ok {
		r.successes++
	}
}
func (r *recordingObserver) Completed(*Graph, *Matching) { r.completed = true }

func TestObserverEvents(t *testing.T) {
	roster := []models.Person{person("c", models.Cook, 0, 0)}
	obs := &recordingObserver{}

	sched, err := NewScheduler(obs).Build(requirements(1, 0, 0, 0, 3), roster)
	require.NoError(t, err)

	assert.True(t, obs.completed)
	assert.Equal(t, sched.Passes, obs.passes)
	assert.Equal(t, 3, obs.successes)
	// Three augmenting passes, then one pass with the cook at quota.
	assert.Equal(t, 4, obs.passes)
}

func TestLogObserverWritesWeekGrid(t *testing.T) {
	var lines []string
	logger := funcr.New(func(prefix, args string) {
		lines = append(lines, prefix+" "+args)
	}, funcr.Options{Verbosity: 1})

	roster := []models.Person{person("c", models.Cook, models.NewShiftSet(models.Morning), 0)}
	_, err := NewScheduler(NewLogObserver(logger)).Build(requirements(1, 0, 0, 0, 2), roster)
	require.NoError(t, err)

	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "Matching completed")
	assert.Contains(t, joined, "C: W W - - - - - | Total: 2 shifts")
}
