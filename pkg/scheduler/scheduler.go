package scheduler

import (
	"context"
	"fmt"

	"github.com/arnavshah/rota-matcher/pkg/models"
)

// Scheduler handles the logic of assigning people to weekly shift slots
type Scheduler struct {
	Observer Observer
}

// NewScheduler creates a new scheduler instance
func NewScheduler(obs Observer) *Scheduler {
	if obs == nil {
		obs = NopObserver{}
	}
	return &Scheduler{Observer: obs}
}

// Build runs one scheduling week. It fails when the input is unusable or
// there is nothing to match; an instance that cannot be fully staffed
// returns the best matching found with ScheduleComplete set to false.
func (s *Scheduler) Build(req models.Requirements, roster []models.Person) (*models.Schedule, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.TotalSlots() == 0 {
		return nil, ErrEmptyRequirements
	}
	if err := CheckRoster(roster); err != nil {
		return nil, err
	}

	g := BuildGraph(req, withIDs(roster))
	if len(g.People) == 0 {
		return nil, ErrEmptyRoster
	}

	m := Match(g, req.MaxShiftsPerWeek, s.Observer)
	return Assemble(g, m, req.MaxShiftsPerWeek), nil
}

// Run resolves raw requirements (nil means defaults) and builds the week.
// Values replaced by defaults are reported in the schedule's warnings.
func (s *Scheduler) Run(in *models.RequirementsInput, roster []models.Person) (*models.Schedule, error) {
	req, warnings := in.Resolve()
	sched, err := s.Build(req, roster)
	if err != nil {
		return nil, err
	}
	sched.Warnings = append(warnings, sched.Warnings...)
	return sched, nil
}

// BuildContext runs Build under the caller's deadline. The search itself has
// no suspension points, so on expiry the run is abandoned in the background
// and its result discarded. A panic in the run is returned as an error.
func (s *Scheduler) BuildContext(ctx context.Context, req models.Requirements, roster []models.Person) (*models.Schedule, error) {
	type result struct {
		sched *models.Schedule
		err   error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("schedule run panicked: %v", r)}
			}
		}()
		sched, err := s.Build(req, roster)
		done <- result{sched, err}
	}()

	select {
	case r := <-done:
		return r.sched, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("schedule run abandoned: %w", ctx.Err())
	}
}

// RunContext is Run under the caller's deadline.
func (s *Scheduler) RunContext(ctx context.Context, in *models.RequirementsInput, roster []models.Person) (*models.Schedule, error) {
	req, warnings := in.Resolve()
	sched, err := s.BuildContext(ctx, req, roster)
	if err != nil {
		return nil, err
	}
	sched.Warnings = append(warnings, sched.Warnings...)
	return sched, nil
}

// CheckRoster rejects rosters in which two people share an ID. Empty IDs
// are allowed; Build fills them in.
func CheckRoster(roster []models.Person) error {
	seen := make(map[string]bool, len(roster))
	for _, p := range roster {
		if p.ID == "" {
			continue
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicatePersonID, p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// withIDs fills in missing person IDs as <profession>-<row>, adding a
// numeric suffix when that ID is already taken, so workloads have a
// distinct key for everyone. The roster slice itself is not modified.
func withIDs(roster []models.Person) []models.Person {
	taken := make(map[string]bool, len(roster))
	missing := false
	for _, p := range roster {
		if p.ID == "" {
			missing = true
			continue
		}
		taken[p.ID] = true
	}
	if !missing {
		return roster
	}

	out := make([]models.Person, len(roster))
	copy(out, roster)
	for i := range out {
		if out[i].ID != "" {
			continue
		}
		base := fmt.Sprintf("%s-%d", out[i].Profession, i+1)
		id := base
		for n := 2; taken[id]; n++ {
			id = fmt.Sprintf("%s-%d", base, n)
		}
		taken[id] = true
		out[i].ID = id
	}
	return out
}
