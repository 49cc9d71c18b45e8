package scheduler

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/arnavshah/rota-matcher/pkg/models"
)

// Period is the input of one independent scheduling week.
type Period struct {
	Requirements models.Requirements
	Roster       []models.Person
}

// BuildBatch schedules independent periods concurrently, each under ctx as
// in BuildContext. Results come back in input order. The first failing
// period cancels the others and its error is returned.
func (s *Scheduler) BuildBatch(ctx context.Context, periods []Period) ([]*models.Schedule, error) {
	results := make([]*models.Schedule, len(periods))
	g, ctx := errgroup.WithContext(ctx)

	for i, p := range periods {
		g.Go(func() error {
			sched, err := s.BuildContext(ctx, p.Requirements, p.Roster)
			if err != nil {
				return fmt.Errorf("period %d: %w", i, err)
			}
			results[i] = sched
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
