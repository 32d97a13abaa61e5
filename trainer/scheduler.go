package trainer

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/llebel/difacto"
	"github.com/llebel/difacto/bcd"
	"github.com/llebel/difacto/core"
)

// ErrInvalidRound is returned when a round's job list is inconsistent.
var ErrInvalidRound = errors.New("invalid round")

// Job is one block update within a round. Run receives a context that is
// canceled when any job in the round fails.
type Job struct {
	// Block identifies the job within the round. Ids must be unique; the
	// dependency lists refer to them.
	Block int

	// Range is the feature-id range the job updates. Ranges of concurrent
	// jobs must not overlap — the partitioner guarantees this, the
	// scheduler does not re-check it.
	Range core.Range

	// DependsOn lists blocks that must finish before this job runs.
	DependsOn []int

	// Run performs the update and reports the block's progress.
	Run func(ctx context.Context) (difacto.Progress, error)
}

// Scheduler runs rounds of block jobs on a bounded number of workers.
type Scheduler struct {
	workers  int
	logger   *difacto.Logger
	observer difacto.ProgressObserver
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithWorkers bounds the number of concurrently running jobs.
// Default: GOMAXPROCS.
func WithWorkers(n int) SchedulerOption {
	return func(s *Scheduler) { s.workers = n }
}

// WithLogger sets the logger. Default: noop.
func WithLogger(l *difacto.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

// WithObserver sets the progress observer. Default: noop.
func WithObserver(o difacto.ProgressObserver) SchedulerOption {
	return func(s *Scheduler) { s.observer = o }
}

// NewScheduler creates a scheduler.
func NewScheduler(optFns ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		logger:   difacto.NoopLogger(),
		observer: difacto.NoopProgressObserver{},
	}
	for _, fn := range optFns {
		fn(s)
	}
	if s.workers <= 0 {
		s.workers = runtime.GOMAXPROCS(0)
	}
	return s
}

// RunRound runs all jobs, honoring dependencies, and returns the merged
// progress. A job failure cancels the round's context; jobs already past
// their dependency wait still observe the cancellation through ctx. Every
// block is marked finished in the tracker even on failure, so no waiter
// deadlocks. Dependency cycles are rejected up front.
func (s *Scheduler) RunRound(ctx context.Context, epoch int, jobs []Job) (difacto.Progress, error) {
	if err := validateRound(jobs); err != nil {
		return difacto.Progress{}, err
	}

	tracker := bcd.NewBlockTracker(maxBlock(jobs) + 1)

	// The round context is canceled before a failing job marks its block
	// finished, so dependents woken by that Finish observe the failure
	// instead of running on stale state.
	roundCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Worker slots are taken after the dependency wait, so a waiting job
	// never starves a runnable one.
	workerSem := make(chan struct{}, s.workers)

	var mu sync.Mutex
	var total difacto.Progress

	// Job failures are recorded separately from the cancellation noise the
	// failure induces in dependent jobs, so callers see the root cause.
	var errOnce sync.Once
	var jobErr error

	var g errgroup.Group
	for i := range jobs {
		job := &jobs[i]
		g.Go(func() error {
			defer tracker.Finish(job.Block)

			for _, dep := range job.DependsOn {
				tracker.Wait(dep)
			}
			if err := roundCtx.Err(); err != nil {
				return err
			}

			workerSem <- struct{}{}
			defer func() { <-workerSem }()

			p, err := job.Run(roundCtx)
			s.logger.LogBlock(roundCtx, job.Block, p.Examples, err)
			if err != nil {
				errOnce.Do(func() {
					jobErr = fmt.Errorf("block %d: %w", job.Block, err)
				})
				cancel()
				return err
			}

			s.observer.ObserveBlock(job.Block, p)
			mu.Lock()
			total.Merge(p)
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	if jobErr != nil {
		err = jobErr
	}

	s.logger.LogRound(ctx, epoch, len(jobs), total, err)
	if err != nil {
		return difacto.Progress{}, err
	}
	s.observer.ObserveRound(epoch, total)
	return total, nil
}

func maxBlock(jobs []Job) int {
	m := 0
	for _, j := range jobs {
		if j.Block > m {
			m = j.Block
		}
	}
	return m
}

// validateRound checks block-id uniqueness, dependency resolution, and
// acyclicity (a cycle would deadlock the tracker waits).
func validateRound(jobs []Job) error {
	byBlock := make(map[int]*Job, len(jobs))
	for i := range jobs {
		j := &jobs[i]
		if j.Block < 0 {
			return fmt.Errorf("%w: negative block id %d", ErrInvalidRound, j.Block)
		}
		if j.Run == nil {
			return fmt.Errorf("%w: block %d has no Run function", ErrInvalidRound, j.Block)
		}
		if _, dup := byBlock[j.Block]; dup {
			return fmt.Errorf("%w: duplicate block id %d", ErrInvalidRound, j.Block)
		}
		byBlock[j.Block] = j
	}

	for _, j := range jobs {
		for _, dep := range j.DependsOn {
			if dep == j.Block {
				return fmt.Errorf("%w: block %d depends on itself", ErrInvalidRound, j.Block)
			}
			if _, ok := byBlock[dep]; !ok {
				return fmt.Errorf("%w: block %d depends on unknown block %d",
					ErrInvalidRound, j.Block, dep)
			}
		}
	}

	// Colors: 0 unvisited, 1 in progress, 2 done.
	color := make(map[int]int, len(jobs))
	var visit func(block int) error
	visit = func(block int) error {
		switch color[block] {
		case 1:
			return fmt.Errorf("%w: dependency cycle through block %d", ErrInvalidRound, block)
		case 2:
			return nil
		}
		color[block] = 1
		for _, dep := range byBlock[block].DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[block] = 2
		return nil
	}
	for block := range byBlock {
		if err := visit(block); err != nil {
			return err
		}
	}
	return nil
}
