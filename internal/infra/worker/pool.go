package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"telegram-affiliate-bot/internal/domain"
	"telegram-affiliate-bot/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Task is a unit of background work. It receives a context bounded by the pool's task timeout.
type Task func(ctx context.Context) error

// Pool runs submitted tasks on a fixed number of goroutines.
// Submit never blocks: when the queue is saturated the task is dropped.
type Pool struct {
	wg      sync.WaitGroup
	jobs    chan Task
	quit    chan struct{}
	stop    sync.Once
	n       int
	timeout time.Duration
	log     *zerolog.Logger
}

func NewPool(workers int, timeout time.Duration, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Pool{
		jobs:    make(chan Task, workers*16),
		quit:    make(chan struct{}),
		n:       workers,
		timeout: timeout,
		log:     logger,
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					p.drain(ctx, id)
					return
				case task := <-p.jobs:
					p.run(ctx, id, task)
				}
			}
		}(i)
	}
}

// drain runs whatever is still queued once Stop was called.
func (p *Pool) drain(ctx context.Context, id int) {
	for {
		select {
		case task := <-p.jobs:
			p.run(ctx, id, task)
		default:
			return
		}
	}
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	if task == nil {
		return
	}
	tctx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			metrics.IncWorkerTask("failed")
			p.log.Error().Int("worker", id).Interface("panic", r).Msg("worker task panicked")
		}
	}()
	if err := task(tctx); err != nil {
		metrics.IncWorkerTask("failed")
		p.log.Warn().Err(err).Int("worker", id).Msg("worker task error")
		return
	}
	metrics.IncWorkerTask("completed")
}

// Stop signals workers to finish queued tasks and waits for them.
func (p *Pool) Stop() {
	p.stop.Do(func() { close(p.quit) })
	p.wg.Wait()
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		metrics.IncWorkerTask("dropped")
		return domain.ErrQueueFull
	}
}
