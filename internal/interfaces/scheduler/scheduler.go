package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// Scheduler asks jobProvider for jobs every interval and feeds them to the
// worker pool. It owns the pool's lifecycle.
type Scheduler struct {
	workerPool  *WorkerPool
	interval    time.Duration
	jobProvider func(context.Context) []Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler. A zero interval or nil provider leaves
// only the pool running.
func NewScheduler(pool *WorkerPool, interval time.Duration, jobProvider func(context.Context) []Job) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		workerPool:  pool,
		interval:    interval,
		jobProvider: jobProvider,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (s *Scheduler) Start() {
	s.workerPool.Start()

	if s.interval <= 0 || s.jobProvider == nil {
		log.Println("Scheduler: periodic refresh disabled")
		return
	}

	s.wg.Add(1)
	go s.loop()
	log.Printf("Scheduler: refreshing every %v", s.interval)
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runJobs()
		}
	}
}

func (s *Scheduler) runJobs() {
	jobs := s.jobProvider(s.ctx)
	if len(jobs) == 0 {
		return
	}
	submitted := s.workerPool.SubmitBatch(jobs)
	log.Printf("Scheduler: submitted %d/%d jobs", submitted, len(jobs))
}

// Submit queues a single job on the pool.
func (s *Scheduler) Submit(job Job) error {
	return s.workerPool.Submit(job)
}

// Shutdown stops the loop, then drains the pool within timeout.
func (s *Scheduler) Shutdown(timeout time.Duration) {
	s.cancel()
	s.wg.Wait()
	s.workerPool.ShutdownWithTimeout(timeout)
	log.Println("Scheduler: Shutdown complete")
}
