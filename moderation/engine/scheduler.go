package engine

import (
	"context"
	"log/slog"
	"sync"
)

// Scheduler runs message evaluations on a fixed number of workers, preserving
// send order per user: while one of a user's messages is being evaluated,
// later messages from that user queue behind it in the active map instead of
// being handed to another worker. Completion order across users is
// unconstrained.
//
// The send path calls Enqueue and moves on; it never waits for evaluation.
type Scheduler struct {
	maxConcurrency int

	engine *Engine

	feeder chan *evalTask
	out    chan struct{}

	lk     sync.Mutex
	active map[string][]*evalTask

	log *slog.Logger
}

type evalTask struct {
	evt     *MessageEvent
	control string
}

func NewScheduler(maxC int, engine *Engine) *Scheduler {
	s := &Scheduler{
		maxConcurrency: maxC,
		engine:         engine,
		feeder:         make(chan *evalTask),
		out:            make(chan struct{}),
		active:         make(map[string][]*evalTask),
		log:            engine.Logger.With("system", "eval-scheduler"),
	}

	for i := 0; i < maxC; i++ {
		go s.worker()
	}
	workersActive.Set(float64(maxC))

	return s
}

// drains in-flight work; call once, after all producers have stopped
func (s *Scheduler) Shutdown() {
	s.log.Info("shutting down evaluation scheduler")

	for i := 0; i < s.maxConcurrency; i++ {
		s.feeder <- &evalTask{
			control: "stop",
		}
	}

	close(s.feeder)

	for i := 0; i < s.maxConcurrency; i++ {
		<-s.out
	}

	s.log.Info("evaluation scheduler shutdown complete")
}

func (s *Scheduler) Enqueue(ctx context.Context, evt *MessageEvent) error {
	workItemsAdded.Inc()
	t := &evalTask{evt: evt}

	s.lk.Lock()
	a, ok := s.active[evt.UserID]
	if ok {
		// a worker already owns this user; chain the task behind it
		s.active[evt.UserID] = append(a, t)
		s.lk.Unlock()
		return nil
	}
	s.active[evt.UserID] = []*evalTask{}
	s.lk.Unlock()

	select {
	case s.feeder <- t:
		return nil
	case <-ctx.Done():
		// the active entry above is already registered. it must be released
		// (or handed to a worker, if later messages chained behind it) before
		// returning; otherwise no worker ever owns this user and their queue
		// is never drained
		s.lk.Lock()
		rem := s.active[evt.UserID]
		if len(rem) == 0 {
			delete(s.active, evt.UserID)
			s.lk.Unlock()
			return ctx.Err()
		}
		next := rem[0]
		s.active[evt.UserID] = rem[1:]
		s.lk.Unlock()
		s.feeder <- next
		return ctx.Err()
	}
}

func (s *Scheduler) worker() {
	for work := range s.feeder {
		for work != nil {
			if work.control == "stop" {
				s.out <- struct{}{}
				return
			}

			s.engine.ProcessMessage(context.TODO(), work.evt)
			workItemsProcessed.Inc()

			s.lk.Lock()
			rem, ok := s.active[work.evt.UserID]
			if !ok {
				s.log.Error("should always have an 'active' entry if a worker is processing a job")
			}

			if len(rem) == 0 {
				delete(s.active, work.evt.UserID)
				work = nil
			} else {
				work = rem[0]
				s.active[work.evt.UserID] = rem[1:]
			}
			s.lk.Unlock()
		}
	}
}
