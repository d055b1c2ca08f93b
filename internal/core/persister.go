package core

import (
	"context"
	"sync"
	"time"

	"dal/internal/history"
	"dal/pkg/schema"
)

const (
	persistQueueSize = 64
	persistTimeout   = 10 * time.Second
)

type jobKind int

const (
	jobSave jobKind = iota
	jobUpdate
	jobAdopt
)

type persistJob struct {
	kind        jobKind
	user        string
	id          string
	request     schema.HistoryRequest
	suggestions []schema.Suggestion
	accepted    int
}

// persister writes session history on one goroutine, in submission order.
// The first save of an analysis creates a record; later jobs update it.
type persister struct {
	store   history.Store
	logger  Logger
	onSaved func(id string)
	onError func(op string, err error)

	mu     sync.Mutex
	closed bool
	jobs   chan persistJob
	done   chan struct{}

	// current is only touched by run.
	current string
}

func newPersister(store history.Store, logger Logger, onSaved func(string), onError func(string, error)) *persister {
	p := &persister{
		store:   store,
		logger:  logger,
		onSaved: onSaved,
		onError: onError,
		jobs:    make(chan persistJob, persistQueueSize),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// submit queues job. It reports false after close.
func (p *persister) submit(job persistJob) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.jobs <- job
	return true
}

// close stops accepting jobs and waits for the queue to drain.
func (p *persister) close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	<-p.done
}

func (p *persister) run() {
	defer close(p.done)
	for job := range p.jobs {
		p.handle(job)
	}
}

func (p *persister) handle(job persistJob) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	switch job.kind {
	case jobAdopt:
		p.current = job.id

	case jobSave:
		p.current = ""
		rec, err := p.store.Save(ctx, job.request)
		if err != nil {
			p.logger.Warn("history save failed", "user", job.user, "error", err)
			p.onError("save", err)
			return
		}
		p.current = rec.ID
		p.logger.Debug("history saved", "id", rec.ID, "suggestions", len(rec.Suggestions))
		p.onSaved(rec.ID)

	case jobUpdate:
		if p.current == "" {
			p.logger.Debug("history update skipped: no saved record")
			return
		}
		if err := p.store.Update(ctx, job.user, p.current, job.suggestions, job.accepted); err != nil {
			p.logger.Warn("history update failed", "id", p.current, "error", err)
			p.onError("update", err)
			return
		}
		p.logger.Debug("history updated", "id", p.current, "accepted", job.accepted)
	}
}
