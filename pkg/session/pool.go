package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ibdm-project/ibdm/pkg/engine"
	"github.com/ibdm-project/ibdm/pkg/enginelog"
	"github.com/ibdm-project/ibdm/pkg/istate"
)

// PoolConfig bounds how a Pool schedules concurrent turns (spec §5
// "sessions share only the immutable DomainModel and RuleSet" — the bound
// exists to cap host resource usage, not to serialize unrelated sessions).
type PoolConfig struct {
	// WorkerCount is the number of goroutines processing turns concurrently.
	WorkerCount int
	// QueueDepth is how many submitted turns may wait for a free worker
	// before Submit blocks.
	QueueDepth int
	// TurnTimeout bounds a single Engine.Turn call (spec §5 "Adapter
	// timeouts are fatal to that turn").
	TurnTimeout time.Duration
}

// DefaultPoolConfig returns reasonable out-of-the-box pool sizing.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		WorkerCount: 8,
		QueueDepth:  64,
		TurnTimeout: 10 * time.Second,
	}
}

type turnJob struct {
	ctx       context.Context
	sessionID string
	utterance string
	resultCh  chan turnResult
}

type turnResult struct {
	state      istate.InformationState
	utterances []string
	err        error
}

// Pool runs Engine.Turn calls across a fixed-size worker goroutine pool, so
// a host serving many concurrent dialogue sessions never spawns an
// unbounded number of in-flight turns (grounded on the teacher's
// pkg/queue.WorkerPool, adapted from fire-and-forget analysis jobs to
// synchronous request/response turns).
type Pool struct {
	manager *Manager
	engine  *engine.Engine
	config  PoolConfig
	log     *enginelog.Logger

	jobs     chan turnJob
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPool builds a Pool over mgr and eng. Call Start before Submit.
func NewPool(mgr *Manager, eng *engine.Engine, cfg PoolConfig, log *enginelog.Logger) *Pool {
	if log == nil {
		log = enginelog.New(nil)
	}
	return &Pool{
		manager: mgr,
		engine:  eng,
		config:  cfg,
		log:     log,
		jobs:    make(chan turnJob, cfg.QueueDepth),
	}
}

// Start spawns the pool's worker goroutines. It is safe to call only once.
func (p *Pool) Start() {
	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.runWorker()
	}
}

// Stop closes the job queue and waits for every worker to finish its
// current turn. Turns already submitted but not yet picked up are still
// processed before workers exit.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.jobs) })
	p.wg.Wait()
}

func (p *Pool) runWorker() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.process(job)
	}
}

func (p *Pool) process(job turnJob) {
	sess := p.manager.GetOrCreate(job.sessionID)

	turnCtx, cancel := context.WithTimeout(job.ctx, p.config.TurnTimeout)
	sess.setCancelFunc(cancel)
	sess.setStatus(StatusProcessing)
	defer func() {
		cancel()
		sess.setCancelFunc(nil)
	}()

	next, utterances, err := p.engine.Turn(turnCtx, sess.State(), job.utterance)
	if err != nil {
		sess.setError(err)
		sess.setStatus(StatusIdle)
		job.resultCh <- turnResult{err: err}
		return
	}

	sess.setState(next)
	sess.setStatus(StatusIdle)
	job.resultCh <- turnResult{state: next, utterances: utterances}
}

// Submit enqueues one turn for sessionID and blocks until it completes, the
// queue is full and ctx is done, or ctx is cancelled while the turn runs.
// The session is created if it does not already exist.
func (p *Pool) Submit(ctx context.Context, sessionID, utterance string) (istate.InformationState, []string, error) {
	resultCh := make(chan turnResult, 1)
	job := turnJob{ctx: ctx, sessionID: sessionID, utterance: utterance, resultCh: resultCh}

	select {
	case p.jobs <- job:
	case <-ctx.Done():
		return istate.InformationState{}, nil, ctx.Err()
	}

	select {
	case res := <-resultCh:
		return res.state, res.utterances, res.err
	case <-ctx.Done():
		return istate.InformationState{}, nil, ctx.Err()
	}
}

// CancelSession cancels sessionID's in-flight turn, if any is running.
func (p *Pool) CancelSession(sessionID string) (bool, error) {
	sess, err := p.manager.Get(sessionID)
	if err != nil {
		return false, err
	}
	return sess.Cancel(), nil
}

// Health reports pool-wide status for a host's health/readiness endpoint.
type Health struct {
	WorkerCount  int
	QueueDepth   int
	QueueLength  int
	SessionCount int
}

// Health returns the pool's current load.
func (p *Pool) Health() Health {
	return Health{
		WorkerCount:  p.config.WorkerCount,
		QueueDepth:   p.config.QueueDepth,
		QueueLength:  len(p.jobs),
		SessionCount: len(p.manager.List()),
	}
}

// String implements fmt.Stringer for convenient logging.
func (h Health) String() string {
	return fmt.Sprintf("workers=%d queue=%d/%d sessions=%d", h.WorkerCount, h.QueueLength, h.QueueDepth, h.SessionCount)
}
