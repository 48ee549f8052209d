package dispatch

import (
	"context"
	"sync"
	"time"
)

// Poller periodically checks session validity through the dispatcher. A
// slow check never overlaps the next tick, so results cannot arrive out of
// order and act on stale state.
type Poller struct {
	interval time.Duration
	check    func(ctx context.Context) error
	onResult func(err error)

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

// NewPoller creates a poller that runs check every interval and reports
// each outcome to onResult. onResult may be nil.
func NewPoller(interval time.Duration, check func(ctx context.Context) error, onResult func(err error)) *Poller {
	return &Poller{interval: interval, check: check, onResult: onResult}
}

// Start begins polling in a background goroutine. Starting a running
// poller is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.running = true

	go p.loop(ctx)
}

func (p *Poller) loop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick runs one check. The loop blocks until the check returns, so checks
// never overlap; the ticker simply drops the ticks that pass in the meantime.
func (p *Poller) tick(ctx context.Context) {
	err := p.check(ctx)

	p.mu.Lock()
	stopped := !p.running
	p.mu.Unlock()

	// A result landing after Stop is stale and must not surface.
	if stopped || ctx.Err() != nil {
		return
	}
	if p.onResult != nil {
		p.onResult(err)
	}
}

// Stop halts polling. In-flight checks are cancelled and their results
// discarded. Stopping a stopped poller is a no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	p.cancel()
}
