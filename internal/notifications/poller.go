package notifications

import (
	"context"
	"sync"
	"time"

	"opcdiary/internal/observability"
)

// DefaultPollInterval is the time between two scans.
const DefaultPollInterval = 2 * time.Second

// Source delivers view-models for one identity. Consumers depend on this
// rather than on Poller so a push-based source can replace it.
type Source interface {
	// Start begins producing view-models for identity, replacing any earlier
	// identity. It returns once the first view-model is available.
	Start(ctx context.Context, identity Identity)
	// Stop ends production. Subscribers' channels are closed.
	Stop()
	// Latest returns the most recent view-model.
	Latest() ViewModel
	// Subscribe returns a channel that receives each changed view-model and
	// a function that cancels the subscription.
	Subscribe() (<-chan ViewModel, func())
}

// Poller is a Source that rescans the store on a fixed interval.
type Poller struct {
	scanner  *Scanner
	interval time.Duration

	mu       sync.Mutex
	identity Identity
	latest   ViewModel
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
	nudge    chan struct{}
	subs     map[chan ViewModel]struct{}
}

var _ Source = (*Poller)(nil)

// NewPoller returns a stopped Poller. A non-positive interval uses
// DefaultPollInterval.
func NewPoller(scanner *Scanner, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		scanner:  scanner,
		interval: interval,
		latest:   emptyViewModel(),
		subs:     make(map[chan ViewModel]struct{}),
	}
}

func (p *Poller) Start(ctx context.Context, identity Identity) {
	p.Stop()

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.mu.Lock()
	p.identity = identity
	p.running = true
	p.cancel = cancel
	p.done = make(chan struct{})
	p.nudge = make(chan struct{}, 1)
	done, nudge := p.done, p.nudge
	p.mu.Unlock()

	observability.ActivePollers.Inc()
	p.tick(loopCtx, identity)
	go p.loop(loopCtx, identity, done, nudge)
}

func (p *Poller) loop(ctx context.Context, identity Identity, done chan struct{}, nudge <-chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx, identity)
		case <-nudge:
			p.tick(ctx, identity)
		}
	}
}

// tick runs one scan and publishes the result when it differs from the last.
func (p *Poller) tick(ctx context.Context, identity Identity) {
	observability.PollTicks.Inc()
	vm := p.scanner.Scan(ctx, identity)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running || p.identity != identity || vm.Equal(p.latest) {
		return
	}
	p.latest = vm
	for ch := range p.subs {
		publish(ch, vm)
	}
}

// publish delivers vm, replacing an undelivered older value.
func publish(ch chan ViewModel, vm ViewModel) {
	select {
	case ch <- vm:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- vm:
	default:
	}
}

// Nudge asks for a scan ahead of the next tick. It never blocks.
func (p *Poller) Nudge() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	select {
	case p.nudge <- struct{}{}:
	default:
	}
}

// Identity returns the identity being polled and whether the poller runs.
func (p *Poller) Identity() (Identity, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.identity, p.running
}

func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel, done := p.cancel, p.done
	for ch := range p.subs {
		close(ch)
		delete(p.subs, ch)
	}
	p.latest = emptyViewModel()
	p.identity = Identity{}
	p.mu.Unlock()

	cancel()
	<-done
	observability.ActivePollers.Dec()
}

func (p *Poller) Latest() ViewModel {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

func (p *Poller) Subscribe() (<-chan ViewModel, func()) {
	ch := make(chan ViewModel, 1)
	p.mu.Lock()
	if p.running {
		p.subs[ch] = struct{}{}
		ch <- p.latest
	} else {
		close(ch)
	}
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if _, ok := p.subs[ch]; ok {
				delete(p.subs, ch)
				close(ch)
			}
		})
	}
}
