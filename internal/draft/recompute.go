package draft

import (
	"sync"
	"time"

	"github.com/Simplici0/o.quote/internal/pricing"
)

// PublishFunc receives a computed result together with the snapshot it was
// computed from.
type PublishFunc func(pricing.QuoteInput, pricing.Result)

// Recomputer defers recomputation until edits settle. Only the most recent
// submitted snapshot is computed; a result whose snapshot was superseded while
// computing is dropped.
type Recomputer struct {
	engine  *pricing.Engine
	delay   time.Duration
	publish PublishFunc

	mu     sync.Mutex
	latest *pricing.QuoteInput

	kick  chan struct{}
	flush chan chan struct{}
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once
}

// NewRecomputer starts the background loop. Call Close to stop it.
func NewRecomputer(engine *pricing.Engine, delay time.Duration, publish PublishFunc) *Recomputer {
	r := &Recomputer{
		engine:  engine,
		delay:   delay,
		publish: publish,
		kick:    make(chan struct{}, 1),
		flush:   make(chan chan struct{}),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go r.loop()
	return r
}

// Submit replaces the pending snapshot with in.
func (r *Recomputer) Submit(in pricing.QuoteInput) {
	snap := in.Clone()
	r.mu.Lock()
	r.latest = &snap
	r.mu.Unlock()

	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Flush computes the pending snapshot without waiting for the delay and
// returns after it was published, or dropped because a newer one arrived.
// It returns at once when the recomputer is closed.
func (r *Recomputer) Flush() {
	ack := make(chan struct{})
	select {
	case r.flush <- ack:
		<-ack
	case <-r.done:
	}
}

// Close stops the loop and waits for it to exit. A pending snapshot is dropped.
func (r *Recomputer) Close() {
	r.once.Do(func() { close(r.quit) })
	<-r.done
}

func (r *Recomputer) loop() {
	defer close(r.done)

	for {
		var ack chan struct{}
		select {
		case <-r.quit:
			return
		case ack = <-r.flush:
		case <-r.kick:
			var ok bool
			if ack, ok = r.settle(); !ok {
				return
			}
		}

		r.run()
		if ack != nil {
			close(ack)
		}
	}
}

// settle waits until no submission arrived for delay, or until a flush is
// requested. It reports false when the recomputer is closed meanwhile.
func (r *Recomputer) settle() (chan struct{}, bool) {
	if r.delay <= 0 {
		return nil, true
	}
	timer := time.NewTimer(r.delay)
	defer timer.Stop()
	for {
		select {
		case <-r.quit:
			return nil, false
		case ack := <-r.flush:
			return ack, true
		case <-r.kick:
			timer.Reset(r.delay)
		case <-timer.C:
			return nil, true
		}
	}
}

// run computes the latest snapshot and publishes it unless it went stale.
func (r *Recomputer) run() {
	in := r.take()
	if in == nil {
		return
	}
	res := r.engine.Compute(*in)

	r.mu.Lock()
	stale := r.latest != nil
	r.mu.Unlock()
	if stale {
		return
	}
	r.publish(*in, res)
}

func (r *Recomputer) take() *pricing.QuoteInput {
	r.mu.Lock()
	defer r.mu.Unlock()
	in := r.latest
	r.latest = nil
	return in
}
