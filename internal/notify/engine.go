package notify

import (
	"container/heap"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mediflow/mediflow/internal/trigger"
)

var (
	ErrUnknownHandle      = errors.New("notify: unknown booking handle")
	ErrInvalidTriggerSpec = errors.New("notify: invalid trigger spec")
	ErrEngineStopped      = errors.New("notify: engine stopped")
)

type booking struct {
	handle    string
	spec      trigger.Spec
	content   Content
	tag       Tag
	nextAt    time.Time
	cancelled bool
}

type bookingQueue []*booking

func (q bookingQueue) Len() int { return len(q) }

func (q bookingQueue) Less(i, j int) bool {
	return q[i].nextAt.Before(q[j].nextAt)
}

func (q bookingQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
}

func (q *bookingQueue) Push(x any) {
	*q = append(*q, x.(*booking))
}

func (q *bookingQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[0 : n-1]
	return item
}

// Engine is an in-process notification facility: a timer-driven priority
// queue of bookings. Repeating bookings are re-enqueued after each fire.
// Deliveries are pushed to a buffered channel; a slow consumer drops
// deliveries rather than stalling the timer loop.
type Engine struct {
	mu      sync.Mutex
	queue   bookingQueue
	live    map[string]*booking
	now     func() time.Time
	out     chan Delivery
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
}

func NewEngine(bufferSize int) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Engine{
		queue:  make(bookingQueue, 0),
		live:   make(map[string]*booking),
		now:    time.Now,
		out:    make(chan Delivery, bufferSize),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (e *Engine) C() <-chan Delivery {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	heap.Init(&e.queue)
	go e.loop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.stopped = true
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

func (e *Engine) Schedule(req Request) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return "", ErrEngineStopped
	}

	first, err := nextFire(req.Trigger, e.now())
	if err != nil {
		return "", err
	}

	b := &booking{
		handle:  uuid.NewString(),
		spec:    req.Trigger,
		content: req.Content,
		tag:     req.Tag,
		nextAt:  first,
	}
	e.live[b.handle] = b
	heap.Push(&e.queue, b)
	e.signalWakeup()
	return b.handle, nil
}

func (e *Engine) Cancel(handle string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.live[handle]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, handle)
	}
	b.cancelled = true
	delete(e.live, handle)
	e.signalWakeup()
	return nil
}

func (e *Engine) Scheduled() []Booking {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Booking, 0, len(e.live))
	for _, b := range e.live {
		out = append(out, Booking{
			Handle:  b.handle,
			Trigger: b.spec,
			Content: b.content,
			Tag:     b.tag,
			NextAt:  b.nextAt,
		})
	}
	return out
}

// FireNow delivers immediately, bypassing the queue. The stopped check and
// the send happen under the same lock that guards closeOut, so a concurrent
// Stop cannot close the delivery channel between them.
func (e *Engine) FireNow(content Content, tag Tag) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrEngineStopped
	}
	e.deliver(Delivery{Content: content, Tag: tag, FiredAt: e.now()})
	return nil
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer e.closeOut()

	var timer *time.Timer
	for {
		next, hasNext := e.peek()
		if !hasNext {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				return
			}
		}

		wait := next.Sub(e.now())
		if wait < 0 {
			wait = 0
		}
		timer = resetTimer(timer, wait)

		select {
		case <-timer.C:
			for _, d := range e.popDue(e.now()) {
				e.deliver(d)
			}
		case <-e.wakeup:
			continue
		case <-e.stopCh:
			if timer != nil {
				stopTimer(timer)
			}
			return
		}
	}
}

func (e *Engine) closeOut() {
	e.mu.Lock()
	defer e.mu.Unlock()
	close(e.out)
}

func (e *Engine) deliver(d Delivery) {
	select {
	case e.out <- d:
	default:
		atomic.AddUint64(&e.dropped, 1)
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) peek() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for len(e.queue) > 0 {
		if e.queue[0].cancelled {
			heap.Pop(&e.queue)
			continue
		}
		return e.queue[0].nextAt, true
	}
	return time.Time{}, false
}

func (e *Engine) popDue(now time.Time) []Delivery {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Delivery, 0)
	for len(e.queue) > 0 {
		next := e.queue[0]
		if next.cancelled {
			heap.Pop(&e.queue)
			continue
		}
		if next.nextAt.After(now) {
			break
		}
		b := heap.Pop(&e.queue).(*booking)
		out = append(out, Delivery{
			Handle:  b.handle,
			Content: b.content,
			Tag:     b.tag,
			FiredAt: now,
		})
		if b.spec.Kind == trigger.KindOnce {
			delete(e.live, b.handle)
			continue
		}
		// Repeating booking: compute the next occurrence and re-enqueue.
		next2, err := nextFireAfter(b.spec, b.nextAt, now)
		if err != nil {
			delete(e.live, b.handle)
			continue
		}
		b.nextAt = next2
		heap.Push(&e.queue, b)
	}
	return out
}

// nextFire computes the first wall-clock fire time for a freshly scheduled
// spec, strictly after now.
func nextFire(spec trigger.Spec, now time.Time) (time.Time, error) {
	switch spec.Kind {
	case trigger.KindOnce:
		if spec.At.IsZero() {
			return time.Time{}, fmt.Errorf("%w: once spec without fire time", ErrInvalidTriggerSpec)
		}
		return spec.At, nil
	case trigger.KindDaily:
		slot := time.Date(now.Year(), now.Month(), now.Day(), spec.Hour, spec.Minute, 0, 0, now.Location())
		if !slot.After(now) {
			slot = slot.AddDate(0, 0, 1)
		}
		return slot, nil
	case trigger.KindWeekly:
		want := trigger.WeekdayFromHost(spec.Weekday)
		if want < time.Sunday || want > time.Saturday {
			return time.Time{}, fmt.Errorf("%w: weekday index %d", ErrInvalidTriggerSpec, spec.Weekday)
		}
		slot := time.Date(now.Year(), now.Month(), now.Day(), spec.Hour, spec.Minute, 0, 0, now.Location())
		for slot.Weekday() != want || !slot.After(now) {
			slot = slot.AddDate(0, 0, 1)
		}
		return slot, nil
	case trigger.KindInterval:
		if spec.Every <= 0 {
			return time.Time{}, fmt.Errorf("%w: non-positive interval", ErrInvalidTriggerSpec)
		}
		anchor := spec.StartsAt
		if anchor.IsZero() {
			anchor = now
		}
		next := anchor.Add(spec.Every)
		for !next.After(now) {
			next = next.Add(spec.Every)
		}
		return next, nil
	default:
		return time.Time{}, fmt.Errorf("%w: kind %q", ErrInvalidTriggerSpec, spec.Kind)
	}
}

// nextFireAfter computes the occurrence following a fire at last, advanced
// in whole periods past now. A booking that slept through several periods
// re-enters the queue in the future instead of burning through the backlog
// one fire per wake.
func nextFireAfter(spec trigger.Spec, last, now time.Time) (time.Time, error) {
	var step func(time.Time) time.Time
	switch spec.Kind {
	case trigger.KindDaily:
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	case trigger.KindWeekly:
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }
	case trigger.KindInterval:
		if spec.Every <= 0 {
			return time.Time{}, fmt.Errorf("%w: non-positive interval", ErrInvalidTriggerSpec)
		}
		step = func(t time.Time) time.Time { return t.Add(spec.Every) }
	default:
		return time.Time{}, fmt.Errorf("%w: kind %q does not repeat", ErrInvalidTriggerSpec, spec.Kind)
	}
	next := step(last)
	for !next.After(now) {
		next = step(next)
	}
	return next, nil
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
