package hub

import (
	"container/heap"
	"context"
	"math/rand"
	"sync"
	"time"
)

// PollReq asks the service loop to sample one input port.
type PollReq struct {
	Port  string
	Every time.Duration
}

type schedule struct {
	port   string
	due    time.Time
	every  time.Duration
	jitter time.Duration
	index  int // position in the heap
}

// schedules is a min-heap on due time.
type schedules []*schedule

func (q schedules) Len() int           { return len(q) }
func (q schedules) Less(i, j int) bool { return q[i].due.Before(q[j].due) }
func (q schedules) Swap(i, j int)      { q[i], q[j] = q[j], q[i]; q[i].index = i; q[j].index = j }
func (q *schedules) Push(x any)        { s := x.(*schedule); s.index = len(*q); *q = append(*q, s) }
func (q *schedules) Pop() any {
	old := *q
	s := old[len(old)-1]
	*q = old[:len(old)-1]
	return s
}

// Poller keeps one schedule per port and emits PollReq when each falls due.
// Emission never blocks: a request is dropped if the consumer is busy.
type Poller struct {
	mu     sync.Mutex
	byPort map[string]*schedule
	queue  schedules
	rng    *rand.Rand
	wake   chan struct{}
	out    chan<- PollReq
}

func NewPoller(out chan<- PollReq) *Poller {
	return &Poller{
		byPort: make(map[string]*schedule),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		wake:   make(chan struct{}, 1),
		out:    out,
	}
}

// Upsert adds or re-arms the schedule for port. Every arm, the first one
// included, waits every plus a random jitter in [0..jitter].
func (p *Poller) Upsert(port string, every, jitter time.Duration) {
	if every <= 0 || port == "" {
		return
	}
	p.mu.Lock()
	s := p.byPort[port]
	if s == nil {
		s = &schedule{port: port}
		p.byPort[port] = s
		heap.Push(&p.queue, s)
	}
	s.every, s.jitter = every, max(jitter, 0)
	s.due = time.Now().Add(p.jittered(s.every, s.jitter))
	heap.Fix(&p.queue, s.index)
	p.mu.Unlock()
	p.kick()
}

func (p *Poller) Stop(port string) {
	p.mu.Lock()
	if s := p.byPort[port]; s != nil {
		heap.Remove(&p.queue, s.index)
		delete(p.byPort, port)
	}
	p.mu.Unlock()
	p.kick()
}

// Len reports the number of active schedules.
func (p *Poller) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byPort)
}

func (p *Poller) Run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		req, wait, due := p.next(time.Now())
		if due {
			select {
			case p.out <- req:
			default:
			}
			continue
		}

		var fire <-chan time.Time // nil: nothing scheduled
		if wait > 0 {
			timer.Reset(wait)
			fire = timer.C
		}
		select {
		case <-ctx.Done():
			return
		case <-p.wake:
			timer.Stop()
		case <-fire:
		}
	}
}

// next re-arms and returns the earliest schedule if it is due. Otherwise it
// reports the time left until it, or 0 when nothing is scheduled.
func (p *Poller) next(now time.Time) (PollReq, time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return PollReq{}, 0, false
	}
	s := p.queue[0]
	if wait := s.due.Sub(now); wait > 0 {
		return PollReq{}, wait, false
	}
	s.due = now.Add(p.jittered(s.every, s.jitter))
	heap.Fix(&p.queue, 0)
	return PollReq{Port: s.port, Every: s.every}, 0, true
}

func (p *Poller) kick() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Poller) jittered(every, jitter time.Duration) time.Duration {
	if jitter <= 0 {
		return every
	}
	return every + time.Duration(p.rng.Int63n(int64(jitter)+1))
}
