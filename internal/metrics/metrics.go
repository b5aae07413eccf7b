package metrics

import (
	"sync/atomic"
	"time"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Add(n uint64) {
	atomic.AddUint64(&c.value, n)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Notifications counts what happened to gateway notifications.
type Notifications struct {
	Received     Counter
	Malformed    Counter
	Duplicates   Counter
	Authorized   Counter
	Rejected     Counter
	Transitioned Counter
	Failed       Counter

	verifyNanos Counter
	verifyCalls Counter
}

// ObserveVerification records the duration of one gateway round trip.
func (n *Notifications) ObserveVerification(d time.Duration) {
	n.verifyNanos.Add(uint64(d.Nanoseconds()))
	n.verifyCalls.Inc()
}

type Snapshot struct {
	Received          uint64  `json:"received"`
	Malformed         uint64  `json:"malformed"`
	Duplicates        uint64  `json:"duplicates"`
	Authorized        uint64  `json:"authorized"`
	Rejected          uint64  `json:"rejected"`
	Transitioned      uint64  `json:"transitioned"`
	Failed            uint64  `json:"failed"`
	AvgVerificationMS float64 `json:"avg_verification_ms"`
}

func (n *Notifications) Snapshot() Snapshot {
	s := Snapshot{
		Received:     n.Received.Load(),
		Malformed:    n.Malformed.Load(),
		Duplicates:   n.Duplicates.Load(),
		Authorized:   n.Authorized.Load(),
		Rejected:     n.Rejected.Load(),
		Transitioned: n.Transitioned.Load(),
		Failed:       n.Failed.Load(),
	}
	if calls := n.verifyCalls.Load(); calls > 0 {
		s.AvgVerificationMS = float64(n.verifyNanos.Load()) / float64(calls) / float64(time.Millisecond)
	}
	return s
}
