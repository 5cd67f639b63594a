// Package pool keeps worker processes alive across calls, keyed by the
// spawn configuration that would otherwise force a fresh process per call.
//
// Grounded on spec.md section 4.6 (Pool) for the bucket/eviction algorithm
// and on pkg/tasks/tasks.go's stop-channel pattern for the retention timer
// that arms when a process's last usage tracker is dropped.
package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"

	"github.com/imgjail/imgjail/pkg/config"
	"github.com/imgjail/imgjail/pkg/process"
	"github.com/imgjail/imgjail/pkg/sandbox"
)

// DefaultRetention is how long an idle process is kept around before
// eviction, matching spec.md's default loader_retention_time.
const DefaultRetention = 30 * time.Second

// MaxParallelOperations caps concurrent callers attributable to a single
// process handle.
const MaxParallelOperations = 4

// entry is one pooled process plus its bookkeeping.
type entry struct {
	key          string
	proc         *process.Process
	users        int
	disconnected bool
	stopRetain   chan struct{}
	lastIdle     time.Time
}

// Handle is a caller's lease on a pooled process; call Release when done.
type Handle struct {
	pool *Pool
	key  string
	e    *entry
}

// Process returns the underlying worker process for this lease.
func (h *Handle) Process() *process.Process {
	return h.e.proc
}

// Release decrements the entry's active-user count and, when it reaches
// zero, arms the retention timer for eventual eviction.
func (h *Handle) Release() {
	h.pool.release(h.key, h.e)
}

// Pool is a bucket map of pooled processes, one instance for loaders and
// one for editors as described in spec.md section 4.6.
type Pool struct {
	log       *logrus.Entry
	retention time.Duration

	mu      deadlock.Mutex
	buckets map[string][]*entry
}

// New creates an empty pool. retention <= 0 uses DefaultRetention.
func New(log *logrus.Entry, retention time.Duration) *Pool {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Pool{
		log:       log,
		retention: retention,
		buckets:   make(map[string][]*entry),
	}
}

// Get acquires a process handle for entryCfg under mechanism and baseDir,
// reusing an existing process when the bucket has room, otherwise spawning
// a new one. The pool lock is held only while selecting the bucket entry,
// never across the worker spawn or any RPC call.
func (p *Pool) Get(ctx context.Context, entryCfg config.LoaderConfig, mechanism sandbox.Mechanism, baseDir string) (*Handle, error) {
	key := fmt.Sprintf("%+v", entryCfg.Hash(baseDir, mechanism.String()))

	p.mu.Lock()
	bucket := p.buckets[key]
	for _, e := range bucket {
		if e.disconnected || e.users >= MaxParallelOperations {
			continue
		}
		e.users++
		if e.stopRetain != nil {
			close(e.stopRetain)
			e.stopRetain = nil
		}
		p.mu.Unlock()
		return &Handle{pool: p, key: key, e: e}, nil
	}
	p.mu.Unlock()

	resolved := sandbox.Resolve(ctx, mechanism)
	proc, err := process.Spawn(ctx, p.log, entryCfg, resolved)
	if err != nil {
		return nil, err
	}

	e := &entry{key: key, proc: proc, users: 1}

	p.mu.Lock()
	p.buckets[key] = append(p.buckets[key], e)
	p.mu.Unlock()

	return &Handle{pool: p, key: key, e: e}, nil
}

func (p *Pool) release(key string, e *entry) {
	p.mu.Lock()
	e.users--
	if e.users < 0 {
		e.users = 0
	}
	idle := e.users == 0
	e.lastIdle = time.Now()
	if idle {
		e.stopRetain = make(chan struct{})
		stop := e.stopRetain
		p.mu.Unlock()
		go p.armRetentionTimer(key, e, stop)
		return
	}
	p.mu.Unlock()
}

// armRetentionTimer waits retention, then asks the pool to sweep the
// bucket; it exits early if stop is closed by a subsequent Get reusing e.
func (p *Pool) armRetentionTimer(key string, e *entry, stop chan struct{}) {
	timer := time.NewTimer(p.retention)
	defer timer.Stop()

	select {
	case <-stop:
		return
	case <-timer.C:
	}

	p.sweep()
}

// sweep walks every bucket and removes processes with zero active users and
// idle time past retention, matching spec.md's "the pool iterates its
// buckets" eviction description. The map is re-locked here, so
// UsageTracker drop and pool cleanup are totally ordered as spec.md's
// concurrency section requires.
func (p *Pool) sweep() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for key, bucket := range p.buckets {
		kept := bucket[:0]
		for _, e := range bucket {
			if e.users == 0 && now.Sub(e.lastIdle) >= p.retention {
				_ = e.proc.Close()
				e.disconnected = true
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(p.buckets, key)
		} else {
			p.buckets[key] = kept
		}
	}
}

// Shutdown closes every pooled process, used for clean host teardown.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, bucket := range p.buckets {
		for _, e := range bucket {
			_ = e.proc.Close()
		}
		delete(p.buckets, key)
	}
}
