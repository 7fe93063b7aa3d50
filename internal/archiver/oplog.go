package archiver

import (
	"crypto/rand"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// OpKind labels the orchestrator operation an Op records.
type OpKind string

const (
	OpArchive        OpKind = "archive"
	OpDelete         OpKind = "delete"
	OpArchiveTask    OpKind = "archive_task"
	OpArchiveHeading OpKind = "archive_heading"
)

// Op is one recorded orchestrator invocation.
type Op struct {
	ID         string    `json:"op_id"`
	Kind       OpKind    `json:"kind"`
	Source     string    `json:"source"`
	Report     string    `json:"report,omitempty"`
	Error      string    `json:"error,omitempty"`
	Done       bool      `json:"done"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// OpLog is a thread-safe in-memory record of recent operations with TTL
// eviction.
type OpLog struct {
	mu  sync.Mutex
	ops map[string]*Op
	ttl time.Duration
}

func NewOpLog(ttl time.Duration) *OpLog {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &OpLog{ops: make(map[string]*Op), ttl: ttl}
}

// Begin records the start of an operation and returns its entry.
func (l *OpLog) Begin(kind OpKind, source string) *Op {
	op := &Op{
		ID:        newULID(),
		Kind:      kind,
		Source:    source,
		StartedAt: timeNow(),
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops[op.ID] = op
	return op
}

// Finish records the outcome of an operation.
func (l *OpLog) Finish(op *Op, report string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	op.Report = report
	if err != nil {
		op.Error = err.Error()
	}
	op.Done = true
	op.FinishedAt = timeNow()
}

// Get returns a copy of the operation with the given ID.
func (l *OpLog) Get(id string) (Op, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	op, ok := l.ops[id]
	if !ok {
		return Op{}, false
	}
	return *op, true
}

// Recent returns up to limit operations, newest first.
func (l *OpLog) Recent(limit int) []Op {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Op, 0, len(l.ops))
	for _, op := range l.ops {
		out = append(out, *op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Cleanup evicts finished operations older than the TTL.
func (l *OpLog) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := timeNow()
	for id, op := range l.ops {
		if op.Done && now.Sub(op.FinishedAt) > l.ttl {
			delete(l.ops, id)
		}
	}
}

type randReader struct{}

func (randReader) Read(p []byte) (int, error) { return rand.Read(p) }

func newULID() string {
	t := ulid.Timestamp(timeNow())
	entropy := ulid.Monotonic(randReader{}, 0)
	id, err := ulid.New(t, entropy)
	if err != nil {
		return ulid.MustNew(t, randReader{}).String()
	}
	return id.String()
}
