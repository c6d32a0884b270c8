package generate

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// autoClock is a fake clock whose After advances time by d and fires at once,
// so rate windows and backoff cost no wall time.
type autoClock struct {
	mu  sync.Mutex
	now time.Time
}

func newAutoClock() *autoClock {
	return &autoClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *autoClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *autoClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

type testEntity struct {
	id       string
	priority int
	children []Entity
}

func (e testEntity) ID() string         { return e.id }
func (e testEntity) Priority() int      { return e.priority }
func (e testEntity) Children() []Entity { return e.children }

// family builds a parent named id with children id.c1..id.cN
func family(id string, n int) testEntity {
	p := testEntity{id: id}
	for i := 1; i <= n; i++ {
		p.children = append(p.children, testEntity{id: fmt.Sprintf("%s.c%d", id, i)})
	}
	return p
}

func parents(ps ...testEntity) []Parent {
	out := make([]Parent, len(ps))
	for i, p := range ps {
		out[i] = p
	}
	return out
}

// idBuilder gives every entity a context naming only its identity
var idBuilder = ContextBuilderFunc(func(_ context.Context, _ Kind, e Entity) (Context, error) {
	return MapContext{"id": e.ID()}, nil
})

func idOf(input Context) string {
	id, _ := input.(MapContext)["id"].(string)
	return id
}

// recorder is a Sink and an execution log shared by a test's callbacks
type recorder struct {
	mu       sync.Mutex
	executed []string
	saved    map[string]Result
	attempts map[string]int
}

func newRecorder() *recorder {
	return &recorder{saved: map[string]Result{}, attempts: map[string]int{}}
}

func (r *recorder) Save(_ context.Context, id string, result Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved[id] = result
	return nil
}

func (r *recorder) record(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executed = append(r.executed, id)
	r.attempts[id]++
	return r.attempts[id]
}

func (r *recorder) wasSaved(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.saved[id]
	return ok
}

func (r *recorder) executions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.executed...)
}

// succeed records the call and echoes the item identity
func (r *recorder) succeed() ExecutorFunc {
	return func(_ context.Context, input Context) (Result, error) {
		id := idOf(input)
		r.record(id)
		return Result{"description": "generated for " + id}, nil
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 1000
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, exec Executor, sink Sink, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithLogger(zap.NewNop().Sugar())}, opts...)
	e, err := NewEngine(cfg, idBuilder, exec, sink, opts...)
	require.NoError(t, err)
	return e
}
