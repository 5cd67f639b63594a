package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/imgjail/imgjail/pkg/config"
)

func TestHashDiffersOnFontconfigFlag(t *testing.T) {
	a := config.LoaderConfig{Exec: "/bin/x", Fontconfig: false}
	b := config.LoaderConfig{Exec: "/bin/x", Fontconfig: true}
	assert.NotEqual(t, a.Hash("", "bwrap"), b.Hash("", "bwrap"))
}

func TestSweepEvictsOnlyIdlePastRetention(t *testing.T) {
	p := New(nil, time.Millisecond)
	// proc is nil on these synthetic entries: Process.Close() tolerates a
	// nil receiver, so sweep() can run its real eviction path against them
	// without needing a live worker process.
	e := &entry{key: "k", users: 0, lastIdle: time.Now().Add(-time.Hour)}
	busy := &entry{key: "k", users: 1, lastIdle: time.Now()}
	p.buckets["k"] = []*entry{e, busy}

	assert.NotPanics(t, p.sweep)

	assert.Len(t, p.buckets["k"], 1)
	assert.Equal(t, busy, p.buckets["k"][0])
	assert.True(t, e.disconnected)
}
