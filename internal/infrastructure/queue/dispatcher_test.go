package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hockeyunion/membership/internal/core/ports"
)

type recordingProvisioner struct {
	mu   sync.Mutex
	seen map[string][]string
	fail string
	done chan struct{}
}

func (p *recordingProvisioner) Process(_ context.Context, in ports.ProvisionInput) error {
	p.mu.Lock()
	p.seen[in.Subject] = append(p.seen[in.Subject], in.Name)
	p.mu.Unlock()
	p.done <- struct{}{}
	if in.Subject == p.fail {
		return errors.New("boom")
	}
	return nil
}

func TestDispatcher_PreservesPerSubjectOrder(t *testing.T) {
	prov := &recordingProvisioner{seen: map[string][]string{}, fail: "u2", done: make(chan struct{}, 16)}
	d := NewDispatcher(3, prov, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	d.Enqueue(ports.ProvisionInput{Subject: "u1", Name: "a"})
	d.Enqueue(ports.ProvisionInput{Subject: "u2", Name: "x"})
	d.Enqueue(ports.ProvisionInput{Subject: "u1", Name: "b"})
	d.Enqueue(ports.ProvisionInput{Subject: "u1", Name: "c"})

	for i := 0; i < 4; i++ {
		select {
		case <-prov.done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}

	prov.mu.Lock()
	defer prov.mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, prov.seen["u1"])
	assert.Equal(t, []string{"x"}, prov.seen["u2"])
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(0, nil, zerolog.Nop())
	require.Len(t, d.workers, defaultWorkers)

	first := d.shardIndex("subject-42")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, d.shardIndex("subject-42"))
	}
	assert.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, defaultWorkers)
}

func TestDispatcher_EnqueueDropsWhenShardIsFull(t *testing.T) {
	// Workers are never started, so nothing drains the buffer.
	d := NewDispatcher(1, nil, zerolog.Nop())

	returned := make(chan struct{})
	go func() {
		for i := 0; i < channelBuffer+5; i++ {
			d.Enqueue(ports.ProvisionInput{Subject: "u1"})
		}
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Enqueue blocked on a full shard")
	}
	assert.Len(t, d.workers[0], channelBuffer)
}
