package logger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	if logs, ok := payload.([]AggregatedLogEntry); ok {
		p.batches = append(p.batches, logs)
	}
	return nil
}

func (p *capturePublisher) entries() []AggregatedLogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	var all []AggregatedLogEntry
	for _, b := range p.batches {
		all = append(all, b...)
	}
	return all
}

func TestCollectorAggregatesDuplicates(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{
		TimeInterval:   time.Hour, // flush manually via threshold
		CountThreshold: 2,
		Topic:          "logs.aggregated",
		Publisher:      pub,
	})
	defer c.Close()

	for i := 0; i < 3; i++ {
		c.AddLog("error", "store failed", map[string]interface{}{"segment": "a"}, "repo.go:10")
	}
	c.AddLog("error", "publish failed", nil, "pub.go:20")

	require.Eventually(t, func() bool {
		return len(pub.entries()) > 0
	}, 2*time.Second, 10*time.Millisecond)

	entries := pub.entries()
	byMsg := make(map[string]AggregatedLogEntry)
	for _, e := range entries {
		byMsg[e.Message] = e
	}
	require.Contains(t, byMsg, "store failed")
	assert.Equal(t, 3, byMsg["store failed"].Count)
	assert.Equal(t, "logs.aggregated", pub.topic)
}

func TestCollectorFlushesOnClose(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 100,
		Topic:          "logs.aggregated",
		Publisher:      pub,
	})

	c.AddLog("error", "one off", nil, "x.go:1")
	c.Close()

	require.Eventually(t, func() bool {
		return len(pub.entries()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, pub.entries()[0].Count)
}
