// Package event is a typed publish/subscribe bus with bounded queues.
// Topics connect the task runners (networking, ordering, consensus,
// block apply) without shared state.
package event

import (
	"sync"

	"github.com/ryjones/iroha/log"
)

// Topic names one event stream.
type Topic string

const (
	OnProposalResponse Topic = "proposal_response"
	OnState            Topic = "state"
	OnCommit           Topic = "commit"
	OnBatches          Topic = "batches"
	OnRoundSwitch      Topic = "round_switch"
)

// DefaultQueueSize bounds each subscriber queue.
const DefaultQueueSize = 128

// Bus is the topic registry.
type Bus struct {
	mu        sync.RWMutex
	subs      map[Topic][]chan interface{}
	queueSize int
}

func NewBus() *Bus {
	return &Bus{
		subs:      make(map[Topic][]chan interface{}),
		queueSize: DefaultQueueSize,
	}
}

// Subscribe registers a consumer queue on the topic.
func (b *Bus) Subscribe(topic Topic) <-chan interface{} {
	ch := make(chan interface{}, b.queueSize)
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers to every subscriber queue. A full queue drops the
// event rather than blocking the publisher; consumers that fall this
// far behind must resynchronize anyway.
func (b *Bus) Publish(topic Topic, v interface{}) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[topic] {
		select {
		case ch <- v:
		default:
			log.Warnw("event queue full, dropping", "topic", string(topic))
		}
	}
}
