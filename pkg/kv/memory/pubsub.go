package memory

import (
	"context"
	"sync"
)

// Message mimics a Redis pub/sub message for the in-memory hub
type Message struct {
	Channel string
	Payload string
}

// PubSub is an in-memory subscription handle
type PubSub struct {
	channels map[string]bool
	msgChan  chan *Message
	closeCh  chan struct{}
	closed   bool
	mu       sync.RWMutex
}

func newPubSub(channels []string) *PubSub {
	channelMap := make(map[string]bool)
	for _, ch := range channels {
		channelMap[ch] = true
	}

	return &PubSub{
		channels: channelMap,
		msgChan:  make(chan *Message, 100), // Buffered channel
		closeCh:  make(chan struct{}),
	}
}

// Channel returns the message channel
func (p *PubSub) Channel() <-chan *Message {
	return p.msgChan
}

// Close closes the subscription
func (p *PubSub) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		p.closed = true
		close(p.closeCh)
		close(p.msgChan)
	}
	return nil
}

func (p *PubSub) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// send delivers a message to the subscriber without blocking
func (p *PubSub) send(msg *Message) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed || !p.channels[msg.Channel] {
		return false
	}

	select {
	case p.msgChan <- msg:
		return true
	default:
		// Channel is full, drop message to prevent blocking
		return false
	}
}

// PubSubHub fans published messages out to in-memory subscribers
type PubSubHub struct {
	subscribers map[string][]*PubSub // channel -> list of subscribers
	mu          sync.RWMutex
}

// NewPubSubHub creates a new pubsub hub
func NewPubSubHub() *PubSubHub {
	return &PubSubHub{
		subscribers: make(map[string][]*PubSub),
	}
}

// Subscribe creates a new subscription for the given channels
func (h *PubSubHub) Subscribe(ctx context.Context, channels ...string) *PubSub {
	pubsub := newPubSub(channels)

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, channel := range channels {
		h.subscribers[channel] = append(h.subscribers[channel], pubsub)
	}

	// Cleanup goroutine removes the subscription on close or ctx cancel
	go func() {
		select {
		case <-ctx.Done():
			pubsub.Close()
		case <-pubsub.closeCh:
		}

		h.mu.Lock()
		defer h.mu.Unlock()

		for _, channel := range channels {
			subscribers := h.subscribers[channel]
			for i, sub := range subscribers {
				if sub == pubsub {
					h.subscribers[channel] = append(subscribers[:i], subscribers[i+1:]...)
					break
				}
			}
			if len(h.subscribers[channel]) == 0 {
				delete(h.subscribers, channel)
			}
		}
	}()

	return pubsub
}

// Publish sends a message to all subscribers of a channel and returns the
// number of subscribers that received it
func (h *PubSubHub) Publish(channel, payload string) int64 {
	h.mu.RLock()
	subscribers := make([]*PubSub, len(h.subscribers[channel]))
	copy(subscribers, h.subscribers[channel])
	h.mu.RUnlock()

	if len(subscribers) == 0 {
		return 0
	}

	msg := &Message{
		Channel: channel,
		Payload: payload,
	}

	var delivered int64
	for _, sub := range subscribers {
		if !sub.isClosed() && sub.send(msg) {
			delivered++
		}
	}
	return delivered
}
