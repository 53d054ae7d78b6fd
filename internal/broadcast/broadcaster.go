// Package broadcast fans events out to the reachable members of a channel.
// A channel is a session id, a lobby id or a room id; its membership is set
// by whoever owns that entity.
package broadcast

import (
	"sync"

	"go.uber.org/zap"

	"minigames/internal/network"
	"minigames/internal/presence"
	"minigames/internal/session/message"
)

// Directory resolves identities to live transports.
type Directory interface {
	Lookup(identity string) (presence.Transport, bool)
	Each(fn func(identity string, t presence.Transport))
}

// Broadcaster sends to channel members that currently have a binding.
// Unbound members are skipped; a full client queue drops that client's copy
// only. Sends never block.
type Broadcaster struct {
	dir Directory
	log *zap.SugaredLogger

	mu       sync.RWMutex
	channels map[string][]string
}

func New(dir Directory, log *zap.SugaredLogger) *Broadcaster {
	return &Broadcaster{
		dir:      dir,
		log:      log,
		channels: make(map[string][]string),
	}
}

// SetMembers replaces the membership of channel.
func (b *Broadcaster) SetMembers(channel string, members []string) {
	cp := make([]string, len(members))
	copy(cp, members)
	b.mu.Lock()
	b.channels[channel] = cp
	b.mu.Unlock()
}

// Join adds identity to channel if it is not already there.
func (b *Broadcaster) Join(channel, identity string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.channels[channel] {
		if m == identity {
			return
		}
	}
	b.channels[channel] = append(b.channels[channel], identity)
}

// Leave removes identity from channel.
func (b *Broadcaster) Leave(channel, identity string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	members := b.channels[channel]
	for i, m := range members {
		if m == identity {
			b.channels[channel] = append(members[:i:i], members[i+1:]...)
			break
		}
	}
	if len(b.channels[channel]) == 0 {
		delete(b.channels, channel)
	}
}

// Drop forgets channel entirely.
func (b *Broadcaster) Drop(channel string) {
	b.mu.Lock()
	delete(b.channels, channel)
	b.mu.Unlock()
}

// Members returns a copy of channel's membership.
func (b *Broadcaster) Members(channel string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.channels[channel]...)
}

// BroadcastToSession sends to every reachable member of the channel.
func (b *Broadcaster) BroadcastToSession(sessionID, event string, payload any) {
	b.BroadcastToChannels(event, payload, sessionID)
}

// BroadcastToChannels sends one copy to every reachable member of the union
// of channels.
func (b *Broadcaster) BroadcastToChannels(event string, payload any, channels ...string) {
	msg := message.New(event, payload)
	seen := make(map[string]bool)
	b.mu.RLock()
	var targets []string
	for _, ch := range channels {
		for _, id := range b.channels[ch] {
			if !seen[id] {
				seen[id] = true
				targets = append(targets, id)
			}
		}
	}
	b.mu.RUnlock()

	for _, id := range targets {
		b.deliver(id, msg)
	}
}

// SendToIdentity is best effort: an unbound identity is a silent no-op.
func (b *Broadcaster) SendToIdentity(identity, event string, payload any) {
	b.deliver(identity, message.New(event, payload))
}

// BroadcastAll sends to every bound identity.
func (b *Broadcaster) BroadcastAll(event string, payload any) {
	msg := message.New(event, payload)
	b.dir.Each(func(_ string, t presence.Transport) {
		t.Deliver(msg)
	})
}

func (b *Broadcaster) deliver(identity string, msg network.Message) {
	t, ok := b.dir.Lookup(identity)
	if !ok {
		return
	}
	if !t.Deliver(msg) {
		b.log.Debugf("[Broadcaster] %s not delivered to %s", msg.Type, identity)
	}
}
