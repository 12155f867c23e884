package bridge

import (
	"errors"
	"sync"
)

// Pipe returns two transports wired directly to each other, standing in for
// the window boundary when both sides run in the same process (embedding,
// tests). Delivery is synchronous: Send returns after the peer's receiver
// has run.
func Pipe() (Transport, Transport) {
	a := &pipeEnd{}
	b := &pipeEnd{}
	a.peer = b
	b.peer = a
	return a, b
}

type pipeEnd struct {
	peer *pipeEnd

	mu   sync.Mutex
	recv func([]byte)
}

func (p *pipeEnd) Send(raw []byte) error {
	p.peer.mu.Lock()
	recv := p.peer.recv
	p.peer.mu.Unlock()

	if recv == nil {
		return errors.New("peer has no receiver")
	}

	// Copy so neither side can mutate the other's frame after send.
	frame := make([]byte, len(raw))
	copy(frame, raw)
	recv(frame)
	return nil
}

func (p *pipeEnd) SetReceiver(fn func(raw []byte)) {
	p.mu.Lock()
	p.recv = fn
	p.mu.Unlock()
}
