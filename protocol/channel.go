package protocol

import (
	"context"
	"fmt"
	"sync"
)

// Channel is the opaque message boundary between the two parties. Sends
// and receives are the only points where a round may block, and the only
// points where cancellation is observed.
//
// Implementations carry opaque byte blobs and nothing else; the engine
// never hands a channel anything but encoded envelopes and verdicts.
type Channel interface {
	// Send transmits one message. It blocks until the message is accepted,
	// ctx is done, or the channel is closed on either end.
	Send(ctx context.Context, msg []byte) error

	// Receive blocks for the next message. Messages sent before the peer
	// closed are still delivered; after the backlog drains it returns
	// ErrChannelClosed.
	Receive(ctx context.Context) ([]byte, error)

	// Close releases this endpoint. Idempotent.
	Close() error
}

// Pipe returns two connected in-memory channel endpoints with the given
// buffer per direction. It is the in-process stand-in for whatever
// transport carries the exchange.
func Pipe(buffer int) (Channel, Channel) {
	ab := make(chan []byte, buffer)
	ba := make(chan []byte, buffer)
	aDone := make(chan struct{})
	bDone := make(chan struct{})
	a := &pipeEnd{out: ab, in: ba, done: aDone, peerDone: bDone}
	b := &pipeEnd{out: ba, in: ab, done: bDone, peerDone: aDone}
	return a, b
}

type pipeEnd struct {
	out       chan []byte
	in        chan []byte
	done      chan struct{}
	peerDone  chan struct{}
	closeOnce sync.Once
}

func (p *pipeEnd) Send(ctx context.Context, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	select {
	case <-p.done:
		return ErrChannelClosed
	case <-p.peerDone:
		return ErrChannelClosed
	default:
	}
	select {
	case p.out <- msg:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	case <-p.done:
		return ErrChannelClosed
	case <-p.peerDone:
		return ErrChannelClosed
	}
}

func (p *pipeEnd) Receive(ctx context.Context) ([]byte, error) {
	// Drain pending messages before honoring close or cancel signals.
	select {
	case msg := <-p.in:
		return msg, nil
	default:
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	select {
	case msg := <-p.in:
		return msg, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	case <-p.done:
		return nil, ErrChannelClosed
	case <-p.peerDone:
		select {
		case msg := <-p.in:
			return msg, nil
		default:
			return nil, ErrChannelClosed
		}
	}
}

func (p *pipeEnd) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	return nil
}
