// Package stream implements the delivery channel between the answer pipeline
// and the transport layer. A stream is a lazy, finite, non-restartable
// sequence of token events followed by exactly one terminal event.
package stream

import "context"

type EventType string

const (
	EventToken EventType = "message"
	EventDone  EventType = "done"
	EventError EventType = "error"
)

// Event is one element of the delivery sequence. Token events carry Content
// and a dense, zero-based Seq. The done event may carry a Warning (e.g. the
// answer was delivered but history persistence failed); the error event
// carries a human-readable Cause.
type Event struct {
	Type    EventType `json:"type"`
	Content string    `json:"content,omitempty"`
	Seq     int       `json:"sequenceNumber"`
	Warning string    `json:"warning,omitempty"`
	Cause   string    `json:"cause,omitempty"`
}

// Stream is a single-producer, single-consumer token pipe. The producer calls
// Send zero or more times and then exactly one of Done or Fail; the event
// channel is closed after the terminal event. Seq numbering restarts at zero
// for every stream. Consumers must drain the channel until it closes, even
// after they stop caring about the output, so the producer never blocks on an
// abandoned stream.
type Stream struct {
	events  chan Event
	nextSeq int
	closed  bool
}

func New(buffer int) *Stream {
	if buffer < 0 {
		buffer = 0
	}
	return &Stream{
		events: make(chan Event, buffer),
	}
}

// Events returns the consumer side of the stream.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Send emits one token event. It blocks until the consumer accepts the event
// or ctx is cancelled; a cancelled send leaves the stream un-terminated so the
// producer can still Fail it.
func (s *Stream) Send(ctx context.Context, token string) error {
	if s.closed {
		return nil
	}
	ev := Event{
		Type:    EventToken,
		Content: token,
		Seq:     s.nextSeq,
	}
	select {
	case s.events <- ev:
		s.nextSeq++
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Produced reports how many token events were accepted so far.
func (s *Stream) Produced() int {
	return s.nextSeq
}

// Done terminates the stream successfully. warning is optional and travels on
// the terminal event. Calling Done or Fail twice is a no-op.
func (s *Stream) Done(warning string) {
	if s.closed {
		return
	}
	s.closed = true
	s.events <- Event{
		Type:    EventDone,
		Seq:     s.nextSeq,
		Warning: warning,
	}
	close(s.events)
}

// Fail terminates the stream with a single error event. No partial recovery
// or resend is attempted.
func (s *Stream) Fail(cause string) {
	if s.closed {
		return
	}
	s.closed = true
	s.events <- Event{
		Type:  EventError,
		Seq:   s.nextSeq,
		Cause: cause,
	}
	close(s.events)
}
