package llm

import (
	"context"
	"io"
	"strings"
)

type channelStream struct {
	ctx    context.Context
	cancel context.CancelFunc
	events <-chan Event
}

func newEventStream(ctx context.Context, run func(context.Context, chan<- Event) error) Stream {
	streamCtx, cancel := context.WithCancel(ctx)
	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		if err := run(streamCtx, ch); err != nil {
			ch <- Event{Type: EventError, Err: err}
		}
	}()
	return &channelStream{ctx: streamCtx, cancel: cancel, events: ch}
}

func (s *channelStream) Recv() (Event, error) {
	// Drain buffered events before looking at ctx so a trailing
	// EventUsage/EventDone is not lost when both are ready.
	select {
	case event, ok := <-s.events:
		if !ok {
			return Event{}, io.EOF
		}
		return event, nil
	default:
	}

	select {
	case <-s.ctx.Done():
		return Event{}, s.ctx.Err()
	case event, ok := <-s.events:
		if !ok {
			return Event{}, io.EOF
		}
		return event, nil
	}
}

func (s *channelStream) Close() error {
	s.cancel()
	return nil
}

// Collect consumes stream until it ends, forwarding every text fragment to
// onFragment and returning the concatenation of all fragments.
func Collect(stream Stream, onFragment func(string)) (string, Usage, error) {
	var (
		text  strings.Builder
		usage Usage
	)
	for {
		event, err := stream.Recv()
		if err == io.EOF {
			return text.String(), usage, nil
		}
		if err != nil {
			return text.String(), usage, err
		}
		switch event.Type {
		case EventTextDelta:
			if event.Text == "" {
				continue
			}
			text.WriteString(event.Text)
			if onFragment != nil {
				onFragment(event.Text)
			}
		case EventUsage:
			if event.Use != nil {
				usage = *event.Use
			}
		case EventError:
			if event.Err != nil {
				return text.String(), usage, event.Err
			}
		case EventDone:
			return text.String(), usage, nil
		}
	}
}
