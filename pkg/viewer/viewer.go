package viewer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tauraamui/scopeview/pkg/acquisition"
	"github.com/tauraamui/scopeview/pkg/framebuf"
	"github.com/tauraamui/scopeview/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

// ErrWindowClosed is returned by renderers when the user closes the
// display. The loop treats it as a normal stop.
var ErrWindowClosed = xerror.New("window closed")

type Renderer interface {
	Render(videoframe.Frame) error
	Close() error
}

// Producer is the side of an acquisition worker the viewer reads from.
type Producer interface {
	Output() *framebuf.Buffer
	Done() <-chan struct{}
	Result() (acquisition.Result, bool)
}

type Settings struct {
	// PollInterval adds a periodic wake up on top of the buffer's
	// notifications, zero relies on notifications alone.
	PollInterval time.Duration
}

type Loop struct {
	producer     Producer
	renderer     Renderer
	pollInterval time.Duration

	mu       sync.Mutex
	latest   videoframe.Frame
	consumed uint64
}

func New(producer Producer, renderer Renderer, settings Settings) *Loop {
	return &Loop{
		producer:     producer,
		renderer:     renderer,
		pollInterval: settings.PollInterval,
	}
}

// Run shows frames from the producer until ctx is cancelled, the renderer
// fails or the producer finishes. Once the producer has finished whatever
// is still buffered is shown and its error, if any, is returned.
func (l *Loop) Run(ctx context.Context) error {
	err := l.run(ctx)
	if errors.Is(err, ErrWindowClosed) {
		return nil
	}
	return err
}

func (l *Loop) run(ctx context.Context) error {
	var tick <-chan time.Time
	if l.pollInterval > 0 {
		ticker := time.NewTicker(l.pollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	buf := l.producer.Output()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if frame, ok := buf.TryPop(); ok {
			if err := l.show(frame); err != nil {
				return err
			}
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-l.producer.Done():
			return l.finish(buf)
		case <-buf.Notify():
		case <-tick:
		}
	}
}

func (l *Loop) finish(buf *framebuf.Buffer) error {
	for {
		frame, ok := buf.TryPop()
		if !ok {
			break
		}
		if err := l.show(frame); err != nil {
			return err
		}
	}
	result, _ := l.producer.Result()
	return result.Err
}

func (l *Loop) show(frame videoframe.Frame) error {
	l.mu.Lock()
	if l.latest != nil {
		l.latest.Close()
	}
	l.latest = frame
	l.consumed++
	l.mu.Unlock()

	return l.renderer.Render(frame)
}

// Latest returns the most recently shown frame. It stays owned by the
// loop and must not be closed by the caller.
func (l *Loop) Latest() videoframe.Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.latest
}

func (l *Loop) Consumed() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.consumed
}

func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.latest != nil {
		l.latest.Close()
		l.latest = nil
	}
}
