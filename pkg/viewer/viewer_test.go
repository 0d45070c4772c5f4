package viewer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/tacusci/logging/v2"
	"github.com/tauraamui/scopeview/pkg/acquisition"
	"github.com/tauraamui/scopeview/pkg/camera"
	"github.com/tauraamui/scopeview/pkg/framebuf"
	"github.com/tauraamui/scopeview/pkg/viewer"
	"github.com/tauraamui/scopeview/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

func TestMain(m *testing.M) {
	logging.CurrentLoggingLevel = logging.SilentLevel
	m.Run()
}

type testProducer struct {
	buf    *framebuf.Buffer
	done   chan struct{}
	result acquisition.Result
}

func newTestProducer(capacity int) *testProducer {
	return &testProducer{buf: framebuf.New(capacity), done: make(chan struct{})}
}

func (p *testProducer) Output() *framebuf.Buffer { return p.buf }
func (p *testProducer) Done() <-chan struct{}    { return p.done }

func (p *testProducer) Result() (acquisition.Result, bool) {
	select {
	case <-p.done:
		return p.result, true
	default:
		return acquisition.Result{}, false
	}
}

func (p *testProducer) finish(result acquisition.Result) {
	p.result = result
	close(p.done)
}

type testFrame struct {
	mu     sync.Mutex
	id     string
	closed bool
}

func (f *testFrame) DataRef() interface{}              { return f.id }
func (f *testFrame) Dimensions() videoframe.Dimensions { return videoframe.Dimensions{W: 2, H: 2} }

func (f *testFrame) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *testFrame) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type testRenderer struct {
	mu       sync.Mutex
	rendered []string
	failOn   string
	err      error
}

func (r *testRenderer) Render(frame videoframe.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := frame.DataRef().(string)
	r.rendered = append(r.rendered, id)
	if id == r.failOn {
		return r.err
	}
	return nil
}

func (r *testRenderer) Close() error { return nil }

func (r *testRenderer) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.rendered...)
}

func runLoop(ctx context.Context, loop *viewer.Loop) chan error {
	errs := make(chan error, 1)
	go func() { errs <- loop.Run(ctx) }()
	return errs
}

func waitForErr(t *testing.T, errs chan error) error {
	t.Helper()
	select {
	case err := <-errs:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("test timeout 3s limit exceeded")
	}
	return nil
}

func TestLoopRendersInterleavedFramesInOrder(t *testing.T) {
	is := is.New(t)

	producer := newTestProducer(2)
	renderer := &testRenderer{}
	loop := viewer.New(producer, renderer, viewer.Settings{})
	errs := runLoop(context.Background(), loop)

	ids := []string{"A", "B", "C", "D"}
	for i, id := range ids {
		is.True(producer.buf.TryPush(&testFrame{id: id}))
		deadline := time.After(3 * time.Second)
		for len(renderer.seen()) < i+1 {
			select {
			case <-deadline:
				t.Fatal("test timeout 3s limit exceeded")
			default:
				time.Sleep(time.Microsecond)
			}
		}
	}

	producer.finish(acquisition.Result{Reason: acquisition.Stopped})
	is.NoErr(waitForErr(t, errs))
	is.Equal(renderer.seen(), ids)
	is.Equal(loop.Consumed(), uint64(4))
}

func TestLoopDrainsBufferOnceProducerFinishes(t *testing.T) {
	is := is.New(t)

	producer := newTestProducer(2)
	is.True(producer.buf.TryPush(&testFrame{id: "A"}))
	is.True(producer.buf.TryPush(&testFrame{id: "B"}))
	errUnplugged := xerror.New("camera unplugged")
	producer.finish(acquisition.Result{Reason: acquisition.SourceFatal, Err: errUnplugged})

	renderer := &testRenderer{}
	loop := viewer.New(producer, renderer, viewer.Settings{})
	err := waitForErr(t, runLoop(context.Background(), loop))

	is.True(errors.Is(err, errUnplugged))
	is.Equal(renderer.seen(), []string{"A", "B"})
	is.Equal(producer.buf.Len(), 0)
}

func TestLoopReturnsRendererError(t *testing.T) {
	is := is.New(t)

	producer := newTestProducer(2)
	is.True(producer.buf.TryPush(&testFrame{id: "A"}))
	is.True(producer.buf.TryPush(&testFrame{id: "B"}))

	errClosed := xerror.New("window closed")
	renderer := &testRenderer{failOn: "A", err: errClosed}
	loop := viewer.New(producer, renderer, viewer.Settings{})
	err := waitForErr(t, runLoop(context.Background(), loop))

	is.True(errors.Is(err, errClosed))
	is.Equal(renderer.seen(), []string{"A"})
	is.Equal(producer.buf.Len(), 1) // loop stops straight away
}

func TestLoopTreatsClosedWindowAsCleanStop(t *testing.T) {
	is := is.New(t)

	producer := newTestProducer(2)
	is.True(producer.buf.TryPush(&testFrame{id: "A"}))

	renderer := &testRenderer{failOn: "A", err: viewer.ErrWindowClosed}
	loop := viewer.New(producer, renderer, viewer.Settings{})
	is.NoErr(waitForErr(t, runLoop(context.Background(), loop)))
	is.Equal(renderer.seen(), []string{"A"})
}

func TestLoopStopsOnContextCancel(t *testing.T) {
	is := is.New(t)

	producer := newTestProducer(2)
	ctx, cancel := context.WithCancel(context.Background())
	loop := viewer.New(producer, &testRenderer{}, viewer.Settings{PollInterval: time.Millisecond})
	errs := runLoop(ctx, loop)

	time.Sleep(5 * time.Millisecond)
	cancel()
	is.NoErr(waitForErr(t, errs))
	is.Equal(loop.Consumed(), uint64(0))
}

func TestLoopKeepsLatestFrameAndClosesPrevious(t *testing.T) {
	is := is.New(t)

	producer := newTestProducer(2)
	a, b := &testFrame{id: "A"}, &testFrame{id: "B"}
	is.True(producer.buf.TryPush(a))
	is.True(producer.buf.TryPush(b))
	producer.finish(acquisition.Result{})

	loop := viewer.New(producer, &testRenderer{}, viewer.Settings{})
	is.True(loop.Latest() == nil)
	is.NoErr(waitForErr(t, runLoop(context.Background(), loop)))

	is.True(a.isClosed())
	is.True(!b.isClosed())
	is.Equal(loop.Latest(), videoframe.Frame(b))

	loop.Close()
	is.True(b.isClosed())
	is.True(loop.Latest() == nil)
}

func TestLoopWithWorkerSurvivesSourceFailure(t *testing.T) {
	is := is.New(t)

	errUnplugged := xerror.New("camera unplugged")
	source := &failingSource{remaining: 2, err: errUnplugged}
	w := acquisition.New(source, nil, acquisition.Settings{QueueSize: 2})
	renderer := viewer.NewLogRenderer("test")
	loop := viewer.New(w, renderer, viewer.Settings{})

	w.Start()
	err := waitForErr(t, runLoop(context.Background(), loop))

	is.True(errors.Is(err, errUnplugged))
	is.Equal(renderer.Rendered(), 2)
	_, ok := w.Output().TryPop()
	is.True(!ok)
}

func TestLogRendererCountsFrames(t *testing.T) {
	is := is.New(t)

	r := viewer.NewLogRenderer("img")
	is.NoErr(r.Render(&testFrame{id: "A"}))
	is.NoErr(r.Render(&testFrame{id: "B"}))
	is.Equal(r.Rendered(), 2)
	is.NoErr(r.Close())
}

func TestLogRendererAcceptsSequencedFrames(t *testing.T) {
	is := is.New(t)

	r := viewer.NewLogRenderer("img")
	is.NoErr(r.Render(&camera.RawFrame{Count: 4, At: time.Now(), Width: 2, Height: 2}))
	is.NoErr(r.Render(&camera.RawFrame{Count: 5, At: time.Now(), Width: 4, Height: 2}))
	is.Equal(r.Rendered(), 2)
}

type failingSource struct {
	remaining int
	count     uint64
	err       error
}

func (s *failingSource) PendingFrame() (*camera.RawFrame, error) {
	if s.remaining == 0 {
		return nil, s.err
	}
	s.remaining--
	s.count++
	return &camera.RawFrame{Count: s.count, Width: 2, Height: 2, BitDepth: 8, Data: make([]uint16, 4)}, nil
}
