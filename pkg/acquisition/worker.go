package acquisition

import (
	"context"
	"sync"
	"time"

	"github.com/tauraamui/scopeview/pkg/camera"
	"github.com/tauraamui/scopeview/pkg/framebuf"
	"github.com/tauraamui/scopeview/pkg/log"
	"github.com/tauraamui/scopeview/pkg/video/videoframe"
)

type Source interface {
	PendingFrame() (*camera.RawFrame, error)
}

// Pipeline turns raw sensor readouts into displayable frames. The raw
// frame passed to Transform is released by the worker once it returns.
type Pipeline interface {
	Transform(*camera.RawFrame) (videoframe.Frame, error)
	Close() error
}

type Settings struct {
	QueueSize int
	// PollInterval is how long to idle when the source has nothing
	// pending, zero polls again straight away.
	PollInterval time.Duration
}

type Worker struct {
	ctx          context.Context
	cancel       context.CancelFunc
	source       Source
	pipeline     Pipeline
	out          *framebuf.Buffer
	pollInterval time.Duration
	startOnce    sync.Once
	done         chan struct{}
	result       Result
}

// New builds a worker reading from source. A nil pipeline pushes the
// raw frames into the output buffer as they are.
func New(source Source, pipeline Pipeline, settings Settings) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		ctx:          ctx,
		cancel:       cancel,
		source:       source,
		pipeline:     pipeline,
		out:          framebuf.New(settings.QueueSize),
		pollInterval: settings.PollInterval,
		done:         make(chan struct{}),
	}
}

func (w *Worker) Output() *framebuf.Buffer { return w.out }

func (w *Worker) Start() {
	w.startOnce.Do(func() { go w.run() })
}

// Stop asks the loop to finish and returns immediately. A poll already
// in progress is allowed to complete.
func (w *Worker) Stop() {
	w.cancel()
}

func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) Wait() Result {
	<-w.done
	return w.result
}

// Result reports the loop's outcome, ok is false while it is still running.
func (w *Worker) Result() (Result, bool) {
	select {
	case <-w.done:
		return w.result, true
	default:
		return Result{}, false
	}
}

func (w *Worker) run() {
	defer w.teardown()
	for {
		select {
		case <-w.ctx.Done():
			w.result.Reason = Stopped
			return
		default:
			pending, err := w.acquire()
			if err != nil {
				log.Error("Encountered error: %s, image acquisition will stop", err.Error())
				w.result.Reason = SourceFatal
				w.result.Err = err
				return
			}
			if !pending {
				w.idle()
			}
		}
	}
}

func (w *Worker) acquire() (bool, error) {
	raw, err := w.source.PendingFrame()
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}

	var frame videoframe.Frame = raw
	if w.pipeline != nil {
		frame, err = w.pipeline.Transform(raw)
		raw.Close()
		if err != nil {
			return false, err
		}
		if frame == nil {
			return true, nil
		}
	}

	w.result.Produced++
	if w.out.TryPush(frame) {
		log.Debug("Sending frame to buffer...")
		return true, nil
	}
	frame.Close()
	w.result.Dropped++
	log.Debug("Buffer full...")
	return true, nil
}

func (w *Worker) idle() {
	if w.pollInterval <= 0 {
		return
	}
	t := time.NewTimer(w.pollInterval)
	defer t.Stop()
	select {
	case <-w.ctx.Done():
	case <-t.C:
	}
}

func (w *Worker) teardown() {
	if w.pipeline != nil {
		if err := w.pipeline.Close(); err != nil {
			log.Error("Unable to release image pipeline: %v", err)
		}
	}
	log.Info("Image acquisition has stopped")
	close(w.done)
}
