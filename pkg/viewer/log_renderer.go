package viewer

import (
	"github.com/tauraamui/scopeview/pkg/log"
	"github.com/tauraamui/scopeview/pkg/video/videoframe"
)

// LogRenderer stands in for a window when running headless.
type LogRenderer struct {
	title    string
	rendered int
	lastDims videoframe.Dimensions
}

func NewLogRenderer(title string) *LogRenderer {
	return &LogRenderer{title: title}
}

func (r *LogRenderer) Render(frame videoframe.Frame) error {
	dims := frame.Dimensions()
	if r.rendered == 0 || dims != r.lastDims {
		log.Info("[%s] showing %s frames", r.title, dims)
	}
	r.lastDims = dims
	r.rendered++
	if count, at, ok := videoframe.Sequence(frame); ok {
		log.Debug("[%s] frame %d received, camera frame #%d at %s", r.title, r.rendered, count, at.Format("15:04:05.000"))
		return nil
	}
	log.Debug("[%s] frame %d received", r.title, r.rendered)
	return nil
}

func (r *LogRenderer) Rendered() int { return r.rendered }

func (r *LogRenderer) Close() error {
	log.Info("[%s] closed after %d frames", r.title, r.rendered)
	return nil
}
