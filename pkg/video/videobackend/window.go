package videobackend

import (
	"github.com/tauraamui/scopeview/pkg/video/videoframe"
	"github.com/tauraamui/scopeview/pkg/viewer"
	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"
)

var ErrWindowClosed = viewer.ErrWindowClosed

const (
	keyEscape = 27
	keyQuit   = 'q'
)

type imageWindow interface {
	IMShow(gocv.Mat)
	WaitKey(int) int
	Close() error
}

var newWindow = func(title string) imageWindow {
	return gocv.NewWindow(title)
}

type windowRenderer struct {
	window imageWindow
}

func newWindowRenderer(title string) *windowRenderer {
	return &windowRenderer{window: newWindow(title)}
}

// Render shows the frame and gives the window a millisecond to handle
// input. Escape or q closes the viewer.
func (r *windowRenderer) Render(frame videoframe.Frame) error {
	mat, ok := frame.DataRef().(*gocv.Mat)
	if !ok {
		return xerror.New("must pass OpenCV frame to window renderer")
	}
	r.window.IMShow(*mat)
	switch r.window.WaitKey(1) {
	case keyEscape, keyQuit:
		return ErrWindowClosed
	}
	return nil
}

func (r *windowRenderer) Close() error {
	return r.window.Close()
}
