package videobackend

import (
	"time"

	"github.com/tauraamui/scopeview/pkg/video/videoframe"
	"gocv.io/x/gocv"
)

type openCVFrame struct {
	isClosed   bool
	mat        gocv.Mat
	frameCount uint64
	timestamp  time.Time
}

func (frame *openCVFrame) FrameCount() uint64 { return frame.frameCount }

func (frame *openCVFrame) Timestamp() time.Time { return frame.timestamp }

func (frame *openCVFrame) DataRef() interface{} {
	return &frame.mat
}

func (frame *openCVFrame) Dimensions() videoframe.Dimensions {
	return videoframe.Dimensions{W: frame.mat.Cols(), H: frame.mat.Rows()}
}

func (frame *openCVFrame) Close() {
	if !frame.isClosed {
		frame.mat.Close()
		frame.isClosed = true
	}
}
