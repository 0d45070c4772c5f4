package camera

import (
	"time"

	"github.com/tauraamui/scopeview/pkg/video/videoframe"
)

// RawFrame is a sensor readout, one uint16 sample per pixel holding
// BitDepth significant bits.
type RawFrame struct {
	Count         uint64
	At            time.Time
	Width, Height int
	BitDepth      int
	Data          []uint16
}

func (f *RawFrame) FrameCount() uint64 { return f.Count }

func (f *RawFrame) Timestamp() time.Time { return f.At }

func (f *RawFrame) DataRef() interface{} {
	return f.Data
}

func (f *RawFrame) Dimensions() videoframe.Dimensions {
	return videoframe.Dimensions{W: f.Width, H: f.Height}
}

func (f *RawFrame) Close() {
	f.Data = nil
}
