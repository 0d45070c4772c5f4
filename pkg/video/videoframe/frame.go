package videoframe

import (
	"fmt"
	"time"
)

type Dimensions struct {
	W, H int
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.W, d.H)
}

// Frame is a single unit of image data. Whoever holds a frame owns
// it and is responsible for calling Close once done with it.
type Frame interface {
	DataRef() interface{}
	Dimensions() Dimensions
	Close()
}

// Sequenced is implemented by frames which know where they sit in
// the camera's output.
type Sequenced interface {
	FrameCount() uint64
	Timestamp() time.Time
}

// Sequence returns the frame's camera sequence number, if it has one.
func Sequence(frame Frame) (uint64, time.Time, bool) {
	s, ok := frame.(Sequenced)
	if !ok {
		return 0, time.Time{}, false
	}
	return s.FrameCount(), s.Timestamp(), true
}
