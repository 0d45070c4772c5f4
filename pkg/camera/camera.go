package camera

import (
	"context"
	"strings"
	"time"

	"github.com/tauraamui/xerror"
)

type SensorType int

const (
	MONOCHROME SensorType = iota
	BAYER
)

func (s SensorType) String() string {
	switch s {
	case BAYER:
		return "bayer"
	default:
		return "mono"
	}
}

func ParseSensorType(s string) (SensorType, error) {
	switch strings.ToLower(s) {
	case "bayer":
		return BAYER, nil
	case "mono", "monochrome":
		return MONOCHROME, nil
	}
	return MONOCHROME, xerror.Errorf("unknown sensor type: %s", s)
}

// Phase is the colour of the top left pixel of the sensor's colour
// filter array and decides the layout of the rest of the 2x2 tile.
type Phase int

const (
	RGGB Phase = iota
	BGGR
	GRBG
	GBRG
)

func (p Phase) String() string {
	switch p {
	case BGGR:
		return "bggr"
	case GRBG:
		return "grbg"
	case GBRG:
		return "gbrg"
	default:
		return "rggb"
	}
}

func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(s) {
	case "rggb":
		return RGGB, nil
	case "bggr":
		return BGGR, nil
	case "grbg":
		return GRBG, nil
	case "gbrg":
		return GBRG, nil
	}
	return RGGB, xerror.Errorf("unknown colour filter array phase: %s", s)
}

// Matrix3 is a row major 3x3 matrix applied to (R, G, B) column vectors.
type Matrix3 [9]float64

var Identity = Matrix3{1, 0, 0, 0, 1, 0, 0, 0, 1}

func (m Matrix3) Mul(o Matrix3) Matrix3 {
	var r Matrix3
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += m[row*3+k] * o[k*3+col]
			}
			r[row*3+col] = sum
		}
	}
	return r
}

type Sensor struct {
	Type            SensorType
	Width, Height   int
	BitDepth        int
	Phase           Phase
	ColorCorrection Matrix3
	WhiteBalance    Matrix3
}

// Camera is an opened device. Calls are not safe for concurrent use,
// a single acquisition worker owns the camera once it has been armed.
type Camera interface {
	ID() string
	Sensor() Sensor
	SetImagePollTimeout(time.Duration) error
	SetFramesPerTrigger(int) error
	SetExposureTime(time.Duration) error
	Arm(frames int) error
	IssueSoftwareTrigger() error
	Disarm() error
	// PendingFrame returns the next frame or nil when none is ready yet.
	PendingFrame() (*RawFrame, error)
	Close() error
}

type SDK interface {
	DiscoverAvailableCameras() ([]string, error)
	OpenCamera(ctx context.Context, id string) (Camera, error)
	Close() error
}

const (
	RED   = 0
	GREEN = 1
	BLUE  = 2
)

// ChannelAt reports which colour channel the filter over pixel x, y passes.
func (p Phase) ChannelAt(x, y int) int {
	odd := [2]bool{x%2 == 1, y%2 == 1}
	var tile [2][2]int
	switch p {
	case BGGR:
		tile = [2][2]int{{BLUE, GREEN}, {GREEN, RED}}
	case GRBG:
		tile = [2][2]int{{GREEN, RED}, {BLUE, GREEN}}
	case GBRG:
		tile = [2][2]int{{GREEN, BLUE}, {RED, GREEN}}
	default:
		tile = [2][2]int{{RED, GREEN}, {GREEN, BLUE}}
	}
	row, col := 0, 0
	if odd[1] {
		row = 1
	}
	if odd[0] {
		col = 1
	}
	return tile[row][col]
}
