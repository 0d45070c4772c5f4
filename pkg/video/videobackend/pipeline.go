package videobackend

import (
	"encoding/binary"
	"math"

	"github.com/tauraamui/scopeview/pkg/acquisition"
	"github.com/tauraamui/scopeview/pkg/camera"
	"github.com/tauraamui/scopeview/pkg/log"
	"github.com/tauraamui/scopeview/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"
)

// NewPipeline picks how raw readouts from sensor are turned into 8 bit
// mats. Bayer sensors are demosaiced to colour unless forceMono is set,
// everything else is shown as grey.
func NewPipeline(sensor camera.Sensor, forceMono bool) (acquisition.Pipeline, error) {
	if sensor.BitDepth < 8 || sensor.BitDepth > 16 {
		return nil, xerror.Errorf("unsupported sensor bit depth: %d", sensor.BitDepth)
	}
	if sensor.Type == camera.BAYER && !forceMono {
		return newColorPipeline(sensor), nil
	}
	return &monoPipeline{}, nil
}

type colorPipeline struct {
	dims       videoframe.Dimensions
	conversion gocv.ColorConversionCode
	correction camera.Matrix3
	demosaiced gocv.Mat
	closed     bool
}

func newColorPipeline(sensor camera.Sensor) *colorPipeline {
	return &colorPipeline{
		dims:       videoframe.Dimensions{W: sensor.Width, H: sensor.Height},
		conversion: bayerConversion(sensor.Phase),
		correction: orIdentity(sensor.ColorCorrection).Mul(orIdentity(sensor.WhiteBalance)),
		demosaiced: gocv.NewMat(),
	}
}

func (p *colorPipeline) Transform(raw *camera.RawFrame) (videoframe.Frame, error) {
	if p.closed {
		return nil, xerror.New("colour pipeline has been closed")
	}
	if err := checkRawFrame(raw); err != nil {
		return nil, err
	}

	if dims := raw.Dimensions(); dims != p.dims {
		log.Info("Image dimension change detected, image acquisition thread was updated")
		p.dims = dims
	}

	src, err := gocv.NewMatFromBytes(raw.Height, raw.Width, gocv.MatTypeCV16U, uint16sToBytes(raw.Data))
	if err != nil {
		return nil, xerror.Errorf("unable to load raw frame into OpenCV mat: %w", err)
	}
	defer src.Close()

	gocv.CvtColor(src, &p.demosaiced, p.conversion)

	bgr, err := gocv.NewMatFromBytes(
		raw.Height, raw.Width, gocv.MatTypeCV8UC3,
		correctAndScale(p.demosaiced.ToBytes(), p.correction, raw.BitDepth),
	)
	if err != nil {
		return nil, xerror.Errorf("unable to build colour mat: %w", err)
	}
	return &openCVFrame{mat: bgr, frameCount: raw.Count, timestamp: raw.At}, nil
}

func (p *colorPipeline) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return p.demosaiced.Close()
}

type monoPipeline struct{}

func (p *monoPipeline) Transform(raw *camera.RawFrame) (videoframe.Frame, error) {
	if err := checkRawFrame(raw); err != nil {
		return nil, err
	}
	grey, err := gocv.NewMatFromBytes(raw.Height, raw.Width, gocv.MatTypeCV8U, scaleMono(raw.Data, raw.BitDepth))
	if err != nil {
		return nil, xerror.Errorf("unable to build grey mat: %w", err)
	}
	return &openCVFrame{mat: grey, frameCount: raw.Count, timestamp: raw.At}, nil
}

func (p *monoPipeline) Close() error { return nil }

// bayerConversion maps a colour filter array phase onto OpenCV's naming,
// which describes the pattern from the second row and column.
func bayerConversion(phase camera.Phase) gocv.ColorConversionCode {
	switch phase {
	case camera.BGGR:
		return gocv.ColorBayerRGToBGR
	case camera.GRBG:
		return gocv.ColorBayerGBToBGR
	case camera.GBRG:
		return gocv.ColorBayerGRToBGR
	default:
		return gocv.ColorBayerBGToBGR
	}
}

func checkRawFrame(raw *camera.RawFrame) error {
	if raw.Width < 1 || raw.Height < 1 {
		return xerror.Errorf("invalid raw frame size: %dx%d", raw.Width, raw.Height)
	}
	if len(raw.Data) != raw.Width*raw.Height {
		return xerror.Errorf("raw frame holds %d samples, expected %d", len(raw.Data), raw.Width*raw.Height)
	}
	if raw.BitDepth < 8 || raw.BitDepth > 16 {
		return xerror.Errorf("unsupported raw frame bit depth: %d", raw.BitDepth)
	}
	return nil
}

func orIdentity(m camera.Matrix3) camera.Matrix3 {
	if m == (camera.Matrix3{}) {
		return camera.Identity
	}
	return m
}

func uint16sToBytes(data []uint16) []byte {
	b := make([]byte, len(data)*2)
	for i, v := range data {
		binary.LittleEndian.PutUint16(b[i*2:], v)
	}
	return b
}

// correctAndScale applies m to every pixel of a 16 bit BGR buffer and
// drops each channel down to 8 bits.
func correctAndScale(bgr []byte, m camera.Matrix3, bitDepth int) []byte {
	n := len(bgr) / 6
	out := make([]byte, n*3)
	identity := m == camera.Identity
	for i := 0; i < n; i++ {
		b := float64(binary.LittleEndian.Uint16(bgr[i*6:]))
		g := float64(binary.LittleEndian.Uint16(bgr[i*6+2:]))
		r := float64(binary.LittleEndian.Uint16(bgr[i*6+4:]))
		if !identity {
			r, g, b = m[0]*r+m[1]*g+m[2]*b, m[3]*r+m[4]*g+m[5]*b, m[6]*r+m[7]*g+m[8]*b
		}
		out[i*3] = to8Bit(b, bitDepth)
		out[i*3+1] = to8Bit(g, bitDepth)
		out[i*3+2] = to8Bit(r, bitDepth)
	}
	return out
}

func scaleMono(data []uint16, bitDepth int) []byte {
	out := make([]byte, len(data))
	for i, v := range data {
		out[i] = to8Bit(float64(v), bitDepth)
	}
	return out
}

func to8Bit(v float64, bitDepth int) uint8 {
	max := float64(uint32(1)<<uint(bitDepth) - 1)
	v = math.Round(v)
	if v < 0 {
		v = 0
	}
	if v > max {
		v = max
	}
	return uint8(uint32(v) >> uint(bitDepth-8))
}
