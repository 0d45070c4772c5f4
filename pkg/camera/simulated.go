package camera

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"
	"time"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/tauraamui/scopeview/pkg/log"
	"github.com/tauraamui/xerror"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

var TimeNow = func() time.Time {
	return time.Now()
}

type SimulatedCameraSettings struct {
	Serial   string
	Type     SensorType
	Phase    Phase
	Width    int
	Height   int
	BitDepth int
	FPS      int
}

type simulatedSDK struct {
	lib     LibraryLocation
	mu      sync.Mutex
	cameras []SimulatedCameraSettings
	opened  map[string]bool
	closed  bool
}

// NewSimulatedSDK returns an SDK over synthetic cameras which render a
// test scene and mosaic it the same way a real sensor would present it.
func NewSimulatedSDK(lib LibraryLocation, cameras []SimulatedCameraSettings) SDK {
	if lib.IsSet() {
		log.Debug("Simulated SDK ignoring native library location: %s", lib.Path)
	}
	return &simulatedSDK{lib: lib, cameras: cameras, opened: map[string]bool{}}
}

func (s *simulatedSDK) DiscoverAvailableCameras() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, xerror.New("SDK has been closed")
	}
	ids := make([]string, 0, len(s.cameras))
	for _, c := range s.cameras {
		ids = append(ids, c.Serial)
	}
	return ids, nil
}

func (s *simulatedSDK) OpenCamera(ctx context.Context, id string) (Camera, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, xerror.Errorf("open cancelled: %w", err)
	}

	if s.closed {
		return nil, xerror.New("SDK has been closed")
	}

	for _, settings := range s.cameras {
		if settings.Serial != id {
			continue
		}
		if s.opened[id] {
			return nil, xerror.Errorf("camera %s is already open", id)
		}
		cam, err := newSimulatedCamera(settings, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.opened, id)
		})
		if err != nil {
			return nil, err
		}
		s.opened[id] = true
		return cam, nil
	}
	return nil, xerror.Errorf("camera %s not found", id)
}

func (s *simulatedSDK) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.opened) > 0 {
		return xerror.Errorf("%d camera(s) still open", len(s.opened))
	}
	s.closed = true
	return nil
}

type simulatedCamera struct {
	settings         SimulatedCameraSettings
	onClose          func()
	fontFace         *truetype.Font
	baseCanvas       *image.RGBA
	frameInterval    time.Duration
	pollTimeout      time.Duration
	exposure         time.Duration
	framesPerTrigger int
	armed            bool
	triggered        bool
	closed           bool
	delivered        uint64
	sinceTrigger     int
	lastFrameAt      time.Time
}

func newSimulatedCamera(settings SimulatedCameraSettings, onClose func()) (*simulatedCamera, error) {
	if settings.BitDepth < 8 || settings.BitDepth > 16 {
		return nil, xerror.Errorf("unsupported bit depth: %d", settings.BitDepth)
	}
	if settings.Width < 2 || settings.Height < 2 {
		return nil, xerror.Errorf("unsupported sensor size: %dx%d", settings.Width, settings.Height)
	}

	fontFace, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, xerror.Errorf("unable to load simulated overlay font: %w", err)
	}

	fps := settings.FPS
	if fps < 1 {
		fps = 30
	}

	return &simulatedCamera{
		settings:      settings,
		onClose:       onClose,
		fontFace:      fontFace,
		baseCanvas:    renderBaseCanvas(settings.Width, settings.Height),
		frameInterval: time.Second / time.Duration(fps),
	}, nil
}

func (c *simulatedCamera) ID() string { return c.settings.Serial }

func (c *simulatedCamera) Sensor() Sensor {
	return Sensor{
		Type:            c.settings.Type,
		Width:           c.settings.Width,
		Height:          c.settings.Height,
		BitDepth:        c.settings.BitDepth,
		Phase:           c.settings.Phase,
		ColorCorrection: Identity,
		WhiteBalance:    Identity,
	}
}

func (c *simulatedCamera) SetImagePollTimeout(d time.Duration) error {
	if d < 0 {
		return xerror.New("image poll timeout cannot be negative")
	}
	c.pollTimeout = d
	return nil
}

func (c *simulatedCamera) SetFramesPerTrigger(n int) error {
	if n < 0 {
		return xerror.New("frames per trigger cannot be negative")
	}
	c.framesPerTrigger = n
	return nil
}

// SetExposureTime dims the scene by the share of the frame interval
// spent exposing. Zero, or anything from a full interval up, gives
// full brightness.
func (c *simulatedCamera) SetExposureTime(d time.Duration) error {
	if d < 0 {
		return xerror.New("exposure time cannot be negative")
	}
	c.exposure = d
	return nil
}

func (c *simulatedCamera) exposureGain() float64 {
	if c.exposure <= 0 || c.exposure >= c.frameInterval {
		return 1
	}
	return float64(c.exposure) / float64(c.frameInterval)
}

func (c *simulatedCamera) Arm(frames int) error {
	if c.closed {
		return xerror.New("cannot arm closed camera")
	}
	if frames < 1 {
		return xerror.New("arm requires at least one frame buffer")
	}
	c.armed = true
	return nil
}

func (c *simulatedCamera) IssueSoftwareTrigger() error {
	if !c.armed {
		return xerror.New("camera must be armed before triggering")
	}
	c.triggered = true
	c.sinceTrigger = 0
	return nil
}

func (c *simulatedCamera) Disarm() error {
	c.armed = false
	c.triggered = false
	return nil
}

func (c *simulatedCamera) PendingFrame() (*RawFrame, error) {
	if c.closed {
		return nil, xerror.New("camera has been closed")
	}

	if !c.triggered {
		return nil, nil
	}

	if c.framesPerTrigger > 0 && c.sinceTrigger >= c.framesPerTrigger {
		return nil, nil
	}

	now := TimeNow()
	if !c.lastFrameAt.IsZero() {
		wait := c.frameInterval - now.Sub(c.lastFrameAt)
		if wait > 0 {
			if c.pollTimeout == 0 {
				return nil, nil
			}
			if wait > c.pollTimeout {
				time.Sleep(c.pollTimeout)
				return nil, nil
			}
			time.Sleep(wait)
			now = TimeNow()
		}
	}

	scene := c.renderScene(now)

	c.lastFrameAt = now
	c.delivered++
	c.sinceTrigger++

	frame := RawFrame{
		Count:    c.delivered,
		At:       now,
		Width:    c.settings.Width,
		Height:   c.settings.Height,
		BitDepth: c.settings.BitDepth,
	}
	if c.settings.Type == BAYER {
		frame.Data = Mosaic(scene, c.settings.Phase, c.settings.BitDepth)
	} else {
		frame.Data = Luminance(scene, c.settings.BitDepth)
	}
	if gain := c.exposureGain(); gain < 1 {
		for i, v := range frame.Data {
			frame.Data[i] = uint16(float64(v) * gain)
		}
	}
	return &frame, nil
}

func (c *simulatedCamera) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.armed = false
	c.triggered = false
	if c.onClose != nil {
		c.onClose()
	}
	return nil
}

func (c *simulatedCamera) renderScene(at time.Time) *image.RGBA {
	canvas := cloneImage(c.baseCanvas)
	lines := []string{
		"SV_SIMULATED",
		c.settings.Serial,
		fmt.Sprintf("#%d", c.delivered+1),
		at.Format("15:04:05.000"),
	}
	lineHeight := c.settings.Height / (len(lines) + 1)
	for i, text := range lines {
		drawText(canvas, c.fontFace, 5, lineHeight*(i+1), float64(lineHeight)/2, text)
	}
	return canvas
}

// Mosaic samples an RGB image through a colour filter array, producing
// the single channel readout of a Bayer sensor with bitDepth bits.
func Mosaic(img *image.RGBA, phase Phase, bitDepth int) []uint16 {
	b := img.Bounds()
	shift := uint(bitDepth - 8)
	data := make([]uint16, 0, b.Dx()*b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			px := img.RGBAAt(b.Min.X+x, b.Min.Y+y)
			var v uint8
			switch phase.ChannelAt(x, y) {
			case RED:
				v = px.R
			case GREEN:
				v = px.G
			default:
				v = px.B
			}
			data = append(data, uint16(v)<<shift)
		}
	}
	return data
}

// Luminance converts an RGB image to the readout of a monochrome sensor.
func Luminance(img *image.RGBA, bitDepth int) []uint16 {
	b := img.Bounds()
	shift := uint(bitDepth - 8)
	data := make([]uint16, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.RGBAAt(x, y)).(color.Gray)
			data = append(data, uint16(g.Y)<<shift)
		}
	}
	return data
}

func renderBaseCanvas(w, h int) *image.RGBA {
	hw, hh := float64(w)/2, float64(h)/2
	r := math.Min(hw, hh) * 2 / 3
	θ := 2 * math.Pi / 3
	cr := &circle{hw - r*math.Sin(0), hh - r*math.Cos(0), r * 1.5}
	cg := &circle{hw - r*math.Sin(θ), hh - r*math.Cos(θ), r * 1.5}
	cb := &circle{hw - r*math.Sin(-θ), hh - r*math.Cos(-θ), r * 1.5}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.SetRGBA(x, y, color.RGBA{
				cr.Brightness(float64(x), float64(y)),
				cg.Brightness(float64(x), float64(y)),
				cb.Brightness(float64(x), float64(y)),
				255,
			})
		}
	}
	return img
}

func cloneImage(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}

func drawText(canvas *image.RGBA, fontFace *truetype.Font, x, y int, size float64, text string) {
	if size < 1 {
		size = 1
	}
	fontDrawer := &font.Drawer{
		Dst: canvas,
		Src: image.White,
		Face: truetype.NewFace(fontFace, &truetype.Options{
			Size:    size,
			Hinting: font.HintingFull,
		}),
	}
	fontDrawer.Dot = fixed.Point26_6{
		X: fixed.I(x),
		Y: fixed.I(y),
	}
	fontDrawer.DrawString(text)
}

type circle struct {
	X, Y, R float64
}

func (c *circle) Brightness(x, y float64) uint8 {
	var dx, dy float64 = c.X - x, c.Y - y
	d := math.Sqrt(dx*dx+dy*dy) / c.R
	if d > 1 {
		return 0
	}
	return 255
}
