package videobackend

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tauraamui/scopeview/pkg/camera"
	"github.com/tauraamui/scopeview/pkg/log"
	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"
)

type videoCapture interface {
	IsOpened() bool
	Read(*gocv.Mat) bool
	Get(gocv.VideoCaptureProperties) float64
	Set(gocv.VideoCaptureProperties, float64)
	Close() error
}

var openVideoCapture = func(device string) (videoCapture, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, err
	}
	return vc, nil
}

type openCVSDK struct {
	mu      sync.Mutex
	devices []string
	opened  map[string]bool
	closed  bool
}

func newOpenCVSDK(devices []string) *openCVSDK {
	return &openCVSDK{devices: devices, opened: map[string]bool{}}
}

func (s *openCVSDK) DiscoverAvailableCameras() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, xerror.New("SDK has been closed")
	}
	return append([]string{}, s.devices...), nil
}

func (s *openCVSDK) OpenCamera(ctx context.Context, id string) (camera.Camera, error) {
	if err := s.reserve(id); err != nil {
		return nil, err
	}

	vc, err := connect(ctx, id)
	if err != nil {
		s.release(id)
		return nil, err
	}

	cam := &openCVCamera{
		id:      id,
		uuid:    uuid.NewString(),
		vc:      vc,
		read:    gocv.NewMat(),
		grey:    gocv.NewMat(),
		onClose: func() { s.release(id) },
	}
	log.Debug("Opened video device [%s] as connection %s", id, cam.uuid)
	return cam, nil
}

func (s *openCVSDK) reserve(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return xerror.New("SDK has been closed")
	}
	known := false
	for _, d := range s.devices {
		if d == id {
			known = true
			break
		}
	}
	if !known {
		return xerror.Errorf("camera %s not found", id)
	}
	if s.opened[id] {
		return xerror.Errorf("camera %s is already open", id)
	}
	s.opened[id] = true
	return nil
}

func (s *openCVSDK) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.opened, id)
}

func (s *openCVSDK) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.opened) > 0 {
		return xerror.Errorf("%d camera(s) still open", len(s.opened))
	}
	s.closed = true
	return nil
}

type openVideoStreamResult struct {
	vc  videoCapture
	err error
}

func connect(ctx context.Context, device string) (videoCapture, error) {
	results := make(chan openVideoStreamResult, 1)
	go func() {
		vc, err := openVideoCapture(device)
		results <- openVideoStreamResult{vc: vc, err: err}
	}()

	select {
	case r := <-results:
		if r.err != nil {
			return nil, xerror.Errorf("unable to open video device [%s]: %w", device, r.err)
		}
		if !r.vc.IsOpened() {
			r.vc.Close()
			return nil, xerror.Errorf("video device [%s] is not available", device)
		}
		return r.vc, nil
	case <-ctx.Done():
		go func() {
			if r := <-results; r.vc != nil {
				r.vc.Close()
			}
		}()
		return nil, xerror.New("connection cancelled")
	}
}

// openCVCamera presents a capture device as an 8 bit monochrome sensor.
// Capture reads block until the device has a frame so the image poll
// timeout has no effect.
type openCVCamera struct {
	id               string
	uuid             string
	vc               videoCapture
	read             gocv.Mat
	grey             gocv.Mat
	onClose          func()
	pollTimeout      time.Duration
	framesPerTrigger int
	sinceTrigger     int
	delivered        uint64
	armed            bool
	triggered        bool
	closed           bool
}

func (c *openCVCamera) ID() string { return c.id }

func (c *openCVCamera) Sensor() camera.Sensor {
	return camera.Sensor{
		Type:            camera.MONOCHROME,
		Width:           int(c.vc.Get(gocv.VideoCaptureFrameWidth)),
		Height:          int(c.vc.Get(gocv.VideoCaptureFrameHeight)),
		BitDepth:        8,
		ColorCorrection: camera.Identity,
		WhiteBalance:    camera.Identity,
	}
}

func (c *openCVCamera) SetImagePollTimeout(d time.Duration) error {
	if d < 0 {
		return xerror.New("image poll timeout cannot be negative")
	}
	c.pollTimeout = d
	return nil
}

func (c *openCVCamera) SetFramesPerTrigger(n int) error {
	if n < 0 {
		return xerror.New("frames per trigger cannot be negative")
	}
	c.framesPerTrigger = n
	return nil
}

func (c *openCVCamera) SetExposureTime(d time.Duration) error {
	if d > 0 {
		c.vc.Set(gocv.VideoCaptureExposure, float64(d)/float64(time.Millisecond))
	}
	return nil
}

func (c *openCVCamera) Arm(frames int) error {
	if c.closed {
		return xerror.New("cannot arm closed camera")
	}
	if frames < 1 {
		return xerror.New("arm requires at least one frame buffer")
	}
	c.armed = true
	return nil
}

func (c *openCVCamera) IssueSoftwareTrigger() error {
	if !c.armed {
		return xerror.New("camera must be armed before triggering")
	}
	c.triggered = true
	c.sinceTrigger = 0
	return nil
}

func (c *openCVCamera) Disarm() error {
	c.armed = false
	c.triggered = false
	return nil
}

func (c *openCVCamera) PendingFrame() (*camera.RawFrame, error) {
	if c.closed {
		return nil, xerror.New("camera has been closed")
	}
	if !c.triggered {
		return nil, nil
	}
	if c.framesPerTrigger > 0 && c.sinceTrigger >= c.framesPerTrigger {
		return nil, nil
	}

	if !c.vc.Read(&c.read) {
		return nil, xerror.Errorf("unable to read from video device [%s]", c.id)
	}
	if c.read.Empty() {
		return nil, nil
	}

	src := c.read
	if c.read.Channels() > 1 {
		gocv.CvtColor(c.read, &c.grey, gocv.ColorBGRToGray)
		src = c.grey
	}

	pixels := src.ToBytes()
	data := make([]uint16, len(pixels))
	for i, p := range pixels {
		data[i] = uint16(p)
	}

	c.delivered++
	c.sinceTrigger++
	return &camera.RawFrame{
		Count:    c.delivered,
		At:       time.Now(),
		Width:    src.Cols(),
		Height:   src.Rows(),
		BitDepth: 8,
		Data:     data,
	}, nil
}

func (c *openCVCamera) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.armed = false
	c.triggered = false
	c.read.Close()
	c.grey.Close()
	err := c.vc.Close()
	if c.onClose != nil {
		c.onClose()
	}
	return err
}
