package videobackend

import (
	"strings"

	"github.com/tauraamui/scopeview/pkg/acquisition"
	"github.com/tauraamui/scopeview/pkg/camera"
	"github.com/tauraamui/scopeview/pkg/log"
	"github.com/tauraamui/scopeview/pkg/viewer"
	"github.com/tauraamui/xerror"
)

const (
	OpenCVName    = "opencv"
	SimulatedName = "simulated"
)

// Options carries the device lists each backend can open.
type Options struct {
	OpenCVDevices    []string
	SimulatedCameras []camera.SimulatedCameraSettings
}

type Backend interface {
	Name() string
	NewSDK(camera.LibraryLocation) (camera.SDK, error)
	NewPipeline(sensor camera.Sensor, forceMono bool) (acquisition.Pipeline, error)
	NewRenderer(title string) (viewer.Renderer, error)
}

func Default(opts Options) Backend {
	return OpenCV(opts.OpenCVDevices)
}

func OpenCV(devices []string) Backend {
	return &openCVBackend{devices: devices}
}

func Simulated(cameras []camera.SimulatedCameraSettings) Backend {
	return &simulatedBackend{cameras: cameras}
}

func Resolve(name string, opts Options) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", OpenCVName:
		return Default(opts), nil
	case SimulatedName:
		return Simulated(opts.SimulatedCameras), nil
	}
	return nil, xerror.Errorf("unknown video backend: %s", name)
}

// gocvDisplay is shared by every backend, frames always end up as
// OpenCV mats shown in an OpenCV window.
type gocvDisplay struct{}

func (gocvDisplay) NewPipeline(sensor camera.Sensor, forceMono bool) (acquisition.Pipeline, error) {
	return NewPipeline(sensor, forceMono)
}

func (gocvDisplay) NewRenderer(title string) (viewer.Renderer, error) {
	return newWindowRenderer(title), nil
}

type openCVBackend struct {
	gocvDisplay
	devices []string
}

func (b *openCVBackend) Name() string { return OpenCVName }

func (b *openCVBackend) NewSDK(lib camera.LibraryLocation) (camera.SDK, error) {
	if len(b.devices) == 0 {
		return nil, xerror.New("no OpenCV devices configured")
	}
	if lib.IsSet() {
		log.Debug("OpenCV backend ignoring native library location: %s", lib.Path)
	}
	return newOpenCVSDK(b.devices), nil
}

type simulatedBackend struct {
	gocvDisplay
	cameras []camera.SimulatedCameraSettings
}

func (b *simulatedBackend) Name() string { return SimulatedName }

func (b *simulatedBackend) NewSDK(lib camera.LibraryLocation) (camera.SDK, error) {
	return camera.NewSimulatedSDK(lib, b.cameras), nil
}
