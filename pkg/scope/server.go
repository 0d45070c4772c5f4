package scope

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
	"github.com/tauraamui/scopeview/pkg/acquisition"
	"github.com/tauraamui/scopeview/pkg/camera"
	"github.com/tauraamui/scopeview/pkg/configdef"
	"github.com/tauraamui/scopeview/pkg/database/models"
	"github.com/tauraamui/scopeview/pkg/log"
	"github.com/tauraamui/scopeview/pkg/process"
	"github.com/tauraamui/scopeview/pkg/viewer"
	"github.com/tauraamui/xerror"
)

var fs = afero.NewOsFs()
var workingDir = os.Getwd
var timeNow = time.Now

// Backend is everything the server needs from a video backend.
type Backend interface {
	Name() string
	NewSDK(camera.LibraryLocation) (camera.SDK, error)
	NewPipeline(sensor camera.Sensor, forceMono bool) (acquisition.Pipeline, error)
	NewRenderer(title string) (viewer.Renderer, error)
}

type BackendResolver func(name string, values configdef.Values) (Backend, error)

type SessionStore interface {
	Create(*models.Session) error
	Save(*models.Session) error
}

type Server struct {
	shutdownDone chan interface{}
	config       configdef.Values
	backend      Backend
	sessions     SessionStore

	mu        sync.Mutex
	sdk       camera.SDK
	cam       camera.Camera
	worker    *acquisition.Worker
	running   bool
	loop      *viewer.Loop
	processes []process.Process
	session   *models.Session
	shutdown  sync.Once
}

// NewServer loads configuration through cr and resolves the video backend
// it names. A non empty backendOverride wins over the configured backend.
func NewServer(cr configdef.Resolver, br BackendResolver, backendOverride string) (*Server, error) {
	values, err := cr.Resolve()
	if err != nil {
		return nil, err
	}

	name := values.Backend
	if len(strings.TrimSpace(backendOverride)) > 0 {
		name = backendOverride
	}

	backend, err := br(name, values)
	if err != nil {
		return nil, err
	}
	log.Info("Using %s video backend", backend.Name())

	return &Server{
		shutdownDone: make(chan interface{}),
		config:       values,
		backend:      backend,
	}, nil
}

// RecordSessionsTo stores a record of every run in store.
func (s *Server) RecordSessionsTo(store SessionStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = store
}

func (s *Server) Config() configdef.Values { return s.config }

func (s *Server) openSDK() (camera.SDK, error) {
	wd, err := workingDir()
	if err != nil {
		return nil, xerror.Errorf("unable to resolve working directory: %w", err)
	}

	lib, err := camera.ResolveLibraryLocation(fs, s.config.SDKLibraryPath, wd)
	if err != nil {
		return nil, err
	}
	if lib.IsSet() {
		log.Debug("Using native SDK library location: %s", lib.Path)
	}

	return s.backend.NewSDK(lib)
}

// Cameras lists the ids of every camera the backend can see.
func (s *Server) Cameras() ([]string, error) {
	sdk, err := s.openSDK()
	if err != nil {
		return nil, err
	}
	defer sdk.Close()
	return sdk.DiscoverAvailableCameras()
}

// Connect opens the first available camera and leaves it armed and
// triggered, ready for acquisition.
func (s *Server) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cam != nil {
		return xerror.New("server is already connected to a camera")
	}

	sdk, err := s.openSDK()
	if err != nil {
		return err
	}

	log.Info("Connecting to first available camera...")
	cam, err := camera.OpenFirst(ctx, sdk, cameraSettings(s.config.Acquisition))
	if err != nil {
		if cerr := sdk.Close(); cerr != nil {
			log.Error("Unable to close camera SDK: %s", cerr.Error())
		}
		return err
	}

	log.Info("Connected successfully to camera: [%s]", cam.ID())
	s.sdk = sdk
	s.cam = cam
	return nil
}

func cameraSettings(acq configdef.Acquisition) camera.Settings {
	return camera.Settings{
		ImagePollTimeout: time.Duration(acq.ImagePollTimeoutMS) * time.Millisecond,
		FramesPerTrigger: acq.FramesPerTrigger,
		ArmFrameCount:    acq.ArmFrameCount,
		ExposureTime:     time.Duration(acq.ExposureTimeUS) * time.Microsecond,
	}
}

func (s *Server) Shutdown() chan interface{} {
	s.shutdown.Do(func() {
		go func() {
			s.shutdownProcesses()
			s.closeCamera()
			close(s.shutdownDone)
		}()
	})
	return s.shutdownDone
}

func (s *Server) closeCamera() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loop != nil {
		s.loop.Close()
	}

	if s.cam != nil {
		log.Warn("Closing camera connection: [%s]...", s.cam.ID())
		if err := s.cam.Disarm(); err != nil {
			log.Error("Unable to disarm camera [%s]: %s", s.cam.ID(), err.Error())
		}
		if err := s.cam.Close(); err != nil {
			log.Error("Unable to close camera [%s]: %s", s.cam.ID(), err.Error())
		}
		s.cam = nil
	}

	if s.sdk != nil {
		if err := s.sdk.Close(); err != nil {
			log.Error("Unable to close camera SDK: %s", err.Error())
		}
		s.sdk = nil
	}
}
