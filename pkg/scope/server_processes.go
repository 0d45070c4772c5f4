package scope

import (
	"context"
	"fmt"
	"time"

	"github.com/tauraamui/scopeview/pkg/acquisition"
	"github.com/tauraamui/scopeview/pkg/database/models"
	"github.com/tauraamui/scopeview/pkg/log"
	"github.com/tauraamui/scopeview/pkg/process"
	"github.com/tauraamui/scopeview/pkg/viewer"
	"github.com/tauraamui/xerror"
)

// SetupProcesses builds the image pipeline for the connected camera's
// sensor and the acquisition worker which feeds it.
func (s *Server) SetupProcesses() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cam == nil {
		return xerror.New("no camera connected")
	}
	if s.worker != nil {
		return xerror.New("processes have already been set up")
	}

	sensor := s.cam.Sensor()
	pipeline, err := s.backend.NewPipeline(sensor, s.config.Acquisition.ForceMono)
	if err != nil {
		return xerror.Errorf("unable to build image pipeline: %w", err)
	}

	s.worker = acquisition.New(s.cam, pipeline, acquisition.Settings{
		QueueSize:    s.config.Acquisition.QueueSize,
		PollInterval: time.Duration(s.config.Acquisition.PollIntervalMS) * time.Millisecond,
	})

	if s.config.StatsIntervalSeconds > 0 {
		s.processes = append(s.processes, process.New(process.Settings{
			WaitForShutdownMsg: fmt.Sprintf("Stopping statistics for camera [%s]...", s.cam.ID()),
			Process:            process.Every(time.Duration(s.config.StatsIntervalSeconds)*time.Second, s.reportStats),
		}).Setup())
	}

	if s.sessions != nil {
		s.session = &models.Session{
			CameraID:   s.cam.ID(),
			SensorType: sensor.Type.String(),
			StartedAt:  timeNow(),
		}
		if err := s.sessions.Create(s.session); err != nil {
			log.Error("Unable to record session: %s", err.Error())
			s.session = nil
		}
	}
	return nil
}

func (s *Server) RunProcesses() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.worker == nil {
		return
	}
	s.worker.Start()
	s.running = true
	for _, proc := range s.processes {
		proc.Start()
	}
}

// View runs the consumer loop on the calling goroutine until ctx is
// cancelled, the window is closed or acquisition ends.
func (s *Server) View(ctx context.Context) error {
	s.mu.Lock()
	if s.worker == nil {
		s.mu.Unlock()
		return xerror.New("processes have not been set up")
	}
	renderer, err := s.newRenderer()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.loop = viewer.New(s.worker, renderer, viewer.Settings{
		PollInterval: time.Duration(s.config.Display.PollIntervalMS) * time.Millisecond,
	})
	loop := s.loop
	s.mu.Unlock()

	defer func() {
		if err := renderer.Close(); err != nil {
			log.Error("Unable to close display: %s", err.Error())
		}
	}()
	return loop.Run(ctx)
}

func (s *Server) newRenderer() (viewer.Renderer, error) {
	title := s.config.Display.WindowTitle
	if s.config.Display.Headless {
		return viewer.NewLogRenderer(title), nil
	}
	return s.backend.NewRenderer(title)
}

func (s *Server) reportStats() {
	s.mu.Lock()
	worker, cam := s.worker, s.cam
	s.mu.Unlock()
	if worker == nil || cam == nil {
		return
	}
	stats := worker.Output().Stats()
	log.Info("Camera [%s] frames pushed: %d, dropped: %d, shown: %d", cam.ID(), stats.Pushed, stats.Dropped, stats.Popped)
}

func (s *Server) shutdownProcesses() {
	s.mu.Lock()
	worker, running, procs := s.worker, s.running, s.processes
	s.mu.Unlock()

	if worker == nil {
		return
	}

	if running {
		for _, proc := range procs {
			proc.Stop()
			proc.Wait()
		}
	}

	// starting a stopped worker only runs its teardown
	worker.Stop()
	worker.Start()
	s.recordResult(worker.Wait())

	if n := worker.Output().Drain(); n > 0 {
		log.Debug("Released %d undisplayed frame(s)", n)
	}
}

func (s *Server) recordResult(result acquisition.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || s.sessions == nil {
		return
	}

	s.session.EndedAt = timeNow()
	s.session.FramesProduced = result.Produced
	s.session.FramesDropped = result.Dropped
	if s.worker != nil {
		s.session.FramesConsumed = s.worker.Output().Stats().Popped
	}
	s.session.StopReason = result.Reason.String()
	if result.Err != nil {
		s.session.Error = result.Err.Error()
	}
	if err := s.sessions.Save(s.session); err != nil {
		log.Error("Unable to save session [%s]: %s", s.session.UUID, err.Error())
	}
}

// Session returns the record of the current run, nil when sessions
// are not being recorded.
func (s *Server) Session() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}
