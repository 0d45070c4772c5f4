package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/tacusci/logging/v2"
	"github.com/tauraamui/scopeview/pkg/config"
	"github.com/tauraamui/scopeview/pkg/configdef"
	db "github.com/tauraamui/scopeview/pkg/database"
	"github.com/tauraamui/scopeview/pkg/database/models"
	"github.com/tauraamui/scopeview/pkg/database/repos"
	"github.com/tauraamui/scopeview/pkg/log"
	"github.com/tauraamui/scopeview/pkg/scope"
	"github.com/tauraamui/scopeview/pkg/video/videobackend"
	"gocv.io/x/gocv"
)

const (
	usage               = "Usage: scopeview [setup | remove-setup | cameras | sessions]"
	recentSessionsLimit = 10
)

type App struct{}

// Setup writes the default config file and creates the session database.
func (app *App) Setup() (string, error) {
	log.Info("Setting up scopeview...")

	err := config.DefaultCreator().Create()
	if err != nil {
		if !errors.Is(err, configdef.ErrConfigAlreadyExists) {
			return "", err
		}
		log.Error(err.Error())
	}

	err = db.Setup()
	if err != nil {
		if !errors.Is(err, db.ErrDBAlreadyExists) {
			return "", err
		}
		log.Error(err.Error())
	}

	return "Setup successful...", nil
}

func (app *App) RemoveSetup() (string, error) {
	log.Info("Removing setup for scopeview...")
	if err := db.Destroy(); err != nil {
		log.Error("unable to delete database file: %s", err.Error())
	}

	if err := config.DefaultDestroyer().Destroy(); err != nil {
		log.Error(err.Error())
	}

	return "Removing setup successful...", nil
}

func (app *App) Cameras() (string, error) {
	server, err := newServer()
	if err != nil {
		return "", err
	}

	ids, err := server.Cameras()
	if err != nil {
		return "", err
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return fmt.Sprintf("Found %d camera(s)", len(ids)), nil
}

func (app *App) Sessions() (string, error) {
	conn, err := db.Connect()
	if err != nil {
		return "", err
	}
	defer conn.Close()

	repo := repos.SessionRepository{DB: conn}
	sessions, err := repo.Recent(recentSessionsLimit)
	if err != nil {
		return "", err
	}
	for _, s := range sessions {
		fmt.Println(formatSession(s))
	}
	return fmt.Sprintf("Listed %d session(s)", len(sessions)), nil
}

func formatSession(s models.Session) string {
	line := fmt.Sprintf(
		"%s  %s  camera=%s sensor=%s duration=%s produced=%d dropped=%d shown=%d stop=%s",
		s.UUID, s.StartedAt.Format(time.RFC3339), s.CameraID, s.SensorType,
		s.Duration().Round(time.Millisecond), s.FramesProduced, s.FramesDropped, s.FramesConsumed,
		s.StopReason,
	)
	if len(s.Error) > 0 {
		line = fmt.Sprintf("%s error=%q", line, s.Error)
	}
	return line
}

func (app *App) Manage() (string, error) {
	if len(os.Args) > 1 {
		command := os.Args[1]
		switch command {
		case "setup":
			return app.Setup()
		case "remove-setup":
			return app.RemoveSetup()
		case "cameras":
			return app.Cameras()
		case "sessions":
			return app.Sessions()
		default:
			return usage, nil
		}
	}

	return app.View()
}

// View shows the first camera until the window is closed, the process
// is interrupted or acquisition fails.
func (app *App) View() (string, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)
	go func() {
		select {
		case killSignal := <-interrupt:
			fmt.Print("\r")
			log.Error("Received signal: %s", killSignal)
			cancel()
		case <-ctx.Done():
		}
	}()

	log.Info("Starting scopeview...")

	server, err := newServer()
	if err != nil {
		return "", err
	}

	if server.Config().RecordSessions {
		conn, err := db.Connect()
		if err != nil {
			log.Error("Unable to record sessions: %s", err.Error())
		} else {
			defer conn.Close()
			server.RecordSessionsTo(&repos.SessionRepository{DB: conn})
		}
	}

	viewErr := startupServer(ctx, server)

	log.Info("Shutting down server...")
	<-server.Shutdown()

	if server.Config().Debug {
		var b bytes.Buffer
		gocv.MatProfile.WriteTo(&b, 1)
		fmt.Print(b.String())
	}

	if viewErr != nil {
		return "", viewErr
	}
	return "Shutdown successful... BYE! 👋", nil
}

func startupServer(ctx context.Context, server *scope.Server) error {
	if err := server.Connect(ctx); err != nil {
		return err
	}
	if err := server.SetupProcesses(); err != nil {
		return err
	}
	server.RunProcesses()
	return server.View(ctx)
}

func newServer() (*scope.Server, error) {
	return scope.NewServer(config.DefaultResolver(), resolveBackend, os.Getenv("SCOPEVIEW_VIDEO_BACKEND"))
}

func resolveBackend(name string, values configdef.Values) (scope.Backend, error) {
	simulated, err := scope.SimulatedCameras(values.SimulatedCameras)
	if err != nil {
		return nil, err
	}

	backend, err := videobackend.Resolve(name, videobackend.Options{
		OpenCVDevices:    values.OpenCVDevices,
		SimulatedCameras: simulated,
	})
	if err != nil {
		return nil, err
	}
	return backend, nil
}

func init() {
	// OpenCV windows have to be driven from the main thread
	runtime.LockOSThread()
	log.Configure(os.Getenv("SCOPEVIEW_LOGGING_LEVEL"))
}

func main() {
	app := &App{}
	status, err := app.Manage()
	if err != nil {
		logging.Error(err.Error()) //nolint
		os.Exit(1)
	}

	if len(strings.TrimSpace(status)) > 0 {
		logging.Info(status) //nolint
	}
}
