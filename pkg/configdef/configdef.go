package configdef

import (
	"errors"
	"fmt"

	"github.com/tauraamui/scopeview/pkg/camera"
	"gopkg.in/dealancer/validate.v2"
)

const (
	BackendOpenCV    = "opencv"
	BackendSimulated = "simulated"
)

type Acquisition struct {
	QueueSize          int  `json:"queue_size" validate:"gte=1 & lte=64"`
	ArmFrameCount      int  `json:"arm_frame_count" validate:"gte=1 & lte=16"`
	FramesPerTrigger   int  `json:"frames_per_trigger" validate:"gte=0"`
	ImagePollTimeoutMS int  `json:"image_poll_timeout_ms" validate:"gte=0 & lte=1000"`
	PollIntervalMS     int  `json:"poll_interval_ms" validate:"gte=0 & lte=1000"`
	ExposureTimeUS     int  `json:"exposure_time_us" validate:"gte=0"`
	ForceMono          bool `json:"force_mono"`
}

type Display struct {
	Headless       bool   `json:"headless"`
	WindowTitle    string `json:"window_title"`
	PollIntervalMS int    `json:"poll_interval_ms" validate:"gte=0 & lte=1000"`
}

type SimulatedCamera struct {
	Serial     string `json:"serial" validate:"empty=false"`
	SensorType string `json:"sensor_type"`
	Phase      string `json:"color_filter_array_phase"`
	Width      int    `json:"width" validate:"gte=16 & lte=8192"`
	Height     int    `json:"height" validate:"gte=16 & lte=8192"`
	BitDepth   int    `json:"bit_depth" validate:"gte=8 & lte=16"`
	FPS        int    `json:"fps" validate:"gte=1 & lte=240"`
}

type Values struct {
	Debug                bool              `json:"debug"`
	Backend              string            `json:"backend"`
	SDKLibraryPath       string            `json:"sdk_library_path"`
	RecordSessions       bool              `json:"record_sessions"`
	StatsIntervalSeconds int               `json:"stats_interval_seconds" validate:"gte=0 & lte=3600"`
	Acquisition          Acquisition       `json:"acquisition"`
	Display              Display           `json:"display"`
	OpenCVDevices        []string          `json:"opencv_devices"`
	SimulatedCameras     []SimulatedCamera `json:"simulated_cameras"`
}

// RunValidate runs the struct tag validators first, and then
// the checks which need to look across more than one field.
func (v Values) RunValidate() error {
	if err := validate.Validate(&v); err != nil {
		return err
	}
	return v.Validate()
}

func (v Values) Validate() error {
	const validationErrorHeader = "validation failed: %w"
	switch v.Backend {
	case "", BackendOpenCV, BackendSimulated:
	default:
		return fmt.Errorf(validationErrorHeader, fmt.Errorf("unknown backend: %s", v.Backend))
	}

	if HasDupSimulatedSerials(v.SimulatedCameras) {
		return fmt.Errorf(validationErrorHeader, errors.New("simulated camera serials must be unique"))
	}

	for _, cam := range v.SimulatedCameras {
		if len(cam.SensorType) > 0 {
			if _, err := camera.ParseSensorType(cam.SensorType); err != nil {
				return fmt.Errorf(validationErrorHeader, err)
			}
		}
		if len(cam.Phase) > 0 {
			if _, err := camera.ParsePhase(cam.Phase); err != nil {
				return fmt.Errorf(validationErrorHeader, err)
			}
		}
	}
	return nil
}

func HasDupSimulatedSerials(cameras []SimulatedCamera) bool {
	seen := map[string]struct{}{}
	for _, cam := range cameras {
		if _, ok := seen[cam.Serial]; ok {
			return true
		}
		seen[cam.Serial] = struct{}{}
	}
	return false
}
