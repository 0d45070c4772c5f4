package scope

import (
	"github.com/tauraamui/scopeview/pkg/camera"
	"github.com/tauraamui/scopeview/pkg/configdef"
	"github.com/tauraamui/xerror"
)

// SimulatedCameras converts configured simulated cameras into the
// settings the simulated SDK expects. Empty fields take the defaults
// of a bayer rggb sensor.
func SimulatedCameras(configured []configdef.SimulatedCamera) ([]camera.SimulatedCameraSettings, error) {
	settings := make([]camera.SimulatedCameraSettings, 0, len(configured))
	for _, c := range configured {
		sensorType := camera.BAYER
		if len(c.SensorType) > 0 {
			t, err := camera.ParseSensorType(c.SensorType)
			if err != nil {
				return nil, xerror.Errorf("simulated camera [%s]: %w", c.Serial, err)
			}
			sensorType = t
		}

		phase := camera.RGGB
		if len(c.Phase) > 0 {
			p, err := camera.ParsePhase(c.Phase)
			if err != nil {
				return nil, xerror.Errorf("simulated camera [%s]: %w", c.Serial, err)
			}
			phase = p
		}

		settings = append(settings, camera.SimulatedCameraSettings{
			Serial:   c.Serial,
			Type:     sensorType,
			Phase:    phase,
			Width:    c.Width,
			Height:   c.Height,
			BitDepth: c.BitDepth,
			FPS:      c.FPS,
		})
	}
	return settings, nil
}
