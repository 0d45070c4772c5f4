package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/tauraamui/scopeview/pkg/configdef"
	"github.com/tauraamui/scopeview/pkg/log"
	"github.com/tauraamui/xerror"
)

const (
	vendorName     = "tacusci"
	appName        = "scopeview"
	configFileName = "config.json"
)

var fs afero.Fs = afero.NewOsFs()

func load() (configdef.Values, error) {
	var values configdef.Values

	configPath, err := resolveConfigPath()
	if err != nil {
		return configdef.Values{}, err
	}

	log.Info("Resolved config file location: %s", configPath)
	file, err := readConfigFile(configPath)
	if err != nil {
		return configdef.Values{}, err
	}

	if err := unmarshal(file, &values); err != nil {
		return configdef.Values{}, err
	}

	loadDefaults(&values)

	if err = values.RunValidate(); err != nil {
		return configdef.Values{}, err
	}

	return values, nil
}

func loadDefaults(values *configdef.Values) {
	if len(values.Backend) == 0 {
		values.Backend = defaultSettings[BACKEND].(string)
	}

	acq := &values.Acquisition
	if acq.QueueSize == 0 {
		acq.QueueSize = defaultSettings[QUEUESIZE].(int)
	}
	if acq.ArmFrameCount == 0 {
		acq.ArmFrameCount = defaultSettings[ARMFRAMECOUNT].(int)
	}

	if len(values.Display.WindowTitle) == 0 {
		values.Display.WindowTitle = defaultSettings[WINDOWTITLE].(string)
	}

	if len(values.OpenCVDevices) == 0 {
		values.OpenCVDevices = defaultSettings[OPENCVDEVICES].([]string)
	}

	for i := range values.SimulatedCameras {
		loadSimulatedCameraDefaults(&values.SimulatedCameras[i])
	}
}

func loadSimulatedCameraDefaults(cam *configdef.SimulatedCamera) {
	d := defaultSettings[SIMULATEDCAMERA].(configdef.SimulatedCamera)
	if len(cam.SensorType) == 0 {
		cam.SensorType = d.SensorType
	}
	if len(cam.Phase) == 0 {
		cam.Phase = d.Phase
	}
	if cam.Width == 0 {
		cam.Width = d.Width
	}
	if cam.Height == 0 {
		cam.Height = d.Height
	}
	if cam.BitDepth == 0 {
		cam.BitDepth = d.BitDepth
	}
	if cam.FPS == 0 {
		cam.FPS = d.FPS
	}
}

var readConfigFile = func(path string) ([]byte, error) {
	return afero.ReadFile(fs, path)
}

func unmarshal(content []byte, values *configdef.Values) error {
	err := json.Unmarshal(content, values)
	if err != nil {
		return errors.Errorf("parsing configuration error: %v", err)
	}
	return nil
}

func resolveConfigPath() (string, error) {
	configPath := os.Getenv("SCOPEVIEW_CONFIG")
	if len(configPath) > 0 {
		return configPath, nil
	}

	configParentDir, err := userConfigDir()
	if err != nil {
		return "", xerror.Errorf("unable to resolve %s location: %w", configFileName, err)
	}

	return filepath.Join(
		configParentDir,
		vendorName,
		appName,
		configFileName), nil
}

var userConfigDir = func() (string, error) {
	return os.UserConfigDir()
}
