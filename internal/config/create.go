package config

import (
	"encoding/json"
	"errors"
	"os"
	"strings"

	"github.com/tauraamui/scopeview/pkg/configdef"
	"github.com/tauraamui/scopeview/pkg/log"
	"github.com/tauraamui/xerror"
)

func create() error {
	data, err := loadRawDefaultConfig()
	if err != nil {
		log.Fatal("unable to init default config into memory: %v", err)
	}

	path := mustResolveConfigPath()

	err = writeConfigToDisk(data, path, false)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return configdef.ErrConfigAlreadyExists
		}
		return err
	}

	return nil
}

func writeConfigToDisk(data []byte, path string, overwrite bool) error {
	flags := os.O_RDWR | os.O_CREATE
	if !overwrite {
		flags |= os.O_EXCL
	}

	file, err := fs.OpenFile(path, flags, 0666)
	if err != nil {
		return xerror.Errorf("unable to create/open file: %w", err)
	}
	defer file.Close()

	bc, err := file.Write(data)
	if err != nil {
		return xerror.Errorf("unable to write config to file: %s: %w", path, err)
	}

	if bc != len(data) {
		return xerror.Errorf("unable to write full config data to file: %s", path)
	}

	return nil
}

func loadRawDefaultConfig() ([]byte, error) {
	sim := defaultSettings[SIMULATEDCAMERA].(configdef.SimulatedCamera)
	sim.Serial = "SIM-00001"
	return json.MarshalIndent(
		configdef.Values{
			Backend:              defaultSettings[BACKEND].(string),
			StatsIntervalSeconds: defaultSettings[STATSINTERVAL].(int),
			Acquisition: configdef.Acquisition{
				QueueSize:     defaultSettings[QUEUESIZE].(int),
				ArmFrameCount: defaultSettings[ARMFRAMECOUNT].(int),
			},
			Display: configdef.Display{
				WindowTitle: defaultSettings[WINDOWTITLE].(string),
			},
			OpenCVDevices:    defaultSettings[OPENCVDEVICES].([]string),
			SimulatedCameras: []configdef.SimulatedCamera{sim},
		}, "", " ")
}

func mustResolveConfigPath() string {
	path, err := resolveConfigPath()
	if err != nil {
		log.Fatal("unable to resolve config path: %v", err)
	}

	parentDirPath := strings.Replace(path, configFileName, "", -1)
	if _, err := fs.Stat(parentDirPath); errors.Is(err, os.ErrNotExist) {
		err = fs.MkdirAll(parentDirPath, os.ModeDir|os.ModePerm)
		if err != nil {
			log.Fatal("unable to create config parent directory: %v", err)
		}
	}

	return path
}
