package configdef_test

import (
	"encoding/json"
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/scopeview/pkg/configdef"
)

const validBody = `{
	"backend": "simulated",
	"stats_interval_seconds": 5,
	"acquisition": {
		"queue_size": 2,
		"arm_frame_count": 2,
		"frames_per_trigger": 0,
		"image_poll_timeout_ms": 0,
		"poll_interval_ms": 1
	},
	"display": {
		"window_title": "img"
	},
	"simulated_cameras": [
		{
			"serial": "SIM-01",
			"sensor_type": "bayer",
			"color_filter_array_phase": "rggb",
			"width": 640,
			"height": 480,
			"bit_depth": 12,
			"fps": 30
		}
	]
}`

func loadValid(is *is.I) configdef.Values {
	config := configdef.Values{}
	is.NoErr(json.Unmarshal([]byte(validBody), &config))
	return config
}

func TestValidatePopulatedConfigPassesValidation(t *testing.T) {
	is := is.New(t)
	config := loadValid(is)
	is.NoErr(config.RunValidate())
	is.Equal(config.Acquisition.QueueSize, 2)
	is.Equal(config.SimulatedCameras[0].BitDepth, 12)
}

func TestValidateFailsForQueueSizeLessThan1(t *testing.T) {
	is := is.New(t)
	config := loadValid(is)
	config.Acquisition.QueueSize = 0
	is.Equal(config.RunValidate().Error(), `Validation error in field "QueueSize" of type "int" using validator "gte=1"`)
}

func TestValidateFailsForQueueSizeMoreThan64(t *testing.T) {
	is := is.New(t)
	config := loadValid(is)
	config.Acquisition.QueueSize = 65
	is.Equal(config.RunValidate().Error(), `Validation error in field "QueueSize" of type "int" using validator "lte=64"`)
}

func TestValidateFailsForBlankSimulatedSerial(t *testing.T) {
	is := is.New(t)
	config := loadValid(is)
	config.SimulatedCameras[0].Serial = ""
	is.Equal(config.RunValidate().Error(), `Validation error in field "Serial" of type "string" using validator "empty=false"`)
}

func TestValidateFailsForBitDepthMoreThan16(t *testing.T) {
	is := is.New(t)
	config := loadValid(is)
	config.SimulatedCameras[0].BitDepth = 32
	is.Equal(config.RunValidate().Error(), `Validation error in field "BitDepth" of type "int" using validator "lte=16"`)
}

func TestValidateFailsForUnknownBackend(t *testing.T) {
	is := is.New(t)
	config := loadValid(is)
	config.Backend = "vendor"
	is.Equal(config.RunValidate().Error(), "validation failed: unknown backend: vendor")
}

func TestValidateFailsForUnknownSensorType(t *testing.T) {
	is := is.New(t)
	config := loadValid(is)
	config.SimulatedCameras[0].SensorType = "ir"
	is.Equal(config.RunValidate().Error(), "validation failed: unknown sensor type: ir")
}

func TestValidateAcceptsSensorTypeAndPhaseSpellings(t *testing.T) {
	is := is.New(t)
	config := loadValid(is)
	config.SimulatedCameras[0].SensorType = "Monochrome"
	config.SimulatedCameras[0].Phase = "GBRG"
	is.NoErr(config.RunValidate())

	config.SimulatedCameras[0].SensorType = ""
	config.SimulatedCameras[0].Phase = ""
	is.NoErr(config.RunValidate())
}

func TestValidateFailsForUnknownPhase(t *testing.T) {
	is := is.New(t)
	config := loadValid(is)
	config.SimulatedCameras[0].Phase = "rgbg"
	is.Equal(config.RunValidate().Error(), "validation failed: unknown colour filter array phase: rgbg")
}

func TestValidateFailsForNonUniqueSimulatedSerials(t *testing.T) {
	is := is.New(t)
	config := loadValid(is)
	config.SimulatedCameras = append(config.SimulatedCameras, config.SimulatedCameras[0])
	is.Equal(config.RunValidate().Error(), "validation failed: simulated camera serials must be unique")
}

func TestHasDupSimulatedSerials(t *testing.T) {
	is := is.New(t)
	is.True(configdef.HasDupSimulatedSerials(nil) == false)
	is.True(configdef.HasDupSimulatedSerials([]configdef.SimulatedCamera{
		{Serial: "A"}, {Serial: "B"}, {Serial: "C"},
	}) == false)
	is.True(configdef.HasDupSimulatedSerials([]configdef.SimulatedCamera{
		{Serial: "A"}, {Serial: "B"}, {Serial: "C"}, {Serial: "A"},
	}))
}
