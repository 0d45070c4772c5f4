package config

import "github.com/tauraamui/scopeview/pkg/configdef"

type defaultSettingKey uint

const (
	BACKEND         defaultSettingKey = 0x0
	QUEUESIZE       defaultSettingKey = 0x1
	ARMFRAMECOUNT   defaultSettingKey = 0x2
	WINDOWTITLE     defaultSettingKey = 0x3
	OPENCVDEVICES   defaultSettingKey = 0x4
	SIMULATEDCAMERA defaultSettingKey = 0x5
	STATSINTERVAL   defaultSettingKey = 0x6
)

var defaultSettings = map[defaultSettingKey]interface{}{
	BACKEND:       configdef.BackendOpenCV,
	QUEUESIZE:     2,
	ARMFRAMECOUNT: 2,
	WINDOWTITLE:   "img",
	OPENCVDEVICES: []string{"0"},
	SIMULATEDCAMERA: configdef.SimulatedCamera{
		SensorType: "bayer",
		Phase:      "rggb",
		Width:      640,
		Height:     480,
		BitDepth:   12,
		FPS:        30,
	},
	STATSINTERVAL: 10,
}
