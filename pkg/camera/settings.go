package camera

import "time"

type Settings struct {
	ImagePollTimeout time.Duration
	// FramesPerTrigger of zero keeps the camera streaming until disarmed.
	FramesPerTrigger int
	ArmFrameCount    int
	ExposureTime     time.Duration
}
