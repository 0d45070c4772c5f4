package camera

import (
	"context"

	"github.com/tauraamui/scopeview/pkg/log"
	"github.com/tauraamui/xerror"
)

var ErrNoCameraDetected = xerror.New("no camera detected")

// OpenFirst opens the first camera the SDK can find and leaves it armed
// and triggered so frames start arriving straight away.
func OpenFirst(ctx context.Context, sdk SDK, settings Settings) (Camera, error) {
	ids, err := sdk.DiscoverAvailableCameras()
	if err != nil {
		return nil, xerror.Errorf("unable to discover cameras: %w", err)
	}

	if len(ids) == 0 {
		return nil, ErrNoCameraDetected
	}

	cam, err := sdk.OpenCamera(ctx, ids[0])
	if err != nil {
		return nil, xerror.Errorf("unable to open camera [%s]: %w", ids[0], err)
	}
	log.Info("%s Camera Open", ids[0])

	if err := configure(cam, settings); err != nil {
		cam.Close() //nolint
		return nil, xerror.Errorf("unable to initialise camera [%s]: %w", ids[0], err)
	}

	return cam, nil
}

func configure(cam Camera, settings Settings) error {
	if err := cam.SetImagePollTimeout(settings.ImagePollTimeout); err != nil {
		return err
	}

	if err := cam.SetFramesPerTrigger(settings.FramesPerTrigger); err != nil {
		return err
	}

	if settings.ExposureTime > 0 {
		if err := cam.SetExposureTime(settings.ExposureTime); err != nil {
			return err
		}
	}

	armCount := settings.ArmFrameCount
	if armCount < 1 {
		armCount = 2
	}
	if err := cam.Arm(armCount); err != nil {
		return err
	}

	return cam.IssueSoftwareTrigger()
}
