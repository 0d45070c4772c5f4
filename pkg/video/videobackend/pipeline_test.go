package videobackend_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tauraamui/scopeview/pkg/camera"
	"github.com/tauraamui/scopeview/pkg/log"
	"github.com/tauraamui/scopeview/pkg/video/videobackend"
	"github.com/tauraamui/scopeview/pkg/video/videoframe"
	"gocv.io/x/gocv"
)

func overloadInfoLog(overload func(string, ...interface{})) func() {
	logInfoRef := log.Info
	log.Info = overload
	return func() { log.Info = logInfoRef }
}

func uniformRaw(w, h, bitDepth int, v uint16) *camera.RawFrame {
	data := make([]uint16, w*h)
	for i := range data {
		data[i] = v
	}
	return &camera.RawFrame{Count: 1, Width: w, Height: h, BitDepth: bitDepth, Data: data}
}

func matOf(t *testing.T, frame videoframe.Frame) *gocv.Mat {
	mat, ok := frame.DataRef().(*gocv.Mat)
	require.True(t, ok)
	return mat
}

func TestNewPipelineRejectsUnsupportedBitDepth(t *testing.T) {
	is := is.New(t)
	p, err := videobackend.NewPipeline(camera.Sensor{BitDepth: 4}, false)
	is.True(p == nil)
	is.Equal(err.Error(), "unsupported sensor bit depth: 4")
}

func TestMonoPipelineScalesSamplesToGrey(t *testing.T) {
	is := is.New(t)

	p, err := videobackend.NewPipeline(camera.Sensor{Type: camera.MONOCHROME, Width: 2, Height: 2, BitDepth: 10}, false)
	is.NoErr(err)
	defer p.Close()

	frame, err := p.Transform(&camera.RawFrame{Width: 2, Height: 2, BitDepth: 10, Data: []uint16{0, 4, 400, 1023}})
	is.NoErr(err)
	defer frame.Close()

	mat := matOf(t, frame)
	is.Equal(mat.Channels(), 1)
	is.Equal(frame.Dimensions(), videoframe.Dimensions{W: 2, H: 2})
	is.Equal(mat.ToBytes(), []byte{0, 1, 100, 255})
}

func TestColorPipelineDemosaicsAndAppliesCorrection(t *testing.T) {
	is := is.New(t)

	sensor := camera.Sensor{
		Type: camera.BAYER, Width: 4, Height: 4, BitDepth: 12, Phase: camera.RGGB,
		ColorCorrection: camera.Identity,
		WhiteBalance:    camera.Matrix3{2, 0, 0, 0, 1, 0, 0, 0, 0.5},
	}
	p, err := videobackend.NewPipeline(sensor, false)
	is.NoErr(err)
	defer p.Close()

	frame, err := p.Transform(uniformRaw(4, 4, 12, 1600))
	is.NoErr(err)
	defer frame.Close()

	mat := matOf(t, frame)
	is.Equal(mat.Channels(), 3)
	px := mat.ToBytes()
	is.Equal(len(px), 4*4*3)
	for i := 0; i < len(px); i += 3 {
		is.Equal(px[i:i+3], []byte{50, 100, 200}) // BGR after white balance
	}
}

func TestColorPipelineForcedMonoProducesGrey(t *testing.T) {
	is := is.New(t)

	p, err := videobackend.NewPipeline(camera.Sensor{Type: camera.BAYER, Width: 4, Height: 4, BitDepth: 8}, true)
	is.NoErr(err)
	defer p.Close()

	frame, err := p.Transform(uniformRaw(4, 4, 8, 42))
	is.NoErr(err)
	defer frame.Close()
	is.Equal(matOf(t, frame).Channels(), 1)
}

func TestColorPipelineLogsDimensionChangeOnce(t *testing.T) {
	var infoLogs []string
	reset := overloadInfoLog(func(format string, a ...interface{}) {
		infoLogs = append(infoLogs, fmt.Sprintf(format, a...))
	})
	defer reset()

	p, err := videobackend.NewPipeline(camera.Sensor{Type: camera.BAYER, Width: 8, Height: 8, BitDepth: 8}, false)
	require.NoError(t, err)
	defer p.Close()

	for i := 0; i < 2; i++ {
		frame, err := p.Transform(uniformRaw(4, 4, 8, 10))
		require.NoError(t, err)
		assert.Equal(t, videoframe.Dimensions{W: 4, H: 4}, frame.Dimensions())
		frame.Close()
	}
	assert.Equal(t, []string{"Image dimension change detected, image acquisition thread was updated"}, infoLogs)
}

func TestPipelinesRejectMalformedFrames(t *testing.T) {
	is := is.New(t)

	for _, forceMono := range []bool{false, true} {
		p, err := videobackend.NewPipeline(camera.Sensor{Type: camera.BAYER, Width: 4, Height: 4, BitDepth: 8}, forceMono)
		is.NoErr(err)

		frame, err := p.Transform(&camera.RawFrame{Width: 4, Height: 4, BitDepth: 8, Data: make([]uint16, 3)})
		is.True(frame == nil)
		is.Equal(err.Error(), "raw frame holds 3 samples, expected 16")

		frame, err = p.Transform(&camera.RawFrame{Width: 0, Height: 4, BitDepth: 8})
		is.True(frame == nil)
		is.Equal(err.Error(), "invalid raw frame size: 0x4")
		is.NoErr(p.Close())
	}
}

func TestClosedColorPipelineRejectsFrames(t *testing.T) {
	is := is.New(t)

	p, err := videobackend.NewPipeline(camera.Sensor{Type: camera.BAYER, Width: 4, Height: 4, BitDepth: 8}, false)
	is.NoErr(err)
	is.NoErr(p.Close())
	is.NoErr(p.Close())

	_, err = p.Transform(uniformRaw(4, 4, 8, 1))
	is.Equal(err.Error(), "colour pipeline has been closed")
}

func TestColorPipelineWithSimulatedCamera(t *testing.T) {
	is := is.New(t)

	sdk := camera.NewSimulatedSDK(camera.LibraryLocation{}, []camera.SimulatedCameraSettings{
		{Serial: "SIM-1", Type: camera.BAYER, Phase: camera.GBRG, Width: 64, Height: 48, BitDepth: 12, FPS: 240},
	})
	cam, err := camera.OpenFirst(context.Background(), sdk, camera.Settings{})
	is.NoErr(err)
	defer cam.Close()

	p, err := videobackend.NewPipeline(cam.Sensor(), false)
	is.NoErr(err)
	defer p.Close()

	raw, err := cam.PendingFrame()
	is.NoErr(err)
	is.True(raw != nil) // the first frame is always due

	frame, err := p.Transform(raw)
	is.NoErr(err)
	defer frame.Close()
	is.Equal(frame.Dimensions(), videoframe.Dimensions{W: 64, H: 48})
	is.Equal(matOf(t, frame).Channels(), 3)
}

func TestScaleMono(t *testing.T) {
	is := is.New(t)
	is.Equal(videobackend.ScaleMono([]uint16{0, 4, 400, 1023, 2000}, 10), []byte{0, 1, 100, 255, 255})
	is.Equal(videobackend.ScaleMono([]uint16{7, 255}, 8), []byte{7, 255})
}

func TestCorrectAndScale(t *testing.T) {
	is := is.New(t)

	bgr := videobackend.Uint16sToBytes([]uint16{16, 1600, 4095})
	is.Equal(videobackend.CorrectAndScale(bgr, camera.Identity, 12), []byte{1, 100, 255})

	swap := camera.Matrix3{0, 0, 1, 0, 1, 0, 1, 0, 0}
	is.Equal(videobackend.CorrectAndScale(bgr, swap, 12), []byte{255, 100, 1}) // red and blue swapped

	negative := camera.Matrix3{-1, 0, 0, 0, 1, 0, 0, 0, 1}
	is.Equal(videobackend.CorrectAndScale(bgr, negative, 12), []byte{1, 100, 0})
}

func TestBayerConversionFollowsPhase(t *testing.T) {
	is := is.New(t)
	is.Equal(videobackend.BayerConversion(camera.RGGB), gocv.ColorBayerBGToBGR)
	is.Equal(videobackend.BayerConversion(camera.BGGR), gocv.ColorBayerRGToBGR)
	is.Equal(videobackend.BayerConversion(camera.GRBG), gocv.ColorBayerGBToBGR)
	is.Equal(videobackend.BayerConversion(camera.GBRG), gocv.ColorBayerGRToBGR)
}
