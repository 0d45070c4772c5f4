package videobackend

var (
	CorrectAndScale = correctAndScale
	ScaleMono       = scaleMono
	BayerConversion = bayerConversion
	Uint16sToBytes  = uint16sToBytes
)

type VideoCapture = videoCapture
type ImageWindow = imageWindow

func OverloadOpenVideoCapture(overload func(string) (videoCapture, error)) func() {
	openVideoCaptureRef := openVideoCapture
	openVideoCapture = overload
	return func() { openVideoCapture = openVideoCaptureRef }
}

func OverloadNewWindow(overload func(string) imageWindow) func() {
	newWindowRef := newWindow
	newWindow = overload
	return func() { newWindow = newWindowRef }
}
