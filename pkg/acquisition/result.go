package acquisition

type StopReason int

const (
	Stopped StopReason = iota
	SourceFatal
)

func (r StopReason) String() string {
	switch r {
	case SourceFatal:
		return "source fatal"
	default:
		return "stopped"
	}
}

// Result describes why a worker's loop ended. Err is only set
// when the reason is SourceFatal.
type Result struct {
	Reason   StopReason
	Err      error
	Produced uint64
	Dropped  uint64
}
