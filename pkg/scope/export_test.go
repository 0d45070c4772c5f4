package scope

import "github.com/spf13/afero"

func OverloadFS(overload afero.Fs) func() {
	fsRef := fs
	fs = overload
	return func() { fs = fsRef }
}

func OverloadWorkingDir(overload func() (string, error)) func() {
	workingDirRef := workingDir
	workingDir = overload
	return func() { workingDir = workingDirRef }
}

func (s *Server) ReportStats() { s.reportStats() }
