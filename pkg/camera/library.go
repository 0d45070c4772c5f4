package camera

import (
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/tauraamui/xerror"
)

const defaultLibraryDir = "lib/native"

// LibraryLocation is the directory holding a vendor SDK's native
// libraries. It is resolved once at start up and handed to whichever
// SDK needs it, the process environment is never modified.
type LibraryLocation struct {
	Path string
}

func (l LibraryLocation) IsSet() bool {
	return len(l.Path) > 0
}

// ResolveLibraryLocation checks the configured library directory exists,
// or falls back to lib/native under the working directory when nothing was
// configured. A missing fallback resolves to an unset location.
func ResolveLibraryLocation(fs afero.Fs, configured, workDir string) (LibraryLocation, error) {
	if len(configured) > 0 {
		path := configured
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}
		ok, err := afero.DirExists(fs, path)
		if err != nil {
			return LibraryLocation{}, xerror.Errorf("unable to check SDK library location: %w", err)
		}
		if !ok {
			return LibraryLocation{}, xerror.Errorf("SDK library location %s does not exist", path)
		}
		return LibraryLocation{Path: path}, nil
	}

	path := filepath.Join(workDir, defaultLibraryDir)
	if ok, _ := afero.DirExists(fs, path); ok {
		return LibraryLocation{Path: path}, nil
	}
	return LibraryLocation{}, nil
}
