package directive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFile is looked up next to the sources of every instrumented
// package.
const ConfigFile = ".oofgen.yaml"

// LoadDir reads the package-level configuration from dir. A missing file
// is not an error: the second result reports whether one was found.
func LoadDir(dir string) (Options, bool, error) {
	var opts Options

	raw, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return opts, false, nil
		}
		return opts, false, fmt.Errorf("read %s in %s: %w", ConfigFile, dir, err)
	}

	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return opts, false, fmt.Errorf("parse %s in %s: %w", ConfigFile, dir, err)
	}

	return opts, true, nil
}
