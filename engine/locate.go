package engine

import (
	"fmt"
	"os"
	"path/filepath"
)

// Names of the server executables looked up under the root directory.
const (
	installExecutable = "mariadb-install-db"
	serverExecutable  = "mariadbd"
)

// LocateExecutable finds name one directory level below rootDir. Build trees
// keep mariadbd under sql/ and mariadb-install-db under scripts/, install
// trees keep both under bin/ and scripts/; the single-level glob covers all
// of them.
func LocateExecutable(rootDir, name string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(rootDir, "*", name))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrExecutableNotFound, name, err)
	}
	for _, m := range matches {
		info, err := os.Stat(m)
		if err == nil && info.Mode().IsRegular() {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: no %s under %s", ErrExecutableNotFound, name, filepath.Join(rootDir, "*"))
}
