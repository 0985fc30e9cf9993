package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// maxSocketPathLen is the usable capacity of sockaddr_un.sun_path, minus
// the trailing NUL the kernel expects.
var maxSocketPathLen = len(unix.RawSockaddrUnix{}.Path) - 1

// Paths are the filesystem locations planned for one server run.
type Paths struct {
	// DataDir is the server data directory, created by PlanPaths.
	DataDir string

	// LogFile is the server error log. The server creates it on startup;
	// PlanPaths only names it.
	LogFile string

	// SocketPath is the Unix domain socket the server binds. It lives under
	// the system temporary directory with a unique suffix, so concurrent
	// runs on one host never collide and the path stays short no matter how
	// deep the workspace is.
	SocketPath string

	// ResultsDir holds profiling artifacts and reports, created by PlanPaths.
	ResultsDir string
}

// PlanPaths derives the runtime paths for cfg and creates the directories
// that must exist before the server starts. Directory creation is
// idempotent.
func PlanPaths(cfg Config) (Paths, error) {
	dataDir := filepath.Join(cfg.Workspace, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("%w: create data directory: %v", ErrInvalidConfig, err)
	}

	resultsDir := filepath.Join(cfg.Workspace, "results")
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("%w: create results directory: %v", ErrInvalidConfig, err)
	}

	socketPath := filepath.Join(os.TempDir(), fmt.Sprintf("mysql_%s.sock", uuid.NewString()))
	if len(socketPath) > maxSocketPathLen {
		return Paths{}, fmt.Errorf("%w: socket path %q exceeds the %d byte sockaddr_un limit", ErrInvalidConfig, socketPath, maxSocketPathLen)
	}

	return Paths{
		DataDir:    dataDir,
		LogFile:    filepath.Join(cfg.Workspace, "mariadb.err"),
		SocketPath: socketPath,
		ResultsDir: resultsDir,
	}, nil
}
