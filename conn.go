package mariabench

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Connection retry defaults. The socket file appearing means the listener
// exists, not that the server accepts logical sessions yet, so the first
// connection is verified with a bounded ping-retry loop.
const (
	DefaultConnectUser          = "root"
	DefaultConnectRetryInterval = 250 * time.Millisecond
	DefaultConnectRetryWindow   = 5 * time.Second
)

// Connector dials the benchmark server over its Unix domain socket. The
// zero value uses the package defaults.
type Connector struct {
	// User is the SQL user name. Grant checks are disabled on the benchmark
	// server, so any name is accepted.
	User string

	// RetryInterval is the pause between connection attempts.
	RetryInterval time.Duration

	// RetryWindow bounds the total time spent retrying before giving up.
	RetryWindow time.Duration
}

// Connect opens a database handle bound to socketPath and blocks until the
// server accepts a session, the retry window closes, or ctx is canceled.
// The returned handle has been pinged.
func (c Connector) Connect(ctx context.Context, socketPath string) (*sql.DB, error) {
	if c.User == "" {
		c.User = DefaultConnectUser
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultConnectRetryInterval
	}
	if c.RetryWindow <= 0 {
		c.RetryWindow = DefaultConnectRetryWindow
	}

	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Net = "unix"
	cfg.Addr = socketPath

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)

	deadline := time.Now().Add(c.RetryWindow)
	for {
		err = db.PingContext(ctx)
		if err == nil {
			return db, nil
		}
		if ctx.Err() != nil {
			_ = db.Close()
			return nil, ctx.Err()
		}
		if time.Now().After(deadline) {
			_ = db.Close()
			return nil, err
		}

		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(c.RetryInterval):
		}
	}
}
