package core

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
)

// CoreDB bundles the storage interfaces and is the receiver of the whole
// engine: status policy enforcement, lock vault, share registry, task lock
// bridge and the access controller all hang off it.
type CoreDB struct {
	DimensionDB
	ItemDB
	LockDB
	ShareDB
	TaskLockDB

	SessionManager *scs.SessionManager
	SqlDB          *sql.DB

	// AttemptWindow overrides DefaultAttemptWindow when positive.
	AttemptWindow time.Duration

	// Now is the engine clock, settable in tests. Defaults to time.Now.
	Now func() time.Time

	trees treeLocks
}

func (c *CoreDB) Init(sessionStore scs.Store, cookiePath string) error {

	c.SessionManager = scs.New()
	c.SessionManager.Store = sessionStore
	c.SessionManager.Cookie.Path = cookiePath + "/"
	c.SessionManager.Cookie.Persist = false
	c.SessionManager.Cookie.SameSite = http.SameSiteLaxMode
	c.SessionManager.Cookie.Secure = false // else running on localhost or behind a http proxy fails
	c.SessionManager.IdleTimeout = 12 * time.Hour
	c.SessionManager.Lifetime = 720 * time.Hour

	return nil
}

func (c *CoreDB) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *CoreDB) attemptWindow() time.Duration {
	if c.AttemptWindow > 0 {
		return c.AttemptWindow
	}
	return DefaultAttemptWindow
}
