package resource

import (
	"fmt"
	"io"
	"sync"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS resources (
	url     TEXT PRIMARY KEY,
	fetched INTEGER NOT NULL,
	data    BLOB NOT NULL
);
`

// Cache keeps fetched remote resources in SQLite database between runs.
type Cache struct {
	mu   sync.Mutex
	conn *sqlite.Conn
	ttl  time.Duration
	now  func() time.Time
}

// OpenCache opens (creating if necessary) cache database at path. Entries
// older than ttl are ignored, zero ttl means entries never expire.
func OpenCache(path string, ttl time.Duration) (*Cache, error) {
	flags := []sqlite.OpenFlags{sqlite.OpenReadWrite, sqlite.OpenCreate, sqlite.OpenWAL}
	if path == ":memory:" {
		flags = []sqlite.OpenFlags{sqlite.OpenReadWrite, sqlite.OpenMemory}
	}
	conn, err := sqlite.OpenConn(path, flags...)
	if err != nil {
		return nil, fmt.Errorf("open resource cache %s: %w", path, err)
	}
	if err := sqlitex.ExecuteScript(conn, cacheSchema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("prepare resource cache: %w", err)
	}
	return &Cache{conn: conn, ttl: ttl, now: time.Now}, nil
}

// Get returns cached data for the url if present and not expired.
func (c *Cache) Get(url string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var (
		data    []byte
		fetched int64
		found   bool
	)
	err := sqlitex.Execute(c.conn, `SELECT fetched, data FROM resources WHERE url = ?`,
		&sqlitex.ExecOptions{
			Args: []any{url},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				fetched = stmt.ColumnInt64(0)
				var err error
				data, err = io.ReadAll(stmt.ColumnReader(1))
				found = err == nil
				return err
			},
		})
	if err != nil {
		return nil, false, fmt.Errorf("read resource cache: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	if c.ttl > 0 && c.now().Sub(time.Unix(fetched, 0)) > c.ttl {
		return nil, false, nil
	}
	return data, true, nil
}

// Put stores data for the url replacing previous entry.
func (c *Cache) Put(url string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := sqlitex.Execute(c.conn, `INSERT OR REPLACE INTO resources (url, fetched, data) VALUES (?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{url, c.now().Unix(), data}})
	if err != nil {
		return fmt.Errorf("write resource cache: %w", err)
	}
	return nil
}

// Purge removes expired entries.
func (c *Cache) Purge() error {
	if c.ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.ttl).Unix()
	if err := sqlitex.Execute(c.conn, `DELETE FROM resources WHERE fetched < ?`,
		&sqlitex.ExecOptions{Args: []any{cutoff}}); err != nil {
		return fmt.Errorf("purge resource cache: %w", err)
	}
	return nil
}

// Close closes cache database.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}
