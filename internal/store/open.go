package store

import "fmt"

// Store drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverPebble = "pebble"
)

// Open opens a store using the named driver. path is a database file for
// sqlite, a directory for pebble, and ignored for memory.
func Open(driver, path string) (Store, error) {
	switch driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		return NewSQLiteStore(path)
	case DriverPebble:
		return NewPebbleStore(path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
