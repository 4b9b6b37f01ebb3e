package health

import (
	"context"
	"errors"
)

// errNotLoaded is reported while the catalog has not been populated.
var errNotLoaded = errors.New("catalog not loaded")

// errNoProvider is reported when every backend in a fallback group is open.
var errNoProvider = errors.New("every provider circuit is open")

// CatalogLoader is the part of the catalog repository the readiness probe uses.
type CatalogLoader interface {
	EnsureLoaded(ctx context.Context) error
	Len() int
}

// Catalog reports ready once the roster is loaded and non-empty. A roster
// that failed to load is retried on every probe.
func Catalog(c CatalogLoader) Checker {
	return Checker{
		Name:     "catalog",
		Critical: true,
		Check: func(ctx context.Context) error {
			if err := c.EnsureLoaded(ctx); err != nil {
				return err
			}
			if c.Len() == 0 {
				return errNotLoaded
			}
			return nil
		},
	}
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Database pings the Postgres pool.
func Database(p Pinger) Checker {
	return Checker{Name: "database", Critical: true, Check: p.Ping}
}

// Availability is satisfied by the resilience fallback wrappers.
type Availability interface {
	Available() bool
}

// Providers fails while every circuit behind a is open. It is optional:
// the catalog keeps serving without generation.
func Providers(name string, a Availability) Checker {
	return Checker{
		Name: name,
		Check: func(context.Context) error {
			if !a.Available() {
				return errNoProvider
			}
			return nil
		},
	}
}
