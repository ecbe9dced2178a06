// Package kvstore — Task 2.1: persistence backends for distribution state.
// A Store is a flat key/value namespace used by the resource registry to
// persist dynamic registrations. Backends mirror the store types a
// distribution manifest may declare: sqlite, redis, mongodb, mysql, plus
// an in-memory store used when no metadata_store is configured.
//
// Stores hold registry metadata only. There is no TTL, eviction, or
// caching machinery here.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Store types accepted in a store spec.
const (
	TypeMemory  = "memory"
	TypeSQLite  = "sqlite"
	TypeRedis   = "redis"
	TypeMongoDB = "mongodb"
	TypeMySQL   = "mysql"
)

// ErrNotFound is returned by Get and Delete when the key does not exist.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is a minimal key/value interface shared by all backends.
// Implementations are safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// List returns all entries whose key starts with prefix.
	List(ctx context.Context, prefix string) (map[string][]byte, error)
	Ping(ctx context.Context) error
	Close() error
}

// Spec is the store block of a distribution manifest (metadata_store /
// inference_store). Which fields apply depends on Type.
type Spec struct {
	Type       string `yaml:"type" json:"type"`
	DBPath     string `yaml:"db_path,omitempty" json:"db_path,omitempty"`         // sqlite
	URL        string `yaml:"url,omitempty" json:"url,omitempty"`                 // redis / mongodb / mysql DSN
	Namespace  string `yaml:"namespace,omitempty" json:"namespace,omitempty"`     // optional key prefix
	DB         string `yaml:"db,omitempty" json:"db,omitempty"`                   // mongodb database (default "stackd")
	Collection string `yaml:"collection,omitempty" json:"collection,omitempty"`   // mongodb collection (default "kv_store")
	Table      string `yaml:"table,omitempty" json:"table,omitempty"`             // mysql table (default "kv_store")
}

// tableNameRe guards the mysql table identifier: it is interpolated into
// SQL, so it must never carry quoting or punctuation.
var tableNameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Validate checks that the spec names a known backend and carries the
// fields that backend requires.
func (s Spec) Validate() error {
	switch s.Type {
	case TypeMemory:
		return nil
	case TypeSQLite:
		if s.DBPath == "" {
			return fmt.Errorf("kvstore: sqlite store requires db_path")
		}
		return nil
	case TypeRedis, TypeMongoDB, TypeMySQL:
		if s.URL == "" {
			return fmt.Errorf("kvstore: %s store requires url", s.Type)
		}
		if s.Type == TypeMySQL && s.Table != "" && !tableNameRe.MatchString(s.Table) {
			return fmt.Errorf("kvstore: invalid mysql table name %q", s.Table)
		}
		return nil
	case "":
		return fmt.Errorf("kvstore: store type is required")
	default:
		return fmt.Errorf("kvstore: unknown store type %q", s.Type)
	}
}

// Open validates spec and opens the backend it describes. The returned
// store is wrapped with the spec's namespace prefix when one is set.
func Open(ctx context.Context, spec Spec) (Store, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	var (
		store Store
		err   error
	)
	switch spec.Type {
	case TypeMemory:
		store = NewMemory()
	case TypeSQLite:
		store, err = openSQLite(ctx, spec)
	case TypeRedis:
		store, err = openRedis(ctx, spec)
	case TypeMongoDB:
		store, err = openMongo(ctx, spec)
	case TypeMySQL:
		store, err = openMySQL(ctx, spec)
	}
	if err != nil {
		return nil, err
	}

	if spec.Namespace != "" {
		store = &namespaced{inner: store, prefix: spec.Namespace + ":"}
	}
	return store, nil
}

// namespaced prefixes every key with the spec namespace, keeping multiple
// distributions apart inside one shared backend. List results come back
// with the prefix stripped so callers never see it.
type namespaced struct {
	inner  Store
	prefix string
}

func (n *namespaced) Get(ctx context.Context, key string) ([]byte, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key string, value []byte) error {
	return n.inner.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.inner.Delete(ctx, n.prefix+key)
}

func (n *namespaced) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	raw, err := n.inner.List(ctx, n.prefix+prefix)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(raw))
	for k, v := range raw {
		out[k[len(n.prefix):]] = v
	}
	return out, nil
}

func (n *namespaced) Ping(ctx context.Context) error { return n.inner.Ping(ctx) }
func (n *namespaced) Close() error                   { return n.inner.Close() }
