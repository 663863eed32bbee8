package graphdb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"github.com/roach88/lineage/internal/store"
)

// constraints are created idempotently on Open.
var constraints = []string{
	`CREATE CONSTRAINT lineage_session_id IF NOT EXISTS FOR (s:Session) REQUIRE s.id IS UNIQUE`,
	`CREATE CONSTRAINT lineage_object_id IF NOT EXISTS FOR (o:Object) REQUIRE o.id IS UNIQUE`,
	`CREATE CONSTRAINT lineage_version_id IF NOT EXISTS FOR (v:Version) REQUIRE (v.id, v.version) IS UNIQUE`,
	`CREATE CONSTRAINT lineage_key IF NOT EXISTS FOR (k:Key) REQUIRE (k.originator, k.name, k.type) IS UNIQUE`,
	`CREATE CONSTRAINT lineage_counter IF NOT EXISTS FOR (c:Counter) REQUIRE c.name IS UNIQUE`,
	`CREATE INDEX lineage_object_key IF NOT EXISTS FOR (o:Object) ON (o.originator, o.name, o.type)`,
	`CREATE INDEX lineage_property_lookup IF NOT EXISTS FOR (p:Property) ON (p.key, p.value)`,
	`CREATE INDEX lineage_property_object IF NOT EXISTS FOR (p:Property) ON (p.id)`,
}

// Store is a lineage backend over a Bolt connection.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *logrus.Logger
}

var _ store.Backend = (*Store)(nil)

// Open connects to the graph database and ensures the schema constraints.
func Open(ctx context.Context, cfg store.GraphConfig, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = store.DiscardLogger()
	}
	if cfg.URI == "" {
		return nil, fmt.Errorf("open graph store: empty URI: %w", store.ErrInvalidInput)
	}

	auth := neo4j.NoAuth()
	if cfg.Username != "" {
		auth = neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("open graph store: %w: %w", store.ErrInvalidInput, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("open graph store %s: %w: %w", cfg.URI, store.ErrUnavailable, err)
	}

	s := &Store{driver: driver, database: cfg.Database, logger: logger}
	for _, stmt := range constraints {
		if err := s.exec(ctx, stmt, nil); err != nil {
			driver.Close(ctx)
			return nil, fmt.Errorf("open graph store: schema: %w", err)
		}
	}

	logger.WithFields(logrus.Fields{
		"backend":  "graphdb",
		"uri":      cfg.URI,
		"database": cfg.Database,
	}).Info("lineage store opened")
	return s, nil
}

// Close closes the driver.
func (s *Store) Close() error {
	if err := s.driver.Close(context.Background()); err != nil {
		return fmt.Errorf("close graph store: %w", err)
	}
	return nil
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

// write runs work in a managed write transaction. The driver retries
// transient failures such as deadlocks.
func (s *Store) write(ctx context.Context, op string, work func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	sess := s.session(ctx, neo4j.AccessModeWrite)
	defer sess.Close(ctx)

	res, err := sess.ExecuteWrite(ctx, work)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return res, nil
}

// read runs work in a managed read transaction.
func (s *Store) read(ctx context.Context, op string, work func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	sess := s.session(ctx, neo4j.AccessModeRead)
	defer sess.Close(ctx)

	res, err := sess.ExecuteRead(ctx, work)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return res, nil
}

// exec runs one statement in its own write transaction and discards the result.
func (s *Store) exec(ctx context.Context, cypher string, params map[string]any) error {
	_, err := s.write(ctx, "exec", func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	return err
}

// classify maps driver errors onto the store sentinels. Errors that already
// carry a sentinel pass through unchanged.
func classify(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrConflict),
		errors.Is(err, store.ErrInvalidInput),
		errors.Is(err, store.ErrUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}

	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) {
		switch {
		case neoErr.Code == "Neo.ClientError.Schema.ConstraintValidationFailed":
			return fmt.Errorf("%w: %w", store.ErrConflict, err)
		case strings.HasPrefix(neoErr.Code, "Neo.ClientError.Statement."):
			return fmt.Errorf("%w: %w", store.ErrInvalidInput, err)
		}
	}
	return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
}

func init() {
	store.RegisterBackend("graphdb", func(ctx context.Context, cfg store.Config) (store.Backend, error) {
		return Open(ctx, cfg.Graph, cfg.Logger)
	})
}
