package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/lineage/internal/ir"
	"github.com/roach88/lineage/internal/querysql"
	"github.com/roach88/lineage/internal/store"
)

// CreateSession inserts a session record.
// Uses ON CONFLICT DO NOTHING; a second session with the same id is a conflict.
func (s *Store) CreateSession(ctx context.Context, sess ir.Session) error {
	hi, lo := querysql.SplitID(sess.ID)
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions
		(id_hi, id_lo, originator, mac_address, username, pid, program, program_version, cmdline, start_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id_hi, id_lo) DO NOTHING
	`,
		hi, lo,
		sess.Originator,
		sess.MACAddress,
		sess.User,
		sess.PID,
		sess.Program,
		sess.ProgramVersion,
		sess.CommandLine,
		nanos(sess.StartTime),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", classify(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create session: rows affected: %w", classify(err))
	}
	if rowsAffected == 0 {
		return fmt.Errorf("create session %s: %w", sess.ID, store.ErrConflict)
	}
	return nil
}

// CreateObject inserts an object and its version 0 in one transaction.
//
// Returns store.ErrConflict if the id is already taken.
func (s *Store) CreateObject(ctx context.Context, obj ir.Object) error {
	return s.withTx(ctx, "create object", func(tx *sqlx.Tx) error {
		return insertObject(ctx, tx, obj)
	})
}

// LookupOrCreateObject returns the newest object under obj.Key, or inserts obj.
//
// The read and the insert share one IMMEDIATE transaction, so the write lock
// is held from the lookup onwards and two processes can never both create.
func (s *Store) LookupOrCreateObject(ctx context.Context, obj ir.Object) (id ir.ObjectID, created bool, err error) {
	key := obj.Key.Normalize()
	err = s.withTx(ctx, "lookup or create object", func(tx *sqlx.Tx) error {
		var row stampRow
		err := tx.GetContext(ctx, &row, `
			SELECT id_hi, id_lo, creation_time
			FROM objects
			WHERE originator = ? AND name = ? AND type = ?
			ORDER BY creation_time DESC, seq DESC
			LIMIT 1
		`, key.Originator, key.Name, key.Type)
		switch {
		case err == nil:
			id = querysql.JoinID(row.IDHi, row.IDLo)
			created = false
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("lookup or create object: select existing: %w", classify(err))
		}

		if err := insertObject(ctx, tx, obj); err != nil {
			return err
		}
		id = obj.ID
		created = true
		return nil
	})
	if err != nil {
		return ir.None, false, err
	}
	return id, created, nil
}

// insertObject writes the identity row and version 0 using tx.
func insertObject(ctx context.Context, tx *sqlx.Tx, obj ir.Object) error {
	key := obj.Key.Normalize()
	hi, lo := querysql.SplitID(obj.ID)
	sessHi, sessLo := querysql.SplitID(obj.CreationSession)

	var containerHi, containerLo, containerVersion sql.NullInt64
	if obj.Container != nil {
		cHi, cLo := querysql.SplitID(obj.Container.ID)
		containerHi = sql.NullInt64{Int64: cHi, Valid: true}
		containerLo = sql.NullInt64{Int64: cLo, Valid: true}
		containerVersion = sql.NullInt64{Int64: int64(obj.Container.Version), Valid: true}
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO objects
		(id_hi, id_lo, originator, name, type, container_hi, container_lo, container_version,
		 session_hi, session_lo, creation_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id_hi, id_lo) DO NOTHING
	`,
		hi, lo,
		key.Originator, key.Name, key.Type,
		containerHi, containerLo, containerVersion,
		sessHi, sessLo,
		nanos(obj.CreationTime),
	)
	if err != nil {
		return fmt.Errorf("create object: insert: %w", classify(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create object: rows affected: %w", classify(err))
	}
	if rowsAffected == 0 {
		return fmt.Errorf("create object %s: id in use: %w", obj.ID, store.ErrConflict)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO versions
		(id_hi, id_lo, version, session_hi, session_lo, creation_time)
		VALUES (?, ?, 0, ?, ?, ?)
	`, hi, lo, sessHi, sessLo, nanos(obj.CreationTime))
	if err != nil {
		return fmt.Errorf("create object: insert version 0: %w", classify(err))
	}
	return nil
}

// CreateVersion appends info.Version to an object's version chain.
//
// The current version is re-read under the write lock; anything other than
// current+1 is rejected with store.ErrConflict so the caller can re-read and retry.
func (s *Store) CreateVersion(ctx context.Context, info ir.VersionInfo) error {
	hi, lo := querysql.SplitID(info.ID)
	sessHi, sessLo := querysql.SplitID(info.Session)

	return s.withTx(ctx, "create version", func(tx *sqlx.Tx) error {
		current, err := currentVersion(ctx, tx, info.ID)
		if err != nil {
			return fmt.Errorf("create version: %w", err)
		}
		if info.Version != current+1 {
			return fmt.Errorf("create version %s: current is %d: %w", info.ObjectVersion, current, store.ErrConflict)
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO versions
			(id_hi, id_lo, version, session_hi, session_lo, creation_time)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id_hi, id_lo, version) DO NOTHING
		`, hi, lo, int64(info.Version), sessHi, sessLo, nanos(info.CreationTime))
		if err != nil {
			return fmt.Errorf("create version: insert: %w", classify(err))
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("create version: rows affected: %w", classify(err))
		}
		if rowsAffected == 0 {
			return fmt.Errorf("create version %s: %w", info.ObjectVersion, store.ErrConflict)
		}
		return nil
	})
}

// AddEdge inserts an edge unless an identical one exists.
// Uses ON CONFLICT DO NOTHING over the (dest, source, type) UNIQUE constraint;
// inserted=false means the edge was already recorded.
//
// Note: both endpoints must exist (foreign key constraints).
func (s *Store) AddEdge(ctx context.Context, e ir.Edge) (inserted bool, err error) {
	destHi, destLo := querysql.SplitID(e.Dest.ID)
	srcHi, srcLo := querysql.SplitID(e.Source.ID)

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO edges
		(dest_hi, dest_lo, dest_version, source_hi, source_lo, source_version, type)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dest_hi, dest_lo, dest_version, source_hi, source_lo, source_version, type) DO NOTHING
	`,
		destHi, destLo, int64(e.Dest.Version),
		srcHi, srcLo, int64(e.Source.Version),
		int64(e.Type),
	)
	if err != nil {
		return false, fmt.Errorf("add edge: insert: %w", classify(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add edge: rows affected: %w", classify(err))
	}
	return rowsAffected > 0, nil
}

// AddProperty appends a property record. Properties are never deduplicated.
//
// Note: the object-version must exist (foreign key constraint).
func (s *Store) AddProperty(ctx context.Context, p ir.Property) error {
	hi, lo := querysql.SplitID(p.ID)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO properties
		(id_hi, id_lo, version, prop_key, prop_value)
		VALUES (?, ?, ?, ?, ?)
	`, hi, lo, int64(p.Version), ir.Normalize(p.Key), p.Value)
	if err != nil {
		return fmt.Errorf("add property: %w", classify(err))
	}
	return nil
}
