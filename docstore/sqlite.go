/*
Copyright 2026 Dima Krasner

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/


package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLite stores documents in a table and swaps them inside a transaction.
type SQLite struct {
	DB *sql.DB
}

// Migrate creates the documents table.
func (s *SQLite) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS documents(key TEXT NOT NULL PRIMARY KEY, doc TEXT NOT NULL, version TEXT NOT NULL, updated INTEGER NOT NULL DEFAULT (UNIXEPOCH()))`); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}

	return nil
}

func (s *SQLite) Load(ctx context.Context, key string) (Document, Version, error) {
	var buf []byte
	var version Version
	if err := s.DB.QueryRowContext(ctx, `select doc, version from documents where key = ?`, key).Scan(&buf, &version); errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrNotFound
	} else if err != nil {
		return nil, "", fmt.Errorf("failed to load %s: %w", key, err)
	}

	doc, err := decode(buf)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", key, err)
	}

	return doc, version, nil
}

func (s *SQLite) CompareAndSwap(ctx context.Context, key string, old Version, doc Document) error {
	buf, version, err := encode(doc)
	if err != nil {
		return err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var res sql.Result
	if old == "" {
		res, err = tx.ExecContext(ctx, `insert into documents(key, doc, version) values(?, ?, ?) on conflict(key) do nothing`, key, string(buf), version)
	} else {
		res, err = tx.ExecContext(ctx, `update documents set doc = ?, version = ?, updated = unixepoch() where key = ? and version = ?`, string(buf), version, key, old)
	}
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}

	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	} else if n == 0 {
		return ErrConflict
	}

	return tx.Commit()
}

// Put replaces a document unconditionally.
func (s *SQLite) Put(ctx context.Context, key string, doc Document) error {
	buf, version, err := encode(doc)
	if err != nil {
		return err
	}

	if _, err := s.DB.ExecContext(ctx, `insert into documents(key, doc, version) values(?, ?, ?) on conflict(key) do update set doc = excluded.doc, version = excluded.version, updated = unixepoch()`, key, string(buf), version); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}

	return nil
}
