// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/acp/services/acp/cache"
)

// Sentinel errors for archive operations.
var (
	// ErrSnapshotNotFound is returned when no snapshot matches a commit.
	ErrSnapshotNotFound = fmt.Errorf("snapshot not found")

	// ErrAmbiguousCommit is returned when a commit prefix matches more
	// than one archived snapshot.
	ErrAmbiguousCommit = fmt.Errorf("ambiguous commit prefix")

	// ErrNoCommit is returned when archiving a cache built outside a
	// repository; without a commit hash there is nothing to key by.
	ErrNoCommit = fmt.Errorf("cache has no commit hash")
)

// Archive keyspace. One snapshot per commit, immutable once written.
const (
	snapPrefix = "snap/"
	metaPrefix = "meta/"
	headKey    = "head"
)

// SnapshotMeta describes one archived cache without its payload.
type SnapshotMeta struct {
	// Commit is the full hash the snapshot was built at.
	Commit string `json:"commit"`

	// Branch is the branch at build time, if any.
	Branch string `json:"branch,omitempty"`

	// GeneratedAt is the cache build timestamp.
	GeneratedAt time.Time `json:"generated_at"`

	// Files counts indexed files in the snapshot.
	Files int `json:"files"`

	// SizeBytes is the serialized snapshot size.
	SizeBytes int `json:"size_bytes"`
}

// Archive stores one cache snapshot per commit.
//
// # Thread Safety
//
// Safe for concurrent use; all access goes through Badger transactions.
type Archive struct {
	db     *DB
	keep   int
	logger *slog.Logger
}

// ArchiveOption configures an Archive.
type ArchiveOption func(*Archive)

// WithKeep bounds the archive to the n most recent snapshots; older
// ones are pruned after each Put. Zero keeps everything.
func WithKeep(n int) ArchiveOption {
	return func(a *Archive) {
		a.keep = n
	}
}

// WithLogger sets the archive logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ArchiveOption {
	return func(a *Archive) {
		a.logger = logger
	}
}

// NewArchive wraps an open database as a snapshot archive.
func NewArchive(db *DB, opts ...ArchiveOption) (*Archive, error) {
	if db == nil {
		return nil, fmt.Errorf("db must not be nil")
	}
	a := &Archive{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Put archives one built cache under its commit hash.
//
// Description:
//
//	Serializes the cache and writes the payload, its metadata, and the
//	head pointer in one transaction. Re-archiving the same commit
//	overwrites in place, which is safe because builds are deterministic
//	for a given tree. Caches without a commit hash are refused; the
//	archive's whole point is commit-addressed history.
//
// Inputs:
//
//	ctx - Checked before the transaction starts.
//	c - The cache to archive. Must carry GitCommit.
//
// Outputs:
//
//	*SnapshotMeta - Metadata of the stored snapshot.
//	error - ErrNoCommit for commitless caches, storage errors otherwise.
//
// Thread Safety: Safe for concurrent use.
func (a *Archive) Put(ctx context.Context, c *cache.Cache) (*SnapshotMeta, error) {
	if c == nil {
		return nil, cache.ErrNilCache
	}
	if c.GitCommit == "" {
		return nil, ErrNoCommit
	}

	payload, err := c.Encode()
	if err != nil {
		return nil, err
	}

	meta := &SnapshotMeta{
		Commit:      c.GitCommit,
		Branch:      c.GitBranch,
		GeneratedAt: c.GeneratedAt,
		Files:       len(c.Files),
		SizeBytes:   len(payload),
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot metadata: %w", err)
	}

	err = a.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := txn.Set([]byte(snapPrefix+c.GitCommit), payload); err != nil {
			return err
		}
		if err := txn.Set([]byte(metaPrefix+c.GitCommit), metaBytes); err != nil {
			return err
		}
		return txn.Set([]byte(headKey), []byte(c.GitCommit))
	})
	if err != nil {
		return nil, fmt.Errorf("archiving snapshot %s: %w", c.GitCommit, err)
	}

	a.logger.Info("archived cache snapshot",
		"commit", meta.Commit,
		"files", meta.Files,
		"bytes", meta.SizeBytes,
	)

	if a.keep > 0 {
		if err := a.prune(ctx); err != nil {
			a.logger.Warn("snapshot prune failed", "error", err)
		}
	}
	return meta, nil
}

// Get loads the snapshot archived for a commit.
//
// The commit may be abbreviated; unique prefixes resolve, ambiguous
// ones return ErrAmbiguousCommit. The loaded cache passes the same
// validation as a disk load, so a corrupt archive entry surfaces as
// cache.ErrCacheCorrupt rather than as a plausible-looking index.
func (a *Archive) Get(ctx context.Context, commit string) (*cache.Cache, error) {
	full, err := a.resolve(ctx, commit)
	if err != nil {
		return nil, err
	}

	var payload []byte
	err = a.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(snapPrefix + full))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, commit)
		}
		return nil, fmt.Errorf("reading snapshot %s: %w", full, err)
	}

	var c cache.Cache
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, fmt.Errorf("%w: decoding snapshot %s: %v", cache.ErrCacheCorrupt, full, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Head loads the most recently archived snapshot.
func (a *Archive) Head(ctx context.Context) (*cache.Cache, error) {
	var commit string
	err := a.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(headKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			commit = string(val)
			return nil
		})
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, fmt.Errorf("%w: archive is empty", ErrSnapshotNotFound)
		}
		return nil, fmt.Errorf("reading head pointer: %w", err)
	}
	return a.Get(ctx, commit)
}

// List returns metadata for every archived snapshot, newest first.
func (a *Archive) List(ctx context.Context) ([]SnapshotMeta, error) {
	var metas []SnapshotMeta

	err := a.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(metaPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var meta SnapshotMeta
				if err := json.Unmarshal(val, &meta); err != nil {
					return fmt.Errorf("decoding snapshot metadata: %w", err)
				}
				metas = append(metas, meta)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(metas, func(i, j int) bool {
		if !metas[i].GeneratedAt.Equal(metas[j].GeneratedAt) {
			return metas[i].GeneratedAt.After(metas[j].GeneratedAt)
		}
		return metas[i].Commit < metas[j].Commit
	})
	return metas, nil
}

// resolve expands a possibly-abbreviated commit to a full stored hash.
func (a *Archive) resolve(ctx context.Context, commit string) (string, error) {
	if commit == "" {
		return "", fmt.Errorf("%w: empty commit", ErrSnapshotNotFound)
	}

	var matches []string
	err := a.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(metaPrefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			stored := strings.TrimPrefix(string(it.Item().Key()), metaPrefix)
			if stored == commit {
				matches = []string{stored}
				return nil
			}
			if strings.HasPrefix(stored, commit) {
				matches = append(matches, stored)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrSnapshotNotFound, commit)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s matches %d snapshots", ErrAmbiguousCommit, commit, len(matches))
	}
}

// prune removes snapshots beyond the configured keep bound.
func (a *Archive) prune(ctx context.Context) error {
	metas, err := a.List(ctx)
	if err != nil {
		return err
	}
	if len(metas) <= a.keep {
		return nil
	}

	doomed := metas[a.keep:]
	err = a.db.WithTxn(ctx, func(txn *badger.Txn) error {
		for _, meta := range doomed {
			if err := txn.Delete([]byte(snapPrefix + meta.Commit)); err != nil {
				return err
			}
			if err := txn.Delete([]byte(metaPrefix + meta.Commit)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	a.logger.Debug("pruned old snapshots", "removed", len(doomed), "kept", a.keep)
	return nil
}
