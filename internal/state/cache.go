package state

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/leapstack-labs/weslink/pkg/srcmap"
)

// CachedLink is a stored link result.
type CachedLink struct {
	InputHash string
	Root      string
	Output    string
	SourceMap *srcmap.SourceMap
	CreatedAt time.Time
}

// InputHash fingerprints a link: every source text keyed by name, plus the
// JSON encoding of params.
func InputHash(sources map[string]string, params any) (string, error) {
	h := sha256.New()
	for _, key := range slices.Sorted(maps.Keys(sources)) {
		fmt.Fprintf(h, "%d:%s%d:", len(key), key, len(sources[key]))
		h.Write([]byte(sources[key]))
	}
	p, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to encode link parameters: %w", err)
	}
	h.Write(p)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// GetCachedLink returns the cached result for hash, or nil on a miss.
func (s *SQLiteStore) GetCachedLink(ctx context.Context, hash string) (*CachedLink, error) {
	if s.db == nil {
		return nil, errNotOpen
	}
	var (
		c      = CachedLink{InputHash: hash}
		rawMap []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT root, output, source_map, created_at FROM link_cache WHERE input_hash = ?`, hash,
	).Scan(&c.Root, &c.Output, &rawMap, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Debug("link cache miss", slog.String("hash", hash))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read link cache: %w", err)
	}
	if len(rawMap) > 0 {
		c.SourceMap = &srcmap.SourceMap{}
		if err := json.Unmarshal(rawMap, c.SourceMap); err != nil {
			return nil, fmt.Errorf("corrupt cached source map: %w", err)
		}
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE link_cache SET used_at = ? WHERE input_hash = ?`, time.Now().UTC(), hash); err != nil {
		return nil, fmt.Errorf("failed to touch link cache: %w", err)
	}
	s.logger.Debug("link cache hit", slog.String("hash", hash))
	return &c, nil
}

// PutCachedLink stores c, replacing any entry with the same hash.
func (s *SQLiteStore) PutCachedLink(ctx context.Context, c *CachedLink) error {
	if s.db == nil {
		return errNotOpen
	}
	var rawMap []byte
	if c.SourceMap != nil {
		var err error
		if rawMap, err = json.Marshal(c.SourceMap); err != nil {
			return fmt.Errorf("failed to encode source map: %w", err)
		}
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO link_cache (input_hash, root, output, source_map, created_at, used_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (input_hash) DO UPDATE SET
		   root = excluded.root, output = excluded.output,
		   source_map = excluded.source_map, used_at = excluded.used_at`,
		c.InputHash, c.Root, c.Output, rawMap, c.CreatedAt, now)
	if err != nil {
		return fmt.Errorf("failed to write link cache: %w", err)
	}
	return nil
}

// PruneCache keeps the keep most recently used entries and returns how many
// were removed.
func (s *SQLiteStore) PruneCache(ctx context.Context, keep int) (int64, error) {
	if s.db == nil {
		return 0, errNotOpen
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM link_cache WHERE input_hash NOT IN (
		   SELECT input_hash FROM link_cache ORDER BY used_at DESC, rowid DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune link cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Debug("pruned link cache", slog.Int64("removed", n))
	}
	return n, nil
}
