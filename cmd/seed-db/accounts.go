package main

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-checkout/internal/domain/identity"
)

const (
	bloomFPR      = 0.001
	progressEvery = 10_000
)

type accountLine struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

type accountUpserter interface {
	Upsert(ctx context.Context, acc identity.Account) error
}

type accountsConfig struct {
	Files []string
	// Capacity is the expected number of lines across all files.
	Capacity uint
	Cost     int
	Workers  int
}

type accountsResult struct {
	Upserted   int64
	Duplicates int
	Invalid    int
}

// identifierKey matches the case-insensitive identifier lookup of the
// account store.
func identifierKey(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

func parseAccount(line []byte) (accountLine, bool) {
	var a accountLine
	if err := json.Unmarshal(line, &a); err != nil {
		return a, false
	}
	a.Identifier = strings.TrimSpace(a.Identifier)
	return a, a.ID != "" && a.Identifier != "" && a.Secret != ""
}

// findDuplicates returns identifier keys that occur more than once across
// files. Pass 1 streams every line through a bloom filter and keeps the keys
// the filter had already seen. Pass 2 counts only those candidates exactly, so
// memory grows with the number of candidates rather than accounts.
func findDuplicates(ctx context.Context, lg *zap.Logger, files []string, capacity uint) (map[string]struct{}, error) {
	filter := bloom.NewWithEstimates(max(capacity, 1), bloomFPR)
	candidates := make(map[string]int)

	var lines int
	for _, path := range files {
		if err := streamLines(ctx, path, func(_ int, line []byte) error {
			a, ok := parseAccount(line)
			if !ok {
				return nil
			}
			key := identifierKey(a.Identifier)
			if filter.TestAndAddString(key) {
				candidates[key] = 0
			}
			lines++
			if lines%progressEvery == 0 {
				lg.Debug("Duplicate scan progress", zap.Int("lines", lines))
			}
			return nil
		}); err != nil {
			return nil, errors.Wrap(err, "pass 1")
		}
	}
	lg.Info("Duplicate scan pass 1 complete",
		zap.Int("lines", lines),
		zap.Int("candidates", len(candidates)),
	)
	if len(candidates) == 0 {
		return nil, nil
	}

	for _, path := range files {
		if err := streamLines(ctx, path, func(_ int, line []byte) error {
			a, ok := parseAccount(line)
			if !ok {
				return nil
			}
			key := identifierKey(a.Identifier)
			if n, hit := candidates[key]; hit {
				candidates[key] = n + 1
			}
			return nil
		}); err != nil {
			return nil, errors.Wrap(err, "pass 2")
		}
	}

	dups := make(map[string]struct{})
	for key, n := range candidates {
		if n > 1 {
			dups[key] = struct{}{}
		}
	}
	return dups, nil
}

// seedAccounts hashes secrets with bcrypt and upserts accounts using a
// bounded worker pool. The first occurrence of a duplicated identifier wins;
// later ones are skipped. Malformed lines are counted and skipped.
func seedAccounts(ctx context.Context, lg *zap.Logger, repo accountUpserter, cfg accountsConfig) (accountsResult, error) {
	var res accountsResult

	dups, err := findDuplicates(ctx, lg, cfg.Files, cfg.Capacity)
	if err != nil {
		return res, errors.Wrap(err, "find duplicates")
	}
	seen := make(map[string]struct{}, len(dups))

	var upserted atomic.Int64
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))

	for _, path := range cfg.Files {
		lg.Info("Reading accounts file", zap.String("path", path))
		err := streamLines(gCtx, path, func(n int, line []byte) error {
			a, ok := parseAccount(line)
			if !ok {
				res.Invalid++
				lg.Warn("Skipping invalid account line", zap.String("path", path), zap.Int("line", n))
				return nil
			}
			key := identifierKey(a.Identifier)
			if _, dup := dups[key]; dup {
				if _, done := seen[key]; done {
					res.Duplicates++
					return nil
				}
				seen[key] = struct{}{}
			}

			g.Go(func() error {
				hash, err := bcrypt.GenerateFromPassword([]byte(a.Secret), cfg.Cost)
				if err != nil {
					return errors.Wrapf(err, "hash secret for %s", a.ID)
				}
				if err := repo.Upsert(gCtx, identity.Account{
					ID:           a.ID,
					Identifier:   a.Identifier,
					PasswordHash: hash,
				}); err != nil {
					return errors.Wrapf(err, "upsert account %s", a.ID)
				}
				if v := upserted.Add(1); v%progressEvery == 0 {
					lg.Info("Account progress", zap.Int64("upserted", v))
				}
				return nil
			})
			return nil
		})
		if err != nil {
			_ = g.Wait()
			return res, err
		}
	}

	err = g.Wait()
	res.Upserted = upserted.Load()
	return res, err
}
