// Package arrowstore persists ensemble summary vectors as Arrow IPC files.
//
// A store is a directory tree with one subdirectory per ensemble and one
// Arrow file per realization:
//
//	<root>/<ensemble>/real-<N>.arrow
//
// Each file holds a DATE column (timestamp) followed by float64 vector
// columns. The realization id lives in the file name, not in the file, so
// a realization can be re-imported without touching its siblings.
package arrowstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"simcli/internal/config"
	apperrors "simcli/internal/errors"
	"simcli/internal/timeseries"
)

// Store reads and writes ensembles under a root directory.
type Store struct {
	root          string
	maxConcurrent int
	logger        *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithMaxConcurrentLoads bounds how many realization files load in
// parallel. Values below one fall back to the configured default.
func WithMaxConcurrentLoads(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxConcurrent = n
		}
	}
}

// WithLogger sets the logger used for load reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens an existing store root.
func Open(root string, opts ...Option) (*Store, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("store root %s is not accessible", root), err).
			WithContext("root", root)
	}
	if !info.IsDir() {
		return nil, apperrors.NewStorageError(fmt.Sprintf("store root %s is not a directory", root), nil).
			WithContext("root", root)
	}

	s := &Store{
		root:          root,
		maxConcurrent: config.DefaultConcurrentLoad,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "arrowstore"))
	return s, nil
}

// Create makes the root directory if needed and opens it. Used by the
// import tool so a fresh store does not require manual setup.
func Create(root string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("cannot create store root %s", root), err).
			WithContext("root", root)
	}
	return Open(root, opts...)
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// Ensembles lists the ensembles in the store, sorted by name. A directory
// counts as an ensemble once it contains at least one realization file.
func (s *Store) Ensembles() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, apperrors.NewStorageError("cannot read store root", err).
			WithContext("root", s.root)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		files, err := s.realizationFiles(entry.Name())
		if err != nil {
			return nil, err
		}
		if len(files) > 0 {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// realizationFiles maps realization id to file path for one ensemble.
// Files that do not match the real-<N>.arrow pattern are ignored.
func (s *Store) realizationFiles(ensemble string) (map[int]string, error) {
	dir := filepath.Join(s.root, ensemble)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", timeseries.ErrUnknownEnsemble, ensemble)
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("cannot read ensemble directory %s", dir), err).
			WithContext("ensemble", ensemble)
	}

	files := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, config.RealizationFilePrefix) || !strings.HasSuffix(name, config.RealizationFileSuffix) {
			continue
		}
		idPart := strings.TrimSuffix(strings.TrimPrefix(name, config.RealizationFilePrefix), config.RealizationFileSuffix)
		id, err := strconv.Atoi(idPart)
		if err != nil || id < 0 {
			s.logger.Warn("Skipping realization file with unparsable id",
				slog.String("ensemble", ensemble),
				slog.String("file", name))
			continue
		}
		files[id] = filepath.Join(dir, name)
	}
	return files, nil
}

// realizationFilename builds the file name for one realization.
func realizationFilename(realization int) string {
	return config.RealizationFilePrefix + strconv.Itoa(realization) + config.RealizationFileSuffix
}

// Provider loads every realization of an ensemble and returns a summary
// provider over the loaded data. File loads run concurrently, bounded by
// the configured limit; the first failure aborts the remaining loads.
func (s *Store) Provider(ctx context.Context, ensemble string) (*Provider, error) {
	start := time.Now()

	files, err := s.realizationFiles(ensemble)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", timeseries.ErrUnknownEnsemble, ensemble)
	}

	ids := make([]int, 0, len(files))
	for id := range files {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	slabs := make([]realizationSlab, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slab, err := loadRealizationFile(files[id])
			if err != nil {
				return apperrors.NewParsingError(
					fmt.Sprintf("realization %d of ensemble %s failed to load", id, ensemble), err).
					WithContext("file", files[id])
			}
			slab.id = id
			slabs[i] = slab
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	provider, err := newProvider(ensemble, slabs, s.logger)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Ensemble loaded",
		slog.String("ensemble", ensemble),
		slog.Int("realizations", len(ids)),
		slog.Int("vectors", len(provider.VectorNames())),
		slog.Duration("duration", time.Since(start)))

	return provider, nil
}

// EnsembleInfo summarizes the stored content of one ensemble.
type EnsembleInfo struct {
	Name         string
	Vectors      []string
	Realizations []int
	FirstDate    time.Time
	LastDate     time.Time
	Rows         int
}

// Info loads an ensemble and reports its vectors, realizations, date span
// and total row count.
func (s *Store) Info(ctx context.Context, ensemble string) (*EnsembleInfo, error) {
	provider, err := s.Provider(ctx, ensemble)
	if err != nil {
		return nil, err
	}

	info := &EnsembleInfo{
		Name:         ensemble,
		Vectors:      provider.VectorNames(),
		Realizations: provider.Realizations(),
	}
	for _, slab := range provider.slabs {
		info.Rows += len(slab.ticks)
		if len(slab.ticks) == 0 {
			continue
		}
		first := time.UnixMilli(slab.ticks[0]).UTC()
		last := time.UnixMilli(slab.ticks[len(slab.ticks)-1]).UTC()
		if info.FirstDate.IsZero() || first.Before(info.FirstDate) {
			info.FirstDate = first
		}
		if last.After(info.LastDate) {
			info.LastDate = last
		}
	}
	return info, nil
}
