package spool

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jpillora/backoff"
	"go.uber.org/zap"

	"github.com/saltinventory/minion-inventory/pkg/inventory"
)

// FailedDir is the subdirectory that receives reports that will never apply
const FailedDir = "failed"

type Auditor interface {
	Audit(ctx context.Context, ts string, props inventory.Properties, changed bool) inventory.AuditReport
}

type PresenceRecorder interface {
	Present(ctx context.Context, ts string, minions []string) inventory.PresenceReport
}

// Watcher applies the envelopes found in a spool directory
type Watcher struct {
	dir      string
	auditor  Auditor
	presence PresenceRecorder
	logger   *zap.Logger
	backoff  *backoff.Backoff
}

type Option func(*Watcher)

// WithBackoff sets the bounds of the rescan delay after retryable failures
func WithBackoff(min, max time.Duration) Option {
	return func(w *Watcher) {
		w.backoff.Min = min
		w.backoff.Max = max
	}
}

func New(dir string, auditor Auditor, presence PresenceRecorder, logger *zap.Logger, opts ...Option) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Watcher{
		dir:      dir,
		auditor:  auditor,
		presence: presence,
		logger:   logger.Named("spool"),
		backoff: &backoff.Backoff{
			Min:    time.Second,
			Max:    5 * time.Minute,
			Factor: 2,
			Jitter: true,
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run scans the directory, then applies envelopes as they appear until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Join(w.dir, FailedDir), 0o750); err != nil {
		return fmt.Errorf("failed to prepare spool directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching spool directory", zap.String("dir", w.dir))

	rescan := time.NewTimer(time.Hour)
	rescan.Stop()
	armed := false
	schedule := func(pending bool) {
		if !pending {
			w.backoff.Reset()
			return
		}
		if armed {
			return
		}
		d := w.backoff.Duration()
		w.logger.Info("retryable reports pending, rescanning later", zap.Duration("in", d))
		rescan.Reset(d)
		armed = true
	}

	schedule(w.Scan(ctx))

	for {
		select {
		case <-ctx.Done():
			rescan.Stop()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isEnvelope(event.Name) {
				continue
			}
			if outcome, handled := w.ProcessFile(ctx, event.Name); handled && outcome.Retryable() {
				schedule(true)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		case <-rescan.C:
			armed = false
			schedule(w.Scan(ctx))
		}
	}
}

// Scan processes every envelope currently in the directory, oldest name
// first, and reports whether any of them failed for a retryable reason
func (w *Watcher) Scan(ctx context.Context) bool {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Error("failed to list spool directory", zap.Error(err))
		return true
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && isEnvelope(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	pending := false
	for _, name := range names {
		if ctx.Err() != nil {
			return true
		}
		if outcome, handled := w.ProcessFile(ctx, filepath.Join(w.dir, name)); handled && outcome.Retryable() {
			pending = true
		}
	}
	return pending
}

// ProcessFile applies one envelope and disposes of the file according to the
// outcome. handled is false when the file vanished or is still being written.
func (w *Watcher) ProcessFile(ctx context.Context, path string) (outcome inventory.Outcome, handled bool) {
	logger := w.logger.With(zap.String("file", filepath.Base(path)))

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("failed to read envelope", zap.Error(err))
		}
		return inventory.Outcome{}, false
	}

	env, err := decodeEnvelope(data)
	switch {
	case errors.Is(err, errIncomplete):
		logger.Debug("envelope not complete yet")
		return inventory.Outcome{}, false
	case err != nil:
		outcome = inventory.Outcome{Reason: inventory.ReasonMalformedInput, Err: err}
	default:
		outcome = w.apply(ctx, env)
	}

	switch {
	case outcome.OK():
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Error("failed to remove applied envelope", zap.Error(err))
		}
		logger.Debug("envelope applied", zap.String("type", env.Type))
	case outcome.Retryable():
		logger.Warn("envelope will be retried", zap.Stringer("reason", outcome.Reason), zap.Error(outcome.Err))
	default:
		logger.Error("envelope rejected", zap.Stringer("reason", outcome.Reason), zap.Error(outcome.Err))
		w.moveToFailed(logger, path)
	}
	return outcome, true
}

func (w *Watcher) apply(ctx context.Context, env Envelope) inventory.Outcome {
	switch env.Type {
	case TypeAudit:
		return w.auditor.Audit(ctx, env.Timestamp, *env.Properties, env.Changed).Outcome
	default:
		return w.presence.Present(ctx, env.Timestamp, env.Minions).Outcome
	}
}

func (w *Watcher) moveToFailed(logger *zap.Logger, path string) {
	dest := filepath.Join(w.dir, FailedDir, filepath.Base(path))
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		logger.Error("failed to create failed directory", zap.Error(err))
		return
	}
	if err := os.Rename(path, dest); err != nil {
		logger.Error("failed to move rejected envelope", zap.Error(err))
	}
}

func isEnvelope(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(base, ".json") && !strings.HasPrefix(base, ".")
}
