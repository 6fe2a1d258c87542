// Package txn implements an all-or-nothing unit of heterogeneous file
// mutations with backup-based rollback.
//
// A transaction is built up as an ordered list of write/update/remove
// operations; no I/O happens until Commit. During commit, the current
// bytes of every pre-existing path are copied into an isolated backup
// directory before that path is first touched, so a failure partway
// through can restore the filesystem to its pre-transaction state.
// Paths created by the transaction itself are tracked too and deleted
// on rollback rather than "restored" from a backup that never existed.
//
// Backups live under <temp-root>/.fs-transactions/<transaction-id>/
// for the duration of the commit only; this is partial-failure
// recovery, not crash durability. Two transactions mutating the same
// path concurrently is a caller responsibility — the engine provides
// no cross-transaction locking.
package txn

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Sentinel errors callers may branch on.
var (
	// ErrAlreadyCommitted rejects a second Commit on any transaction,
	// whatever the first one's outcome.
	ErrAlreadyCommitted = errors.New("transaction already committed")
	// ErrPatchNotFound means an update edit's oldText does not occur
	// in the target file.
	ErrPatchNotFound = errors.New("patch text not found")
)

// State is the transaction lifecycle position. A transaction moves
// Pending → Committing → Committed or RolledBack exactly once.
type State string

const (
	StatePending    State = "pending"
	StateCommitting State = "committing"
	StateCommitted  State = "committed"
	StateRolledBack State = "rolled_back"
)

// Edit is one literal text replacement inside an update operation.
// The first occurrence of OldText is replaced with NewText.
type Edit struct {
	OldText string
	NewText string
}

type opKind int

const (
	opWrite opKind = iota
	opUpdate
	opRemove
)

func (k opKind) String() string {
	switch k {
	case opWrite:
		return "write"
	case opUpdate:
		return "update"
	case opRemove:
		return "remove"
	}
	return "unknown"
}

type operation struct {
	kind    opKind
	path    string
	content []byte
	edits   []Edit
}

// backupRecord remembers how to undo the first mutation of one path.
// existedBefore=false marks a path this transaction created; undo for
// those is deletion, not restoration.
type backupRecord struct {
	originalPath  string
	backupPath    string
	existedBefore bool
}

// Result reports the outcome of Commit.
type Result struct {
	Success      bool
	AppliedCount int
	Err          error
	// RollbackPath points at the surviving backup directory when
	// rollback cleanup itself failed; empty once cleanup completed.
	RollbackPath string
}

// Transaction is an ordered group of file mutations committed
// atomically. Zero value is not usable; construct with New.
type Transaction struct {
	id       string
	tempRoot string
	log      zerolog.Logger

	mu    sync.Mutex
	state State
	ops   []operation
}

// Option configures a Transaction.
type Option func(*Transaction)

// WithLogger sets the transaction logger.
func WithLogger(log zerolog.Logger) Option {
	return func(t *Transaction) { t.log = log }
}

// WithTempRoot overrides the backup root directory (defaults to the
// process temp dir). Used by tests to keep backups observable.
func WithTempRoot(dir string) Option {
	return func(t *Transaction) { t.tempRoot = dir }
}

// New creates an empty Pending transaction with a collision-free id.
func New(opts ...Option) *Transaction {
	t := &Transaction{
		id:       uuid.NewString(),
		tempRoot: os.TempDir(),
		log:      zerolog.Nop(),
		state:    StatePending,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ID returns the transaction identifier used for its backup directory.
func (t *Transaction) ID() string { return t.id }

// State returns the current lifecycle state.
func (t *Transaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Write queues an overwrite of path with content, creating parent
// directories as needed at commit time. Builder style; only queues
// while the transaction is Pending.
func (t *Transaction) Write(path string, content []byte) *Transaction {
	return t.enqueue(operation{kind: opWrite, path: path, content: content})
}

// Update queues an ordered list of literal text replacements against
// an existing file.
func (t *Transaction) Update(path string, edits []Edit) *Transaction {
	return t.enqueue(operation{kind: opUpdate, path: path, edits: edits})
}

// Remove queues deletion of an existing file.
func (t *Transaction) Remove(path string) *Transaction {
	return t.enqueue(operation{kind: opRemove, path: path})
}

func (t *Transaction) enqueue(op operation) *Transaction {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StatePending {
		t.ops = append(t.ops, op)
	}
	return t
}

// Commit applies the queued operations strictly in enqueue order.
// The first failure stops processing, rolls back every mutation made
// so far, and reports the failing operation and its path. Commit is
// not re-entrant: any call after the first fails with
// ErrAlreadyCommitted and touches nothing on disk.
func (t *Transaction) Commit() Result {
	t.mu.Lock()
	if t.state != StatePending {
		t.mu.Unlock()
		return Result{Success: false, Err: fmt.Errorf("%w (state %s)", ErrAlreadyCommitted, t.state)}
	}
	t.state = StateCommitting
	ops := t.ops
	t.mu.Unlock()

	// Validate payloads before touching disk; a violation fails the
	// whole transaction without creating any backup.
	if err := validateOps(ops); err != nil {
		t.setState(StateRolledBack)
		return Result{Success: false, Err: err}
	}

	backupDir := filepath.Join(t.tempRoot, ".fs-transactions", t.id)
	records := make([]backupRecord, 0, len(ops))
	seen := make(map[string]bool, len(ops))

	for i, op := range ops {
		path := filepath.Clean(op.path)

		// One backup record per path, captured before its first
		// mutation in this transaction.
		if !seen[path] {
			rec, err := captureBackup(backupDir, len(records), path)
			if err != nil {
				return t.rollback(records, backupDir, opError(i, op, err))
			}
			seen[path] = true
			records = append(records, rec)
		}

		if err := apply(op, path); err != nil {
			return t.rollback(records, backupDir, opError(i, op, err))
		}
	}

	if err := os.RemoveAll(backupDir); err != nil && !os.IsNotExist(err) {
		t.log.Warn().Err(err).Str("dir", backupDir).Msg("could not clean up backup directory")
	}
	t.setState(StateCommitted)
	return Result{Success: true, AppliedCount: len(ops)}
}

func (t *Transaction) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// rollback undoes every recorded mutation in record order: restore
// paths that existed before, delete paths this transaction created.
// The original failure is always reported; a rollback I/O failure is
// attached to it and leaves the backup directory in place.
func (t *Transaction) rollback(records []backupRecord, backupDir string, cause error) Result {
	var rollbackErr error
	for _, rec := range records {
		if rec.existedBefore {
			if err := copyFile(rec.backupPath, rec.originalPath); err != nil {
				rollbackErr = errors.Join(rollbackErr, fmt.Errorf("restoring %s: %w", rec.originalPath, err))
			}
			continue
		}
		if err := os.Remove(rec.originalPath); err != nil && !os.IsNotExist(err) {
			rollbackErr = errors.Join(rollbackErr, fmt.Errorf("removing created file %s: %w", rec.originalPath, err))
		}
	}

	t.setState(StateRolledBack)

	if rollbackErr != nil {
		t.log.Error().Err(rollbackErr).Str("backup_dir", backupDir).Msg("rollback incomplete, keeping backups")
		return Result{
			Success:      false,
			Err:          fmt.Errorf("%w (additionally, rollback failed: %v)", cause, rollbackErr),
			RollbackPath: backupDir,
		}
	}

	if err := os.RemoveAll(backupDir); err != nil && !os.IsNotExist(err) {
		t.log.Warn().Err(err).Str("dir", backupDir).Msg("could not clean up backup directory")
	}
	return Result{Success: false, Err: cause}
}

func validateOps(ops []operation) error {
	for i, op := range ops {
		if strings.TrimSpace(op.path) == "" {
			return fmt.Errorf("operation %d (%s): empty path", i+1, op.kind)
		}
		switch op.kind {
		case opWrite:
			if op.content == nil {
				return fmt.Errorf("operation %d (write %s): nil content", i+1, op.path)
			}
		case opUpdate:
			if len(op.edits) == 0 {
				return fmt.Errorf("operation %d (update %s): empty edit list", i+1, op.path)
			}
		}
	}
	return nil
}

// captureBackup snapshots path into the backup directory if it
// currently exists. The backup filename is index-prefixed so distinct
// paths with the same base name cannot collide.
func captureBackup(backupDir string, index int, path string) (backupRecord, error) {
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return backupRecord{originalPath: path, existedBefore: false}, nil
	case err != nil:
		return backupRecord{}, fmt.Errorf("inspecting %s: %w", path, err)
	case info.IsDir():
		return backupRecord{}, fmt.Errorf("%s is a directory", path)
	}

	if err := os.MkdirAll(backupDir, 0o700); err != nil {
		return backupRecord{}, fmt.Errorf("creating backup directory: %w", err)
	}
	backupPath := filepath.Join(backupDir, strconv.Itoa(index)+"-"+filepath.Base(path))
	if err := copyFile(path, backupPath); err != nil {
		return backupRecord{}, fmt.Errorf("backing up %s: %w", path, err)
	}
	return backupRecord{originalPath: path, backupPath: backupPath, existedBefore: true}, nil
}

func apply(op operation, path string) error {
	switch op.kind {
	case opWrite:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
		return os.WriteFile(path, op.content, 0o644)

	case opUpdate:
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		text := string(data)
		for _, edit := range op.edits {
			if !strings.Contains(text, edit.OldText) {
				return fmt.Errorf("%w: %q", ErrPatchNotFound, truncate(edit.OldText, 60))
			}
			text = strings.Replace(text, edit.OldText, edit.NewText, 1)
		}
		return os.WriteFile(path, []byte(text), 0o644)

	case opRemove:
		// The path must exist: a remove with nothing to remove is a
		// caller error, and rollback needs a backup to restore from.
		if _, err := os.Stat(path); err != nil {
			return err
		}
		return os.Remove(path)
	}
	return fmt.Errorf("unknown operation kind %d", op.kind)
}

func opError(index int, op operation, err error) error {
	return fmt.Errorf("operation %d (%s %s): %w", index+1, op.kind, op.path, err)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
