package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/avilab/fscmd/internal/cache"
	"github.com/avilab/fscmd/internal/command"
	"github.com/avilab/fscmd/internal/container"
	"github.com/avilab/fscmd/internal/fsio"
	"github.com/avilab/fscmd/internal/history"
	"github.com/avilab/fscmd/internal/txn"
	"github.com/rs/zerolog"
)

// newTestRegistry wires a full stack — container, cache, file
// service, history — rooted in a temp dir, the way the server's
// composition root does.
func newTestRegistry(t *testing.T) (*command.Registry, string) {
	t.Helper()
	root := t.TempDir()

	c := cache.New(cache.Config{MaxSize: 64}, zerolog.Nop())
	files, err := fsio.New(root, c, zerolog.Nop(), fsio.WithTxnOptions(txn.WithTempRoot(t.TempDir())))
	if err != nil {
		t.Fatalf("fsio.New: %v", err)
	}
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}

	svcs := container.New()
	if err := svcs.Register(ServiceCache, c, false); err != nil {
		t.Fatal(err)
	}
	if err := svcs.Register(ServiceFiles, files, false); err != nil {
		t.Fatal(err)
	}
	if err := svcs.Register(ServiceHistory, store, false); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = svcs.Dispose() })

	reg := command.NewRegistry(svcs, command.WithObserver(func(name string, res command.Result, elapsed time.Duration) {
		_ = store.Record(name, res.Success, res.Error, elapsed)
	}))
	for _, cmd := range All() {
		if err := reg.Register(cmd); err != nil {
			t.Fatalf("registering %s: %v", cmd.Name, err)
		}
	}
	return reg, root
}

func dispatch(t *testing.T, reg *command.Registry, name string, args map[string]any) command.Result {
	t.Helper()
	return reg.Dispatch(context.Background(), name, args)
}

func mustSucceed(t *testing.T, res command.Result) map[string]any {
	t.Helper()
	if !res.Success {
		t.Fatalf("dispatch failed: %s", res.Error)
	}
	data, ok := res.Data.(map[string]any)
	if !ok {
		t.Fatalf("Data is %T, want map", res.Data)
	}
	return data
}

func TestWriteThenReadFile(t *testing.T) {
	reg, _ := newTestRegistry(t)

	mustSucceed(t, dispatch(t, reg, "write_file", map[string]any{
		"path": "notes.txt", "content": "hello",
	}))

	data := mustSucceed(t, dispatch(t, reg, "read_file", map[string]any{"path": "notes.txt"}))
	if data["content"] != "hello" {
		t.Errorf("content = %v, want hello", data["content"])
	}
}

func TestReadFile_MissingReturnsStructuredError(t *testing.T) {
	reg, _ := newTestRegistry(t)

	res := dispatch(t, reg, "read_file", map[string]any{"path": "no-such-file.txt"})
	if res.Success {
		t.Fatal("reading a missing file succeeded")
	}
	if !strings.Contains(res.Error, "no such file") {
		t.Errorf("Error = %q, want an os not-exist message", res.Error)
	}
}

func TestEditFile_RoundTrip(t *testing.T) {
	reg, _ := newTestRegistry(t)
	mustSucceed(t, dispatch(t, reg, "write_file", map[string]any{
		"path": "a.txt", "content": "hello world",
	}))

	mustSucceed(t, dispatch(t, reg, "edit_file", map[string]any{
		"path": "a.txt",
		"edits": []any{
			map[string]any{"old_text": "hello", "new_text": "goodbye"},
		},
	}))

	data := mustSucceed(t, dispatch(t, reg, "read_file", map[string]any{"path": "a.txt"}))
	if data["content"] != "goodbye world" {
		t.Errorf("content = %v", data["content"])
	}
}

func TestEditFile_ValidationRejectsBadEdits(t *testing.T) {
	reg, _ := newTestRegistry(t)

	tests := []struct {
		name  string
		edits any
	}{
		{"empty array", []any{}},
		{"non-object entry", []any{"just a string"}},
		{"missing old_text", []any{map[string]any{"new_text": "x"}}},
		{"empty old_text", []any{map[string]any{"old_text": "", "new_text": "x"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := dispatch(t, reg, "edit_file", map[string]any{"path": "a.txt", "edits": tc.edits})
			if res.Success {
				t.Error("invalid edits accepted")
			}
			if !strings.Contains(res.Error, "edits") {
				t.Errorf("Error = %q, should name the edits field", res.Error)
			}
		})
	}
}

func TestEditFile_PatchNotFound(t *testing.T) {
	reg, root := newTestRegistry(t)
	mustSucceed(t, dispatch(t, reg, "write_file", map[string]any{
		"path": "a.txt", "content": "stable",
	}))

	res := dispatch(t, reg, "edit_file", map[string]any{
		"path":  "a.txt",
		"edits": []any{map[string]any{"old_text": "ghost", "new_text": "x"}},
	})
	if res.Success {
		t.Fatal("edit with absent old_text succeeded")
	}

	data, err := os.ReadFile(filepath.Join(root, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "stable" {
		t.Errorf("file modified by failed edit: %q", data)
	}
}

func TestMoveFile(t *testing.T) {
	reg, root := newTestRegistry(t)
	mustSucceed(t, dispatch(t, reg, "write_file", map[string]any{
		"path": "src.txt", "content": "cargo",
	}))

	mustSucceed(t, dispatch(t, reg, "move_file", map[string]any{
		"source": "src.txt", "destination": "dir/dst.txt",
	}))

	if _, err := os.Stat(filepath.Join(root, "src.txt")); !os.IsNotExist(err) {
		t.Error("source still exists")
	}
	data := mustSucceed(t, dispatch(t, reg, "read_file", map[string]any{"path": "dir/dst.txt"}))
	if data["content"] != "cargo" {
		t.Errorf("content = %v", data["content"])
	}
}

func TestMoveFile_SamePathRejected(t *testing.T) {
	reg, root := newTestRegistry(t)
	mustSucceed(t, dispatch(t, reg, "write_file", map[string]any{
		"path": "keep.txt", "content": "cargo",
	}))

	res := dispatch(t, reg, "move_file", map[string]any{
		"source": "keep.txt", "destination": "keep.txt",
	})
	if res.Success {
		t.Fatal("moving a file onto itself succeeded")
	}
	if !strings.Contains(res.Error, "same file") {
		t.Errorf("Error = %q, want a same-file message", res.Error)
	}
	got, err := os.ReadFile(filepath.Join(root, "keep.txt"))
	if err != nil {
		t.Fatalf("file gone after rejected move: %v", err)
	}
	if string(got) != "cargo" {
		t.Errorf("content = %q, want cargo", got)
	}
}

func TestDeleteFile(t *testing.T) {
	reg, root := newTestRegistry(t)
	mustSucceed(t, dispatch(t, reg, "write_file", map[string]any{
		"path": "a.txt", "content": "x",
	}))

	mustSucceed(t, dispatch(t, reg, "delete_file", map[string]any{"path": "a.txt"}))

	if _, err := os.Stat(filepath.Join(root, "a.txt")); !os.IsNotExist(err) {
		t.Error("file still exists")
	}
}

func TestDeleteFile_Missing(t *testing.T) {
	reg, _ := newTestRegistry(t)

	res := dispatch(t, reg, "delete_file", map[string]any{"path": "ghost.txt"})
	if res.Success {
		t.Error("deleting a missing file succeeded")
	}
}

func TestCreateAndListDirectory(t *testing.T) {
	reg, _ := newTestRegistry(t)

	mustSucceed(t, dispatch(t, reg, "create_directory", map[string]any{"path": "sub"}))
	mustSucceed(t, dispatch(t, reg, "write_file", map[string]any{
		"path": "sub/a.txt", "content": "1",
	}))

	data := mustSucceed(t, dispatch(t, reg, "list_directory", map[string]any{"path": "sub"}))
	entries, ok := data["entries"].([]fsio.DirEntry)
	if !ok {
		t.Fatalf("entries type %T", data["entries"])
	}
	if len(entries) != 1 || entries[0].Name != "a.txt" {
		t.Errorf("entries = %v", entries)
	}
}

func TestGetFileInfo(t *testing.T) {
	reg, _ := newTestRegistry(t)
	mustSucceed(t, dispatch(t, reg, "write_file", map[string]any{
		"path": "a.txt", "content": "12345",
	}))

	res := dispatch(t, reg, "get_file_info", map[string]any{"path": "a.txt"})
	if !res.Success {
		t.Fatalf("get_file_info failed: %s", res.Error)
	}
	info, ok := res.Data.(fsio.FileInfo)
	if !ok {
		t.Fatalf("Data type %T", res.Data)
	}
	if info.Size != 5 {
		t.Errorf("Size = %d, want 5", info.Size)
	}
}

func TestSearchFiles(t *testing.T) {
	reg, _ := newTestRegistry(t)
	for _, p := range []string{"main.go", "util.go", "doc.md", "pkg/extra.go"} {
		mustSucceed(t, dispatch(t, reg, "write_file", map[string]any{"path": p, "content": ""}))
	}

	data := mustSucceed(t, dispatch(t, reg, "search_files", map[string]any{"pattern": "*.go"}))
	matches, ok := data["matches"].([]string)
	if !ok {
		t.Fatalf("matches type %T", data["matches"])
	}
	if len(matches) != 3 {
		t.Errorf("matches = %v, want 3 .go files", matches)
	}
}

func TestSearchFiles_BlankPatternRejected(t *testing.T) {
	reg, _ := newTestRegistry(t)

	res := dispatch(t, reg, "search_files", map[string]any{"pattern": "  "})
	if res.Success {
		t.Error("blank pattern accepted")
	}
}

func TestCacheStats_ReflectsReads(t *testing.T) {
	reg, _ := newTestRegistry(t)
	mustSucceed(t, dispatch(t, reg, "write_file", map[string]any{
		"path": "a.txt", "content": "x",
	}))
	mustSucceed(t, dispatch(t, reg, "read_file", map[string]any{"path": "a.txt"})) // miss
	mustSucceed(t, dispatch(t, reg, "read_file", map[string]any{"path": "a.txt"})) // hit

	res := dispatch(t, reg, "cache_stats", nil)
	if !res.Success {
		t.Fatalf("cache_stats failed: %s", res.Error)
	}
	stats, ok := res.Data.(cache.Stats)
	if !ok {
		t.Fatalf("Data type %T", res.Data)
	}
	if stats.Hits < 1 {
		t.Errorf("Hits = %d, want at least 1", stats.Hits)
	}
}

func TestCommandLog_RecordsDispatches(t *testing.T) {
	reg, _ := newTestRegistry(t)
	mustSucceed(t, dispatch(t, reg, "write_file", map[string]any{
		"path": "a.txt", "content": "x",
	}))
	dispatch(t, reg, "read_file", map[string]any{"path": "ghost.txt"}) // recorded failure

	data := mustSucceed(t, dispatch(t, reg, "command_log", map[string]any{"limit": 10}))
	entries, ok := data["entries"].([]history.Entry)
	if !ok {
		t.Fatalf("entries type %T", data["entries"])
	}
	if len(entries) < 2 {
		t.Fatalf("entries = %d, want the prior dispatches", len(entries))
	}

	// Newest first: the failed read precedes the successful write.
	if entries[0].Command != "read_file" || entries[0].Success {
		t.Errorf("entries[0] = %+v, want failed read_file", entries[0])
	}
}

func TestCommandLog_NegativeLimitRejected(t *testing.T) {
	reg, _ := newTestRegistry(t)

	res := dispatch(t, reg, "command_log", map[string]any{"limit": -1})
	if res.Success {
		t.Error("negative limit accepted")
	}
}

func TestPathEscapesRejectedAcrossCommands(t *testing.T) {
	reg, _ := newTestRegistry(t)

	for _, name := range []string{"read_file", "delete_file", "get_file_info"} {
		res := dispatch(t, reg, name, map[string]any{"path": "../outside.txt"})
		if res.Success {
			t.Errorf("%s accepted an escaping path", name)
		}
		if !strings.Contains(res.Error, "escapes") {
			t.Errorf("%s error = %q, want escape rejection", name, res.Error)
		}
	}
}
