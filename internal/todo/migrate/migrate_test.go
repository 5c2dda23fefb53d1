package migrate

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devbydijah/todolist/internal/todo/db"
	"github.com/devbydijah/todolist/internal/todo/facade"
	"github.com/devbydijah/todolist/internal/todo/mirror"
	"github.com/devbydijah/todolist/internal/todo/schema"
	"github.com/google/go-cmp/cmp"
)

func setupFacade(t *testing.T) (*facade.Facade, *db.Memory) {
	t.Helper()
	store := db.NewMemory()
	return facade.New(store, mirror.New(filepath.Join(t.TempDir(), "mirror.json"))), store
}

var sample = []schema.Todo{
	{ID: 1, Title: "Buy milk", Description: "2 litres", Synced: true},
	{ID: 4, Title: "Walk dog", Completed: true},
}

func TestExportImport_KeepIDs(t *testing.T) {
	for _, format := range []Format{FormatJSONL, FormatYAML, FormatTOML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Export(&buf, sample, format); err != nil {
				t.Fatalf("Export() failed: %v", err)
			}

			f, store := setupFacade(t)
			result, err := Import(context.Background(), &buf, f, Options{Format: format, KeepIDs: true})
			if err != nil {
				t.Fatalf("Import() failed: %v", err)
			}
			if result.Imported != 2 || len(result.Errors) != 0 {
				t.Errorf("result = %+v", result)
			}

			got, _ := store.GetAll(context.Background())
			if diff := cmp.Diff(sample, got); diff != "" {
				t.Errorf("store mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestImport_FreshRecordsArePending(t *testing.T) {
	input := `{"id": 10, "title": "a", "synced": true}
{"id": 11, "title": "b", "completed": true}
`
	f, store := setupFacade(t)
	result, err := Import(context.Background(), strings.NewReader(input), f, Options{Format: FormatJSONL})
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if result.Imported != 2 {
		t.Fatalf("Imported = %d, want 2", result.Imported)
	}

	got, _ := store.GetAll(context.Background())
	for _, todo := range got {
		if todo.ID >= 10 {
			t.Errorf("file id %d kept without KeepIDs", todo.ID)
		}
		if todo.Synced {
			t.Errorf("todo %d imported as synced", todo.ID)
		}
	}
}

func TestImport_InvalidRecordsCollected(t *testing.T) {
	input := `todos:
  - title: "ok"
  - title: "   "
  - title: "also ok"
    completed: true
`
	f, store := setupFacade(t)
	result, err := Import(context.Background(), strings.NewReader(input), f, Options{Format: FormatYAML})
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if result.Read != 3 || result.Imported != 2 || len(result.Errors) != 1 {
		t.Errorf("result = %+v", result)
	}
	if !strings.Contains(result.Errors[0], "record 2") {
		t.Errorf("error %q does not name the record", result.Errors[0])
	}
	if n, _ := store.Count(context.Background()); n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}

func TestImport_DryRunWritesNothing(t *testing.T) {
	input := `[[todos]]
title = "planned"
`
	f, store := setupFacade(t)
	result, err := Import(context.Background(), strings.NewReader(input), f, Options{Format: FormatTOML, DryRun: true})
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if result.Imported != 1 {
		t.Errorf("Imported = %d, want 1", result.Imported)
	}
	if n, _ := store.Count(context.Background()); n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}
}

func TestImport_MalformedInput(t *testing.T) {
	f, _ := setupFacade(t)
	_, err := Import(context.Background(), strings.NewReader("{not json"), f, Options{Format: FormatJSONL})
	if err == nil {
		t.Fatal("Import() of malformed JSONL succeeded")
	}
}

func TestExportFile_Atomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "todos.yaml")
	format, err := FormatFromPath(path)
	if err != nil {
		t.Fatalf("FormatFromPath() failed: %v", err)
	}
	if err := ExportFile(path, sample, format); err != nil {
		t.Fatalf("ExportFile() failed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer file.Close()
	got, err := Decode(file, format)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if diff := cmp.Diff(sample, got); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"JSONL": FormatJSONL, "yml": FormatYAML, "toml": FormatTOML, "ndjson": FormatJSONL}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("csv"); err == nil {
		t.Error("ParseFormat(csv) succeeded")
	}
}
