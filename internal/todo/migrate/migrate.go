// Package migrate moves todos in and out of the Primary Store as JSONL, YAML
// or TOML files. Imports go through the Dual-Write Facade so validation and
// the mirror rebuild apply to every record.
package migrate

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/devbydijah/todolist/internal/todo/facade"
	"github.com/devbydijah/todolist/internal/todo/schema"
	"gopkg.in/yaml.v3"
)

// Format names a file encoding.
type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
	FormatTOML  Format = "toml"
)

// ParseFormat accepts a format name or a common alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jsonl", "ndjson", "json":
		return FormatJSONL, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unknown format %q (want jsonl, yaml or toml)", s)
	}
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("cannot infer format from %q", path)
	}
	return ParseFormat(ext)
}

// record is the on-disk shape shared by every format.
type record struct {
	ID          int64  `json:"id,omitempty" yaml:"id,omitempty" toml:"id,omitempty"`
	Title       string `json:"title" yaml:"title" toml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Completed   bool   `json:"completed" yaml:"completed" toml:"completed"`
	Synced      bool   `json:"synced,omitempty" yaml:"synced,omitempty" toml:"synced,omitempty"`
}

// document wraps the records for YAML and TOML, which need a top-level table.
type document struct {
	Todos []record `yaml:"todos" toml:"todos"`
}

func toRecord(t schema.Todo) record {
	return record{ID: t.ID, Title: t.Title, Description: t.Description, Completed: t.Completed, Synced: t.Synced}
}

func (r record) todo() schema.Todo {
	return schema.Todo{ID: r.ID, Title: r.Title, Description: r.Description, Completed: r.Completed, Synced: r.Synced}
}

// Export writes todos to w.
func Export(w io.Writer, todos []schema.Todo, format Format) error {
	records := make([]record, 0, len(todos))
	for _, t := range todos {
		records = append(records, toRecord(t))
	}

	switch format {
	case FormatJSONL:
		bw := bufio.NewWriter(w)
		enc := json.NewEncoder(bw)
		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				return fmt.Errorf("failed to encode todo %d: %w", r.ID, err)
			}
		}
		return bw.Flush()
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(document{Todos: records}); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(document{Todos: records}); err != nil {
			return fmt.Errorf("failed to encode toml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// ExportFile writes todos to path atomically via a temp file.
func ExportFile(path string, todos []schema.Todo, format Format) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if err := Export(f, todos, format); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Decode reads every record from r without validating them.
func Decode(r io.Reader, format Format) ([]schema.Todo, error) {
	var records []record
	switch format {
	case FormatJSONL:
		decoder := json.NewDecoder(r)
		for line := 1; ; line++ {
			var rec record
			if err := decoder.Decode(&rec); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return nil, fmt.Errorf("invalid JSON at record %d: %w", line, err)
			}
			records = append(records, rec)
		}
	case FormatYAML:
		var doc document
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("invalid yaml: %w", err)
		}
		records = doc.Todos
	case FormatTOML:
		var doc document
		if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("invalid toml: %w", err)
		}
		records = doc.Todos
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}

	todos := make([]schema.Todo, 0, len(records))
	for _, rec := range records {
		todos = append(todos, rec.todo())
	}
	return todos, nil
}

// Options controls an import.
type Options struct {
	Format Format
	// DryRun validates every record without writing.
	DryRun bool
	// KeepIDs upserts records under their file ids and keeps their synced
	// flag. Otherwise every record is created fresh and pending.
	KeepIDs bool
}

// Result contains statistics about an import.
type Result struct {
	Read     int
	Imported int
	Errors   []string
}

// Import decodes r and saves every valid record through f. Invalid records
// are counted in Result.Errors and do not stop the import; a decode failure
// does.
func Import(ctx context.Context, r io.Reader, f *facade.Facade, opts Options) (*Result, error) {
	todos, err := Decode(r, opts.Format)
	if err != nil {
		return nil, err
	}

	result := &Result{Read: len(todos)}
	for i, t := range todos {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !opts.KeepIDs {
			t.ID = 0
			t.Synced = false
		}
		t.Title = strings.TrimSpace(t.Title)
		if err := t.Validate(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("record %d: %v", i+1, err))
			continue
		}
		if opts.DryRun {
			result.Imported++
			continue
		}
		if _, err := f.Save(ctx, t); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("record %d: %v", i+1, err))
			continue
		}
		result.Imported++
	}
	return result, nil
}
