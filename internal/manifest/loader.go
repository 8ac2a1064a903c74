package manifest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/opsfolk/manifest-dns-sync/internal/provider"
)

// LoadError is one manifest file that could not be turned into a record.
// It excludes that file from the run without failing the load.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("manifest %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

type Loader struct {
	skipNames []string
}

func NewLoader(skipNames []string) *Loader {
	return &Loader{skipNames: skipNames}
}

// LoadDir reads every manifest in dir, ordered by file path, and returns the
// usable records plus one LoadError per malformed file. Only an unreadable
// directory is a hard error.
func (l *Loader) LoadDir(dir string) ([]Record, []*LoadError, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read manifest dir: %w", err)
	}

	var records []Record
	var loadErrs []*LoadError
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, name)
		record, err := l.loadFile(path)
		if err != nil {
			loadErrs = append(loadErrs, &LoadError{Path: path, Err: err})
			continue
		}

		if !provider.AllowedType(record.Type) {
			slog.Warn("Skipping manifest with unsupported record type", "file", path, "type", record.Type)
			continue
		}
		if l.skipped(record.Name) {
			slog.Debug("Skipping manifest matching skip-list", "file", path, "name", record.Name)
			continue
		}
		records = append(records, record)
	}
	return records, loadErrs, nil
}

func (l *Loader) loadFile(path string) (Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return Record{}, err
	}
	defer f.Close()

	var m File
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&m); err != nil {
		return Record{}, fmt.Errorf("parse: %w", err)
	}

	spec := m.Record
	if spec.Name == "" || spec.Type == "" || spec.Value == "" {
		return Record{}, fmt.Errorf("record needs name, type and value")
	}
	if spec.TTL <= 0 {
		return Record{}, fmt.Errorf("record ttl must be positive, got %d", spec.TTL)
	}

	return Record{
		Type:       spec.Type,
		Name:       spec.Name,
		Content:    spec.Value,
		TTL:        spec.TTL,
		Proxied:    spec.Proxied,
		Priority:   spec.Priority,
		Comment:    spec.Comment,
		SourceFile: path,
	}, nil
}

// Skipped reports whether a record name matches the configured skip-list.
// Matching is by substring, so provider-managed names like verification
// records can be fenced off with a single fragment.
func (l *Loader) skipped(name string) bool {
	for _, fragment := range l.skipNames {
		if fragment != "" && strings.Contains(name, fragment) {
			return true
		}
	}
	return false
}
