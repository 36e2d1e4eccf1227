package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Himson2006/Yolo-Gpu-2/internal/conf"
	"github.com/Himson2006/Yolo-Gpu-2/internal/datastore/entities"
	"github.com/Himson2006/Yolo-Gpu-2/internal/errors"
)

const (
	keyOverridden = "classes_overridden"
	keyBehaviors  = "behaviors"
)

// EventLocator looks up the stored event, whose DetectionPath names the
// document it was ingested from.
type EventLocator interface {
	GetEvent(ctx context.Context, id string) (*entities.Event, error)
}

// FileMirror rewrites the detection document of an event. Unknown keys are kept.
// Updates are serialized and each rewrite is atomic (temp file + rename).
//
// The document is the event's recorded DetectionPath when a locator is set and
// the event has one, else <dir>/<base(event_id)>.json.
type FileMirror struct {
	dir     string
	locator EventLocator
	mu      sync.Mutex
}

// FileOption configures a FileMirror.
type FileOption func(*FileMirror)

// WithEventLocator resolves documents through the events' recorded paths.
func WithEventLocator(l EventLocator) FileOption {
	return func(m *FileMirror) { m.locator = l }
}

// NewFileMirror returns a mirror over the documents in dir.
func NewFileMirror(dir string, opts ...FileOption) *FileMirror {
	m := &FileMirror{dir: dir}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the fallback document path of an event inside the mirror folder.
// Only the last element of the id is used, so an id cannot leave the folder.
func (m *FileMirror) Path(eventID string) (string, error) {
	name := filepath.Base(eventID)
	if eventID == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return "", invalidPath(eventID, "event id does not name a document")
	}
	path := filepath.Join(m.dir, name+".json")
	rel, err := filepath.Rel(m.dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", invalidPath(eventID, "document outside the mirror folder")
	}
	return path, nil
}

// resolve returns the document path of an event.
func (m *FileMirror) resolve(ctx context.Context, eventID string) (string, error) {
	if m.locator != nil {
		event, err := m.locator.GetEvent(ctx, eventID)
		switch {
		case err == nil && event.DetectionPath != "":
			path := filepath.Clean(event.DetectionPath)
			if !strings.EqualFold(filepath.Ext(path), ".json") {
				return "", invalidPath(eventID, "detection path is not a .json document")
			}
			return path, nil
		case err != nil && !errors.IsNotFound(err):
			return "", err
		}
	}
	return m.Path(eventID)
}

func invalidPath(eventID, reason string) error {
	return errors.Newf("%s", reason).
		Component("mirror").
		Category(errors.CategoryValidation).
		Context("event_id", eventID).
		Build()
}

func (m *FileMirror) Name() string { return conf.MirrorFile }

func (m *FileMirror) Close(context.Context) error { return nil }

// SetOverriddenSpecies replaces classes_overridden.
func (m *FileMirror) SetOverriddenSpecies(ctx context.Context, eventID string, labels []string) error {
	if labels == nil {
		labels = []string{}
	}
	return m.update(ctx, eventID, func(doc map[string]json.RawMessage) error {
		raw, err := json.Marshal(labels)
		if err != nil {
			return err
		}
		doc[keyOverridden] = raw
		return nil
	})
}

// AddBehavior appends b to the behaviors array, creating it when absent.
func (m *FileMirror) AddBehavior(ctx context.Context, eventID string, b Behavior) error {
	return m.update(ctx, eventID, func(doc map[string]json.RawMessage) error {
		entries, err := behaviorsOf(doc)
		if err != nil {
			return err
		}
		return setBehaviors(doc, append(entries, b))
	})
}

// RemoveBehavior drops entries matching b by start time and description.
func (m *FileMirror) RemoveBehavior(ctx context.Context, eventID string, b Behavior) error {
	return m.update(ctx, eventID, func(doc map[string]json.RawMessage) error {
		entries, err := behaviorsOf(doc)
		if err != nil {
			return err
		}
		kept := entries[:0]
		for _, e := range entries {
			if !e.Same(b) {
				kept = append(kept, e)
			}
		}
		return setBehaviors(doc, kept)
	})
}

// update reads, edits and atomically rewrites one document.
func (m *FileMirror) update(ctx context.Context, eventID string, edit func(map[string]json.RawMessage) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := m.resolve(ctx, eventID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrDocumentMissing, path)
		}
		return errors.New(err).
			Component("mirror").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	doc := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.New(err).
			Component("mirror").
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Build()
	}
	if err := edit(doc); err != nil {
		return errors.New(err).
			Component("mirror").
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Build()
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, out)
}

func behaviorsOf(doc map[string]json.RawMessage) ([]Behavior, error) {
	raw, ok := doc[keyBehaviors]
	if !ok || string(raw) == "null" {
		return nil, nil
	}
	var entries []Behavior
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", keyBehaviors, err)
	}
	return entries, nil
}

func setBehaviors(doc map[string]json.RawMessage, entries []Behavior) error {
	if entries == nil {
		entries = []Behavior{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	doc[keyBehaviors] = raw
	return nil
}

// writeFileAtomic writes data to a temp file in the target directory and renames it
// over path, keeping the original file mode when there is one.
func writeFileAtomic(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
