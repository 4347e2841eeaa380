package center

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/lookout-monitor/internal/config"
	"github.com/oshokin/lookout-monitor/internal/engine"
)

const (
	fieldYaw        = "yaw"
	fieldPitch      = "pitch"
	fieldCapturedAt = "captured_at"
)

var (
	// ErrNotFound is returned when no center was saved yet.
	ErrNotFound = errors.New("center not found")

	errMissingField = errors.New("center file is missing a field")
)

// Reference is a saved forward orientation.
type Reference struct {
	Yaw        float64
	Pitch      float64
	CapturedAt time.Time
}

// Engine converts the saved center to the engine's seed type.
func (r *Reference) Engine() *engine.Reference {
	if r == nil {
		return nil
	}

	return &engine.Reference{Yaw: r.Yaw, Pitch: r.Pitch}
}

// Repository defines persistence operations for the center reference.
type Repository interface {
	Load(ctx context.Context) (*Reference, error)
	Save(ctx context.Context, ref *Reference) error
}

// FileRepository persists the center to a JSON file on disk. The document is
// a google.protobuf.Struct encoded with protojson, the same message the
// control plane speaks.
type FileRepository struct {
	// path is the filesystem location of the JSON file.
	path string
	// mu protects concurrent access to the file.
	mu sync.Mutex
}

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the center from disk.
func (r *FileRepository) Load(_ context.Context) (*Reference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read center file: %w", err)
	}

	var doc structpb.Struct
	if err = protojson.Unmarshal(contents, &doc); err != nil {
		return nil, fmt.Errorf("decode center file: %w", err)
	}

	return fromStruct(&doc)
}

// Save writes the center to disk.
func (r *FileRepository) Save(_ context.Context, ref *Reference) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := toStruct(ref)
	if err != nil {
		return fmt.Errorf("encode center: %w", err)
	}

	data, err := protojson.MarshalOptions{Multiline: true}.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode center: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write center file: %w", err)
	}

	return nil
}

// fromStruct converts the stored document into a Reference.
func fromStruct(doc *structpb.Struct) (*Reference, error) {
	fields := doc.GetFields()

	yaw, ok := fields[fieldYaw]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errMissingField, fieldYaw)
	}

	pitch, ok := fields[fieldPitch]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errMissingField, fieldPitch)
	}

	ref := &Reference{
		Yaw:   yaw.GetNumberValue(),
		Pitch: pitch.GetNumberValue(),
	}

	if raw := fields[fieldCapturedAt].GetStringValue(); raw != "" {
		capturedAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", fieldCapturedAt, err)
		}

		ref.CapturedAt = capturedAt
	}

	return ref, nil
}

// toStruct converts a Reference into the stored document.
func toStruct(ref *Reference) (*structpb.Struct, error) {
	values := map[string]any{
		fieldYaw:   ref.Yaw,
		fieldPitch: ref.Pitch,
	}

	if !ref.CapturedAt.IsZero() {
		values[fieldCapturedAt] = ref.CapturedAt.UTC().Format(time.RFC3339Nano)
	}

	return structpb.NewStruct(values)
}
