package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/asbrown77/bagile-platform-sub001/common/logging"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/model"
)

// DefaultPath is used when NewQueue is given an empty path.
const DefaultPath = "/var/lib/bagile/dlq"

// Queue writes failed envelopes to disk, one JSON file each.
type Queue struct {
	basePath string
	logger   *logging.Logger
	mu       sync.Mutex
	written  uint64
}

// NewQueue creates a DLQ that writes to the specified directory.
func NewQueue(basePath string, logger *logging.Logger) (*Queue, error) {
	if basePath == "" {
		basePath = DefaultPath
	}
	if logger == nil {
		logger = logging.Discard()
	}

	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create dlq directory: %w", err)
	}

	return &Queue{basePath: basePath, logger: logger}, nil
}

// Write records a failed envelope.
func (q *Queue) Write(ctx context.Context, env model.Envelope, err error, reason string) error {
	if q == nil {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	failed := newFailed(env, err, reason)
	filename := fmt.Sprintf("failed_%d_%06d_%s.json", failed.Timestamp.UnixNano(), q.written, reason)

	data, marshalErr := json.MarshalIndent(failed, "", "  ")
	if marshalErr != nil {
		return fmt.Errorf("marshal dlq entry: %w", marshalErr)
	}
	if writeErr := os.WriteFile(filepath.Join(q.basePath, filename), data, 0o644); writeErr != nil {
		return fmt.Errorf("write dlq entry: %w", writeErr)
	}

	q.written++
	q.logger.WarnContext(ctx, "envelope dead-lettered",
		logging.Source(env.Source), logging.ExternalID(env.ExternalID), logging.Reason(reason), "file", filename)
	return nil
}

// Stats returns DLQ metrics.
func (q *Queue) Stats(_ context.Context) map[string]interface{} {
	if q == nil {
		return map[string]interface{}{"enabled": false, "backend": "file"}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	names, err := q.entries()
	if err != nil {
		return map[string]interface{}{
			"enabled": true,
			"backend": "file",
			"written": q.written,
			"error":   err.Error(),
		}
	}

	return map[string]interface{}{
		"enabled":       true,
		"backend":       "file",
		"written":       q.written,
		"pending_files": len(names),
		"base_path":     q.basePath,
	}
}

// List returns up to limit failed envelopes, oldest first. A limit of
// zero or less returns everything.
func (q *Queue) List(_ context.Context, limit int) ([]FailedEnvelope, error) {
	if q == nil {
		return nil, ErrDisabled
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	names, err := q.entries()
	if err != nil {
		return nil, fmt.Errorf("read dlq directory: %w", err)
	}

	var out []FailedEnvelope
	for _, name := range names {
		if limit > 0 && len(out) >= limit {
			break
		}
		data, err := os.ReadFile(filepath.Join(q.basePath, name))
		if err != nil {
			q.logger.Error("failed to read dlq file", "file", name, logging.Error(err))
			continue
		}
		var failed FailedEnvelope
		if err := json.Unmarshal(data, &failed); err != nil {
			q.logger.Error("failed to parse dlq file", "file", name, logging.Error(err))
			continue
		}
		out = append(out, failed)
	}
	return out, nil
}

// Delete removes the entry written at ts.
func (q *Queue) Delete(_ context.Context, ts time.Time) error {
	if q == nil {
		return ErrDisabled
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	matches, err := filepath.Glob(filepath.Join(q.basePath, fmt.Sprintf("failed_%d_*.json", ts.UnixNano())))
	if err != nil {
		return fmt.Errorf("search dlq files: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("dlq entry %s not found", ts.Format(time.RFC3339Nano))
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			return fmt.Errorf("delete dlq file: %w", err)
		}
	}
	return nil
}

// Purge removes all entries.
func (q *Queue) Purge(_ context.Context) error {
	if q == nil {
		return ErrDisabled
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	names, err := q.entries()
	if err != nil {
		return fmt.Errorf("read dlq directory: %w", err)
	}
	for _, name := range names {
		if err := os.Remove(filepath.Join(q.basePath, name)); err != nil {
			return fmt.Errorf("delete dlq file: %w", err)
		}
	}
	q.logger.Info("dlq purged", "removed", len(names))
	return nil
}

// entries lists entry file names in write order. Caller holds q.mu.
func (q *Queue) entries() ([]string, error) {
	files, err := os.ReadDir(q.basePath)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, f := range files {
		if f.IsDir() || !strings.HasPrefix(f.Name(), "failed_") || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		names = append(names, f.Name())
	}
	sort.Strings(names)
	return names, nil
}
