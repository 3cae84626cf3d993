// Save/restore protocol: six independent structures, each snapshotted
// under its own read guard, written sequentially with no cross-file
// atomicity (§4.3, §9). Individual files are replaced atomically via
// natefinch/atomic (write-to-temp, rename) so a crash mid-write never
// leaves a half-written file, even though a crash between files can
// still leave a mixed generation across the six.
package alexdb

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/natefinch/atomic"
	"go.uber.org/zap"
)

const (
	fileAPIKeys   = "api_keys.sec"
	fileKeyIndex  = "key.idx"
	fileCreatedAt = "created_at.idx"
	fileUpdatedAt = "updated_at.idx"
	fileDeleteAt  = "delete_at.idx"
	fileValues    = "values.db"
)

type wireTimeEntry struct {
	TS int64  `json:"ts"`
	ID string `json:"id"`
}

// Save snapshots all six structures to Config.DataDir if the hybrid
// write-count / elapsed-time threshold says it's time (§4.1). It is a
// no-op when DataDir is unset or the predicate is false.
func (s *Store) Save() error {
	if s.config.DataDir == "" {
		return nil
	}
	if !s.stats.canSave(s.config.SaveTriggeredByThreshold, s.config.SaveTriggeredAfter) {
		return nil
	}

	err := s.dirLock.withLock(LockExclusive, func() error {
		if err := s.writeSnapshotFile(fileAPIKeys, s.marshalAPIKeys); err != nil {
			return fmt.Errorf("save %s: %w", fileAPIKeys, err)
		}
		if err := s.writeSnapshotFile(fileKeyIndex, s.marshalKeyIndex); err != nil {
			return fmt.Errorf("save %s: %w", fileKeyIndex, err)
		}
		if err := s.writeSnapshotFile(fileValues, s.marshalValues); err != nil {
			return fmt.Errorf("save %s: %w", fileValues, err)
		}
		if err := s.writeSnapshotFile(fileCreatedAt, s.marshalTimeIndex(s.byCreatedAt)); err != nil {
			return fmt.Errorf("save %s: %w", fileCreatedAt, err)
		}
		if err := s.writeSnapshotFile(fileDeleteAt, s.marshalTimeIndex(s.byDeleteAt)); err != nil {
			return fmt.Errorf("save %s: %w", fileDeleteAt, err)
		}
		if err := s.writeSnapshotFile(fileUpdatedAt, s.marshalTimeIndex(s.byUpdatedAt)); err != nil {
			return fmt.Errorf("save %s: %w", fileUpdatedAt, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.stats.updateSavedWrites()
	s.logger.Info("save", zap.String("data_dir", s.config.DataDir))
	return nil
}

// Restore loads whatever of the six files are present in Config.DataDir,
// ignoring the rest (cold start, §4.1). Files are read independently;
// restoring into a Store that already has data overwrites the
// corresponding structure wholesale.
func (s *Store) Restore() error {
	if s.config.DataDir == "" {
		return nil
	}

	return s.dirLock.withLock(LockShared, func() error {
		if err := s.readSnapshotFile(fileAPIKeys, s.unmarshalAPIKeys); err != nil {
			return fmt.Errorf("restore %s: %w", fileAPIKeys, err)
		}
		if err := s.readSnapshotFile(fileKeyIndex, s.unmarshalKeyIndex); err != nil {
			return fmt.Errorf("restore %s: %w", fileKeyIndex, err)
		}
		if err := s.readSnapshotFile(fileValues, s.unmarshalValues); err != nil {
			return fmt.Errorf("restore %s: %w", fileValues, err)
		}
		if err := s.readSnapshotFile(fileCreatedAt, s.unmarshalTimeIndex(s.byCreatedAt)); err != nil {
			return fmt.Errorf("restore %s: %w", fileCreatedAt, err)
		}
		if err := s.readSnapshotFile(fileDeleteAt, s.unmarshalTimeIndex(s.byDeleteAt)); err != nil {
			return fmt.Errorf("restore %s: %w", fileDeleteAt, err)
		}
		if err := s.readSnapshotFile(fileUpdatedAt, s.unmarshalTimeIndex(s.byUpdatedAt)); err != nil {
			return fmt.Errorf("restore %s: %w", fileUpdatedAt, err)
		}
		s.logger.Info("restore", zap.String("data_dir", s.config.DataDir))
		return nil
	})
}

func (s *Store) writeSnapshotFile(name string, marshal func() ([]byte, error)) error {
	data, err := marshal()
	if err != nil {
		return err
	}
	path := filepath.Join(s.config.DataDir, name)
	return atomic.WriteFile(path, bytes.NewReader(frame(data)))
}

func (s *Store) readSnapshotFile(name string, unmarshal func([]byte) error) error {
	path := filepath.Join(s.config.DataDir, name)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	data, err := unframe(raw)
	if err != nil {
		return err
	}
	if !utf8.Valid(data) {
		return fmt.Errorf("%w: invalid utf-8", ErrSnapshotCorrupt)
	}
	return unmarshal(data)
}

func (s *Store) marshalAPIKeys() ([]byte, error) {
	keys := s.access.snapshotKeys()
	strs := make([]string, len(keys))
	for i, k := range keys {
		strs[i] = k.String()
	}
	return json.Marshal(strs)
}

func (s *Store) unmarshalAPIKeys(data []byte) error {
	var strs []string
	if err := json.Unmarshal(data, &strs); err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}
	keys := make([]uuid.UUID, 0, len(strs))
	for _, str := range strs {
		id, err := uuid.Parse(str)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
		}
		keys = append(keys, id)
	}
	s.access.replace(keys)
	return nil
}

func (s *Store) marshalKeyIndex() ([]byte, error) {
	m := s.byKey.snapshotMap()
	out := make(map[string]string, len(m))
	for k, id := range m {
		out[k] = id.String()
	}
	return json.Marshal(out)
}

func (s *Store) unmarshalKeyIndex(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}
	out := make(map[string]uuid.UUID, len(raw))
	for k, str := range raw {
		id, err := uuid.Parse(str)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
		}
		out[k] = id
	}
	s.byKey.loadMap(out)
	return nil
}

func (s *Store) marshalTimeIndex(idx *timeIndex) func() ([]byte, error) {
	return func() ([]byte, error) {
		entries := idx.snapshotEntries()
		out := make([]wireTimeEntry, len(entries))
		for i, e := range entries {
			out[i] = wireTimeEntry{TS: e.ts, ID: e.id.String()}
		}
		return json.Marshal(out)
	}
}

func (s *Store) unmarshalTimeIndex(idx *timeIndex) func([]byte) error {
	return func(data []byte) error {
		var raw []wireTimeEntry
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
		}
		entries := make([]timeEntry, len(raw))
		for i, e := range raw {
			id, err := uuid.Parse(e.ID)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
			}
			entries[i] = timeEntry{ts: e.TS, id: id}
		}
		idx.loadEntries(entries)
		return nil
	}
}

func (s *Store) marshalValues() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]wireRecord, len(s.primary))
	for id, rec := range s.primary {
		out[id.String()] = rec.toWire()
	}
	return json.Marshal(out)
}

func (s *Store) unmarshalValues(data []byte) error {
	var raw map[string]wireRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}
	out := make(map[uuid.UUID]*Record, len(raw))
	for idStr, w := range raw {
		id, err := uuid.Parse(idStr)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
		}
		rec, err := w.toRecord()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
		}
		rec.ID = id
		out[id] = &rec
	}

	s.mu.Lock()
	s.primary = out
	s.mu.Unlock()
	return nil
}
