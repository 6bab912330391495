// Package localstore keeps single-device state as whole JSON values, one
// file per key, under a data directory.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Well-known keys.
const (
	KeySettings = "pomodoroSettings"
	KeyTasks    = "pomodoroTasks"
	KeyHistory  = "pomodoroHistory"
)

// ErrNoValue is returned by Get when the key has never been written.
var ErrNoValue = errors.New("no value")

// ErrCorrupt is returned by Get when the stored value does not decode.
var ErrCorrupt = errors.New("corrupt value")

var validKey = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// KV is a directory-backed key-value store. Each value is read whole and
// replaced whole.
type KV struct {
	Dir string
}

// NewKV returns a store rooted at dir. The directory is created on first write.
func NewKV(dir string) *KV {
	return &KV{Dir: dir}
}

func (kv *KV) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(kv.Dir, key+".json"), nil
}

// Get decodes the value stored under key into v.
func (kv *KV) Get(key string, v any) error {
	p, err := kv.path(key)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return ErrNoValue
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w: %w", key, ErrCorrupt, err)
	}
	return nil
}

// Set replaces the value under key. The write goes to a temp file in the
// same directory and is renamed over the old value.
func (kv *KV) Set(key string, v any) error {
	p, err := kv.path(key)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(kv.Dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	tmp, err := os.CreateTemp(kv.Dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", key, writeErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", key, closeErr)
	}
	if err := os.Rename(tmpPath, p); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (kv *KV) Delete(key string) error {
	p, err := kv.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
