package sharedserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/renameio/v2"
)

// RecordMode is the permission mode for published record files.
const RecordMode os.FileMode = 0o600

// atomicPublish serializes v as indented JSON into a temp file in the same
// directory as path, then renames it over path. Readers either observe the
// full previous content or the full new content, never a torn write.
func atomicPublish(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := renameio.WriteFile(path, data, RecordMode); err != nil {
		return &OpError{Op: OpUnknown, Name: path, Err: fmt.Errorf("%w: %v", ErrIO, err)}
	}
	return nil
}

// tolerantRead reads and unmarshals the record at path into v. A missing
// file reports ErrNotFound; a file that fails to parse reports ErrCorrupt.
// The caller decides what to do with either (info reports it, doctor
// deletes it).
func tolerantRead(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if len(data) == 0 {
		return ErrCorrupt
	}
	if err := json.Unmarshal(data, v); err != nil {
		return ErrCorrupt
	}
	return nil
}

// removeIfExists deletes path, treating "already gone" as success.
func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

// checkVersion rejects a record written by a schema version newer than this
// build understands, rather than silently misreading new fields.
func checkVersion(version int) error {
	if version > RecordVersion {
		return ErrCorruptVersion
	}
	return nil
}
