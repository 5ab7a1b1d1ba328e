package store

import (
	"context"
	"encoding/json"
	"errors"
)

// Well-known keys shared by the services
const (
	SubjectsKey          = "subjects"
	TimetableKey         = "timetableData"
	AttendanceHistoryKey = "attendanceHistory"
	AssignmentsKey       = "assignments"
	UsersKey             = "systemUsers"
	PersistentIdsKey     = "persistentUserIds"
	SessionPrefix        = "session:"
)

// Store is a string key-value store, the server-side stand-in for browser storage
type Store interface {
	// Get returns the value stored under key; the boolean is false when the key is absent
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	// Keys lists the stored keys that start with prefix
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// GetJSON decodes the value under key into target. Missing keys and undecodable values leave
// target untouched and report false; only store failures are returned as errors.
func GetJSON(ctx context.Context, store Store, key string, target any) (bool, error) {
	value, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(value), target); err != nil {
		return false, nil
	}
	return true, nil
}

func SetJSON(ctx context.Context, store Store, key string, value any) error {
	bytes, err := json.Marshal(value)
	if err != nil {
		return errors.Join(ErrEncode, err)
	}
	return store.Set(ctx, key, string(bytes))
}

var ErrEncode = errors.New("cannot encode value")
