package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/umputun/attendo/app/attendance"
)

// SubjectsKey is the only key attendo writes
const SubjectsKey = "subjects"

// ErrMalformed returned when stored snapshot can't be decoded
var ErrMalformed = errors.New("malformed snapshot")

// KV is a durable key-value storage
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// Snapshot keeps the whole subject list as json array under a single key
type Snapshot struct {
	KV  KV
	Key string // defaults to SubjectsKey
}

// NewSnapshot makes Snapshot for kv with the default key
func NewSnapshot(kv KV) *Snapshot {
	return &Snapshot{KV: kv, Key: SubjectsKey}
}

// Load reads the list, missing key gives empty list
func (s *Snapshot) Load() ([]attendance.Subject, error) {
	data, err := s.KV.Get(s.key())
	if errors.Is(err, ErrNotFound) {
		return []attendance.Subject{}, nil
	}
	if err != nil {
		return nil, err
	}

	var res []attendance.Subject
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if res == nil { // stored "null"
		res = []attendance.Subject{}
	}
	return res, nil
}

// Save overwrites the list
func (s *Snapshot) Save(subjects []attendance.Subject) error {
	if subjects == nil {
		subjects = []attendance.Subject{}
	}
	data, err := json.Marshal(subjects)
	if err != nil {
		return fmt.Errorf("failed to marshal subjects: %w", err)
	}
	return s.KV.Set(s.key(), data)
}

// Remove deletes the key
func (s *Snapshot) Remove() error {
	return s.KV.Delete(s.key())
}

func (s *Snapshot) key() string {
	if s.Key == "" {
		return SubjectsKey
	}
	return s.Key
}
