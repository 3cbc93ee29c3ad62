package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"bridge/internal/model"
)

type fileState struct {
	Users    map[string]json.RawMessage `json:"users"`
	Accounts map[string]model.Account   `json:"accounts"`
}

type JSONStore struct {
	filePath   string
	quotaBytes int64
	mu         sync.RWMutex
	state      fileState
}

func NewJSONStore(filePath string, quotaBytes int64) (*JSONStore, error) {
	s := &JSONStore{
		filePath:   filePath,
		quotaBytes: quotaBytes,
		state: fileState{
			Users:    make(map[string]json.RawMessage),
			Accounts: make(map[string]model.Account),
		},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONStore) LoadUserState(userID string) (model.UserState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return decodeState(s.state.Users[userID])
}

func (s *JSONStore) SaveUserState(userID string, state model.UserState) error {
	payload, err := encodeState(state, s.quotaBytes)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Users[userID] = payload
	return s.persistLocked()
}

func (s *JSONStore) SaveAccount(account model.Account) error {
	key := accountKey(account.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.Accounts[key]; ok {
		return ErrAccountExists
	}
	s.state.Accounts[key] = account
	return s.persistLocked()
}

func (s *JSONStore) GetAccount(email string) (model.Account, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.state.Accounts[accountKey(email)]
	return account, ok, nil
}

func (s *JSONStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	if state.Users == nil {
		state.Users = make(map[string]json.RawMessage)
	}
	if state.Accounts == nil {
		state.Accounts = make(map[string]model.Account)
	}
	s.state = state
	return nil
}

func (s *JSONStore) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.filePath)
}

func accountKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
