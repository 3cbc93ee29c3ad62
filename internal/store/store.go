package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"bridge/internal/model"
)

var (
	// ErrQuotaExceeded is returned when a user's serialized state is larger
	// than the configured storage quota. Nothing is written in that case.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrAccountExists = errors.New("account already exists")
)

// Store persists one UserState blob per user and the account records.
// Loading an unknown user yields an empty state, not an error.
type Store interface {
	LoadUserState(userID string) (model.UserState, error)
	SaveUserState(userID string, state model.UserState) error

	SaveAccount(account model.Account) error
	GetAccount(email string) (model.Account, bool, error)
}

func encodeState(state model.UserState, quotaBytes int64) ([]byte, error) {
	if state.Goals == nil {
		state.Goals = []model.Goal{}
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode user state: %w", err)
	}
	if quotaBytes > 0 && int64(len(payload)) > quotaBytes {
		return nil, fmt.Errorf("%w: %d bytes over limit %d", ErrQuotaExceeded, len(payload), quotaBytes)
	}
	return payload, nil
}

func decodeState(payload []byte) (model.UserState, error) {
	var state model.UserState
	if len(payload) == 0 {
		state.Goals = []model.Goal{}
		return state, nil
	}
	if err := json.Unmarshal(payload, &state); err != nil {
		return model.UserState{}, fmt.Errorf("decode user state: %w", err)
	}
	if state.Goals == nil {
		state.Goals = []model.Goal{}
	}
	return state, nil
}
