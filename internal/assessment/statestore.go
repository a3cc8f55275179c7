package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	commonErrors "taxassist-workers/internal/common/errors"
	"taxassist-workers/internal/models"
)

const stateKeyPrefix = "assessment:state:"

// StateStore persists one assessment record per session. Load returns
// (nil, nil) when no record exists yet.
type StateStore interface {
	Load(ctx context.Context, sessionID string) (*models.AssessmentState, error)
	Save(ctx context.Context, state *models.AssessmentState) error
}

// RedisStateStore keeps each session's state as a JSON value. Save is guarded
// by an optimistic version check under WATCH: a concurrent writer bumps the
// stored version, the transaction aborts and the caller gets a conflict error
// it can resolve by reloading and re-running.
type RedisStateStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStateStore creates a store. A zero ttl keeps records until an
// external session-management process removes them.
func NewRedisStateStore(client *redis.Client, ttl time.Duration) *RedisStateStore {
	return &RedisStateStore{client: client, ttl: ttl}
}

func stateKey(sessionID string) string {
	return stateKeyPrefix + sessionID
}

func (s *RedisStateStore) Load(ctx context.Context, sessionID string) (*models.AssessmentState, error) {
	data, err := s.client.Get(ctx, stateKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, commonErrors.NewStateLoadFailedError(sessionID, err)
	}

	var state models.AssessmentState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, commonErrors.NewStateLoadFailedError(sessionID, fmt.Errorf("decode state: %w", err))
	}
	if state.PersonalInfo == nil {
		state.PersonalInfo = make(map[string]string)
	}
	if state.UserInputs == nil {
		state.UserInputs = make(map[string]float64)
	}

	return &state, nil
}

// Save writes the record if and only if the stored version still matches
// state.Version. On success the in-memory version is advanced to the stored
// one.
func (s *RedisStateStore) Save(ctx context.Context, state *models.AssessmentState) error {
	key := stateKey(state.SessionID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == redis.Nil:
			if state.Version != 0 {
				return commonErrors.NewStateConflictError(state.SessionID)
			}
		case err != nil:
			return commonErrors.NewStateSaveFailedError(state.SessionID, err)
		default:
			var stored models.AssessmentState
			if err := json.Unmarshal(data, &stored); err != nil {
				return commonErrors.NewStateSaveFailedError(state.SessionID, fmt.Errorf("decode stored state: %w", err))
			}
			if stored.Version != state.Version {
				return commonErrors.NewStateConflictError(state.SessionID)
			}
		}

		next := *state
		next.Version = state.Version + 1
		next.UpdatedAt = time.Now().UTC()

		payload, err := json.Marshal(&next)
		if err != nil {
			return commonErrors.NewStateSaveFailedError(state.SessionID, fmt.Errorf("encode state: %w", err))
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}

		state.Version = next.Version
		state.UpdatedAt = next.UpdatedAt
		return nil
	}, key)

	if err == redis.TxFailedErr {
		return commonErrors.NewStateConflictError(state.SessionID)
	}
	if err != nil {
		if _, ok := err.(*commonErrors.StandardError); ok {
			return err
		}
		return commonErrors.NewStateSaveFailedError(state.SessionID, err)
	}

	return nil
}
