package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"voltshare/internal/models"
)

// ErrSnapshotNotFound indicates no snapshot has been published for a station yet.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotStore persists consolidated station snapshots, one key per station,
// overwritten wholesale on every pass.
type SnapshotStore struct {
	client *redis.Client
}

// NewSnapshotStore returns redis-backed store.
func NewSnapshotStore(client *redis.Client) *SnapshotStore {
	return &SnapshotStore{client: client}
}

func (s *SnapshotStore) key(stationID string) string {
	return fmt.Sprintf("snapshots:station:%s", stationID)
}

// Save overwrites the snapshot for its station. No TTL: the latest published
// view stays readable between passes and through reconciler downtime.
func (s *SnapshotStore) Save(ctx context.Context, snapshot models.StationSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(snapshot.StationID), data, 0).Err()
}

// Get returns the latest published snapshot for a station.
func (s *SnapshotStore) Get(ctx context.Context, stationID string) (*models.StationSnapshot, error) {
	result, err := s.client.Get(ctx, s.key(stationID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}
	var snapshot models.StationSnapshot
	if err := json.Unmarshal([]byte(result), &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// List returns published snapshots for the given stations, skipping stations
// without one.
func (s *SnapshotStore) List(ctx context.Context, stationIDs []string) ([]models.StationSnapshot, error) {
	if len(stationIDs) == 0 {
		return nil, nil
	}
	keys := make([]string, len(stationIDs))
	for i, id := range stationIDs {
		keys[i] = s.key(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	snapshots := make([]models.StationSnapshot, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		var snapshot models.StationSnapshot
		if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}
