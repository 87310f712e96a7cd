package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"taxgateway/internal/models"
)

const calculationsKey = "calculations"

// RedisStore keeps calculation records in a sorted set scored by request time
// in microseconds, which a float64 score holds exactly. At most maxRecords
// are kept.
type RedisStore struct {
	client     *redis.Client
	maxRecords int64
}

func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:           addr,
		Password:       "",
		DB:             0,
		Protocol:       2,
		MaxActiveConns: 50,
	})
}

func NewRedisStore(client *redis.Client, maxRecords int) *RedisStore {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	return &RedisStore{client: client, maxRecords: int64(maxRecords)}
}

func (s *RedisStore) Add(ctx context.Context, rec models.CalculationRecord) error {
	rec.RequestedAt = rec.RequestedAt.Truncate(time.Microsecond)
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal calculation: %w", err)
	}

	z := redis.Z{
		Score:  float64(rec.RequestedAt.UnixMicro()),
		Member: data,
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, calculationsKey, z)
		pipe.ZRemRangeByRank(ctx, calculationsKey, 0, -(s.maxRecords + 1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add calculation: %w", err)
	}
	return nil
}

// scoreBounds turns nanosecond bounds into the inclusive microsecond score
// range holding exactly the records whose timestamps fall inside them.
func scoreBounds(fromTs, toTs int64) (string, string) {
	return strconv.FormatInt(ceilDiv(fromTs, 1000), 10), strconv.FormatInt(floorDiv(toTs, 1000), 10)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && a > 0 {
		q++
	}
	return q
}

func (s *RedisStore) RangeQuery(ctx context.Context, fromTs, toTs int64) ([]models.CalculationRecord, error) {
	minScore, maxScore := scoreBounds(fromTs, toTs)
	members, err := s.client.ZRangeByScore(ctx, calculationsKey, &redis.ZRangeBy{
		Min: minScore,
		Max: maxScore,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to range calculations: %w", err)
	}

	records := make([]models.CalculationRecord, 0, len(members))
	for _, m := range members {
		var rec models.CalculationRecord
		if err := json.Unmarshal([]byte(m), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal calculation: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
