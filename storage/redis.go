package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go-url-registry/types"
	"go.uber.org/zap"
)

const (
	linkKeyPrefix = "link:"
	linkOrderKey  = "links"
	linkSeqKey    = "links:seq"
)

type redisRecord struct {
	ID           string `json:"id"`
	OriginalURL  string `json:"originalUrl"`
	ShortCode    string `json:"shortCode"`
	IsCustomCode bool   `json:"isCustomCode"`
	CreatedAt    int64  `json:"createdAt"`
	ExpiresAt    int64  `json:"expiresAt"`
}

type redisClick struct {
	Timestamp int64  `json:"t"`
	Source    string `json:"s"`
	Location  string `json:"l"`
}

// RedisStorage persists links in Redis. Each link is a JSON record under
// link:{code}, with its counter at link:{code}:count and click log at
// link:{code}:clicks. The links sorted set keeps creation order, scored by
// the links:seq counter.
type RedisStorage struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisStorage connects to Redis and verifies the connection.
func NewRedisStorage(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*RedisStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("Connecting to Redis storage", zap.String("addr", addr), zap.Int("db", db))

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStorage{client: client, logger: logger}, nil
}

func recordKey(code string) string { return linkKeyPrefix + code }
func countKey(code string) string  { return linkKeyPrefix + code + ":count" }
func clicksKey(code string) string { return linkKeyPrefix + code + ":clicks" }

// Load reads every link in creation order.
func (s *RedisStorage) Load(ctx context.Context) ([]types.ShortLink, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	codes, err := s.client.ZRange(ctx, linkOrderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read link order: %w", err)
	}

	links := make([]types.ShortLink, 0, len(codes))
	for _, code := range codes {
		pipe := s.client.Pipeline()
		recordCmd := pipe.Get(ctx, recordKey(code))
		countCmd := pipe.Get(ctx, countKey(code))
		clicksCmd := pipe.LRange(ctx, clicksKey(code), 0, -1)
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("read link %s: %w", code, err)
		}

		raw, err := recordCmd.Bytes()
		if errors.Is(err, redis.Nil) {
			s.logger.Warn("Dangling short code in link order", zap.String("shortCode", code))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read link %s: %w", code, err)
		}

		var rec redisRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode link %s: %w", code, err)
		}

		count, err := countCmd.Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("read click count %s: %w", code, err)
		}

		clickLog := make([]types.ClickEvent, 0, len(clicksCmd.Val()))
		for _, item := range clicksCmd.Val() {
			var c redisClick
			if err := json.Unmarshal([]byte(item), &c); err != nil {
				return nil, fmt.Errorf("decode click for %s: %w", code, err)
			}
			clickLog = append(clickLog, types.ClickEvent{
				Timestamp: fromNanos(c.Timestamp),
				Source:    c.Source,
				Location:  c.Location,
			})
		}

		links = append(links, types.ShortLink{
			ID:           rec.ID,
			OriginalURL:  rec.OriginalURL,
			ShortCode:    rec.ShortCode,
			IsCustomCode: rec.IsCustomCode,
			CreatedAt:    fromNanos(rec.CreatedAt),
			ExpiresAt:    fromNanos(rec.ExpiresAt),
			ClickCount:   count,
			Clicks:       clickLog,
		})
	}
	return links, nil
}

// Create stores a new link; SETNX on the record key enforces uniqueness.
func (s *RedisStorage) Create(ctx context.Context, link types.ShortLink) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	raw, err := json.Marshal(redisRecord{
		ID:           link.ID,
		OriginalURL:  link.OriginalURL,
		ShortCode:    link.ShortCode,
		IsCustomCode: link.IsCustomCode,
		CreatedAt:    link.CreatedAt.UnixNano(),
		ExpiresAt:    link.ExpiresAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("encode link: %w", err)
	}

	ok, err := s.client.SetNX(ctx, recordKey(link.ShortCode), raw, 0).Result()
	if err != nil {
		return fmt.Errorf("store link: %w", err)
	}
	if !ok {
		s.logger.Warn("Attempt to create duplicate short code", zap.String("shortCode", link.ShortCode))
		return ErrShortURLExists
	}

	seq, err := s.client.Incr(ctx, linkSeqKey).Result()
	if err != nil {
		s.client.Del(ctx, recordKey(link.ShortCode))
		return fmt.Errorf("allocate link sequence: %w", err)
	}

	clicks := make([]interface{}, 0, len(link.Clicks))
	for _, c := range link.Clicks {
		item, err := encodeClick(c)
		if err != nil {
			s.client.Del(ctx, recordKey(link.ShortCode))
			return err
		}
		clicks = append(clicks, item)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, countKey(link.ShortCode), link.ClickCount, 0)
		if len(clicks) > 0 {
			pipe.RPush(ctx, clicksKey(link.ShortCode), clicks...)
		}
		pipe.ZAdd(ctx, linkOrderKey, redis.Z{Score: float64(seq), Member: link.ShortCode})
		return nil
	})
	if err != nil {
		s.client.Del(ctx, recordKey(link.ShortCode))
		return fmt.Errorf("store link state: %w", err)
	}
	return nil
}

// RecordClick increments the counter and appends the click in one MULTI/EXEC.
func (s *RedisStorage) RecordClick(ctx context.Context, shortCode string, click types.ClickEvent) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	item, err := encodeClick(click)
	if err != nil {
		return err
	}

	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, recordKey(shortCode)).Result()
		if err != nil {
			return fmt.Errorf("check link: %w", err)
		}
		if exists == 0 {
			return ErrShortURLNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Incr(ctx, countKey(shortCode))
			pipe.RPush(ctx, clicksKey(shortCode), item)
			return nil
		})
		if err != nil {
			return fmt.Errorf("record click: %w", err)
		}
		return nil
	}, recordKey(shortCode))
}

// Delete removes the given links.
func (s *RedisStorage) Delete(ctx context.Context, shortCodes ...string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if len(shortCodes) == 0 {
		return nil
	}

	keys := make([]string, 0, len(shortCodes)*3)
	members := make([]interface{}, 0, len(shortCodes))
	for _, code := range shortCodes {
		keys = append(keys, recordKey(code), countKey(code), clicksKey(code))
		members = append(members, code)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, linkOrderKey, members...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete links: %w", err)
	}
	return nil
}

// DeleteAll removes every link tracked in the order set.
func (s *RedisStorage) DeleteAll(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	codes, err := s.client.ZRange(ctx, linkOrderKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("read link order: %w", err)
	}
	return s.Delete(ctx, codes...)
}

// Close closes the Redis client.
func (s *RedisStorage) Close() error {
	s.logger.Info("Closing Redis storage")
	return s.client.Close()
}

func encodeClick(c types.ClickEvent) (string, error) {
	raw, err := json.Marshal(redisClick{
		Timestamp: c.Timestamp.UnixNano(),
		Source:    c.Source,
		Location:  c.Location,
	})
	if err != nil {
		return "", fmt.Errorf("encode click: %w", err)
	}
	return string(raw), nil
}
