package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

var (
	ErrCacheMiss = errors.New("cache miss")
	ErrNotSender = errors.New("only the sender may modify a message")
)

// HistoryCache is a read-through cache over conversation lookups.
type HistoryCache interface {
	Get(ctx context.Context, key string) ([]Message, error)
	Set(ctx context.Context, key string, messages []Message) error
	Invalidate(ctx context.Context, key string) error
}

type messageRepo interface {
	CreateMessage(ctx context.Context, sender, recipient, text string) (*Message, error)
	Conversation(ctx context.Context, userA, userB string) ([]Message, error)
	GetMessage(ctx context.Context, id string) (*Message, error)
	UpdateMessageText(ctx context.Context, id, text string) (*Message, error)
	DeleteMessage(ctx context.Context, id string) error
}

// HistoryService fronts the message repository for both the live path and the
// REST history surface. Conversation reads go through the cache; every write
// to a pair invalidates that pair's entry. Cache trouble degrades to direct
// repository reads, it never fails a request.
type HistoryService struct {
	repo  messageRepo
	cache HistoryCache
	sf    singleflight.Group
}

func NewHistoryService(repo messageRepo, cache HistoryCache) *HistoryService {
	return &HistoryService{
		repo:  repo,
		cache: cache,
	}
}

// pairKey normalizes a conversation to one cache key regardless of who asks.
func pairKey(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return userA + ":" + userB
}

// CreateMessage persists through to the repository and drops the pair's
// cached conversation. This is the hub's MessageStore.
func (s *HistoryService) CreateMessage(ctx context.Context, sender, recipient, text string) (*Message, error) {
	msg, err := s.repo.CreateMessage(ctx, sender, recipient, text)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, pairKey(sender, recipient))
	return msg, nil
}

// Conversation returns the pair's messages oldest-first, from cache when
// possible. Concurrent misses for the same pair are collapsed into one
// repository read.
func (s *HistoryService) Conversation(ctx context.Context, userA, userB string) ([]Message, error) {
	key := pairKey(userA, userB)

	if s.cache != nil {
		messages, err := s.cache.Get(ctx, key)
		if err == nil {
			return messages, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("history cache get %s: %v", key, err)
		}
	}

	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		messages, err := s.repo.Conversation(ctx, userA, userB)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, key, messages); err != nil {
				log.Printf("history cache set %s: %v", key, err)
			}
		}
		return messages, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]Message), nil
}

// EditMessage rewrites a message's text. Only its sender may do that.
func (s *HistoryService) EditMessage(ctx context.Context, id, requester, text string) (*Message, error) {
	msg, err := s.repo.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg.Sender != requester {
		return nil, ErrNotSender
	}

	updated, err := s.repo.UpdateMessageText(ctx, id, text)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, pairKey(msg.Sender, msg.Recipient))
	return updated, nil
}

// DeleteMessage removes a message. Only its sender may do that.
func (s *HistoryService) DeleteMessage(ctx context.Context, id, requester string) error {
	msg, err := s.repo.GetMessage(ctx, id)
	if err != nil {
		return err
	}
	if msg.Sender != requester {
		return ErrNotSender
	}

	if err := s.repo.DeleteMessage(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, pairKey(msg.Sender, msg.Recipient))
	return nil
}

func (s *HistoryService) invalidate(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, key); err != nil {
		log.Printf("history cache invalidate %s: %v", key, err)
	}
}

// RedisHistoryCache keeps serialized conversations in redis with a bounded
// TTL, so a crashed invalidation can only leave a stale entry briefly.
type RedisHistoryCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisHistoryCache(client *redis.Client, ttl time.Duration) *RedisHistoryCache {
	return &RedisHistoryCache{
		client: client,
		prefix: "chat:history",
		ttl:    ttl,
	}
}

func (c *RedisHistoryCache) key(pair string) string {
	return c.prefix + ":" + pair
}

func (c *RedisHistoryCache) Get(ctx context.Context, pair string) ([]Message, error) {
	data, err := c.client.Get(ctx, c.key(pair)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var messages []Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("unmarshal cached history: %w", err)
	}
	return messages, nil
}

func (c *RedisHistoryCache) Set(ctx context.Context, pair string, messages []Message) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	return c.client.Set(ctx, c.key(pair), data, c.ttl).Err()
}

func (c *RedisHistoryCache) Invalidate(ctx context.Context, pair string) error {
	return c.client.Del(ctx, c.key(pair)).Err()
}
