package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 10

// RedisStore keeps each document as a JSON string with a TTL refreshed on
// every write. Transactions use WATCH/MULTI and every commit publishes the
// new document on "store:<key>" (an empty payload means deleted).
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func channelFor(key string) string {
	return "store:" + key
}

func (r *RedisStore) Get(ctx context.Context, key string, out any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	return json.Unmarshal(data, out)
}

func (r *RedisStore) Set(ctx context.Context, key string, v any) error {
	return r.RunTransaction(ctx, []string{key}, func(tx *Tx) error {
		return tx.Set(key, v)
	})
}

func (r *RedisStore) Update(ctx context.Context, key string, ops ...Op) error {
	return r.RunTransaction(ctx, []string{key}, func(tx *Tx) error {
		return tx.Update(key, ops...)
	})
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.RunTransaction(ctx, []string{key}, func(tx *Tx) error {
		return tx.Delete(key)
	})
}

func (r *RedisStore) RunTransaction(ctx context.Context, keys []string, fn func(tx *Tx) error) error {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := r.client.Watch(ctx, func(rtx *redis.Tx) error {
			reads := make(map[string][]byte, len(keys))
			for _, k := range keys {
				data, err := rtx.Get(ctx, k).Bytes()
				if err == redis.Nil {
					continue
				}
				if err != nil {
					return err
				}
				reads[k] = data
			}

			tx := newTx(keys, reads)
			if err := fn(tx); err != nil {
				return err
			}
			changes := tx.changes()
			if len(changes) == 0 {
				return nil
			}
			_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, c := range changes {
					if c.Exists {
						pipe.Set(ctx, c.Key, c.Data, r.ttl)
						pipe.Publish(ctx, channelFor(c.Key), c.Data)
					} else {
						pipe.Del(ctx, c.Key)
						pipe.Publish(ctx, channelFor(c.Key), "")
					}
				}
				return nil
			})
			return err
		}, keys...)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	log.Printf("Transaction on %v gave up after %d attempts", keys, maxTxRetries)
	return ErrConflict
}

func (r *RedisStore) Subscribe(ctx context.Context, key string) (*Subscription, error) {
	pubsub := r.client.Subscribe(ctx, channelFor(key))
	// Wait for the subscription to be confirmed so no write after the
	// initial read is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", key, err)
	}

	f := newFeed()
	data, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == redis.Nil:
		f.push(Snapshot{Key: key})
	case err != nil:
		pubsub.Close()
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	default:
		f.push(Snapshot{Key: key, Exists: true, Data: data})
	}

	sub := newSubscription(ctx, f, func() { pubsub.Close() })
	go func() {
		for msg := range pubsub.Channel() {
			if msg.Payload == "" {
				f.push(Snapshot{Key: key})
				continue
			}
			f.push(Snapshot{Key: key, Exists: true, Data: []byte(msg.Payload)})
		}
		sub.Close()
	}()
	return sub, nil
}
