// Package redis stores dashboard sessions, with their Drive credentials, in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/target/drive-notes/internal/domain/auth"
)

// DefaultPrefix namespaces session keys.
const DefaultPrefix = "drivenotes:session:"

const (
	// credentialRetries bounds WATCH retries when two requests refresh at once.
	credentialRetries = 3
	listBatch         = 100
)

// ErrNotFound is returned for unknown, expired and blank session IDs.
var ErrNotFound = errors.New("session not found")

// SessionStore keeps one JSON document per session, expiring with the session.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewSessionStore returns a store under prefix, or DefaultPrefix when blank.
func NewSessionStore(client redis.UniversalClient, prefix string) *SessionStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &SessionStore{client: client, prefix: prefix, now: time.Now}
}

func (s *SessionStore) key(id string) string { return s.prefix + id }

// Save writes sess with a TTL that ends at sess.ExpiresAt.
func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return errors.New("session is expired")
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.client.Set(ctx, s.key(sess.ID), data, ttl).Err()
}

// Get loads a session. A copy that outlived its expiry, for instance
// through clock skew between hosts, is deleted and reported missing.
func (s *SessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, ErrNotFound
	}
	sess, err := s.load(ctx, s.client, s.key(id))
	if err != nil {
		return domainauth.Session{}, err
	}
	if s.now().After(sess.ExpiresAt) {
		if err := s.Delete(ctx, id); err != nil {
			return domainauth.Session{}, fmt.Errorf("cleanup expired session: %w", err)
		}
		return domainauth.Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *SessionStore) load(ctx context.Context, c redis.Cmdable, key string) (domainauth.Session, error) {
	data, err := c.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return domainauth.Session{}, ErrNotFound
	case err != nil:
		return domainauth.Session{}, fmt.Errorf("redis get: %w", err)
	}
	return decodeSession(data)
}

// UpdateCredential swaps the Drive credential of a stored session and keeps
// its TTL. Racing writers are serialized with WATCH/MULTI.
func (s *SessionStore) UpdateCredential(ctx context.Context, id string, cred domainauth.Credential) error {
	if id == "" {
		return ErrNotFound
	}
	key := s.key(id)

	swap := func(tx *redis.Tx) error {
		sess, err := s.load(ctx, tx, key)
		if err != nil {
			return err
		}
		sess.Credential = cred
		data, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return pipe.SetArgs(ctx, key, data, redis.SetArgs{KeepTTL: true}).Err()
		})
		return err
	}

	for range credentialRetries {
		if err := s.client.Watch(ctx, swap, key); !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("update credential: %w", redis.TxFailedErr)
}

// Delete removes a session. Blank and unknown IDs are not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.client.Del(ctx, s.key(id)).Err()
}

// StoredSession is a session with its remaining Redis TTL.
type StoredSession struct {
	domainauth.Session
	TTL time.Duration
}

// List returns every session under the store prefix. Keys are walked with
// SCAN and read back in pipelined batches; entries that expire or fail to
// decode in between are skipped.
func (s *SessionStore) List(ctx context.Context) ([]StoredSession, error) {
	var (
		out  []StoredSession
		keys = make([]string, 0, listBatch)
	)
	iter := s.client.Scan(ctx, 0, s.prefix+"*", listBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) < listBatch {
			continue
		}
		batch, err := s.readBatch(ctx, keys)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
		keys = keys[:0]
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	batch, err := s.readBatch(ctx, keys)
	if err != nil {
		return nil, err
	}
	return append(out, batch...), nil
}

func (s *SessionStore) readBatch(ctx context.Context, keys []string) ([]StoredSession, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	gets := make([]*redis.StringCmd, len(keys))
	ttls := make([]*redis.DurationCmd, len(keys))
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, k := range keys {
			gets[i] = pipe.Get(ctx, k)
			ttls[i] = pipe.TTL(ctx, k)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis pipeline: %w", err)
	}

	out := make([]StoredSession, 0, len(keys))
	for i := range keys {
		data, err := gets[i].Bytes()
		if err != nil {
			continue
		}
		sess, err := decodeSession(data)
		if err != nil {
			continue
		}
		out = append(out, StoredSession{Session: sess, TTL: ttls[i].Val()})
	}
	return out, nil
}

func decodeSession(data []byte) (domainauth.Session, error) {
	var sess domainauth.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return domainauth.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return sess, nil
}
