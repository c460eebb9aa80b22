// Package session keeps small per-client key/value state between requests.
// A client is identified by an opaque id carried in a cookie; the values live
// in a Store (redis in production, memory when redis is unavailable).
package session

import (
	"context"
	"encoding/json"
	"fmt"
)

type Store interface {
	Get(ctx context.Context, sid, key string) (string, bool, error)
	Set(ctx context.Context, sid, key, value string) error
	Delete(ctx context.Context, sid string, keys ...string) error
}

// Context binds one session id to its store.
type Context struct {
	id    string
	store Store
}

func New(id string, store Store) *Context {
	return &Context{id: id, store: store}
}

func (c *Context) ID() string {
	return c.id
}

func (c *Context) Get(ctx context.Context, key string) (string, bool, error) {
	return c.store.Get(ctx, c.id, key)
}

func (c *Context) Set(ctx context.Context, key, value string) error {
	return c.store.Set(ctx, c.id, key, value)
}

func (c *Context) Clear(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.store.Delete(ctx, c.id, keys...)
}

// GetJSON decodes the value under key into v. It reports false when the key
// is not set.
func (c *Context) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to decode session value %q: %w", key, err)
	}
	return true, nil
}

func (c *Context) SetJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode session value %q: %w", key, err)
	}
	return c.Set(ctx, key, string(raw))
}
