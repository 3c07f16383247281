package storage

import (
	"context"
	"errors"
)

// KV is the string-keyed persistence capability the reminder store is
// built on. Get returns ErrKeyNotFound for a missing key; Remove of a
// missing key succeeds.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// KeyLister is implemented by KV backends that can enumerate keys.
type KeyLister interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// BadgerKV adapts a DB to the KV capability.
type BadgerKV struct {
	db *DB
}

// NewBadgerKV wraps db.
func NewBadgerKV(db *DB) *BadgerKV {
	return &BadgerKV{db: db}
}

// Get returns the raw value stored under key.
func (k *BadgerKV) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return k.db.GetBytes(key)
}

// Set stores value under key.
func (k *BadgerKV) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return k.db.SetBytes(key, value)
}

// Remove deletes key.
func (k *BadgerKV) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return k.db.Delete(key)
}

// Keys lists keys starting with prefix.
func (k *BadgerKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return k.db.ListByPrefix(prefix)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}
