package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ShayCichocki/delegator/pkg/models"
)

var contextBucket = []byte("contexts")

// Bolt is a cache persisted in a bbolt file.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (creating if needed) a bbolt cache at path.
func OpenBolt(path string) (*Bolt, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(contextBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

func (b *Bolt) Get(_ context.Context, key string) (models.EARSContext, bool, error) {
	var (
		v     models.EARSContext
		found bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(contextBucket).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &v)
	})
	if err != nil {
		return models.EARSContext{}, false, fmt.Errorf("read cache entry %s: %w", key, err)
	}
	return v, found, nil
}

func (b *Bolt) Put(_ context.Context, key string, value models.EARSContext) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(contextBucket).Put([]byte(key), data)
	})
}

func (b *Bolt) Clear(_ context.Context) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(contextBucket); err != nil {
			return fmt.Errorf("drop bucket: %w", err)
		}
		_, err := tx.CreateBucket(contextBucket)
		return err
	})
}

func (b *Bolt) Len(_ context.Context) (int, error) {
	var n int
	err := b.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(contextBucket).Stats().KeyN
		return nil
	})
	return n, err
}

func (b *Bolt) Close() error {
	return b.db.Close()
}
