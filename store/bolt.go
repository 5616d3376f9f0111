package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

// BoltStore persists records in a bbolt bucket keyed by big-endian ids.
// Ids come from the bucket sequence and survive restarts.
type BoltStore[T any, P Record[T]] struct {
	db     *bolt.DB
	bucket []byte
	log    logrus.FieldLogger
}

// OpenBoltStore opens (or creates) the database at path and ensures the
// bucket exists. Call Close to release the file lock.
func OpenBoltStore[T any, P Record[T]](path, bucket string, logger logrus.FieldLogger) (*BoltStore[T, P], error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}

	name := []byte(bucket)
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(name)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
	}

	return &BoltStore[T, P]{
		db:     db,
		bucket: name,
		log:    logger.WithField("store", bucket),
	}, nil
}

func (s *BoltStore[T, P]) List(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := []T{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(k, v []byte) error {
			var rec T
			if err := json.Unmarshal(v, &rec); err != nil {
				s.log.WithError(err).WithField("id", btoi(k)).Warn("skipping undecodable record")
				return nil
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

func (s *BoltStore[T, P]) Get(ctx context.Context, id int) (T, error) {
	var rec T
	if err := ctx.Err(); err != nil {
		return rec, err
	}

	err := s.db.View(func(tx *bolt.Tx) error {
		return s.read(tx.Bucket(s.bucket), id, &rec)
	})
	return rec, err
}

func (s *BoltStore[T, P]) Create(ctx context.Context, rec T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("next id: %w", err)
		}
		P(&rec).SetKey(int(seq))
		return s.write(b, P(&rec))
	})
	if err != nil {
		return zero, err
	}
	return rec, nil
}

func (s *BoltStore[T, P]) Update(ctx context.Context, id int, mutate func(*T) error) (T, error) {
	var rec T
	if err := ctx.Err(); err != nil {
		return rec, err
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if err := s.read(b, id, &rec); err != nil {
			return err
		}
		if err := mutate(&rec); err != nil {
			return err
		}
		P(&rec).SetKey(id)
		return s.write(b, P(&rec))
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return rec, nil
}

func (s *BoltStore[T, P]) Delete(ctx context.Context, id int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		key := itob(id)
		if b.Get(key) == nil {
			return ErrNotFound
		}
		return b.Delete(key)
	})
}

func (s *BoltStore[T, P]) Close() error {
	return s.db.Close()
}

func (s *BoltStore[T, P]) read(b *bolt.Bucket, id int, rec *T) error {
	if id <= 0 {
		return ErrNotFound
	}
	data := b.Get(itob(id))
	if data == nil {
		return ErrNotFound
	}
	if err := json.Unmarshal(data, rec); err != nil {
		return fmt.Errorf("decode record %d: %w", id, err)
	}
	return nil
}

func (s *BoltStore[T, P]) write(b *bolt.Bucket, rec P) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %d: %w", rec.Key(), err)
	}
	return b.Put(itob(rec.Key()), data)
}

func itob(v int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int {
	return int(binary.BigEndian.Uint64(b))
}
