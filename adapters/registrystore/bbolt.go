package registrystore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/wardenhq/warden/core"
	"github.com/wardenhq/warden/ports"
	"go.etcd.io/bbolt"
)

var (
	bucketReports = []byte("reports")
	bucketMeta    = []byte("meta")
	keySchema     = []byte("schema_version")
)

// Bolt implements the RegistryStore interface backed by a BBolt database.
// Batch writes run inside one db.Update transaction, so a failed batch leaves
// no partial state and readers never see a half-applied one.
type Bolt struct {
	db *bbolt.DB
}

// NewBolt returns a registry store backed by the given BBolt database.
func NewBolt(db *bbolt.DB) (*Bolt, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketReports); err != nil {
			return err
		}
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		if meta.Get(keySchema) == nil {
			return meta.Put(keySchema, encodeVersion(1))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("initializing registry buckets: %w", err)
	}
	return &Bolt{db: db}, nil
}

// NewBoltFromFile opens a BBolt database at the given path and returns a new
// registry store.
func NewBoltFromFile(path string, options *bbolt.Options) (*Bolt, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return NewBolt(db)
}

// Close closes the underlying BBolt database.
func (s *Bolt) Close() error {
	return s.db.Close()
}

// Get returns the report under key, or the zero value if never written.
func (s *Bolt) Get(ctx context.Context, key core.RegistryKey) (core.RiskReport, error) {
	var report core.RiskReport
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketReports).Get(key.Bytes())
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &report)
	})
	if err != nil {
		return core.RiskReport{}, err
	}
	return report, nil
}

// Put fully replaces the record under key.
func (s *Bolt) Put(ctx context.Context, key core.RegistryKey, report core.RiskReport) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putReport(tx.Bucket(bucketReports), key, report)
	})
}

// PutBatch applies every record or none.
func (s *Bolt) PutBatch(ctx context.Context, records []ports.RegistryRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketReports)
		for _, r := range records {
			if err := putReport(b, r.Key, r.Report); err != nil {
				return err
			}
		}
		return nil
	})
}

// SchemaVersion reports the store's current schema version.
func (s *Bolt) SchemaVersion(ctx context.Context) (uint32, error) {
	var version uint32
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keySchema)
		if data == nil {
			return fmt.Errorf("schema version missing")
		}
		version = binary.BigEndian.Uint32(data)
		return nil
	})
	return version, err
}

// SetSchemaVersion records a completed migration.
func (s *Bolt) SetSchemaVersion(ctx context.Context, version uint32) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keySchema, encodeVersion(version))
	})
}

func putReport(b *bbolt.Bucket, key core.RegistryKey, report core.RiskReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return b.Put(key.Bytes(), data)
}

func encodeVersion(v uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}

var _ ports.RegistryStore = (*Bolt)(nil)
