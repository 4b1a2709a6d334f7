package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
	"github.com/pkp/pln/constants"
)

// Bucket names.
const (
	ProviderBucket        = "providers"
	DepositBucket         = "deposits"
	ProviderDepositBucket = "provider_deposits"
	ContainerBucket       = "containers"
	WhitelistBucket       = constants.Whitelist
	BlacklistBucket       = constants.Blacklist
	TermBucket            = "terms"
	TermHistoryBucket     = "term_history"
	LockBucket            = "locks"
)

var allBuckets = []string{
	ProviderBucket,
	DepositBucket,
	ProviderDepositBucket,
	ContainerBucket,
	WhitelistBucket,
	BlacklistBucket,
	TermBucket,
	TermHistoryBucket,
	LockBucket,
}

var (
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrStateChanged means a deposit was changed by someone else
	// between the time we read it and the time we tried to save it.
	ErrStateChanged = errors.New("deposit changed since it was read")

	// ErrLocked means another process holds a stage lock.
	ErrLocked = errors.New("stage is locked by another process")
)

// BoltDB represents a bolt database, which is a single-file key-value
// store. It holds every record the PLN staging server keeps:
// providers, deposits, AU containers, the allow and deny lists,
// terms of use and their history, and stage locks. Each record type
// lives in its own bucket and is stored gob-encoded.
//
// Bolt allows one writer at a time, so each Update is serialized
// with every other Update. Operations that must change several
// records together run inside a single Update.
type BoltDB struct {
	db       *bolt.DB
	filePath string
}

// NewBoltDB opens a bolt database, creating the DB file if it doesn't
// already exist. The DB file is a key-value store that resides in a
// single file on disk.
func NewBoltDB(filePath string) (boltDB *BoltDB, err error) {
	db, err := bolt.Open(filePath, 0644, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot open bolt db at %s", filePath)
	}
	boltDB = &BoltDB{
		db:       db,
		filePath: filePath,
	}
	err = boltDB.initBuckets()
	return boltDB, err
}

// Create all buckets if they don't already exist.
func (boltDB *BoltDB) initBuckets() error {
	return boltDB.db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			_, err := tx.CreateBucketIfNotExists([]byte(name))
			if err != nil {
				return errors.Wrapf(err, "Error creating bucket %s", name)
			}
		}
		return nil
	})
}

// FilePath returns the path to the bolt DB file.
func (boltDB *BoltDB) FilePath() string {
	return boltDB.filePath
}

// Close closes the bolt database.
func (boltDB *BoltDB) Close() {
	boltDB.db.Close()
}

// Tx wraps a bolt transaction with typed accessors for our records.
// A Tx is only valid inside the function passed to Update or View.
type Tx struct {
	tx *bolt.Tx
}

// Update runs fn in a read-write transaction. If fn returns an
// error, nothing fn wrote is saved.
func (boltDB *BoltDB) Update(fn func(tx *Tx) error) error {
	return boltDB.db.Update(func(tx *bolt.Tx) error {
		return fn(&Tx{tx: tx})
	})
}

// View runs fn in a read-only transaction.
func (boltDB *BoltDB) View(fn func(tx *Tx) error) error {
	return boltDB.db.View(func(tx *bolt.Tx) error {
		return fn(&Tx{tx: tx})
	})
}

func (tx *Tx) bucket(name string) *bolt.Bucket {
	return tx.tx.Bucket([]byte(name))
}

// get decodes the value at key into value. Returns false if there
// is no such key.
func (tx *Tx) get(bucketName string, key []byte, value interface{}) (bool, error) {
	data := tx.bucket(bucketName).Get(key)
	if len(data) == 0 {
		return false, nil
	}
	if err := decode(data, value); err != nil {
		return false, errors.Wrapf(err, "Cannot decode %s/%s", bucketName, key)
	}
	return true, nil
}

func (tx *Tx) put(bucketName string, key []byte, value interface{}) error {
	data, err := encode(value)
	if err != nil {
		return errors.Wrapf(err, "Cannot encode %s/%s", bucketName, key)
	}
	return tx.bucket(bucketName).Put(key, data)
}

func (tx *Tx) delete(bucketName string, key []byte) error {
	return tx.bucket(bucketName).Delete(key)
}

func encode(value interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	err := gob.NewEncoder(buf).Encode(value)
	return buf.Bytes(), err
}

func decode(data []byte, value interface{}) error {
	return gob.NewDecoder(bytes.NewBuffer(data)).Decode(value)
}

// itob returns an 8-byte big endian representation of id, so
// numeric keys sort in order.
func itob(id uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, id)
	return b
}

func btoi(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
