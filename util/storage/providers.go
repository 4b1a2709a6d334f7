package storage

import (
	"time"

	"github.com/pkg/errors"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/util"
)

// Provider returns the provider with the given uuid, or nil if
// there is none.
func (tx *Tx) Provider(uuid string) (*models.Provider, error) {
	provider := &models.Provider{}
	found, err := tx.get(ProviderBucket, []byte(util.NormalizeUuid(uuid)), provider)
	if err != nil || !found {
		return nil, err
	}
	return provider, nil
}

// PutProvider saves a provider.
func (tx *Tx) PutProvider(provider *models.Provider) error {
	provider.Uuid = util.NormalizeUuid(provider.Uuid)
	if provider.Uuid == "" {
		return errors.New("Cannot save provider without a uuid")
	}
	return tx.put(ProviderBucket, []byte(provider.Uuid), provider)
}

// GetProvider returns the provider with the given uuid. If there is
// no such provider, this returns nil and no error.
func (boltDB *BoltDB) GetProvider(uuid string) (provider *models.Provider, err error) {
	err = boltDB.View(func(tx *Tx) error {
		provider, err = tx.Provider(uuid)
		return err
	})
	return provider, err
}

// SaveProvider saves a provider in its own transaction.
func (boltDB *BoltDB) SaveProvider(provider *models.Provider) error {
	return boltDB.Update(func(tx *Tx) error {
		return tx.PutProvider(provider)
	})
}

// UpsertProvider finds the provider with the given uuid, creating it
// with url if it does not exist, passes it to fn and saves the result.
// Lookup, creation and save happen in one transaction, so concurrent
// first contacts from the same provider create exactly one record.
// If fn returns an error, nothing is saved.
func (boltDB *BoltDB) UpsertProvider(uuid, url string, fn func(provider *models.Provider, created bool) error) (provider *models.Provider, err error) {
	err = boltDB.Update(func(tx *Tx) error {
		provider, err = tx.Provider(uuid)
		if err != nil {
			return err
		}
		created := false
		if provider == nil {
			provider = models.NewProvider(uuid, url)
			created = true
		}
		if fn != nil {
			if err = fn(provider, created); err != nil {
				return err
			}
		}
		return tx.PutProvider(provider)
	})
	if err != nil {
		return nil, err
	}
	return provider, nil
}

// UpdateProvider loads a provider, passes it to fn and saves it, all
// in one transaction. Returns ErrNotFound if there is no such provider.
func (boltDB *BoltDB) UpdateProvider(uuid string, fn func(provider *models.Provider) error) (provider *models.Provider, err error) {
	err = boltDB.Update(func(tx *Tx) error {
		provider, err = tx.Provider(uuid)
		if err != nil {
			return err
		}
		if provider == nil {
			return errors.Wrapf(ErrNotFound, "provider %s", uuid)
		}
		if err = fn(provider); err != nil {
			return err
		}
		provider.UpdatedAt = time.Now().UTC()
		return tx.PutProvider(provider)
	})
	if err != nil {
		return nil, err
	}
	return provider, nil
}

// ForEachProvider calls fn for each provider, in uuid order. The
// providers are decoded one at a time, so the caller only holds
// the providers it chooses to keep. fn runs inside a read
// transaction and must not write to the database.
func (boltDB *BoltDB) ForEachProvider(fn func(provider *models.Provider) error) error {
	return boltDB.View(func(tx *Tx) error {
		return tx.bucket(ProviderBucket).ForEach(func(k, v []byte) error {
			provider := &models.Provider{}
			if err := decode(v, provider); err != nil {
				return errors.Wrapf(err, "Cannot decode provider %s", k)
			}
			return fn(provider)
		})
	})
}

// ForEachProviderDeposits calls fn for each provider, in uuid order,
// with the provider's deposits. Everything is read in one
// transaction, so fn sees a consistent snapshot. fn must not write
// to the database.
func (boltDB *BoltDB) ForEachProviderDeposits(fn func(provider *models.Provider, deposits []*models.Deposit) error) error {
	return boltDB.View(func(tx *Tx) error {
		return tx.bucket(ProviderBucket).ForEach(func(k, v []byte) error {
			provider := &models.Provider{}
			if err := decode(v, provider); err != nil {
				return errors.Wrapf(err, "Cannot decode provider %s", k)
			}
			deposits, err := tx.DepositsForProvider(provider.Uuid)
			if err != nil {
				return err
			}
			return fn(provider, deposits)
		})
	})
}

// Providers returns all providers.
func (boltDB *BoltDB) Providers() ([]*models.Provider, error) {
	providers := make([]*models.Provider, 0)
	err := boltDB.ForEachProvider(func(provider *models.Provider) error {
		providers = append(providers, provider)
		return nil
	})
	return providers, err
}
