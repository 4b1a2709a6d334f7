package storage

import (
	"time"

	"github.com/pkg/errors"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/util"
)

// Deposit returns the deposit with the given uuid, or nil if there
// is none.
func (tx *Tx) Deposit(uuid string) (*models.Deposit, error) {
	deposit := &models.Deposit{}
	found, err := tx.get(DepositBucket, []byte(util.NormalizeUuid(uuid)), deposit)
	if err != nil || !found {
		return nil, err
	}
	return deposit, nil
}

// PutDeposit saves a deposit and indexes it under its provider.
func (tx *Tx) PutDeposit(deposit *models.Deposit) error {
	deposit.DepositUuid = util.NormalizeUuid(deposit.DepositUuid)
	deposit.ProviderUuid = util.NormalizeUuid(deposit.ProviderUuid)
	if deposit.DepositUuid == "" || deposit.ProviderUuid == "" {
		return errors.New("Cannot save deposit without deposit and provider uuids")
	}
	if err := tx.put(DepositBucket, []byte(deposit.DepositUuid), deposit); err != nil {
		return err
	}
	index, err := tx.bucket(ProviderDepositBucket).CreateBucketIfNotExists([]byte(deposit.ProviderUuid))
	if err != nil {
		return errors.Wrapf(err, "Cannot index deposit %s", deposit.DepositUuid)
	}
	return index.Put([]byte(deposit.DepositUuid), []byte{1})
}

// DepositsForProvider returns the provider's deposits.
func (tx *Tx) DepositsForProvider(providerUuid string) ([]*models.Deposit, error) {
	deposits := make([]*models.Deposit, 0)
	index := tx.bucket(ProviderDepositBucket).Bucket([]byte(util.NormalizeUuid(providerUuid)))
	if index == nil {
		return deposits, nil
	}
	err := index.ForEach(func(k, v []byte) error {
		deposit, err := tx.Deposit(string(k))
		if err != nil {
			return err
		}
		if deposit != nil {
			deposits = append(deposits, deposit)
		}
		return nil
	})
	return deposits, err
}

// GetDeposit returns the deposit with the given uuid. If there is
// no such deposit, this returns nil and no error.
func (boltDB *BoltDB) GetDeposit(uuid string) (deposit *models.Deposit, err error) {
	err = boltDB.View(func(tx *Tx) error {
		deposit, err = tx.Deposit(uuid)
		return err
	})
	return deposit, err
}

// SaveDeposit saves a deposit in its own transaction.
func (boltDB *BoltDB) SaveDeposit(deposit *models.Deposit) error {
	return boltDB.Update(func(tx *Tx) error {
		return tx.PutDeposit(deposit)
	})
}

// UpdateDeposit loads a deposit, passes it to fn and saves it, all
// in one transaction. Returns ErrNotFound if there is no such deposit.
func (boltDB *BoltDB) UpdateDeposit(uuid string, fn func(deposit *models.Deposit) error) (deposit *models.Deposit, err error) {
	err = boltDB.Update(func(tx *Tx) error {
		deposit, err = tx.Deposit(uuid)
		if err != nil {
			return err
		}
		if deposit == nil {
			return errors.Wrapf(ErrNotFound, "deposit %s", uuid)
		}
		if err = fn(deposit); err != nil {
			return err
		}
		deposit.UpdatedAt = time.Now().UTC()
		return tx.PutDeposit(deposit)
	})
	if err != nil {
		return nil, err
	}
	return deposit, nil
}

// CompareAndSwapDeposit saves updated only if the stored deposit
// still has the state and update time it had in original. Returns
// ErrStateChanged if someone else changed it in the meantime, and
// ErrNotFound if it is gone.
func (boltDB *BoltDB) CompareAndSwapDeposit(original, updated *models.Deposit) error {
	return boltDB.Update(func(tx *Tx) error {
		stored, err := tx.Deposit(original.DepositUuid)
		if err != nil {
			return err
		}
		if stored == nil {
			return errors.Wrapf(ErrNotFound, "deposit %s", original.DepositUuid)
		}
		if stored.State != original.State || !stored.UpdatedAt.Equal(original.UpdatedAt) {
			return errors.Wrapf(ErrStateChanged, "deposit %s is now in state %s",
				original.DepositUuid, stored.State)
		}
		return tx.PutDeposit(updated)
	})
}

// ForEachDeposit calls fn for each deposit. fn runs inside a read
// transaction and must not write to the database.
func (boltDB *BoltDB) ForEachDeposit(fn func(deposit *models.Deposit) error) error {
	return boltDB.View(func(tx *Tx) error {
		return tx.bucket(DepositBucket).ForEach(func(k, v []byte) error {
			deposit := &models.Deposit{}
			if err := decode(v, deposit); err != nil {
				return errors.Wrapf(err, "Cannot decode deposit %s", k)
			}
			return fn(deposit)
		})
	})
}

// DepositsInStates returns all deposits whose state is one of states.
func (boltDB *BoltDB) DepositsInStates(states ...string) ([]*models.Deposit, error) {
	deposits := make([]*models.Deposit, 0)
	err := boltDB.ForEachDeposit(func(deposit *models.Deposit) error {
		if util.StringListContains(states, deposit.State) {
			deposits = append(deposits, deposit)
		}
		return nil
	})
	return deposits, err
}

// DepositsForProvider returns the provider's deposits.
func (boltDB *BoltDB) DepositsForProvider(providerUuid string) (deposits []*models.Deposit, err error) {
	err = boltDB.View(func(tx *Tx) error {
		deposits, err = tx.DepositsForProvider(providerUuid)
		return err
	})
	return deposits, err
}
