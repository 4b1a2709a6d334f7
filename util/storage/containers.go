package storage

import (
	"time"

	"github.com/pkg/errors"
	"github.com/pkp/pln/models"
)

// Container returns the AU container with the given id, with its
// member deposits attached, or nil if there is none.
func (tx *Tx) Container(id uint64) (*models.AuContainer, error) {
	container := &models.AuContainer{}
	found, err := tx.get(ContainerBucket, itob(id), container)
	if err != nil || !found {
		return nil, err
	}
	return container, tx.attachDeposits(container)
}

func (tx *Tx) attachDeposits(container *models.AuContainer) error {
	deposits := make([]*models.Deposit, 0, len(container.DepositUuids))
	for _, uuid := range container.DepositUuids {
		deposit, err := tx.Deposit(uuid)
		if err != nil {
			return err
		}
		if deposit != nil {
			deposits = append(deposits, deposit)
		}
	}
	container.SetDeposits(deposits)
	return nil
}

// PutContainer saves a container. A container with Id 0 is new and
// gets the next id in sequence.
func (tx *Tx) PutContainer(container *models.AuContainer) error {
	if container.Id == 0 {
		id, err := tx.bucket(ContainerBucket).NextSequence()
		if err != nil {
			return errors.Wrap(err, "Cannot assign container id")
		}
		container.Id = id
	}
	container.UpdatedAt = time.Now().UTC()
	return tx.put(ContainerBucket, itob(container.Id), container)
}

// NewestOpenContainer returns the open container with the highest
// id, or nil if all containers are closed.
func (tx *Tx) NewestOpenContainer() (*models.AuContainer, error) {
	cursor := tx.bucket(ContainerBucket).Cursor()
	for k, v := cursor.Last(); k != nil; k, v = cursor.Prev() {
		container := &models.AuContainer{}
		if err := decode(v, container); err != nil {
			return nil, errors.Wrapf(err, "Cannot decode container %d", btoi(k))
		}
		if container.IsOpen() {
			return container, tx.attachDeposits(container)
		}
	}
	return nil, nil
}

// GetContainer returns the container with the given id, or nil and
// no error if there is none.
func (boltDB *BoltDB) GetContainer(id uint64) (container *models.AuContainer, err error) {
	err = boltDB.View(func(tx *Tx) error {
		container, err = tx.Container(id)
		return err
	})
	return container, err
}

// Containers returns all containers in id order, with their
// members attached.
func (boltDB *BoltDB) Containers() ([]*models.AuContainer, error) {
	containers := make([]*models.AuContainer, 0)
	err := boltDB.View(func(tx *Tx) error {
		return tx.bucket(ContainerBucket).ForEach(func(k, v []byte) error {
			container := &models.AuContainer{}
			if err := decode(v, container); err != nil {
				return errors.Wrapf(err, "Cannot decode container %d", btoi(k))
			}
			containers = append(containers, container)
			return tx.attachDeposits(container)
		})
	})
	return containers, err
}

// SealContainer closes a container. Closing a closed container is
// not an error. Returns ErrNotFound if there is no such container.
func (boltDB *BoltDB) SealContainer(id uint64) (container *models.AuContainer, err error) {
	err = boltDB.Update(func(tx *Tx) error {
		container, err = tx.Container(id)
		if err != nil {
			return err
		}
		if container == nil {
			return errors.Wrapf(ErrNotFound, "container %d", id)
		}
		container.SetOpen(false)
		return tx.PutContainer(container)
	})
	return container, err
}
