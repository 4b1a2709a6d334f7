package storage

import (
	"github.com/pkg/errors"
	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/util"
)

func checkListName(list string) error {
	if list != constants.Whitelist && list != constants.Blacklist {
		return errors.Errorf("Unknown list %s. Use %s or %s.", list, constants.Whitelist, constants.Blacklist)
	}
	return nil
}

// ListEntry returns the entry for uuid on the named list, or nil.
func (tx *Tx) ListEntry(list, uuid string) (*models.ListEntry, error) {
	if err := checkListName(list); err != nil {
		return nil, err
	}
	entry := &models.ListEntry{}
	found, err := tx.get(list, []byte(util.NormalizeUuid(uuid)), entry)
	if err != nil || !found {
		return nil, err
	}
	return entry, nil
}

// PutListEntry adds an entry to the named list.
func (tx *Tx) PutListEntry(list string, entry *models.ListEntry) error {
	if err := checkListName(list); err != nil {
		return err
	}
	entry.Uuid = util.NormalizeUuid(entry.Uuid)
	if entry.Uuid == "" {
		return errors.New("Cannot list an empty uuid")
	}
	return tx.put(list, []byte(entry.Uuid), entry)
}

// IsListed returns true if uuid is on either list.
func (tx *Tx) IsListed(uuid string) (bool, error) {
	for _, list := range []string{constants.Whitelist, constants.Blacklist} {
		entry, err := tx.ListEntry(list, uuid)
		if err != nil {
			return false, err
		}
		if entry != nil {
			return true, nil
		}
	}
	return false, nil
}

// AddListEntry adds an entry to the named list, replacing any
// entry for the same uuid.
func (boltDB *BoltDB) AddListEntry(list string, entry *models.ListEntry) error {
	return boltDB.Update(func(tx *Tx) error {
		return tx.PutListEntry(list, entry)
	})
}

// RemoveListEntry removes uuid from the named list. Returns false if
// it was not there.
func (boltDB *BoltDB) RemoveListEntry(list, uuid string) (removed bool, err error) {
	err = boltDB.Update(func(tx *Tx) error {
		entry, err := tx.ListEntry(list, uuid)
		if err != nil || entry == nil {
			return err
		}
		removed = true
		return tx.delete(list, []byte(entry.Uuid))
	})
	return removed, err
}

// ListEntries returns every entry on the named list.
func (boltDB *BoltDB) ListEntries(list string) ([]*models.ListEntry, error) {
	if err := checkListName(list); err != nil {
		return nil, err
	}
	entries := make([]*models.ListEntry, 0)
	err := boltDB.View(func(tx *Tx) error {
		return tx.bucket(list).ForEach(func(k, v []byte) error {
			entry := &models.ListEntry{}
			if err := decode(v, entry); err != nil {
				return errors.Wrapf(err, "Cannot decode %s entry %s", list, k)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	return entries, err
}

func (boltDB *BoltDB) isOnList(list, uuid string) (listed bool, err error) {
	err = boltDB.View(func(tx *Tx) error {
		entry, err := tx.ListEntry(list, uuid)
		listed = entry != nil
		return err
	})
	return listed, err
}

// IsWhitelisted returns true if uuid is on the allow list.
func (boltDB *BoltDB) IsWhitelisted(uuid string) (bool, error) {
	return boltDB.isOnList(constants.Whitelist, uuid)
}

// IsBlacklisted returns true if uuid is on the deny list.
func (boltDB *BoltDB) IsBlacklisted(uuid string) (bool, error) {
	return boltDB.isOnList(constants.Blacklist, uuid)
}

// IsListed returns true if uuid is on either list.
func (boltDB *BoltDB) IsListed(uuid string) (listed bool, err error) {
	err = boltDB.View(func(tx *Tx) error {
		listed, err = tx.IsListed(uuid)
		return err
	})
	return listed, err
}
