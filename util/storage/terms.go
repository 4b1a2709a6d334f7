package storage

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/models"
)

// Term returns the term with the given id, or nil.
func (tx *Tx) Term(id uint64) (*models.TermOfUse, error) {
	term := &models.TermOfUse{}
	found, err := tx.get(TermBucket, itob(id), term)
	if err != nil || !found {
		return nil, err
	}
	return term, nil
}

// putHistory appends a history entry. History entries are never
// updated or deleted.
func (tx *Tx) putHistory(history *models.TermOfUseHistory) error {
	id, err := tx.bucket(TermHistoryBucket).NextSequence()
	if err != nil {
		return errors.Wrap(err, "Cannot assign history id")
	}
	history.Id = id
	return tx.put(TermHistoryBucket, itob(id), history)
}

// CreateTerm saves a new term and its history entry in one
// transaction. The term's Id, Created and Updated are set here.
func (boltDB *BoltDB) CreateTerm(term *models.TermOfUse, user string) error {
	return boltDB.Update(func(tx *Tx) error {
		id, err := tx.bucket(TermBucket).NextSequence()
		if err != nil {
			return errors.Wrap(err, "Cannot assign term id")
		}
		now := time.Now().UTC()
		term.Id = id
		term.Created = now
		term.Updated = now
		if err = tx.put(TermBucket, itob(id), term); err != nil {
			return err
		}
		return tx.putHistory(models.NewTermOfUseHistory(constants.HistoryCreate, nil, term, user))
	})
}

// UpdateTerm saves changes to an existing term and records what
// changed, in one transaction.
func (boltDB *BoltDB) UpdateTerm(term *models.TermOfUse, user string) error {
	return boltDB.Update(func(tx *Tx) error {
		before, err := tx.Term(term.Id)
		if err != nil {
			return err
		}
		if before == nil {
			return errors.Wrapf(ErrNotFound, "term %d", term.Id)
		}
		term.Created = before.Created
		term.Updated = time.Now().UTC()
		if err = tx.put(TermBucket, itob(term.Id), term); err != nil {
			return err
		}
		return tx.putHistory(models.NewTermOfUseHistory(constants.HistoryUpdate, before, term, user))
	})
}

// DeleteTerm deletes a term and records its last values, in one
// transaction.
func (boltDB *BoltDB) DeleteTerm(id uint64, user string) error {
	return boltDB.Update(func(tx *Tx) error {
		before, err := tx.Term(id)
		if err != nil {
			return err
		}
		if before == nil {
			return errors.Wrapf(ErrNotFound, "term %d", id)
		}
		if err = tx.delete(TermBucket, itob(id)); err != nil {
			return err
		}
		return tx.putHistory(models.NewTermOfUseHistory(constants.HistoryDelete, before, nil, user))
	})
}

// GetTerm returns the term with the given id, or nil.
func (boltDB *BoltDB) GetTerm(id uint64) (term *models.TermOfUse, err error) {
	err = boltDB.View(func(tx *Tx) error {
		term, err = tx.Term(id)
		return err
	})
	return term, err
}

// Terms returns all terms ordered by weight, then id.
func (boltDB *BoltDB) Terms() ([]*models.TermOfUse, error) {
	terms := make([]*models.TermOfUse, 0)
	err := boltDB.View(func(tx *Tx) error {
		return tx.bucket(TermBucket).ForEach(func(k, v []byte) error {
			term := &models.TermOfUse{}
			if err := decode(v, term); err != nil {
				return errors.Wrapf(err, "Cannot decode term %d", btoi(k))
			}
			terms = append(terms, term)
			return nil
		})
	})
	sort.SliceStable(terms, func(i, j int) bool {
		if terms[i].Weight != terms[j].Weight {
			return terms[i].Weight < terms[j].Weight
		}
		return terms[i].Id < terms[j].Id
	})
	return terms, err
}

// TermsLastUpdated returns the most recent Updated time of any term,
// or the zero time if there are no terms.
func (boltDB *BoltDB) TermsLastUpdated() (time.Time, error) {
	var lastUpdated time.Time
	terms, err := boltDB.Terms()
	for _, term := range terms {
		if term.Updated.After(lastUpdated) {
			lastUpdated = term.Updated
		}
	}
	return lastUpdated, err
}

// TermHistory returns the history of one term, oldest first.
func (boltDB *BoltDB) TermHistory(termId uint64) ([]*models.TermOfUseHistory, error) {
	entries := make([]*models.TermOfUseHistory, 0)
	err := boltDB.View(func(tx *Tx) error {
		return tx.bucket(TermHistoryBucket).ForEach(func(k, v []byte) error {
			history := &models.TermOfUseHistory{}
			if err := decode(v, history); err != nil {
				return errors.Wrapf(err, "Cannot decode history %d", btoi(k))
			}
			if history.TermId == termId {
				entries = append(entries, history)
			}
			return nil
		})
	})
	return entries, err
}
