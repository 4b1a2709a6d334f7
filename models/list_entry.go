package models

import (
	"time"

	"github.com/pkp/pln/util"
)

// ListEntry is one provider uuid on the allow list (whitelist) or
// the deny list (blacklist).
type ListEntry struct {
	Uuid      string    `json:"uuid"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

func NewListEntry(uuid, comment string) *ListEntry {
	return &ListEntry{
		Uuid:      util.NormalizeUuid(uuid),
		Comment:   comment,
		CreatedAt: time.Now().UTC(),
	}
}
