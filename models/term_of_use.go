package models

import (
	"strconv"
	"time"

	"github.com/pkp/pln/constants"
)

// TermOfUse is one paragraph of the terms providers agree to.
// Terms are shown ordered by Weight.
type TermOfUse struct {
	Id       uint64    `json:"id"`
	Weight   int       `json:"weight"`
	KeyCode  string    `json:"key_code"`
	LangCode string    `json:"lang_code"`
	Content  string    `json:"content"`
	Created  time.Time `json:"created"`
	Updated  time.Time `json:"updated"`
}

// FieldChange holds the old and new value of one field. Old is nil
// for a created term and New is nil for a deleted one.
type FieldChange struct {
	Old *string `json:"old"`
	New *string `json:"new"`
}

// TermOfUseHistory records one change to a term. History entries
// are written once and never changed.
type TermOfUseHistory struct {
	Id        uint64                 `json:"id"`
	TermId    uint64                 `json:"term_id"`
	Action    string                 `json:"action"`
	ChangeSet map[string]FieldChange `json:"change_set"`
	User      string                 `json:"user"`
	Created   time.Time              `json:"created"`
}

// fields returns the tracked fields of a term as strings.
func (term *TermOfUse) fields() map[string]string {
	return map[string]string{
		"id":       strconv.FormatUint(term.Id, 10),
		"weight":   strconv.Itoa(term.Weight),
		"keyCode":  term.KeyCode,
		"langCode": term.LangCode,
		"content":  term.Content,
	}
}

// NewTermOfUseHistory builds the history entry for a change to a
// term. For HistoryCreate, before is nil; for HistoryDelete, after
// is nil. For updates only the fields that changed are recorded.
func NewTermOfUseHistory(action string, before, after *TermOfUse, user string) *TermOfUseHistory {
	history := &TermOfUseHistory{
		Action:    action,
		ChangeSet: make(map[string]FieldChange),
		User:      user,
		Created:   time.Now().UTC(),
	}
	var oldFields, newFields map[string]string
	if before != nil {
		history.TermId = before.Id
		oldFields = before.fields()
	}
	if after != nil {
		history.TermId = after.Id
		newFields = after.fields()
	}
	for _, name := range []string{"id", "weight", "keyCode", "langCode", "content"} {
		change := FieldChange{}
		if oldFields != nil {
			value := oldFields[name]
			change.Old = &value
		}
		if newFields != nil {
			value := newFields[name]
			change.New = &value
		}
		if action == constants.HistoryUpdate && change.Old != nil && change.New != nil &&
			*change.Old == *change.New {
			continue
		}
		history.ChangeSet[name] = change
	}
	return history
}
