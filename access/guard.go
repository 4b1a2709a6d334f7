// Package access decides whether a provider may use the network.
//
// The allow list (whitelist) always wins, then the deny list
// (blacklist). A provider on neither list gets the network-wide
// default, Config.PlnAccepting.
package access

import (
	"github.com/op/go-logging"
	"github.com/pkp/pln/stats"
	"github.com/pkp/pln/util"
)

// Decisions, as recorded in metrics.
const (
	DecisionWhitelisted  = "whitelisted"
	DecisionBlacklisted  = "blacklisted"
	DecisionAccepting    = "default-accepting"
	DecisionNotAccepting = "default-not-accepting"
	DecisionLookupError  = "lookup-error"
)

// ListLookup answers list membership questions. The bolt store
// implements it.
type ListLookup interface {
	IsWhitelisted(uuid string) (bool, error)
	IsBlacklisted(uuid string) (bool, error)
}

// Guard makes and audits access decisions.
type Guard struct {
	lists     ListLookup
	accepting bool
	log       *logging.Logger
	collector *stats.Collector
}

// NewGuard returns a Guard. accepting is the decision for providers
// on neither list. collector may be nil.
func NewGuard(lists ListLookup, accepting bool, log *logging.Logger, collector *stats.Collector) *Guard {
	return &Guard{
		lists:     lists,
		accepting: accepting,
		log:       log,
		collector: collector,
	}
}

// CheckAccess returns true if the provider may deposit.
func (guard *Guard) CheckAccess(providerUuid string) bool {
	return guard.CheckAccessFor(providerUuid, "")
}

// CheckAccessFor is CheckAccess with the requesting party, usually
// a client IP, included in the audit log. If a list lookup fails,
// access is denied.
func (guard *Guard) CheckAccessFor(providerUuid, actor string) bool {
	uuid := util.NormalizeUuid(providerUuid)
	if actor == "" {
		guard.log.Info("Checking access for %s", uuid)
	} else {
		guard.log.Info("Checking access for %s (%s)", uuid, actor)
	}

	whitelisted, err := guard.lists.IsWhitelisted(uuid)
	if err != nil {
		return guard.lookupFailed(uuid, err)
	}
	if whitelisted {
		guard.log.Info("whitelisted %s", uuid)
		guard.collector.RecordAccessCheck(DecisionWhitelisted)
		return true
	}

	blacklisted, err := guard.lists.IsBlacklisted(uuid)
	if err != nil {
		return guard.lookupFailed(uuid, err)
	}
	if blacklisted {
		guard.log.Info("blacklisted %s", uuid)
		guard.collector.RecordAccessCheck(DecisionBlacklisted)
		return false
	}

	if guard.accepting {
		guard.log.Info("default %s accepting", uuid)
		guard.collector.RecordAccessCheck(DecisionAccepting)
	} else {
		guard.log.Info("default %s not accepting", uuid)
		guard.collector.RecordAccessCheck(DecisionNotAccepting)
	}
	return guard.accepting
}

func (guard *Guard) lookupFailed(uuid string, err error) bool {
	guard.log.Errorf("access lookup for %s failed, denying: %v", uuid, err)
	guard.collector.RecordAccessCheck(DecisionLookupError)
	return false
}
