// Common vars and constants, shared by many parts of the pln library.
package constants

import (
	"regexp"
)

// UuidPattern matches the 8-4-4-4-12 hex identifiers providers use
// for themselves and their deposits, in either case.
var UuidPattern = regexp.MustCompile("^[0-9A-Fa-f]{8}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{12}$")

// Deposit processing states. A deposit starts in StateDepositedByJournal
// and moves forward one stage at a time until StateComplete.
const (
	StateDepositedByJournal = "depositedByJournal"
	StateHarvested          = "harvested"
	StateValidated          = "validated"
	StatePackaged           = "packaged"
	StateSent               = "sent"
	StateComplete           = "complete"
	StateHeld               = "held"
)

// Error states, one per stage.
const (
	StateHarvestError  = "harvest-error"
	StateValidateError = "validate-error"
	StatePackageError  = "package-error"
	StateDepositError  = "deposit-error"
	StateStatusError   = "status-error"
)

// ReportedDeposited is what we tell providers when a deposit is
// in StateComplete.
const ReportedDeposited = "deposited"

var DepositStates []string = []string{
	StateDepositedByJournal,
	StateHarvested,
	StateValidated,
	StatePackaged,
	StateSent,
	StateComplete,
	StateHeld,
	StateHarvestError,
	StateValidateError,
	StatePackageError,
	StateDepositError,
	StateStatusError,
}

var ErrorStates []string = []string{
	StateHarvestError,
	StateValidateError,
	StatePackageError,
	StateDepositError,
	StateStatusError,
}

// States in which a deposit is still moving through the pipeline.
var InProgressStates []string = []string{
	StateDepositedByJournal,
	StateHarvested,
	StateValidated,
	StatePackaged,
	StateHeld,
}

// States that count as "sent to the archive" for reporting.
var SentStates []string = []string{
	StateSent,
	StateComplete,
}

// Coarse preservation states reported to providers.
const (
	PlnStateFailed       = "failed"
	PlnStateInProgress   = "inProgress"
	PlnStateDisagreement = "disagreement"
	PlnStateAgreement    = "agreement"
	PlnStateUnknown      = "unknown"
)

// Provider status values.
const (
	ProviderNew       = "new"
	ProviderHealthy   = "healthy"
	ProviderUnhealthy = "unhealthy"
	ProviderPingError = "ping-error"
)

var ProviderStatuses []string = []string{
	ProviderNew,
	ProviderHealthy,
	ProviderUnhealthy,
	ProviderPingError,
}

// Deposit actions, as sent by the provider.
const (
	ActionAdd  = "add"
	ActionEdit = "edit"
)

// Pipeline stage names. These also name the stage's worker config
// and its run lock.
const (
	StageHarvest  = "harvest"
	StageValidate = "validate"
	StagePackage  = "package"
	StageDeposit  = "deposit"
	StageStatus   = "status"
)

var Stages []string = []string{
	StageHarvest,
	StageValidate,
	StagePackage,
	StageDeposit,
	StageStatus,
}

// Allow and deny list names.
const (
	Whitelist = "whitelist"
	Blacklist = "blacklist"
)

// Term of use history actions.
const (
	HistoryCreate = "create"
	HistoryUpdate = "update"
	HistoryDelete = "delete"
)

const (
	AlgMd5    = "md5"
	AlgSha1   = "sha1"
	AlgSha256 = "sha256"
)

var ChecksumAlgorithms = []string{AlgMd5, AlgSha1, AlgSha256}

// XML namespaces used in SWORD documents.
const (
	NamespaceAtom    = "http://www.w3.org/2005/Atom"
	NamespaceDcTerms = "http://purl.org/dc/terms/"
	NamespaceSword   = "http://purl.org/net/sword/"
	NamespaceApp     = "http://www.w3.org/2007/app"
	NamespaceLom     = "http://lockssomatic.info/SWORD2"
	NamespaceRdf     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NamespacePkp     = "http://pkp.sfu.ca/SWORD"
	NamespaceXsi     = "http://www.w3.org/2001/XMLSchema-instance"
	NamespaceOnix    = "http://www.editeur.org/onix/serials/SOH"
)

// Namespaces maps the usual prefix to each namespace.
var Namespaces = map[string]string{
	"dcterms": NamespaceDcTerms,
	"sword":   NamespaceSword,
	"atom":    NamespaceAtom,
	"lom":     NamespaceLom,
	"rdf":     NamespaceRdf,
	"app":     NamespaceApp,
	"pkp":     NamespacePkp,
}

// PkpPublicId is the DOCTYPE public identifier of OJS native
// import/export documents.
const PkpPublicId = "-//PKP//OJS Articles and Issues XML//EN"

// PingPath is appended to a provider's URL to reach its gateway plugin.
const PingPath = "/gateway/plugin/PLNGatewayPlugin"

// HoldingMessage is logged when a processor puts a deposit into an
// arbitrary state.
const HoldingMessage = "Holding deposit."

// SenderName appears in ONIX headers.
const SenderName = "Public Knowledge Project PLN"

const (
	// Dates in CSV exports.
	IsoDateFormat = "2006-01-02"
	// Dates in ONIX exports.
	OnixDateFormat = "20060102"
)
