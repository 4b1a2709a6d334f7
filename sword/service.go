// Package sword implements the SWORD v2 operations providers use to
// send deposits and follow their progress.
package sword

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/context"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/network"
	"github.com/pkp/pln/util"
	"github.com/pkp/pln/util/storage"
)

// ApiPrefix is where the SWORD endpoints live.
const ApiPrefix = "/api/sword/2.0"

// ArchiveReader opens an object held by the archive.
type ArchiveReader interface {
	Open(key string) (io.ReadCloser, int64, error)
}

// contextArchive connects to the archive on first use.
type contextArchive struct {
	context *context.Context
}

func (archive contextArchive) Open(key string) (io.ReadCloser, int64, error) {
	client, err := archive.context.ArchiveClient()
	if err != nil {
		return nil, 0, err
	}
	return client.Open(key)
}

// Receipt is the answer to a create or edit: the deposit's
// statement and the IRI the provider uses to refer to it.
type Receipt struct {
	Statement *Statement
	Location  string
}

// Original is an archived deposit package. The caller must close
// Reader.
type Original struct {
	Reader io.ReadCloser
	Size   int64
	Name   string
}

// Service implements the SWORD operations independent of HTTP.
// Every operation checks the provider's access first, including
// operations called from other operations.
type Service struct {
	Context  *context.Context
	Archive  ArchiveReader
	validate *validator.Validate
}

func NewService(_context *context.Context) *Service {
	validate := validator.New()
	_ = validate.RegisterValidation("pln_uuid", func(fl validator.FieldLevel) bool {
		return util.LooksLikeUUID(fl.Field().String())
	})
	return &Service{
		Context:  _context,
		Archive:  contextArchive{context: _context},
		validate: validate,
	}
}

// CollectionIri is where the provider posts new deposits.
func (service *Service) CollectionIri(providerUuid string) string {
	return fmt.Sprintf("%s%s/col-iri/%s", service.baseUrl(), ApiPrefix, providerUuid)
}

// EditIri is the deposit receipt: where the provider sends changes
// to a deposit.
func (service *Service) EditIri(providerUuid, depositUuid string) string {
	return fmt.Sprintf("%s%s/cont-iri/%s/%s/edit", service.baseUrl(), ApiPrefix, providerUuid, depositUuid)
}

// StateIri is where the provider fetches a deposit's statement.
func (service *Service) StateIri(providerUuid, depositUuid string) string {
	return fmt.Sprintf("%s%s/cont-iri/%s/%s/state", service.baseUrl(), ApiPrefix, providerUuid, depositUuid)
}

func (service *Service) baseUrl() string {
	return strings.TrimRight(service.Context.Config.ServiceUrl, "/")
}

// checkAccess asks the guard and logs the request.
func (service *Service) checkAccess(operation, providerUuid, ip string) bool {
	accepting := service.Context.Guard.CheckAccessFor(providerUuid, ip)
	acceptingLog := "not accepting"
	if accepting {
		acceptingLog = "accepting"
	}
	service.Context.MessageLog.Info("%s - %s - %s - %s", operation, ip, providerUuid, acceptingLog)
	return accepting
}

// deny logs a refused request and returns err.
func (service *Service) deny(operation, ip, providerUuid, target string, err error) error {
	service.Context.MessageLog.Warning("%s [%s] - %s - %s - %s - %s",
		operation, errors.Cause(err), ip, providerUuid, target, err.Error())
	return err
}

// ServiceDocument returns the service document for a provider and
// records the contact. The provider is created if we have not seen
// it before.
func (service *Service) ServiceDocument(onBehalfOf, providerUrl, ip string) (*ServiceDocument, error) {
	providerUuid := util.NormalizeUuid(onBehalfOf)
	providerUrl = strings.TrimSpace(providerUrl)
	accepting := service.checkAccess("service document", providerUuid, ip)
	if providerUuid == "" {
		return nil, service.deny("service document", ip, providerUuid, providerUrl,
			newError(ErrBadRequest, "Missing On-Behalf-Of header for %s", providerUrl))
	}
	if providerUrl == "" {
		return nil, service.deny("service document", ip, providerUuid, providerUrl,
			newError(ErrBadRequest, "Missing Journal-Url header for %s", providerUuid))
	}
	if !util.LooksLikeURL(providerUrl) {
		return nil, service.deny("service document", ip, providerUuid, providerUrl,
			newError(ErrBadRequest, "Journal-Url %s for %s is not an http URL", providerUrl, providerUuid))
	}

	provider, err := service.Context.Store.UpsertProvider(providerUuid, providerUrl,
		func(provider *models.Provider, created bool) error {
			if !created {
				service.contact(provider, providerUrl)
			}
			return nil
		})
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot record contact from %s", providerUuid)
	}
	terms, err := service.Context.Store.Terms()
	if err != nil {
		return nil, err
	}
	termsUpdated, err := service.Context.Store.TermsLastUpdated()
	if err != nil {
		return nil, err
	}
	return newServiceDocument(service.Context.Config, accepting, service.networkMessage(provider),
		service.CollectionIri(providerUuid), terms, termsUpdated), nil
}

// contact records that the provider reached us from providerUrl.
func (service *Service) contact(provider *models.Provider, providerUrl string) {
	oldUrl, changed := provider.Contact(providerUrl, time.Now().UTC())
	if changed {
		service.Context.MessageLog.Warning("provider URL mismatch - %s - %s - %s",
			provider.Uuid, oldUrl, providerUrl)
	}
}

// networkMessage tells the provider whether its software can
// deposit to the network.
func (service *Service) networkMessage(provider *models.Provider) string {
	config := service.Context.Config
	if provider.OjsVersion == "" {
		return config.NetworkDefault
	}
	if util.VersionAtLeast(provider.OjsVersion, config.MinOjsVersion) {
		return config.NetworkAccepting
	}
	return config.NetworkOldOjs
}

// CreateDeposit records a new deposit from body, an Atom entry, and
// returns its statement. Sending a deposit that already exists
// updates it, as an edit would.
func (service *Service) CreateDeposit(providerUuid string, body []byte, ip string) (*Receipt, error) {
	providerUuid = util.NormalizeUuid(providerUuid)
	target := service.CollectionIri(providerUuid)
	if !service.checkAccess("create deposit", providerUuid, ip) {
		return nil, service.deny("create deposit", ip, providerUuid, target,
			newError(ErrAccessDenied, "Not authorized to create deposits."))
	}
	request, err := service.parseRequest(body)
	if err != nil {
		return nil, service.deny("create deposit", ip, providerUuid, target, err)
	}

	err = service.Context.Store.Update(func(tx *storage.Tx) error {
		provider, err := tx.Provider(providerUuid)
		if err != nil {
			return err
		}
		if provider == nil {
			provider = models.NewProvider(providerUuid, request.JournalUrl)
		} else {
			service.contact(provider, request.JournalUrl)
		}
		updateProvider(provider, request)
		if err = tx.PutProvider(provider); err != nil {
			return err
		}
		existing, err := tx.Deposit(request.DepositUuid)
		if err != nil {
			return err
		}
		if existing != nil && existing.ProviderUuid != providerUuid {
			return newError(ErrOwnershipMismatch, "Deposit does not belong to provider.")
		}
		return tx.PutDeposit(service.receive(providerUuid, existing, request))
	})
	if err != nil {
		return nil, service.deny("create deposit", ip, providerUuid, request.DepositUuid, err)
	}

	statement, err := service.Statement(providerUuid, request.DepositUuid, ip)
	if err != nil {
		return nil, err
	}
	return &Receipt{
		Statement: statement,
		Location:  service.EditIri(providerUuid, request.DepositUuid),
	}, nil
}

// parseRequest reads and validates a deposit request.
func (service *Service) parseRequest(body []byte) (*DepositRequest, error) {
	request, err := ParseDepositRequest(body)
	if err != nil {
		return nil, err
	}
	if err = service.validate.Struct(request); err != nil {
		return nil, newError(ErrBadRequest, "Invalid deposit request: %v", err)
	}
	maxSize := service.Context.Config.MaxUploadSize
	if maxSize > 0 && request.Size > maxSize {
		return nil, newError(ErrBadRequest, "Deposit size %d exceeds the maximum of %d bytes.",
			request.Size, maxSize)
	}
	return request, nil
}

// updateProvider copies what the provider told us about itself.
// A provider that deposits is healthy.
func updateProvider(provider *models.Provider, request *DepositRequest) {
	if request.Title != "" {
		provider.Title = request.Title
	}
	if request.Issn != "" {
		provider.Issn = request.Issn
	}
	if request.Email != "" {
		provider.Email = request.Email
	}
	if request.PublisherName != "" {
		provider.PublisherName = request.PublisherName
	}
	if request.PublisherUrl != "" {
		provider.PublisherUrl = request.PublisherUrl
	}
	provider.Status = constants.ProviderHealthy
	provider.UpdatedAt = time.Now().UTC()
}

// receive builds the deposit described by request. A new deposit
// starts at StateDepositedByJournal. An existing one is marked as
// an edit and goes through processing again. Its container and
// deposit date are kept.
func (service *Service) receive(providerUuid string, existing *models.Deposit, request *DepositRequest) *models.Deposit {
	var deposit *models.Deposit
	if existing == nil {
		deposit = models.NewDeposit(providerUuid, request.DepositUuid)
		deposit.AddToProcessingLog("Deposit received.")
	} else {
		deposit = existing.Copy()
		deposit.Action = constants.ActionEdit
		deposit.Version++
		deposit.State = constants.StateDepositedByJournal
		deposit.PlnState = constants.PlnStateInProgress
		deposit.HarvestAttempts = 0
		deposit.AddToProcessingLog(fmt.Sprintf("Deposit edit received. Version %d.", deposit.Version))
	}
	deposit.Url = request.ContentUrl
	deposit.ChecksumType = request.ChecksumType
	deposit.ChecksumValue = request.ChecksumValue
	deposit.PackageSize = request.Size
	deposit.Volume = request.Volume
	deposit.Issue = request.Issue
	deposit.PubDate = request.PubDate
	deposit.DepositReceipt = service.EditIri(providerUuid, deposit.DepositUuid)
	deposit.UpdatedAt = time.Now().UTC()
	return deposit
}

// Statement returns the state of one of the provider's deposits and
// records the contact.
func (service *Service) Statement(providerUuid, depositUuid, ip string) (*Statement, error) {
	providerUuid = util.NormalizeUuid(providerUuid)
	depositUuid = util.NormalizeUuid(depositUuid)
	if !service.checkAccess("statement", providerUuid, ip) {
		return nil, service.deny("statement", ip, providerUuid, depositUuid,
			newError(ErrAccessDenied, "Not authorized to request statements."))
	}
	var deposit *models.Deposit
	err := service.Context.Store.Update(func(tx *storage.Tx) error {
		provider, stored, err := ownedDeposit(tx, providerUuid, depositUuid)
		if err != nil {
			return err
		}
		provider.Contacted = time.Now().UTC()
		provider.UpdatedAt = provider.Contacted
		provider.Status = constants.ProviderHealthy
		deposit = stored
		return tx.PutProvider(provider)
	})
	if err != nil {
		return nil, service.deny("statement", ip, providerUuid, depositUuid, err)
	}
	service.Context.MessageLog.Info("statement - %s - %s/%s - %s/%s", ip, providerUuid, depositUuid,
		deposit.ReportedState(), deposit.ReportedPlnState())
	return NewStatement(deposit), nil
}

// ownedDeposit loads a provider and one of its deposits.
func ownedDeposit(tx *storage.Tx, providerUuid, depositUuid string) (*models.Provider, *models.Deposit, error) {
	provider, err := tx.Provider(providerUuid)
	if err != nil {
		return nil, nil, err
	}
	if provider == nil {
		return nil, nil, newError(ErrNotFound, "Provider UUID not found.")
	}
	deposit, err := tx.Deposit(depositUuid)
	if err != nil {
		return nil, nil, err
	}
	if deposit == nil {
		return nil, nil, newError(ErrNotFound, "Deposit UUID %s not found.", depositUuid)
	}
	if deposit.ProviderUuid != provider.Uuid {
		return nil, nil, newError(ErrOwnershipMismatch, "Deposit does not belong to provider.")
	}
	return provider, deposit, nil
}

// EditDeposit replaces an existing deposit with the one described
// by body. The deposit must belong to the provider.
func (service *Service) EditDeposit(providerUuid, depositUuid string, body []byte, ip string) (*Receipt, error) {
	providerUuid = util.NormalizeUuid(providerUuid)
	depositUuid = util.NormalizeUuid(depositUuid)
	if !service.checkAccess("edit deposit", providerUuid, ip) {
		return nil, service.deny("edit deposit", ip, providerUuid, depositUuid,
			newError(ErrAccessDenied, "Not authorized to edit deposits."))
	}
	request, err := service.parseRequest(body)
	if err != nil {
		return nil, service.deny("edit deposit", ip, providerUuid, depositUuid, err)
	}
	if request.DepositUuid != depositUuid {
		return nil, service.deny("edit deposit", ip, providerUuid, depositUuid,
			newError(ErrBadRequest, "Deposit UUID %s in the request does not match %s.",
				request.DepositUuid, depositUuid))
	}

	err = service.Context.Store.Update(func(tx *storage.Tx) error {
		provider, existing, err := ownedDeposit(tx, providerUuid, depositUuid)
		if err != nil {
			return err
		}
		service.contact(provider, request.JournalUrl)
		updateProvider(provider, request)
		if err = tx.PutProvider(provider); err != nil {
			return err
		}
		return tx.PutDeposit(service.receive(providerUuid, existing, request))
	})
	if err != nil {
		return nil, service.deny("edit deposit", ip, providerUuid, depositUuid, err)
	}

	statement, err := service.Statement(providerUuid, depositUuid, ip)
	if err != nil {
		return nil, err
	}
	return &Receipt{
		Statement: statement,
		Location:  service.EditIri(providerUuid, depositUuid),
	}, nil
}

// FetchOriginal opens the archived package of one of the provider's
// deposits.
func (service *Service) FetchOriginal(providerUuid, depositUuid, ip string) (*Original, error) {
	providerUuid = util.NormalizeUuid(providerUuid)
	depositUuid = util.NormalizeUuid(depositUuid)
	if !service.checkAccess("fetch deposit", providerUuid, ip) {
		return nil, service.deny("fetch deposit", ip, providerUuid, depositUuid,
			newError(ErrAccessDenied, "Not authorized to fetch deposits."))
	}
	var deposit *models.Deposit
	err := service.Context.Store.View(func(tx *storage.Tx) error {
		var err error
		_, deposit, err = ownedDeposit(tx, providerUuid, depositUuid)
		return err
	})
	if err != nil {
		return nil, service.deny("fetch deposit", ip, providerUuid, depositUuid, err)
	}
	if deposit.ArchiveKey == "" {
		return nil, service.deny("fetch deposit", ip, providerUuid, depositUuid,
			newError(ErrNotFound, "Deposit %s has not been sent to the archive.", depositUuid))
	}
	reader, size, err := service.Archive.Open(deposit.ArchiveKey)
	if errors.Cause(err) == network.ErrArchiveObjectNotFound {
		return nil, service.deny("fetch deposit", ip, providerUuid, depositUuid,
			newError(ErrNotFound, "Deposit %s is not in the archive.", depositUuid))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot fetch deposit %s from the archive", depositUuid)
	}
	return &Original{
		Reader: reader,
		Size:   size,
		Name:   depositUuid + ".tar",
	}, nil
}
