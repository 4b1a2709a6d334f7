// Package terms manages the terms of use shown to providers in the
// service document. Every change is recorded in the term's history.
package terms

import (
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/pkp/pln/context"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/util/storage"
)

// Key codes become element names in the service document.
var reKeyCode = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9._-]*$`)

// Input is a new term, or the complete new values of a term.
type Input struct {
	Weight   int    `validate:"gte=0"`
	KeyCode  string `validate:"required,key_code"`
	LangCode string `validate:"required,max=16"`
	Content  string `validate:"required"`
}

type Service struct {
	Context  *context.Context
	validate *validator.Validate
}

func NewService(_context *context.Context) *Service {
	validate := validator.New()
	_ = validate.RegisterValidation("key_code", func(fl validator.FieldLevel) bool {
		return reKeyCode.MatchString(fl.Field().String())
	})
	return &Service{
		Context:  _context,
		validate: validate,
	}
}

func (service *Service) check(input *Input) error {
	if err := service.validate.Struct(input); err != nil {
		return errors.Wrap(err, "Invalid term of use")
	}
	return nil
}

// List returns the terms in display order.
func (service *Service) List() ([]*models.TermOfUse, error) {
	return service.Context.Store.Terms()
}

// Add creates a term on behalf of user.
func (service *Service) Add(input *Input, user string) (*models.TermOfUse, error) {
	if err := service.check(input); err != nil {
		return nil, err
	}
	term := &models.TermOfUse{
		Weight:   input.Weight,
		KeyCode:  input.KeyCode,
		LangCode: input.LangCode,
		Content:  input.Content,
	}
	if err := service.Context.Store.CreateTerm(term, user); err != nil {
		return nil, err
	}
	service.Context.MessageLog.Info("Term %d (%s) created by %s", term.Id, term.KeyCode, user)
	return term, nil
}

// Update replaces the values of term id on behalf of user.
func (service *Service) Update(id uint64, input *Input, user string) (*models.TermOfUse, error) {
	if err := service.check(input); err != nil {
		return nil, err
	}
	term := &models.TermOfUse{
		Id:       id,
		Weight:   input.Weight,
		KeyCode:  input.KeyCode,
		LangCode: input.LangCode,
		Content:  input.Content,
	}
	if err := service.Context.Store.UpdateTerm(term, user); err != nil {
		return nil, err
	}
	service.Context.MessageLog.Info("Term %d (%s) updated by %s", term.Id, term.KeyCode, user)
	return term, nil
}

// Delete removes term id on behalf of user. Its history is kept.
func (service *Service) Delete(id uint64, user string) error {
	if err := service.Context.Store.DeleteTerm(id, user); err != nil {
		return err
	}
	service.Context.MessageLog.Info("Term %d deleted by %s", id, user)
	return nil
}

// Reorder gives the terms ids weights 0, 1, 2... in the order given.
// Terms whose weight does not change are left alone.
func (service *Service) Reorder(ids []uint64, user string) error {
	for weight, id := range ids {
		term, err := service.Context.Store.GetTerm(id)
		if err != nil {
			return err
		}
		if term == nil {
			return errors.Wrapf(storage.ErrNotFound, "term %d", id)
		}
		if term.Weight == weight {
			continue
		}
		term.Weight = weight
		if err = service.Context.Store.UpdateTerm(term, user); err != nil {
			return err
		}
	}
	service.Context.MessageLog.Info("Terms reordered by %s", user)
	return nil
}

// History returns the changes to term id, oldest first.
func (service *Service) History(id uint64) ([]*models.TermOfUseHistory, error) {
	return service.Context.Store.TermHistory(id)
}
