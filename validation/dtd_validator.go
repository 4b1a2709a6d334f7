package validation

import (
	"fmt"
	"strings"

	"github.com/pkp/pln/constants"
)

// DtdValidator checks OJS 2 native export XML, which declares the
// PKP public identifier in its DOCTYPE. It checks well-formedness,
// the DOCTYPE, the root element and the children the native DTD
// requires. It does not load the DTD itself.
type DtdValidator struct {
	rules rules
}

func NewDtdValidator() *DtdValidator {
	return &DtdValidator{
		rules: rules{
			rootElements: map[string]bool{"issue": true, "issues": true, "article": true, "articles": true},
			requiredChildren: map[string][]string{
				"issues":   {"issue"},
				"issue":    {"title"},
				"articles": {"article"},
				"article":  {"title"},
			},
		},
	}
}

func (validator *DtdValidator) Validate(data []byte) []ValidationError {
	doc := &document{}
	errs := make([]ValidationError, 0)
	syntaxErrs := walk(data, doc, func(el *element) {
		errs = append(errs, validator.rules.checkChildren(el)...)
	})
	if syntaxErrs != nil {
		return syntaxErrs
	}
	if !strings.Contains(doc.doctype, constants.PkpPublicId) {
		line := doc.doctypeLine
		if line == 0 {
			line = 1
		}
		errs = append(errs, ValidationError{
			Line:    line,
			Message: fmt.Sprintf("Document must declare the public identifier %s.", constants.PkpPublicId),
		})
	}
	errs = append(errs, validator.rules.checkRoot(doc)...)
	return sortByLine(errs)
}
