package validation

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/pkp/pln/constants"
)

// SchemaValidator checks OJS 3 native export XML, which names its
// schema with xsi:schemaLocation on the root element. It checks
// well-formedness, that the schema location covers the root
// namespace, the root element and the children the native schema
// requires. It does not fetch the schema.
type SchemaValidator struct {
	rules rules
}

func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{
		rules: rules{
			rootElements: map[string]bool{"issue": true, "issues": true, "article": true, "articles": true},
			requiredChildren: map[string][]string{
				"issues": {"issue"},
				"issue":  {"issue_identification"},
			},
		},
	}
}

func (validator *SchemaValidator) Validate(data []byte) []ValidationError {
	doc := &document{}
	errs := make([]ValidationError, 0)
	syntaxErrs := walk(data, doc, func(el *element) {
		errs = append(errs, validator.rules.checkChildren(el)...)
	})
	if syntaxErrs != nil {
		return syntaxErrs
	}
	errs = append(errs, validator.rules.checkRoot(doc)...)
	location, _ := SchemaLocation(doc.root.Attr)
	if !schemaLocationCovers(location, doc.root.Name.Space) {
		errs = append(errs, ValidationError{
			Line:    doc.rootLine,
			Message: fmt.Sprintf("Schema location does not declare namespace %s.", doc.root.Name.Space),
		})
	}
	return sortByLine(errs)
}

// schemaLocationCovers returns true if location, a list of
// namespace and schema URL pairs, names namespace.
func schemaLocationCovers(location, namespace string) bool {
	fields := strings.Fields(location)
	for i := 0; i+1 < len(fields); i += 2 {
		if fields[i] == namespace {
			return true
		}
	}
	return false
}

// HasSchemaLocation returns true if the attributes include
// xsi:schemaLocation.
func HasSchemaLocation(attrs []xml.Attr) bool {
	_, ok := SchemaLocation(attrs)
	return ok
}

// SchemaLocation returns the value of the xsi:schemaLocation
// attribute.
func SchemaLocation(attrs []xml.Attr) (string, bool) {
	for _, attr := range attrs {
		if attr.Name.Space == constants.NamespaceXsi && attr.Name.Local == "schemaLocation" {
			return attr.Value, true
		}
	}
	return "", false
}
