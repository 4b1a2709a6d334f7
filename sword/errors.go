package sword

import (
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/pkp/pln/constants"
)

// Kinds of request errors. Use errors.Cause to find the kind of an
// error returned by Service.
var (
	ErrAccessDenied      = errors.New("access denied")
	ErrNotFound          = errors.New("not found")
	ErrOwnershipMismatch = errors.New("ownership mismatch")
	ErrBadRequest        = errors.New("bad request")
)

// requestError is an error of one of the kinds above, carrying the
// message we show the client.
type requestError struct {
	kind    error
	message string
}

func newError(kind error, format string, args ...interface{}) error {
	return &requestError{kind: kind, message: fmt.Sprintf(format, args...)}
}

func (err *requestError) Error() string {
	return err.message
}

func (err *requestError) Cause() error {
	return err.kind
}

func (err *requestError) Unwrap() error {
	return err.kind
}

// StatusFor returns the HTTP status for an error returned by
// Service. Client mistakes are 400, anything else is 500.
func StatusFor(err error) int {
	switch errors.Cause(err) {
	case ErrAccessDenied, ErrNotFound, ErrOwnershipMismatch, ErrBadRequest:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// ErrorDocument is the SWORD error body.
type ErrorDocument struct {
	XMLName    xml.Name `xml:"sword:error"`
	XmlnsSword string   `xml:"xmlns:sword,attr"`
	XmlnsAtom  string   `xml:"xmlns:atom,attr"`
	Href       string   `xml:"href,attr"`
	Summary    string   `xml:"atom:summary"`
	Detail     string   `xml:"sword:verboseDescription"`
}

// NewErrorDocument describes err for the client.
func NewErrorDocument(status int, err error) *ErrorDocument {
	href := constants.NamespaceSword + "error/ErrorBadRequest"
	if status >= http.StatusInternalServerError {
		href = constants.NamespaceSword + "error/ErrorInternal"
	}
	return &ErrorDocument{
		XmlnsSword: constants.NamespaceSword,
		XmlnsAtom:  constants.NamespaceAtom,
		Href:       href,
		Summary:    err.Error(),
		Detail:     http.StatusText(status),
	}
}
