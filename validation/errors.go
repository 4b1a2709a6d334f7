package validation

import (
	"fmt"
	"strings"
)

// ValidationError is one problem found in a document.
type ValidationError struct {
	Line    int
	Message string
}

func (err ValidationError) String() string {
	return fmt.Sprintf("On line %d: %s", err.Line, err.Message)
}

// Report formats errors for the processing log, one per line.
func Report(errors []ValidationError) string {
	builder := strings.Builder{}
	for _, err := range errors {
		builder.WriteString(err.String())
		builder.WriteString("\n")
	}
	return builder.String()
}
