package validation

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
)

// StructuralValidator checks one XML document and returns every
// problem it finds. An empty result means the document is valid.
type StructuralValidator interface {
	Validate(document []byte) []ValidationError
}

// element is an open element and the names of the children seen
// inside it so far.
type element struct {
	name     xml.Name
	line     int
	children map[string]bool
}

// document is what walk learned about a document outside its
// element tree.
type document struct {
	doctype     string
	doctypeLine int
	root        *xml.StartElement
	rootLine    int
}

// walk parses data and calls onClose for every element once its
// end tag is read. A syntax error stops the walk and is returned
// as a ValidationError.
func walk(data []byte, doc *document, onClose func(el *element)) []ValidationError {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	stack := make([]*element, 0)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			line, _ := decoder.InputPos()
			if syntaxErr, ok := err.(*xml.SyntaxError); ok {
				return []ValidationError{{Line: syntaxErr.Line, Message: syntaxErr.Msg}}
			}
			return []ValidationError{{Line: line, Message: err.Error()}}
		}
		line, _ := decoder.InputPos()
		switch t := token.(type) {
		case xml.Directive:
			if doc.doctype == "" && bytes.HasPrefix(bytes.TrimSpace(t), []byte("DOCTYPE")) {
				doc.doctype = string(t)
				doc.doctypeLine = line
			}
		case xml.StartElement:
			if doc.root == nil {
				root := t.Copy()
				doc.root = &root
				doc.rootLine = line
			}
			if len(stack) > 0 {
				stack[len(stack)-1].children[t.Name.Local] = true
			}
			stack = append(stack, &element{name: t.Name, line: line, children: make(map[string]bool)})
		case xml.EndElement:
			closed := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onClose(closed)
		}
	}
	if doc.root == nil {
		return []ValidationError{{Line: 1, Message: "Document has no root element."}}
	}
	return nil
}

// rules are the element constraints shared by both validators.
type rules struct {
	rootElements     map[string]bool
	requiredChildren map[string][]string
}

func (r rules) checkRoot(doc *document) []ValidationError {
	if !r.rootElements[doc.root.Name.Local] {
		return []ValidationError{{
			Line:    doc.rootLine,
			Message: fmt.Sprintf("Element <%s> is not allowed as the document root.", doc.root.Name.Local),
		}}
	}
	return nil
}

func (r rules) checkChildren(el *element) []ValidationError {
	errs := make([]ValidationError, 0)
	for _, child := range r.requiredChildren[el.name.Local] {
		if !el.children[child] {
			errs = append(errs, ValidationError{
				Line:    el.line,
				Message: fmt.Sprintf("Element <%s> is missing required child <%s>.", el.name.Local, child),
			})
		}
	}
	return errs
}

func sortByLine(errs []ValidationError) []ValidationError {
	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].Line < errs[j].Line
	})
	return errs
}

// rootAttributes returns the attributes of the document's root
// element, or an error if the document cannot be parsed that far.
func rootAttributes(data []byte) ([]xml.Attr, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		if start, ok := token.(xml.StartElement); ok {
			return start.Copy().Attr, nil
		}
	}
}
