// Package filter implements the strict single-comparison filter grammar
// accepted by search.
//
// grammar:
//
//	expr  := field op value
//	field := "relativePath" | "language" | "fileExtension"
//	op    := "==" | "!="   // relativePath accepts both; language/fileExtension accept only "=="
//	value := '"' chars '"' | "'" chars "'"    // no newline in chars
//
// Parsed by a single anchored regular expression from the standard
// library rather than by a parser-generator dependency.
package filter

import (
	"regexp"
	"strings"

	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
	"github.com/Luiz-Frias/semantic-code-agx/internal/vector"
)

// Field is one of the closed set of attributes the grammar may compare.
type Field string

const (
	FieldRelativePath  Field = "relativePath"
	FieldLanguage      Field = "language"
	FieldFileExtension Field = "fileExtension"
)

// Op is a comparison operator.
type Op string

const (
	OpEq Op = "=="
	OpNe Op = "!="
)

// Expr is a single parsed comparison.
type Expr struct {
	Field Field
	Op    Op
	Value string
}

// exprPattern matches `field op "value"` or `field op 'value'`, tolerant
// of surrounding whitespace, with no newline allowed inside the literal.
var exprPattern = regexp.MustCompile(`^\s*(relativePath|language|fileExtension)\s*(==|!=)\s*("([^"\n]*)"|'([^'\n]*)')\s*$`)

// Parse parses a filter expression. An empty/whitespace-only expr means
// "no filter": Parse returns (nil, nil). Any other production that does
// not match the grammar exactly fails with vector:invalid_filter_expr.
func Parse(expr string) (*Expr, *errs.Envelope) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}

	m := exprPattern.FindStringSubmatch(expr)
	if m == nil {
		return nil, errs.Invalid(errs.CodeInvalidFilterExpr, "filter expression does not match the single-comparison grammar")
	}

	field := Field(m[1])
	op := Op(m[2])

	// m[3] is the full quoted literal including its quote marks; use its
	// opening quote to disambiguate which of m[4] (double) / m[5]
	// (single) holds the content, since both read "" for an empty literal.
	var value string
	if strings.HasPrefix(m[3], `"`) {
		value = m[4]
	} else {
		value = m[5]
	}

	if op == OpNe && field != FieldRelativePath {
		return nil, errs.Invalid(errs.CodeInvalidFilterExpr, "!= is only accepted for relativePath")
	}

	return &Expr{Field: field, Op: op, Value: value}, nil
}

// Predicate compiles a parsed Expr into a vector.Predicate usable directly
// against vector.Index.Search. A nil Expr (empty filter) yields a nil
// predicate, meaning "no filter".
func (e *Expr) Predicate() vector.Predicate {
	if e == nil {
		return nil
	}
	return func(doc vector.Document) bool {
		var actual string
		switch e.Field {
		case FieldRelativePath:
			actual = doc.RelativePath
		case FieldLanguage:
			actual = doc.Language
		case FieldFileExtension:
			actual = doc.FileExtension
		}
		if e.Op == OpNe {
			return actual != e.Value
		}
		return actual == e.Value
	}
}

// ParsePredicate parses expr and directly compiles it to a predicate,
// the convenience most search call sites want.
func ParsePredicate(expr string) (vector.Predicate, *errs.Envelope) {
	parsed, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	return parsed.Predicate(), nil
}
