/*
Package rules maps live values to a discrete target state.

A rule-based Map is an ordered list of Statements. Each statement pairs a
boolean expression over value names with the target it selects, for example

	temp >= 30 && humidity < 60  ->  "hot"

Expressions are CUE expressions evaluated in a scope that holds the pulled
values, so they support the usual comparison, boolean and arithmetic
operators as well as string and regular-expression matching (=~). The first
statement that evaluates to true wins; when none does, the evaluator returns
the caller's default target.

A value whose name is not a CUE identifier, such as "temp-c" or "2nd_floor",
cannot be referenced by name. Every value is therefore also reachable through
the values struct, as in

	values["temp-c"] > 30

ReferenceName returns the form a statement has to use for a given name.
*/
package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/parser"
)

// Statement selects Target when Expression evaluates to true.
type Statement struct {
	Expression string `json:"expression" yaml:"expression"`
	Target     string `json:"target" yaml:"target"`
}

// Map is an ordered rule-based map.
type Map struct {
	Statements []Statement `json:"statements" yaml:"statements"`
}

// ErrInvalidExpression is returned by Validate for statements that do not parse.
var ErrInvalidExpression = errors.New("rules: invalid expression")

// Validate checks that every statement expression is syntactically valid.
func (m *Map) Validate() error {
	var errs []error
	for i, s := range m.Statements {
		if _, err := parser.ParseExpr(fmt.Sprintf("statement[%d]", i), s.Expression); err != nil {
			errs = append(errs, fmt.Errorf("%w: statement %d: %v", ErrInvalidExpression, i, err))
		}
	}
	return errors.Join(errs...)
}

// ValuesField names the struct through which every value is reachable, unless
// a value of that name shadows it.
const ValuesField = "values"

// ReferenceName returns the expression that refers to the value called name:
// name itself when it is a plain CUE identifier, an index into ValuesField
// otherwise.
func ReferenceName(name string) string {
	if isPlainIdent(name) {
		return name
	}
	return ValuesField + "[" + strconv.Quote(name) + "]"
}

// cueKeywords are identifiers that an expression can never use as a reference.
var cueKeywords = map[string]bool{
	"true": true, "false": true, "null": true,
	"if": true, "for": true, "in": true, "let": true,
	"import": true, "package": true,
}

// isPlainIdent reports whether name, used as a top-level field, can be
// referenced as a bare identifier. Hidden (_x) and definition (#x) labels are
// not, since a data field of that name is a regular, quoted field.
func isPlainIdent(name string) bool {
	if strings.HasPrefix(name, "_") || strings.HasPrefix(name, "#") {
		return false
	}
	return ast.IsValidIdent(name) && !cueKeywords[name]
}

// Maps resolves rule maps by identifier.
type Maps map[string]*Map

// Lookup returns the map registered under id. An empty id never resolves.
func (m Maps) Lookup(id string) (*Map, bool) {
	if id == "" {
		return nil, false
	}
	rm, ok := m[id]
	return rm, ok && rm != nil
}

// Evaluator evaluates rule maps with CUE. The zero value is not usable; use
// NewEvaluator. An Evaluator is safe for concurrent use.
type Evaluator struct {
	mu  sync.Mutex
	ctx *cue.Context
}

// NewEvaluator returns an Evaluator with its own CUE runtime.
func NewEvaluator() *Evaluator {
	return &Evaluator{ctx: cuecontext.New()}
}

// Evaluate returns the target of the first statement of m that holds for
// values, or defaultTarget when m is nil or no statement holds. A statement
// whose expression fails to evaluate (a syntax error, a reference to a missing
// value, a non-boolean result) does not hold. Values are in scope by name and
// through ValuesField.
func (e *Evaluator) Evaluate(defaultTarget string, values map[string]any, m *Map) string {
	if m == nil {
		return defaultTarget
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	scoped := make(map[string]any, len(values)+1)
	for name, v := range values {
		scoped[name] = v
	}
	if _, shadowed := values[ValuesField]; !shadowed {
		scoped[ValuesField] = values
	}
	scope := e.ctx.Encode(scoped)
	if scope.Err() != nil {
		return defaultTarget
	}
	for _, s := range m.Statements {
		if e.holds(scope, s.Expression) {
			return s.Target
		}
	}
	return defaultTarget
}

func (e *Evaluator) holds(scope cue.Value, expression string) bool {
	v := e.ctx.CompileString(expression, cue.Scope(scope))
	if v.Err() != nil {
		return false
	}
	b, err := v.Bool()
	return err == nil && b
}
