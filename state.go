package scenetwin

import "strconv"

// State is the synchronized state of a wrapper: a rule target such as "hot", or
// a numeric status code carried in its decimal form.
type State string

const (
	// StateInit is the initializing sentinel. Wrappers accept it at any time, even
	// before they have loaded, and never notify about it.
	StateInit State = "init"
	// StateUndefined is the baseline a rule evaluation falls back to when no
	// statement matches. The reconciler never applies it.
	StateUndefined State = "undefined"
)

// NumericState returns the State that carries a numeric status code.
func NumericState(code int) State {
	return State(strconv.Itoa(code))
}

// Int returns the numeric status code carried by s, if any.
func (s State) Int() (int, bool) {
	n, err := strconv.Atoi(string(s))
	return n, err == nil
}
