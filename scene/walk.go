package scene

// A Visitor defines a Visit method invoked for each Object encountered by Walk.
// If the result visitor w is not nil, Walk visits each child of the object with
// the visitor w, followed by a call of w.Visit(nil).
type Visitor interface {
	Visit(obj Object) (w Visitor)
}

// Walk traverses the object tree rooted at obj in depth-first order: It starts
// by calling v.Visit(obj). If the visitor w returned by v.Visit(obj) is not nil,
// Walk is invoked recursively with visitor w for each child of obj, followed by
// a call of w.Visit(nil).
func Walk(v Visitor, obj Object) {
	if v = v.Visit(obj); v == nil {
		return
	}
	for _, child := range obj.Children() {
		Walk(v, child)
	}
	v.Visit(nil)
}

type inspector func(Object) bool

func (f inspector) Visit(obj Object) Visitor {
	if f(obj) {
		return f
	}
	return nil
}

// Inspect traverses the object tree rooted at obj in depth-first order: It
// starts by calling f(obj); obj must not be nil. If f returns true, Inspect
// invokes f recursively for each child of obj, followed by a call of f(nil).
func Inspect(obj Object, f func(Object) bool) {
	Walk(inspector(f), obj)
}
