package model

import (
	"go/types"
)

// GenericUtils resolves type parameters of generic declarations. It relies on
// TypeUtils to dereference and look up types, so it is always built after it.
type GenericUtils struct {
	types *TypeUtils
}

// NewGenericUtils creates generic-resolution helpers on top of tu.
func NewGenericUtils(tu *TypeUtils) *GenericUtils {
	return &GenericUtils{types: tu}
}

// IsGeneric returns true if t (or what it points to) is a generic named type
// that has not been instantiated.
func (gu *GenericUtils) IsGeneric(t types.Type) bool {
	n, ok := gu.types.Deref(t).(*types.Named)
	if !ok {
		return false
	}
	return n.TypeParams().Len() > 0 && n.TypeArgs().Len() == 0
}

// IsGenericFunc returns true if fn declares type parameters.
func (gu *GenericUtils) IsGenericFunc(fn *types.Func) bool {
	return fn.Type().(*types.Signature).TypeParams().Len() > 0
}
