package annoinject

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter interface{ Greet() string }

type englishGreeter struct{}

func (englishGreeter) Greet() string { return "hello" }

func TestRegisterBean(t *testing.T) {
	before := len(Beans())

	RegisterBean(BeanDescriptor{
		Type:   reflect.TypeOf(englishGreeter{}),
		Name:   "english",
		Origin: "github.com/jhump/annoinject.englishGreeter",
		Factory: func(Resolver) (interface{}, error) {
			return englishGreeter{}, nil
		},
	})

	all := Beans()
	require.Len(t, all, before+1)
	assert.Equal(t, "english", all[before].Name)
	assert.Equal(t, Singleton, all[before].Scope)

	ifaceType := reflect.TypeOf((*greeter)(nil)).Elem()
	matches := BeansOfType(ifaceType)
	require.NotEmpty(t, matches)
	v, err := matches[len(matches)-1].Factory(nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", v.(greeter).Greet())
}

func TestRegisterBean_Invalid(t *testing.T) {
	assert.Panics(t, func() {
		RegisterBean(BeanDescriptor{Origin: "broken"})
	})
}

func TestScopeAndElementTypeStrings(t *testing.T) {
	assert.Equal(t, "singleton", Singleton.String())
	assert.Equal(t, "prototype", Prototype.String())
	assert.Equal(t, "?7?", Scope(7).String())
	assert.Equal(t, "parameters", Parameters.String())
	assert.Equal(t, fmt.Sprintf("?%d?", 99), ElementType(99).String())
}
