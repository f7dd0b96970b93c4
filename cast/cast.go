// Package cast provides reversible per-attribute value transforms between
// the storage representation kept on an entity and the domain representation
// handed to callers.
package cast

import (
	"fmt"
	"strings"
	"sync"
)

// Cast transforms one attribute both ways. Get turns the stored value into
// the domain value, Set turns a domain value into what gets stored. Both may
// fail; failures surface to the caller unchanged.
type Cast interface {
	Get(raw interface{}) (interface{}, error)
	Set(domain interface{}) (interface{}, error)
}

var castMap = sync.Map{}

// Register register a named cast, later registrations replace earlier ones
func Register(name string, cast Cast) {
	castMap.Store(strings.ToLower(name), cast)
}

// Lookup get a registered cast by name
func Lookup(name string) (Cast, bool) {
	v, ok := castMap.Load(strings.ToLower(name))
	if !ok {
		return nil, false
	}
	cast, ok := v.(Cast)
	return cast, ok
}

// MustLookup like Lookup but panics on unknown names; intended for schema
// definition time where a typo should fail fast.
func MustLookup(name string) Cast {
	cast, ok := Lookup(name)
	if !ok {
		panic(fmt.Sprintf("cast: %q is not registered", name))
	}
	return cast
}

func init() {
	Register("money", Money{})
	Register("json", JSON{})
	Register("array", Array{})
	Register("date", Date{})
	Register("datetime", DateTime{})
	Register("bool", Bool{})
	Register("int", Int{})
	Register("float", Float{})
	Register("msgpack", Msgpack{})
}
