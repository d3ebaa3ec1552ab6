package rmap

import "fmt"

// keyPrefix separates the keys of rmap from other users of the store
const keyPrefix = "rmap"

// Namespace holds the store keys backing one logical map
type Namespace struct {
	// DataKey is the hash holding the entries
	DataKey string
	// RefCountKey is the counter of open shared handles, empty in exclusive mode
	RefCountKey string
	// Shared reports whether the namespace is reference counted
	Shared bool
}

// NewNamespace derives the namespace of a logical id.
// Equal ids in shared mode always resolve to equal namespaces.
func NewNamespace(id string, shared bool) Namespace {
	ns := Namespace{
		DataKey: fmt.Sprintf("%s_%s_repository", keyPrefix, id),
		Shared:  shared,
	}
	if shared {
		ns.RefCountKey = fmt.Sprintf("%s_%s_connectionCount", keyPrefix, id)
	}
	return ns
}
