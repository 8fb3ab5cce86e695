package textnet

import (
	"github.com/OFFIS-RIT/bibliograph/pkg/common"
)

// TypeRegistry maps type names to stable ids. Ids are assigned in insertion
// order and never change.
type TypeRegistry struct {
	kind  string
	types []common.Type
	index map[string]common.TypeID
}

// NewTypeRegistry creates an empty registry. kind names the registry in
// lookup errors ("node type", "link type").
func NewTypeRegistry(kind string) *TypeRegistry {
	return &TypeRegistry{
		kind:  kind,
		index: make(map[string]common.TypeID),
	}
}

// Insert registers name and returns its id. Inserting an existing name
// returns the existing id; a null flag is sticky once set.
func (r *TypeRegistry) Insert(name, description string, null bool) common.TypeID {
	if id, ok := r.index[name]; ok {
		t := &r.types[id]
		if null {
			t.Null = true
		}
		if t.Description == "" {
			t.Description = description
		}
		return id
	}
	id := common.TypeID(len(r.types))
	r.types = append(r.types, common.Type{
		ID:          id,
		Name:        name,
		Description: description,
		Null:        null,
	})
	r.index[name] = id
	return id
}

// Lookup returns the id registered for name.
func (r *TypeRegistry) Lookup(name string) (common.TypeID, error) {
	id, ok := r.index[name]
	if !ok {
		return common.NoType, &common.LookupError{Kind: r.kind, Key: name}
	}
	return id, nil
}

// Has reports whether name is registered.
func (r *TypeRegistry) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

func (r *TypeRegistry) Get(id common.TypeID) (common.Type, error) {
	if id < 0 || int(id) >= len(r.types) {
		return common.Type{}, &common.LookupError{Kind: r.kind, Key: itoa(int64(id)), Msg: "unknown id"}
	}
	return r.types[id], nil
}

// Name returns the name of id, or "" for an unknown id.
func (r *TypeRegistry) Name(id common.TypeID) string {
	if id < 0 || int(id) >= len(r.types) {
		return ""
	}
	return r.types[id].Name
}

func (r *TypeRegistry) IsNull(id common.TypeID) bool {
	if id < 0 || int(id) >= len(r.types) {
		return false
	}
	return r.types[id].Null
}

// IDs resolves a selector to registry ids, failing on the first unknown name.
func (r *TypeRegistry) IDs(sel common.Selector) ([]common.TypeID, error) {
	names := sel.Values()
	out := make([]common.TypeID, 0, len(names))
	for _, name := range names {
		id, err := r.Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// All returns a copy of every registered type in id order.
func (r *TypeRegistry) All() []common.Type {
	return append([]common.Type(nil), r.types...)
}

func (r *TypeRegistry) Len() int { return len(r.types) }

func (r *TypeRegistry) clone() *TypeRegistry {
	c := &TypeRegistry{
		kind:  r.kind,
		types: append([]common.Type(nil), r.types...),
		index: make(map[string]common.TypeID, len(r.index)),
	}
	for k, v := range r.index {
		c.index[k] = v
	}
	return c
}

func registryFromTypes(kind string, types []common.Type) (*TypeRegistry, error) {
	r := NewTypeRegistry(kind)
	for i, t := range types {
		if int(t.ID) != i {
			return nil, &common.LookupError{Kind: kind, Key: t.Name, Msg: "registry ids are not contiguous"}
		}
		r.Insert(t.Name, t.Description, t.Null)
	}
	return r, nil
}
