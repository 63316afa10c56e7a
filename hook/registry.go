// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

package hook

import "sync"

// Registry holds the pending declarations of functions until a plugin
// resolves them. Each function has at most one declaration per kind.
type Registry struct {
	mu    sync.Mutex
	decls map[*Func]map[Kind]*Declaration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		decls: make(map[*Func]map[Kind]*Declaration),
	}
}

// Default is the process-wide registry used by the package-level Apply.
var Default = NewRegistry()

// Apply attaches each decorator to f, in order, and returns f.
// The first failing decorator stops the rest.
func (r *Registry) Apply(f *Func, decs ...Decorator) (*Func, error) {
	if f == nil {
		return nil, ErrNilFunc
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range decs {
		if d.err != nil {
			return f, d.err
		}
		existing, ok := r.decls[f][d.kind]
		decl := existing
		if !ok {
			decl = newDeclaration(d.kind, f)
		}
		if d.add != nil {
			if err := d.add(decl); err != nil {
				return f, err
			}
		}
		decl.addOptions(d.opts)
		if !ok {
			if r.decls[f] == nil {
				r.decls[f] = make(map[Kind]*Declaration)
			}
			r.decls[f][d.kind] = decl
		}
	}
	return f, nil
}

// Declarations returns the pending declarations of f by kind.
func (r *Registry) Declarations(f *Func) map[Kind]*Declaration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[Kind]*Declaration, len(r.decls[f]))
	for k, d := range r.decls[f] {
		out[k] = d
	}
	return out
}

// Declaration returns the pending declaration of one kind on f, or nil.
func (r *Registry) Declaration(f *Func, kind Kind) *Declaration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.decls[f][kind]
}

// Has reports whether f carries any declaration.
func (r *Registry) Has(f *Func) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.decls[f]) > 0
}

// Clear drops every declaration on f. Declarations are single use; once a
// plugin has resolved them they are gone.
func (r *Registry) Clear(f *Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.decls, f)
}

// Apply attaches decorators to f in the Default registry.
func Apply(f *Func, decs ...Decorator) (*Func, error) {
	return Default.Apply(f, decs...)
}

// Must panics if err is non-nil. It is meant for package level declarations.
func Must(f *Func, err error) *Func {
	if err != nil {
		panic(err)
	}
	return f
}
