package reftrack

// VarKey identifies one local variable binding: the file and scope
// (qualified name of the enclosing function/method, or "" at module scope)
// it lives in, plus its bare name.
type VarKey struct {
	File      string
	Scope     string
	LocalName string
}

// VarTypeRegistry maps (file, scope, local_name) to an inferred class name,
// per spec §4.7's type-inference rule: `v = C(...)` records the binding,
// and `isinstance(v, T)` narrows it inside a guarded branch.
type VarTypeRegistry struct {
	bindings map[VarKey]string
}

// NewVarTypeRegistry creates an empty registry.
func NewVarTypeRegistry() *VarTypeRegistry {
	return &VarTypeRegistry{bindings: make(map[VarKey]string)}
}

// Set records that key is currently bound to an instance of class.
func (r *VarTypeRegistry) Set(key VarKey, class string) {
	r.bindings[key] = class
}

// Get returns the class currently bound to key, if any.
func (r *VarTypeRegistry) Get(key VarKey) (string, bool) {
	class, ok := r.bindings[key]
	return class, ok
}
