package shader

import "sort"

// variantSet is the implementation of the VariantSet interface.
type variantSet struct {
	defines map[string]struct{}
	stack   []map[string]struct{}
}

// VariantSet holds the set of preprocessor define names used to resolve //#ifdef and
// //#ifndef directives when building a shader variant. Push and Pop provide save and
// restore semantics so a caller can overlay temporary defines (e.g. a material variant)
// on top of a base set and roll them back afterwards.
type VariantSet interface {
	// Define adds a name to the set. Defining an already-defined name is a no-op.
	//
	// Parameters:
	//   - name: the define name to add
	Define(name string)

	// Undefine removes a name from the set. Removing an absent name is a no-op.
	//
	// Parameters:
	//   - name: the define name to remove
	Undefine(name string)

	// Defined reports whether a name is currently in the set.
	//
	// Parameters:
	//   - name: the define name to check
	//
	// Returns:
	//   - bool: true if the name is defined
	Defined(name string) bool

	// Names returns the currently defined names in sorted order. Useful for building
	// cache keys for compiled shader variants.
	//
	// Returns:
	//   - []string: the sorted define names
	Names() []string

	// Push saves the current set of defines. Each Push must be balanced by a Pop.
	Push()

	// Pop restores the set of defines saved by the most recent Push. Popping with no
	// saved state is a no-op.
	Pop()
}

var _ VariantSet = &variantSet{}

// NewVariantSet creates a VariantSet pre-populated with the given define names.
//
// Parameters:
//   - names: define names to add to the new set
//
// Returns:
//   - VariantSet: a new VariantSet containing the given names
func NewVariantSet(names ...string) VariantSet {
	v := &variantSet{
		defines: make(map[string]struct{}, len(names)),
	}
	for _, n := range names {
		v.defines[n] = struct{}{}
	}
	return v
}

func (v *variantSet) Define(name string) {
	v.defines[name] = struct{}{}
}

func (v *variantSet) Undefine(name string) {
	delete(v.defines, name)
}

func (v *variantSet) Defined(name string) bool {
	_, ok := v.defines[name]
	return ok
}

func (v *variantSet) Names() []string {
	names := make([]string, 0, len(v.defines))
	for n := range v.defines {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (v *variantSet) Push() {
	saved := make(map[string]struct{}, len(v.defines))
	for n := range v.defines {
		saved[n] = struct{}{}
	}
	v.stack = append(v.stack, saved)
}

func (v *variantSet) Pop() {
	if len(v.stack) == 0 {
		return
	}
	v.defines = v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
}
