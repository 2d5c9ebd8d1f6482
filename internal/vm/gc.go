package vm

import "github.com/oolong-lang/oolong/internal/object"

// MarkCompilerRoots reports every object held live by in-progress
// compilations: the function under construction and the interned identifier
// names of each open compiler. The collector calls this so a collection
// triggered mid-parse cannot sweep compile-time objects.
func (v *VM) MarkCompilerRoots(mark func(object.Object)) {
	for c := v.compiler; c != nil; c = c.enclosing {
		mark(c.function)
		for name := range c.stringConstants {
			mark(name)
		}
	}
}
