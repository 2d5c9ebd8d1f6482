package object

import (
	"fmt"

	"github.com/google/uuid"
)

// Module is a compilation unit. The compiler reads Name for diagnostics and
// the VM stores module-level bindings in Values.
type Module struct {
	// Name is the short module name shown in error reports.
	Name string

	// Path is the location the module was loaded from, empty for the REPL.
	Path string

	// ID is a unique identity for this module instance, stable for the
	// lifetime of the VM. Hosts use it to key caches and debug sessions.
	ID string

	// Values holds the module-level bindings, populated at run time by
	// OP_DEFINE_MODULE / OP_SET_MODULE.
	Values map[string]Object
}

func NewModule(name, path string) *Module {
	return &Module{
		Name:   name,
		Path:   path,
		ID:     uuid.NewString(),
		Values: make(map[string]Object),
	}
}

func (m *Module) Type() ObjectType { return MODULE_OBJ }
func (m *Module) Inspect() string  { return fmt.Sprintf("<module %s>", m.Name) }
