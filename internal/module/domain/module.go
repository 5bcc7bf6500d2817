package domain

// Module maps a named tool/page to the permission bitmask required to open it.
type Module struct {
	ID            int64
	Name          string
	Title         string
	RequiredFlags int64
}

// Accessible reports whether a session with the given permission flags may
// open the module: the bitwise AND must be nonzero, or the module must be
// public (required flags zero).
func (m *Module) Accessible(flags int64) bool {
	if m == nil {
		return false
	}
	return m.RequiredFlags == 0 || m.RequiredFlags&flags != 0
}
