package vm

// ---------------------------------------------------------------------------
// SymbolTable: interned symbols
// ---------------------------------------------------------------------------

// SymbolTable interns symbol names to unique ids. Two symbols with equal
// names share one id, so symbols compare by id. Entries are never evicted;
// the table lives for the lifetime of its VM and is owned by it, so
// independent interpreters do not share symbols. The interpreter is
// single-threaded (one instruction stream per VM), so the table needs no
// locking.
type SymbolTable struct {
	byName map[string]uint32
	byID   []string
}

// NewSymbolTable creates a new empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		byName: make(map[string]uint32),
		byID:   make([]string, 0, 256),
	}
}

// Intern returns the id for a name, assigning a fresh monotonic id the
// first time the name is seen.
func (st *SymbolTable) Intern(name string) uint32 {
	if id, ok := st.byName[name]; ok {
		return id
	}
	id := uint32(len(st.byID))
	st.byName[name] = id
	st.byID = append(st.byID, name)
	return id
}

// Lookup returns the id for a name without interning.
func (st *SymbolTable) Lookup(name string) (uint32, bool) {
	id, ok := st.byName[name]
	return id, ok
}

// Name returns the name for an id, or "" if the id was never assigned.
func (st *SymbolTable) Name(id uint32) string {
	if int(id) >= len(st.byID) {
		return ""
	}
	return st.byID[id]
}

// Len returns the number of interned symbols.
func (st *SymbolTable) Len() int {
	return len(st.byID)
}

// Symbol interns a name and returns it as a Value.
func (st *SymbolTable) Symbol(name string) Value {
	return FromSymbol(st.Intern(name))
}
