package contract

// BuiltinKind is an ABI compiled into the binary, used when a deployment
// carries no ABI of its own.
type BuiltinKind struct {
	ID          string
	Name        string
	Description string
	ABI         []ABIEntry
}

var builtins = map[string]BuiltinKind{}

// RegisterBuiltin makes b available by its ID. Called from init().
func RegisterBuiltin(b BuiltinKind) {
	builtins[b.ID] = b
}

// GetBuiltin looks up a built-in by ID.
func GetBuiltin(id string) (BuiltinKind, bool) {
	b, ok := builtins[id]
	return b, ok
}

// GetBuiltinABI returns the ABI of a built-in, or nil for an unknown ID.
func GetBuiltinABI(id string) []ABIEntry {
	return builtins[id].ABI
}
