package contract

// Builtin is a bundled contract the CLI can compile and deploy by name.
type Builtin struct {
	ID          string
	Description string
	Approval    func() (string, error)
	Clear       func() (string, error)
}

var builtins = []Builtin{
	{
		ID:          "counter",
		Description: "Owner-gated payment counter (fixed: clamps at zero)",
		Approval:    func() (string, error) { return Compile(Counter(true)) },
		Clear:       func() (string, error) { return Compile(Clear()) },
	},
	{
		ID:          "counter-buggy",
		Description: "Owner-gated payment counter with the injected underflow bug",
		Approval:    func() (string, error) { return Compile(Counter(false)) },
		Clear:       func() (string, error) { return Compile(Clear()) },
	},
}

// GetBuiltin looks up a bundled contract by ID.
func GetBuiltin(id string) (Builtin, bool) {
	for _, b := range builtins {
		if b.ID == id {
			return b, true
		}
	}
	return Builtin{}, false
}

// Builtins returns all bundled contracts.
func Builtins() []Builtin {
	return builtins
}
