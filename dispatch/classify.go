package dispatch

import "sort"

// Class is where an operation executes.
type Class uint8

const (
	// Inline operations touch only in-memory context state and run on the
	// caller's goroutine.
	Inline Class = iota
	// Offloaded operations may block on engine I/O and run on the worker
	// pool.
	Offloaded
)

func (c Class) String() string {
	if c == Offloaded {
		return "offloaded"
	}
	return "inline"
}

var classes = map[string]Class{
	"protocol":            Inline,
	"armor":               Inline,
	"set_armor":           Inline,
	"text_mode":           Inline,
	"set_text_mode":       Inline,
	"offline":             Inline,
	"set_offline":         Inline,
	"get_flag":            Inline,
	"set_flag":            Inline,
	"engine_info":         Inline,
	"set_engine_path":     Inline,
	"set_engine_home_dir": Inline,
	"pinentry_mode":       Inline,
	"set_pinentry_mode":   Inline,
	"key_info":            Inline,
	"release":             Inline,

	"from_protocol":               Offloaded,
	"import":                      Offloaded,
	"find_key":                    Offloaded,
	"find_secret_key":             Offloaded,
	"delete_key":                  Offloaded,
	"delete_secret_key":           Offloaded,
	"decrypt":                     Offloaded,
	"decrypt_with_flags":          Offloaded,
	"encrypt_with_flags":          Offloaded,
	"sign_and_encrypt_with_flags": Offloaded,
	"sign_with_mode":              Offloaded,
	"verify_opaque":               Offloaded,
}

// Classify returns the fixed class of an operation.
func Classify(op string) (Class, bool) {
	c, ok := classes[op]
	return c, ok
}

// Operations returns every classified operation name, sorted.
func Operations() []string {
	out := make([]string, 0, len(classes))
	for name := range classes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
