package symbols

// TypeInfo is the resolved view of a type reference: the bare name
// plus array and nullable flags.
type TypeInfo struct {
	Name     string
	IsArray  bool
	Nullable bool
}

func NewType(name string) TypeInfo {
	return TypeInfo{Name: name}
}

func NewArrayType(name string) TypeInfo {
	return TypeInfo{Name: name, IsArray: true}
}

func NewNullableType(name string) TypeInfo {
	return TypeInfo{Name: name, Nullable: true}
}

var numericTypes = map[string]bool{
	"byte":   true,
	"short":  true,
	"int":    true,
	"long":   true,
	"float":  true,
	"double": true,
}

var primitiveTypes = map[string]bool{
	"bool":   true,
	"char":   true,
	"string": true,
	"void":   true,
}

// IsNumeric reports whether the type participates in the widening
// lattice.
func (t TypeInfo) IsNumeric() bool {
	return !t.IsArray && numericTypes[t.Name]
}

// IsPrimitive reports whether the type is numeric or one of bool,
// char, string, void.
func (t TypeInfo) IsPrimitive() bool {
	return !t.IsArray && (numericTypes[t.Name] || primitiveTypes[t.Name])
}

func (t TypeInfo) IsVoid() bool { return t.Name == "void" && !t.IsArray }

func (t TypeInfo) String() string {
	s := t.Name
	if t.IsArray {
		s += "[]"
	}
	if t.Nullable {
		s += "?"
	}
	return s
}

// widensTo is the implicit numeric conversion relation. Strictly
// directional: a source type converts to any of the listed targets
// without a cast.
var widensTo = map[string][]string{
	"byte":  {"short", "int", "long", "float", "double"},
	"short": {"int", "long", "float", "double"},
	"int":   {"long", "float", "double"},
	"long":  {"float", "double"},
	"float": {"double"},
}

// Widens reports whether the numeric type `from` implicitly converts
// to `to`.
func Widens(from, to string) bool {
	for _, t := range widensTo[from] {
		if t == to {
			return true
		}
	}
	return false
}
