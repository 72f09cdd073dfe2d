package emitter

// Runtime ABI symbol names the emitter targets. The runtime library
// provides these; the emitted translation unit only references them.
const (
	runtimeHeader = "gg_runtime.h"
	noGCDefine    = "GG_NO_GC"

	fnAlloc          = "gg_alloc"
	fnArrayAlloc     = "gg_array_alloc"
	fnArrayLength    = "gg_array_length"
	fnPushRootFrame  = "gg_gc_push_root_frame"
	fnPopRootFrame   = "gg_gc_pop_root_frame"
	fnAddRoot        = "gg_gc_add_root"
	fnWriteBarrier   = "gg_gc_write_barrier"
	fnSetMemoryLimit = "gg_gc_set_memory_limit"
	fnStringFromCstr = "gg_string_from_cstr"
	fnStringConcat   = "gg_string_concat"
	fnStringEquals   = "gg_string_equals"

	userEntryPoint = "gg_user_main"
)

// consoleReturnTypes gives the result types of the Console built-in.
var consoleReturnTypes = map[string]string{
	"write":     "void",
	"writeLine": "void",
	"readLine":  "string",
	"readInt":   "int",
}

// mathFunctions lists the Math built-ins; all of them take and return
// double.
var mathFunctions = map[string]bool{
	"abs":   true,
	"sqrt":  true,
	"pow":   true,
	"min":   true,
	"max":   true,
	"floor": true,
	"ceil":  true,
	"sin":   true,
	"cos":   true,
	"tan":   true,
	"log":   true,
}

// extensionReturnTypes gives the result types of the primitive
// extension methods, invoked with receiver-dot syntax and lowered to
// gg_ext_<type>_<method>.
var extensionReturnTypes = map[string]string{
	"toString":  "string",
	"toInt":     "int",
	"toLong":    "long",
	"toFloat":   "float",
	"toDouble":  "double",
	"toBool":    "bool",
	"toChar":    "char",
	"toUpper":   "string",
	"toLower":   "string",
	"trim":      "string",
	"substring": "string",
	"replace":   "string",
	"indexOf":   "int",
	"length":    "int",
	"contains":  "bool",
}

// cTypes maps source primitive names to their C representations.
// Class and array types are derived, not listed.
var cTypes = map[string]string{
	"int":    "int",
	"long":   "long long",
	"byte":   "unsigned char",
	"short":  "short",
	"float":  "float",
	"double": "double",
	"bool":   "bool",
	"char":   "char",
	"string": "gg_string*",
	"void":   "void",
	"object": "void*",
}
