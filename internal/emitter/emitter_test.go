package emitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termfx/gglang/internal/analyzer"
	"github.com/termfx/gglang/internal/diag"
	"github.com/termfx/gglang/internal/lexer"
	"github.com/termfx/gglang/internal/parser"
)

func emit(t *testing.T, source string, opts Options) string {
	t.Helper()
	bag := diag.NewBag()
	tokens := lexer.New(source, "test.gg", bag).Tokenize()
	unit := parser.New(tokens, bag).ParseCompilationUnit()
	a := analyzer.New(bag)
	a.Analyze(unit)
	require.False(t, bag.HasErrors(), "diagnostics: %v", bag.All())
	return New(a.Classes(), a.ClassOrder(), opts).Emit()
}

const animalSource = `
class Animal {
    string name;

    Animal(string name) {
        this.name = name;
    }

    virtual void speak() {
        Console.writeLine("...");
    }

    void eat() {
        Console.writeLine("munch");
    }
}

class Dog : Animal {
    Dog(string name) : base(name) {}

    override void speak() {
        Console.writeLine("Woof!");
    }
}

class Cat : Animal {
    Cat(string name) : base(name) {}
}

class Program {
    static void main() {
        Dog d = new Dog("Rex");
        d.speak();
    }
}`

func TestClassScaffolding(t *testing.T) {
	out := emit(t, animalSource, Options{})

	for _, class := range []string{"Animal", "Dog", "Cat", "Program"} {
		assert.Contains(t, out, "typedef struct "+class+" "+class+";")
		assert.Contains(t, out, "struct "+class+" {")
		assert.Contains(t, out, "void "+class+"_construct(")
		assert.Contains(t, out, class+"* "+class+"_create(")
	}

	// The vtable pointer is the first struct member.
	structIdx := strings.Index(out, "struct Dog {")
	require.GreaterOrEqual(t, structIdx, 0)
	vtableIdx := strings.Index(out[structIdx:], "const Dog_VTable* vtable;")
	require.GreaterOrEqual(t, vtableIdx, 0)
	fieldIdx := strings.Index(out[structIdx:], "gg_string* name;")
	require.GreaterOrEqual(t, fieldIdx, 0)
	assert.Less(t, vtableIdx, fieldIdx)
}

func TestInstanceMethodTakesSelf(t *testing.T) {
	out := emit(t, animalSource, Options{})
	assert.Contains(t, out, "void Animal_speak(Animal* self);")
	assert.Contains(t, out, "void Animal_eat(Animal* self);")
	assert.Contains(t, out, "void Dog_speak(Dog* self);")
	assert.Contains(t, out, "void Program_main(void);")
}

func TestBaseConstructorChainsBeforeVTableAssignment(t *testing.T) {
	out := emit(t, animalSource, Options{})

	ctor := strings.Index(out, "void Dog_construct(Dog* self, gg_string* name) {")
	require.GreaterOrEqual(t, ctor, 0)
	body := out[ctor:]
	baseCall := strings.Index(body, "Animal_construct((Animal*)self, name);")
	vtable := strings.Index(body, "self->vtable = &Dog_vtable;")
	require.GreaterOrEqual(t, baseCall, 0)
	require.GreaterOrEqual(t, vtable, 0)
	assert.Less(t, baseCall, vtable)
}

func TestFactoryAllocatesAndConstructs(t *testing.T) {
	out := emit(t, animalSource, Options{})
	factory := strings.Index(out, "Dog* Dog_create(gg_string* name) {")
	require.GreaterOrEqual(t, factory, 0)
	body := out[factory:]
	assert.Contains(t, body[:400], "gg_alloc(sizeof(Dog))")
	assert.Contains(t, body[:400], "Dog_construct(self, name);")
}

func TestVTableInstanceAndInheritedThunk(t *testing.T) {
	out := emit(t, animalSource, Options{})

	// Dog overrides speak, so its slot binds directly.
	assert.Contains(t, out, ".speak = Dog_speak,")
	// Cat inherits speak; its slot goes through a casting wrapper.
	assert.Contains(t, out, ".speak = Cat_speak_thunk,")
	assert.Contains(t, out, "static void Cat_speak_thunk(Cat* self) {")
	assert.Contains(t, out, "Animal_speak((Animal*)self);")
}

func TestVirtualCallGoesThroughVTable(t *testing.T) {
	out := emit(t, animalSource, Options{})
	assert.Contains(t, out, "(d)->vtable->speak(d)")
}

func TestNonVirtualCallIsDirect(t *testing.T) {
	source := `
class Greeter {
    void hello() {
        Console.writeLine("hi");
    }
}
class Program {
    static void main() {
        Greeter g = new Greeter();
        g.hello();
    }
}`
	out := emit(t, source, Options{})
	assert.Contains(t, out, "Greeter_hello(g);")
	assert.NotContains(t, out, "vtable->hello")
}

func TestConsoleWriteLineSpecifiers(t *testing.T) {
	source := `
class Program {
    static void main() {
        Console.writeLine(42);
        Console.writeLine("hi");
        Console.writeLine(3.5);
        Console.writeLine(true);
    }
}`
	out := emit(t, source, Options{})
	assert.Contains(t, out, `printf("%lld\n", (long long)(42))`)
	assert.Contains(t, out, `printf("%s\n", "hi")`)
	assert.Contains(t, out, `printf("%g\n", 3.5)`)
	assert.Contains(t, out, `? "true" : "false"`)
}

func TestStringConcatLowering(t *testing.T) {
	source := `
class Program {
    static void main() {
        string s = "a" + "b";
        string u = "n=" + 42;
    }
}`
	out := emit(t, source, Options{})
	assert.Contains(t, out, "gg_string_concat(gg_string_from_cstr(\"a\"), gg_string_from_cstr(\"b\"))")
	assert.Contains(t, out, "gg_int_to_string(42)")
}

func TestMathAndMemoryLowering(t *testing.T) {
	source := `
class Program {
    static void main() {
        var r = Math.sqrt(2.0);
        var p = Memory.alloc(64);
        Memory.free(p);
    }
}`
	out := emit(t, source, Options{})
	assert.Contains(t, out, "gg_math_sqrt(2.0)")
	assert.Contains(t, out, "Memory_alloc(64)")
	assert.Contains(t, out, "Memory_free(p)")
}

func TestExtensionMethodLowering(t *testing.T) {
	source := `
class Program {
    static void main() {
        int value = 7;
        string s = value.toString();
        string big = s.toUpper();
    }
}`
	out := emit(t, source, Options{})
	assert.Contains(t, out, "gg_ext_int_toString(value)")
	assert.Contains(t, out, "gg_ext_string_toUpper(s)")
}

func TestRootFramesAndReferenceRoots(t *testing.T) {
	source := `
class Box {
    int value;
    Box(int value) {}
}
class Program {
    static void main() {
        Box last = new Box(777);
        int n = 3;
        Console.writeLine(n);
    }
}`
	out := emit(t, source, Options{})

	main := strings.Index(out, "void Program_main(void) {")
	require.GreaterOrEqual(t, main, 0)
	body := out[main:]
	assert.Contains(t, body, "size_t __frame = gg_gc_push_root_frame();")
	assert.Contains(t, body, "gg_gc_add_root((void**)&last);")
	assert.NotContains(t, body[:strings.Index(body, "}")+1], "(void**)&n")
	assert.Contains(t, body, "gg_gc_pop_root_frame(__frame);")
}

func TestReferenceParameterIsRooted(t *testing.T) {
	source := `
class Printer {
    void show(string text, int times) {
        Console.writeLine(text);
    }
}`
	out := emit(t, source, Options{})
	show := strings.Index(out, "void Printer_show(")
	require.GreaterOrEqual(t, show, 0)
	body := out[show:]
	assert.Contains(t, body, "gg_gc_add_root((void**)&text);")
	assert.NotContains(t, body, "(void**)&times")
}

func TestWriteBarrierOnReferenceAssignment(t *testing.T) {
	source := `
class Box {}
class Program {
    static void main() {
        Box b = new Box();
        b = new Box();
        int n = 1;
        n = 2;
    }
}`
	out := emit(t, source, Options{})
	assert.Contains(t, out, "gg_gc_write_barrier((void**)&(b), (void*)(b = Box_create()));")
	assert.Contains(t, out, "n = 2;")
	assert.NotContains(t, out, "barrier((void**)&(n)")
}

func TestStringCompoundAssignDesugars(t *testing.T) {
	source := `
class Program {
    static void main() {
        string greeting = "Hello";
        greeting += "!";
        greeting += 5;
        int n = 1;
        n += 2;
    }
}`
	out := emit(t, source, Options{})

	// String += stores a fresh concat result through the write barrier.
	assert.Contains(t, out,
		`gg_gc_write_barrier((void**)&(greeting), (void*)(greeting = gg_string_concat(greeting, gg_string_from_cstr("!"))));`)
	assert.Contains(t, out, "gg_string_concat(greeting, gg_int_to_string(5))")
	// Numeric compound assignment stays a plain C compound assignment.
	assert.Contains(t, out, "n += 2;")
	assert.NotContains(t, out, "greeting +=")
}

func TestReturnPopsRootFrame(t *testing.T) {
	source := `
class Calc {
    int twice(int n) {
        return n * 2;
    }
}`
	out := emit(t, source, Options{})
	fn := strings.Index(out, "int Calc_twice(Calc* self, int n) {")
	require.GreaterOrEqual(t, fn, 0)
	body := out[fn:]
	retIdx := strings.Index(body, "int __ret = (n * 2);")
	popIdx := strings.Index(body, "gg_gc_pop_root_frame(__frame);")
	require.GreaterOrEqual(t, retIdx, 0)
	require.GreaterOrEqual(t, popIdx, 0)
	assert.Less(t, retIdx, popIdx)
}

func TestEntryPointShim(t *testing.T) {
	out := emit(t, animalSource, Options{})
	assert.Contains(t, out, "void gg_user_main(void) {")
	assert.Contains(t, out, "Program_main();")
}

func TestMemoryLimitCall(t *testing.T) {
	out := emit(t, animalSource, Options{MemoryLimit: 1048576})
	entry := strings.Index(out, "void gg_user_main(void) {")
	require.GreaterOrEqual(t, entry, 0)
	body := out[entry:]
	limit := strings.Index(body, "gg_gc_set_memory_limit(1048576);")
	call := strings.Index(body, "Program_main();")
	require.GreaterOrEqual(t, limit, 0)
	assert.Less(t, limit, call)
}

func TestNoGCDefinePrecedesRuntimeHeader(t *testing.T) {
	out := emit(t, animalSource, Options{GCDisabled: true})
	define := strings.Index(out, "#define GG_NO_GC")
	include := strings.Index(out, `#include "gg_runtime.h"`)
	require.GreaterOrEqual(t, define, 0)
	assert.Less(t, define, include)

	plain := emit(t, animalSource, Options{})
	assert.NotContains(t, plain, "#define GG_NO_GC")
}

func TestStaticFieldBecomesGlobal(t *testing.T) {
	source := `
class Counter {
    static int total = 0;

    static void bump() {
        total = total + 1;
    }
}`
	out := emit(t, source, Options{})
	assert.Contains(t, out, "static int Counter_total = 0;")
	assert.Contains(t, out, "Counter_total = (Counter_total + 1);")
}

func TestConstructorBindsSameNamedParams(t *testing.T) {
	source := `
class Box {
    int value;
    Box(int value) {}
}`
	out := emit(t, source, Options{})
	assert.Contains(t, out, "self->value = value;")
}

func TestForeachLowersToIndexedLoop(t *testing.T) {
	source := `
class Program {
    static void main() {
        int[] xs = new int[3];
        foreach (int x in xs) {
            Console.writeLine(x);
        }
    }
}`
	out := emit(t, source, Options{})
	assert.Contains(t, out, "gg_array_length(__seq0)")
	assert.Contains(t, out, "int x = __seq0[__i0];")
}

func TestEmbeddedStructPrefixSharesBaseLayout(t *testing.T) {
	source := `
class Base {
    int a;
    string b;
}
class Derived : Base {
    int c;
}`
	out := emit(t, source, Options{})
	idx := strings.Index(out, "struct Derived {")
	require.GreaterOrEqual(t, idx, 0)
	body := out[idx:strings.Index(out[idx:], "};")+idx]
	aIdx := strings.Index(body, "int a;")
	bIdx := strings.Index(body, "gg_string* b;")
	cIdx := strings.Index(body, "int c;")
	require.GreaterOrEqual(t, aIdx, 0)
	require.GreaterOrEqual(t, bIdx, 0)
	require.GreaterOrEqual(t, cIdx, 0)
	assert.Less(t, aIdx, bIdx)
	assert.Less(t, bIdx, cIdx)
}
