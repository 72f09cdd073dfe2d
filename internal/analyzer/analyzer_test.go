package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termfx/gglang/internal/diag"
	"github.com/termfx/gglang/internal/lexer"
	"github.com/termfx/gglang/internal/parser"
)

func analyze(t *testing.T, source string) (*Analyzer, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag()
	tokens := lexer.New(source, "test.gg", bag).Tokenize()
	unit := parser.New(tokens, bag).ParseCompilationUnit()
	a := New(bag)
	a.Analyze(unit)
	return a, bag
}

func messages(bag *diag.Bag, severity diag.Severity) []string {
	var out []string
	for _, d := range bag.All() {
		if d.Severity == severity {
			out = append(out, d.Message)
		}
	}
	return out
}

func TestDuplicateTypeNames(t *testing.T) {
	_, bag := analyze(t, `
class A {}
class A {}
class A {}`)
	errs := messages(bag, diag.Error)
	require.Len(t, errs, 2, "one error per extra declaration")
	assert.Contains(t, errs[0], "'A' is already declared")
}

func TestUndefinedBaseClass(t *testing.T) {
	_, bag := analyze(t, `class Dog : Animal {}`)
	errs := messages(bag, diag.Error)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "undefined base class 'Animal'")
}

func TestInheritedMembersAreCopied(t *testing.T) {
	a, bag := analyze(t, `
class Animal {
    string name;
    void eat() {}
    virtual void speak() {}
}

class Dog : Animal {
    int age;
    override void speak() {}
}`)
	require.False(t, bag.HasErrors())

	dog := a.Classes()["Dog"]
	require.NotNil(t, dog)

	assert.Contains(t, dog.Fields, "name")
	assert.Contains(t, dog.Fields, "age")
	assert.Equal(t, []string{"name", "age"}, dog.FieldOrder, "base fields first")

	assert.Contains(t, dog.Methods, "eat")
	assert.Equal(t, "Animal", dog.Methods["eat"].DeclaredIn)
	assert.Equal(t, "Dog", dog.Methods["speak"].DeclaredIn, "override wins")
}

func TestInheritanceChainIsTransitive(t *testing.T) {
	a, bag := analyze(t, `
class A { int x; }
class B : A { int y; }
class C : B { int z; }`)
	require.False(t, bag.HasErrors())

	c := a.Classes()["C"]
	assert.Equal(t, []string{"x", "y", "z"}, c.FieldOrder)
}

func TestInheritanceCycleDoesNotRecurseForever(t *testing.T) {
	_, bag := analyze(t, `
class A : B {}
class B : A {}`)
	// The cycle is neutralized; both bases exist so no undefined-base
	// error fires.
	assert.False(t, bag.HasErrors())
}

func TestDerivedFieldShadowsBase(t *testing.T) {
	a, bag := analyze(t, `
class Base { string label; }
class Derived : Base { string label; }`)
	require.False(t, bag.HasErrors())
	derived := a.Classes()["Derived"]
	assert.Equal(t, "Derived", derived.Fields["label"].DeclaredIn)
	assert.Equal(t, []string{"label"}, derived.FieldOrder)
}

func TestDuplicateField(t *testing.T) {
	_, bag := analyze(t, `
class A {
    int x;
    int x;
}`)
	errs := messages(bag, diag.Error)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "duplicate field 'x'")
}

func TestDuplicateMethodKeepsFirst(t *testing.T) {
	a, bag := analyze(t, `
class A {
    int value() { return 1; }
    string value() { return "s"; }
}`)
	assert.False(t, bag.HasErrors())
	assert.Equal(t, "int", a.Classes()["A"].Methods["value"].ReturnType.Name)
}

func TestDuplicateParameter(t *testing.T) {
	_, bag := analyze(t, `
class A {
    void f(int a, string a) {}
}`)
	errs := messages(bag, diag.Error)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "duplicate parameter 'a'")
}

func TestTypeMismatchOnTypedInitializer(t *testing.T) {
	_, bag := analyze(t, `
class Program {
    static void main() {
        int a = "teste";
    }
}`)
	errs := messages(bag, diag.Error)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "string")
	assert.Contains(t, errs[0], "int")
	assert.Contains(t, errs[0], "cast")
}

func TestNumericWidening(t *testing.T) {
	_, bag := analyze(t, `
class Program {
    static void main() {
        double d = 42;
        long l = 7;
        int n = 3;
    }
}`)
	assert.Equal(t, 0, bag.Len(), "widening produces no diagnostics: %v", bag.All())
}

func TestNarrowingIsRejected(t *testing.T) {
	_, bag := analyze(t, `
class Program {
    static void main() {
        int n = 3.5;
    }
}`)
	errs := messages(bag, diag.Error)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "double")
	assert.Contains(t, errs[0], "int")
}

func TestNullInitializerFitsReferenceTypes(t *testing.T) {
	_, bag := analyze(t, `
class Box {}
class Program {
    static void main() {
        Box b = null;
    }
}`)
	assert.False(t, bag.HasErrors(), "diagnostics: %v", bag.All())
}

func TestArrayFlagMismatch(t *testing.T) {
	_, bag := analyze(t, `
class Program {
    static void main() {
        int[] xs = 3;
    }
}`)
	require.True(t, bag.HasErrors())
}

func TestMissingTypeAndInitializer(t *testing.T) {
	_, bag := analyze(t, `
class Program {
    static void main() {
        var x;
    }
}`)
	errs := messages(bag, diag.Error)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "type or an initializer")
}

func TestDuplicateVariableInScope(t *testing.T) {
	_, bag := analyze(t, `
class Program {
    static void main() {
        int x = 1;
        int x = 2;
    }
}`)
	errs := messages(bag, diag.Error)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "'x' is already declared")
}

func TestShadowingInNestedBlockIsAllowed(t *testing.T) {
	_, bag := analyze(t, `
class Program {
    static void main() {
        int x = 1;
        {
            int x = 2;
        }
    }
}`)
	assert.False(t, bag.HasErrors(), "diagnostics: %v", bag.All())
}

func TestUndefinedIdentifierIsAWarning(t *testing.T) {
	_, bag := analyze(t, `
class Program {
    static void main() {
        Console.writeLine(mystery);
    }
}`)
	assert.False(t, bag.HasErrors())
	warns := messages(bag, diag.Warning)
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0], "undefined identifier 'mystery'")
}

func TestBuiltinClassesAreKnown(t *testing.T) {
	_, bag := analyze(t, `
class Program {
    static void main() {
        Console.writeLine("hi");
        var r = Math.sqrt(2.0);
        var p = Memory.alloc(16);
    }
}`)
	assert.False(t, bag.HasErrors())
	assert.Empty(t, messages(bag, diag.Warning))
}

func TestUnknownTypeInNew(t *testing.T) {
	_, bag := analyze(t, `
class Program {
    static void main() {
        var x = new Widget();
    }
}`)
	warns := messages(bag, diag.Warning)
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0], "unknown type 'Widget'")
}

func TestLibraryAnnotationArity(t *testing.T) {
	t.Run("one argument is an error", func(t *testing.T) {
		_, bag := analyze(t, `
[@Library("M")]
class M {}`)
		errs := messages(bag, diag.Error)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "Library")
	})

	t.Run("two arguments pass", func(t *testing.T) {
		_, bag := analyze(t, `
[@Library("M", "1.0")]
class M {}`)
		assert.False(t, bag.HasErrors())
	})
}

func TestUnknownAnnotationIsSilent(t *testing.T) {
	_, bag := analyze(t, `
[@Experimental("anything", 1, true)]
class M {}`)
	assert.Equal(t, 0, bag.Len())
}

func TestRemovedClassErrorsAtDeclarationAndUse(t *testing.T) {
	_, bag := analyze(t, `
[@Removed("gone", "3.0")]
class Legacy {}

class Program {
    static void main() {
        var a = new Legacy();
        var b = new Legacy();
    }
}`)
	errs := messages(bag, diag.Error)
	require.Len(t, errs, 3, "one at the declaration, one per use: %v", errs)
	assert.Contains(t, errs[0], "Legacy")
}

func TestDeprecatedClassInfoAndWarning(t *testing.T) {
	_, bag := analyze(t, `
[@Deprecated("use Modern")]
class Old {}

class Program {
    static void main() {
        var a = new Old();
    }
}`)
	assert.False(t, bag.HasErrors())
	infos := messages(bag, diag.Info)
	require.Len(t, infos, 1)
	assert.Contains(t, infos[0], "deprecated")

	warns := messages(bag, diag.Warning)
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0], "Old")
	assert.Contains(t, warns[0], "use Modern")
}

func TestDeprecatedMethodUseSite(t *testing.T) {
	_, bag := analyze(t, `
class Service {
    [@Deprecated]
    void oldCall() {}
    void newCall() {}
}

class Program {
    static void main() {
        Service s = new Service();
        s.oldCall();
        s.newCall();
    }
}`)
	assert.False(t, bag.HasErrors())
	warns := messages(bag, diag.Warning)
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0], "Service.oldCall")
}

func TestRemovedMethodUseSiteViaThis(t *testing.T) {
	_, bag := analyze(t, `
class Service {
    [@Removed]
    void gone() {}

    void caller() {
        this.gone();
    }
}`)
	errs := messages(bag, diag.Error)
	require.Len(t, errs, 2, "declaration plus use site: %v", errs)
}

func TestDeprecatedAndRemovedTogether(t *testing.T) {
	_, bag := analyze(t, `
[@Deprecated]
[@Removed]
class Conflicted {}`)
	errs := messages(bag, diag.Error)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "both")
}

func TestAnnotationArityTable(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantErr bool
	}{
		{"Test with no args", "[@Test]\nclass A {}", false},
		{"Test with args", "[@Test(1)]\nclass A {}", true},
		{"Deprecated zero args", "[@Deprecated]\nclass A {}", false},
		{"Deprecated two args", `[@Deprecated("m", "1.0")]` + "\nclass A {}", false},
		{"Deprecated three args", `[@Deprecated("m", "1.0", "x")]` + "\nclass A {}", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, bag := analyze(t, tt.source)
			assert.Equal(t, tt.wantErr, bag.HasErrors(), "diagnostics: %v", bag.All())
		})
	}
}

func TestAnalyzerAlwaysRunsToCompletion(t *testing.T) {
	// Multiple independent problems must all surface in one run.
	_, bag := analyze(t, `
class Dup {}
class Dup {}

class Orphan : Missing {}

class Program {
    static void main() {
        int bad = "text";
    }
}`)
	errs := messages(bag, diag.Error)
	assert.Len(t, errs, 3)
}
