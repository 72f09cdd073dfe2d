package ast

import (
	"fmt"
	"strings"
)

// Printer renders an AST back to source text. The output parses to an
// equivalent tree, which makes the printer usable for round-trip tests
// and for normalizing formatting.
type Printer struct {
	buffer      *strings.Builder
	indentLevel int
	space       string
}

func NewPrinter() *Printer {
	return &Printer{
		buffer: &strings.Builder{},
		space:  "    ",
	}
}

// Print renders a full compilation unit.
func Print(unit *CompilationUnit) string {
	p := NewPrinter()
	p.printUnit(unit)
	return p.buffer.String()
}

// ExprString renders a single expression. String literals render bare,
// without quotes, so annotation arguments read naturally.
func ExprString(e Expr) string {
	if s, ok := e.(*StringLiteral); ok {
		return s.Value
	}
	p := NewPrinter()
	p.printExpr(e)
	return p.buffer.String()
}

func (p *Printer) indent()   { p.indentLevel++ }
func (p *Printer) unindent() { p.indentLevel-- }

func (p *Printer) writeIndent() {
	for i := 0; i < p.indentLevel; i++ {
		p.buffer.WriteString(p.space)
	}
}

func (p *Printer) write(s string)  { p.buffer.WriteString(s) }
func (p *Printer) writei(s string) { p.writeIndent(); p.write(s) }
func (p *Printer) writel(s string) { p.write(s); p.write("\n") }

func (p *Printer) printUnit(unit *CompilationUnit) {
	if unit.Module != nil {
		p.writel("module " + unit.Module.Name + ";")
	}
	for _, imp := range unit.Imports {
		p.writel("import " + imp.Name + ";")
	}
	for i, t := range unit.Types {
		if i > 0 || unit.Module != nil || len(unit.Imports) > 0 {
			p.write("\n")
		}
		p.printDecl(t)
	}
}

func (p *Printer) printDecl(d Decl) {
	switch n := d.(type) {
	case *ClassDecl:
		p.printClass(n)
	case *InterfaceDecl:
		p.printInterface(n)
	case *EnumDecl:
		p.printEnum(n)
	default:
		panic(fmt.Sprintf("printer: unknown declaration %T", d))
	}
}

func (p *Printer) printAnnotations(anns []*Annotation) {
	for _, a := range anns {
		p.writei("[@" + a.Name)
		if len(a.Args) > 0 {
			p.write("(")
			for i, arg := range a.Args {
				if i > 0 {
					p.write(", ")
				}
				p.printExpr(arg)
			}
			p.write(")")
		}
		p.writel("]")
	}
}

func (p *Printer) printClass(c *ClassDecl) {
	p.printAnnotations(c.Annotations)
	p.writeIndent()
	if c.Access != "" {
		p.write(c.Access + " ")
	}
	if c.IsStatic {
		p.write("static ")
	}
	if c.IsAbstract {
		p.write("abstract ")
	}
	if c.IsSealed {
		p.write("sealed ")
	}
	p.write("class " + c.Name)
	if c.BaseClass != "" || len(c.Interfaces) > 0 {
		p.write(" : ")
		names := []string{}
		if c.BaseClass != "" {
			names = append(names, c.BaseClass)
		}
		names = append(names, c.Interfaces...)
		p.write(strings.Join(names, ", "))
	}
	p.writel(" {")
	p.indent()
	for _, f := range c.Fields {
		p.printField(f)
	}
	for _, ctor := range c.Constructors {
		p.printConstructor(ctor)
	}
	for _, m := range c.Methods {
		p.printMethod(m)
	}
	p.unindent()
	p.writei("")
	p.writel("}")
}

func (p *Printer) printInterface(d *InterfaceDecl) {
	p.printAnnotations(d.Annotations)
	p.writeIndent()
	if d.Access != "" {
		p.write(d.Access + " ")
	}
	p.writel("interface " + d.Name + " {")
	p.indent()
	for _, m := range d.Methods {
		p.printMethod(m)
	}
	p.unindent()
	p.writei("")
	p.writel("}")
}

func (p *Printer) printEnum(d *EnumDecl) {
	p.printAnnotations(d.Annotations)
	p.writeIndent()
	if d.Access != "" {
		p.write(d.Access + " ")
	}
	p.writel("enum " + d.Name + " {")
	p.indent()
	for i, v := range d.Values {
		p.writei(v)
		if i < len(d.Values)-1 {
			p.write(",")
		}
		p.write("\n")
	}
	p.unindent()
	p.writei("")
	p.writel("}")
}

func (p *Printer) printField(f *FieldDecl) {
	p.printAnnotations(f.Annotations)
	p.writeIndent()
	if f.Access != "" {
		p.write(f.Access + " ")
	}
	if f.IsStatic {
		p.write("static ")
	}
	if f.IsReadonly {
		p.write("readonly ")
	}
	p.write(p.typeRef(f.Type) + " " + f.Name)
	if f.Initializer != nil {
		p.write(" = ")
		p.printExpr(f.Initializer)
	}
	p.writel(";")
}

func (p *Printer) printConstructor(c *ConstructorDecl) {
	p.printAnnotations(c.Annotations)
	p.writeIndent()
	if c.Access != "" {
		p.write(c.Access + " ")
	}
	p.write(c.Name + "(")
	p.printParams(c.Params)
	p.write(")")
	if c.HasBaseCall {
		p.write(" : base(")
		for i, a := range c.BaseArgs {
			if i > 0 {
				p.write(", ")
			}
			p.printExpr(a)
		}
		p.write(")")
	}
	p.write(" ")
	p.printBlock(c.Body)
	p.write("\n")
}

func (p *Printer) printMethod(m *MethodDecl) {
	p.printAnnotations(m.Annotations)
	p.writeIndent()
	if m.Access != "" {
		p.write(m.Access + " ")
	}
	if m.IsStatic {
		p.write("static ")
	}
	if m.IsAbstract {
		p.write("abstract ")
	}
	if m.IsVirtual {
		p.write("virtual ")
	}
	if m.IsOverride {
		p.write("override ")
	}
	if m.IsSealed {
		p.write("sealed ")
	}
	p.write(p.typeRef(m.ReturnType) + " " + m.Name + "(")
	p.printParams(m.Params)
	p.write(")")
	if m.Body == nil {
		p.writel(";")
		return
	}
	p.write(" ")
	p.printBlock(m.Body)
	p.write("\n")
}

func (p *Printer) printParams(params []*Param) {
	for i, param := range params {
		if i > 0 {
			p.write(", ")
		}
		p.write(p.typeRef(param.Type) + " " + param.Name)
	}
}

func (p *Printer) typeRef(t *TypeRef) string {
	if t == nil {
		return "var"
	}
	s := t.Name
	if len(t.GenericArgs) > 0 {
		parts := make([]string, len(t.GenericArgs))
		for i, g := range t.GenericArgs {
			parts[i] = p.typeRef(g)
		}
		s += "<" + strings.Join(parts, ", ") + ">"
	}
	if t.IsArray {
		s += "[]"
	}
	if t.Nullable {
		s += "?"
	}
	return s
}

func (p *Printer) printBlock(b *BlockStmt) {
	p.writel("{")
	p.indent()
	for _, s := range b.Statements {
		p.printStmt(s)
	}
	p.unindent()
	p.writei("}")
}

func (p *Printer) printStmt(s Stmt) {
	switch n := s.(type) {
	case *BlockStmt:
		p.writeIndent()
		p.printBlock(n)
		p.write("\n")
	case *VarDeclStmt:
		p.writeIndent()
		if n.Inferred {
			p.write("var " + n.Name)
		} else {
			p.write(p.typeRef(n.Type) + " " + n.Name)
		}
		if n.Initializer != nil {
			p.write(" = ")
			p.printExpr(n.Initializer)
		}
		p.writel(";")
	case *ExprStmt:
		p.writeIndent()
		p.printExpr(n.Expr)
		p.writel(";")
	case *IfStmt:
		p.writei("if (")
		p.printExpr(n.Condition)
		p.write(") ")
		p.printEmbedded(n.Then)
		if n.Else != nil {
			p.write(" else ")
			p.printEmbedded(n.Else)
		}
		p.write("\n")
	case *WhileStmt:
		p.writei("while (")
		p.printExpr(n.Condition)
		p.write(") ")
		p.printEmbedded(n.Body)
		p.write("\n")
	case *ForStmt:
		p.writei("for (")
		if n.Init != nil {
			p.printInlineStmt(n.Init)
		}
		p.write("; ")
		if n.Condition != nil {
			p.printExpr(n.Condition)
		}
		p.write("; ")
		if n.Step != nil {
			p.printExpr(n.Step)
		}
		p.write(") ")
		p.printEmbedded(n.Body)
		p.write("\n")
	case *ForeachStmt:
		p.writei("foreach (")
		if n.VarType != nil {
			p.write(p.typeRef(n.VarType) + " ")
		} else {
			p.write("var ")
		}
		p.write(n.VarName + " in ")
		p.printExpr(n.Iterable)
		p.write(") ")
		p.printEmbedded(n.Body)
		p.write("\n")
	case *ReturnStmt:
		p.writei("return")
		if n.Value != nil {
			p.write(" ")
			p.printExpr(n.Value)
		}
		p.writel(";")
	case *BreakStmt:
		p.writei("break")
		p.writel(";")
	case *ContinueStmt:
		p.writei("continue")
		p.writel(";")
	default:
		panic(fmt.Sprintf("printer: unknown statement %T", s))
	}
}

// printEmbedded renders a statement used as a loop or branch body,
// keeping blocks on the same line.
func (p *Printer) printEmbedded(s Stmt) {
	if b, ok := s.(*BlockStmt); ok {
		p.printBlock(b)
		return
	}
	p.write("\n")
	p.indent()
	p.printStmt(s)
	p.unindent()
	p.writei("")
}

// printInlineStmt renders a statement without indentation or the
// trailing newline, for `for` initializers.
func (p *Printer) printInlineStmt(s Stmt) {
	switch n := s.(type) {
	case *VarDeclStmt:
		if n.Inferred {
			p.write("var " + n.Name)
		} else {
			p.write(p.typeRef(n.Type) + " " + n.Name)
		}
		if n.Initializer != nil {
			p.write(" = ")
			p.printExpr(n.Initializer)
		}
	case *ExprStmt:
		p.printExpr(n.Expr)
	}
}

func (p *Printer) printExpr(e Expr) {
	switch n := e.(type) {
	case *IntLiteral:
		p.write(n.Value)
	case *FloatLiteral:
		p.write(n.Value)
	case *StringLiteral:
		p.write("\"" + escapeString(n.Value) + "\"")
	case *CharLiteral:
		p.write("'" + escapeChar(n.Value) + "'")
	case *BoolLiteral:
		if n.Value {
			p.write("true")
		} else {
			p.write("false")
		}
	case *NullLiteral:
		p.write("null")
	case *IdentifierExpr:
		p.write(n.Name)
	case *UnaryExpr:
		p.write(n.Operator)
		p.printExpr(n.Operand)
	case *PostfixExpr:
		p.printExpr(n.Operand)
		p.write(n.Operator)
	case *BinaryExpr:
		p.write("(")
		p.printExpr(n.Left)
		p.write(" " + n.Operator + " ")
		p.printExpr(n.Right)
		p.write(")")
	case *AssignExpr:
		p.printExpr(n.Target)
		p.write(" " + n.Operator + " ")
		p.printExpr(n.Value)
	case *CallExpr:
		p.printExpr(n.Callee)
		p.write("(")
		for i, a := range n.Args {
			if i > 0 {
				p.write(", ")
			}
			p.printExpr(a)
		}
		p.write(")")
	case *MemberAccessExpr:
		p.printExpr(n.Target)
		p.write("." + n.Name)
	case *NewExpr:
		p.write("new " + n.TypeName + "(")
		for i, a := range n.Args {
			if i > 0 {
				p.write(", ")
			}
			p.printExpr(a)
		}
		p.write(")")
	case *NewArrayExpr:
		p.write("new " + n.ElementType + "[")
		p.printExpr(n.Size)
		p.write("]")
	case *IndexExpr:
		p.printExpr(n.Target)
		p.write("[")
		p.printExpr(n.Index)
		p.write("]")
	case *CastExpr:
		p.printExpr(n.Target)
		p.write(" as " + p.typeRef(n.Type))
	case *ThisExpr:
		p.write("this")
	case *BaseExpr:
		p.write("base")
	default:
		panic(fmt.Sprintf("printer: unknown expression %T", e))
	}
}

func escapeString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\n':
			b.WriteString("\\n")
		case '\t':
			b.WriteString("\\t")
		case '\r':
			b.WriteString("\\r")
		case '\\':
			b.WriteString("\\\\")
		case '"':
			b.WriteString("\\\"")
		case 0:
			b.WriteString("\\0")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func escapeChar(s string) string {
	switch s {
	case "\n":
		return "\\n"
	case "\t":
		return "\\t"
	case "\r":
		return "\\r"
	case "\\":
		return "\\\\"
	case "'":
		return "\\'"
	case "\x00":
		return "\\0"
	}
	return s
}
