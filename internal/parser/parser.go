package parser

import (
	"strings"

	"github.com/termfx/gglang/internal/ast"
	"github.com/termfx/gglang/internal/diag"
	"github.com/termfx/gglang/internal/token"
)

// Parser builds the AST by recursive descent with bounded lookahead.
// All context-sensitive decisions (constructor vs method vs field,
// typed local vs expression statement) live here, each needing at most
// three tokens of lookahead.
type Parser struct {
	tokens []token.Token
	pos    int
	bag    *diag.Bag
}

func New(tokens []token.Token, bag *diag.Bag) *Parser {
	return &Parser{tokens: tokens, bag: bag}
}

func (p *Parser) current() token.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF sentinel
	}
	return p.tokens[p.pos]
}

func (p *Parser) peek(offset int) token.Token {
	if p.pos+offset >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+offset]
}

func (p *Parser) check(kind token.Kind) bool { return p.current().Kind == kind }

func (p *Parser) advance() token.Token {
	t := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) match(kind token.Kind) bool {
	if p.check(kind) {
		p.advance()
		return true
	}
	return false
}

// expect consumes a token of the given kind. On mismatch it reports a
// diagnostic and leaves the cursor where it is, so the caller resumes
// at the unexpected token.
func (p *Parser) expect(kind token.Kind) (token.Token, bool) {
	t := p.current()
	if t.Kind == kind {
		return p.advance(), true
	}
	p.bag.Errorf(t.Line, t.Column, "expected '%s' but got '%s'", kind, t.Kind)
	return t, false
}

func (p *Parser) posOf(t token.Token) ast.Pos {
	return ast.Pos{Line: t.Line, Column: t.Column}
}

// ParseCompilationUnit parses the whole token stream: optional module
// declaration, imports, then type declarations until end of file.
func (p *Parser) ParseCompilationUnit() *ast.CompilationUnit {
	unit := &ast.CompilationUnit{Pos: p.posOf(p.current())}

	if p.check(token.KwModule) {
		start := p.advance()
		name := p.parseDottedName()
		p.expect(token.Semicolon)
		unit.Module = &ast.ModuleDecl{Pos: p.posOf(start), Name: name}
	}

	for p.check(token.KwImport) {
		start := p.advance()
		name := p.parseDottedName()
		p.expect(token.Semicolon)
		unit.Imports = append(unit.Imports, &ast.ImportDecl{Pos: p.posOf(start), Name: name})
	}

	for !p.check(token.EOF) {
		before := p.pos
		if decl := p.parseTypeDeclaration(); decl != nil {
			unit.Types = append(unit.Types, decl)
		}
		if p.pos == before {
			// No progress; skip one token to find the next boundary.
			p.advance()
		}
	}
	return unit
}

func (p *Parser) parseDottedName() string {
	name, _ := p.expect(token.Identifier)
	parts := []string{name.Value}
	for p.check(token.Dot) && p.peek(1).Kind == token.Identifier {
		p.advance()
		part := p.advance()
		parts = append(parts, part.Value)
	}
	return strings.Join(parts, ".")
}

type modifierSet struct {
	isStatic   bool
	isAbstract bool
	isVirtual  bool
	isOverride bool
	isSealed   bool
	isReadonly bool
}

func (p *Parser) parseAccessModifier() string {
	switch p.current().Kind {
	case token.KwPublic, token.KwPrivate, token.KwProtected:
		return p.advance().Value
	}
	return ""
}

func (p *Parser) parseModifiers() modifierSet {
	var m modifierSet
	for {
		switch p.current().Kind {
		case token.KwStatic:
			m.isStatic = true
		case token.KwAbstract:
			m.isAbstract = true
		case token.KwVirtual:
			m.isVirtual = true
		case token.KwOverride:
			m.isOverride = true
		case token.KwSealed:
			m.isSealed = true
		case token.KwReadonly:
			m.isReadonly = true
		default:
			return m
		}
		p.advance()
	}
}

// parseAnnotations reads zero or more [@Name(args...)] markers. The @
// right after the [ is what distinguishes an annotation from an index
// or array expression, so a single-token peek settles it.
func (p *Parser) parseAnnotations() []*ast.Annotation {
	var anns []*ast.Annotation
	for p.check(token.LBracket) && p.peek(1).Kind == token.At {
		start := p.advance() // [
		p.advance()          // @
		name, _ := p.expect(token.Identifier)
		a := &ast.Annotation{Pos: p.posOf(start), Name: name.Value}
		if p.match(token.LParen) {
			if !p.check(token.RParen) {
				a.Args = append(a.Args, p.parseExpression())
				for p.match(token.Comma) {
					a.Args = append(a.Args, p.parseExpression())
				}
			}
			p.expect(token.RParen)
		}
		p.expect(token.RBracket)
		anns = append(anns, a)
	}
	return anns
}

func (p *Parser) parseTypeDeclaration() ast.Decl {
	anns := p.parseAnnotations()
	access := p.parseAccessModifier()
	mods := p.parseModifiers()

	switch p.current().Kind {
	case token.KwClass:
		return p.parseClass(anns, access, mods)
	case token.KwInterface:
		return p.parseInterface(anns, access)
	case token.KwEnum:
		return p.parseEnum(anns, access)
	}

	t := p.current()
	p.bag.Errorf(t.Line, t.Column, "unexpected token '%s' at top level", t.Kind)
	p.advance()
	return nil
}

func (p *Parser) parseClass(anns []*ast.Annotation, access string, mods modifierSet) *ast.ClassDecl {
	start := p.advance() // class
	name, _ := p.expect(token.Identifier)
	decl := &ast.ClassDecl{
		Pos:         p.posOf(start),
		Name:        name.Value,
		Annotations: anns,
		Access:      access,
		IsAbstract:  mods.isAbstract,
		IsSealed:    mods.isSealed,
		IsStatic:    mods.isStatic,
	}

	if p.match(token.Colon) {
		base, _ := p.expect(token.Identifier)
		decl.BaseClass = base.Value
		for p.match(token.Comma) {
			iface, ok := p.expect(token.Identifier)
			if !ok {
				break
			}
			decl.Interfaces = append(decl.Interfaces, iface.Value)
		}
	}

	p.expect(token.LBrace)
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		before := p.pos
		p.parseClassMember(decl)
		if p.pos == before {
			p.advance()
		}
	}
	p.expect(token.RBrace)
	return decl
}

// parseClassMember settles the constructor / method / field ambiguity:
// an identifier equal to the class name directly followed by an open
// paren is a constructor; anything that starts a type reference is a
// method when a paren follows the member name, and a field otherwise.
func (p *Parser) parseClassMember(class *ast.ClassDecl) {
	anns := p.parseAnnotations()
	access := p.parseAccessModifier()
	mods := p.parseModifiers()

	if p.check(token.Identifier) && p.current().Value == class.Name && p.peek(1).Kind == token.LParen {
		class.Constructors = append(class.Constructors, p.parseConstructor(anns, access))
		return
	}

	if !p.startsType() {
		t := p.current()
		p.bag.Errorf(t.Line, t.Column, "unexpected token '%s' in class body", t.Kind)
		p.advance()
		return
	}

	typeRef := p.parseTypeRef()
	name, ok := p.expect(token.Identifier)
	if !ok {
		return
	}

	if p.check(token.LParen) {
		class.Methods = append(class.Methods, p.parseMethod(anns, access, mods, typeRef, name))
		return
	}

	field := &ast.FieldDecl{
		Pos:         p.posOf(name),
		Name:        name.Value,
		Type:        typeRef,
		Annotations: anns,
		Access:      access,
		IsStatic:    mods.isStatic,
		IsReadonly:  mods.isReadonly,
	}
	if p.match(token.Assign) {
		field.Initializer = p.parseExpression()
	}
	p.expect(token.Semicolon)
	class.Fields = append(class.Fields, field)
}

func (p *Parser) startsType() bool {
	return p.current().Kind.IsTypeKeyword() || p.check(token.Identifier)
}

// parseTypeRef reads a committed type position: a (possibly dotted)
// name, optional generic arguments, an optional [] marker and an
// optional ? marker. Generic arguments are recognized syntactically
// only.
func (p *Parser) parseTypeRef() *ast.TypeRef {
	start := p.current()
	var name string
	if start.Kind.IsTypeKeyword() {
		name = p.advance().Value
	} else {
		name = p.parseDottedName()
	}
	ref := &ast.TypeRef{Pos: p.posOf(start), Name: name}

	if p.check(token.Less) {
		p.advance()
		ref.GenericArgs = append(ref.GenericArgs, p.parseTypeRef())
		for p.match(token.Comma) {
			ref.GenericArgs = append(ref.GenericArgs, p.parseTypeRef())
		}
		p.expect(token.Greater)
	}

	if p.check(token.LBracket) && p.peek(1).Kind == token.RBracket {
		p.advance()
		p.advance()
		ref.IsArray = true
	}
	if p.match(token.Question) {
		ref.Nullable = true
	}
	return ref
}

func (p *Parser) parseParams() []*ast.Param {
	var params []*ast.Param
	p.expect(token.LParen)
	for !p.check(token.RParen) && !p.check(token.EOF) {
		typeRef := p.parseTypeRef()
		name, ok := p.expect(token.Identifier)
		if !ok {
			break
		}
		params = append(params, &ast.Param{Pos: p.posOf(name), Name: name.Value, Type: typeRef})
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RParen)
	return params
}

func (p *Parser) parseConstructor(anns []*ast.Annotation, access string) *ast.ConstructorDecl {
	name := p.advance()
	ctor := &ast.ConstructorDecl{
		Pos:         p.posOf(name),
		Name:        name.Value,
		Annotations: anns,
		Access:      access,
	}
	ctor.Params = p.parseParams()

	if p.match(token.Colon) {
		p.expect(token.KwBase)
		p.expect(token.LParen)
		ctor.HasBaseCall = true
		if !p.check(token.RParen) {
			ctor.BaseArgs = append(ctor.BaseArgs, p.parseExpression())
			for p.match(token.Comma) {
				ctor.BaseArgs = append(ctor.BaseArgs, p.parseExpression())
			}
		}
		p.expect(token.RParen)
	}

	ctor.Body = p.parseBlock()
	return ctor
}

func (p *Parser) parseMethod(anns []*ast.Annotation, access string, mods modifierSet, ret *ast.TypeRef, name token.Token) *ast.MethodDecl {
	m := &ast.MethodDecl{
		Pos:         p.posOf(name),
		Name:        name.Value,
		ReturnType:  ret,
		Annotations: anns,
		Access:      access,
		IsStatic:    mods.isStatic,
		IsAbstract:  mods.isAbstract,
		IsVirtual:   mods.isVirtual,
		IsOverride:  mods.isOverride,
		IsSealed:    mods.isSealed,
	}
	m.Params = p.parseParams()

	if m.IsAbstract || p.check(token.Semicolon) {
		p.match(token.Semicolon)
		return m
	}
	m.Body = p.parseBlock()
	return m
}

func (p *Parser) parseInterface(anns []*ast.Annotation, access string) *ast.InterfaceDecl {
	start := p.advance() // interface
	name, _ := p.expect(token.Identifier)
	decl := &ast.InterfaceDecl{
		Pos:         p.posOf(start),
		Name:        name.Value,
		Annotations: anns,
		Access:      access,
	}
	p.expect(token.LBrace)
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		before := p.pos
		memberAnns := p.parseAnnotations()
		memberAccess := p.parseAccessModifier()
		mods := p.parseModifiers()
		if p.startsType() {
			ret := p.parseTypeRef()
			memberName, ok := p.expect(token.Identifier)
			if ok {
				decl.Methods = append(decl.Methods, p.parseMethod(memberAnns, memberAccess, mods, ret, memberName))
			}
		}
		if p.pos == before {
			p.advance()
		}
	}
	p.expect(token.RBrace)
	return decl
}

func (p *Parser) parseEnum(anns []*ast.Annotation, access string) *ast.EnumDecl {
	start := p.advance() // enum
	name, _ := p.expect(token.Identifier)
	decl := &ast.EnumDecl{
		Pos:         p.posOf(start),
		Name:        name.Value,
		Annotations: anns,
		Access:      access,
	}
	p.expect(token.LBrace)
	for p.check(token.Identifier) {
		value := p.advance()
		decl.Values = append(decl.Values, value.Value)
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RBrace)
	return decl
}

// ---------------------------------------------------------------------------
// Statements

func (p *Parser) parseBlock() *ast.BlockStmt {
	start, _ := p.expect(token.LBrace)
	block := &ast.BlockStmt{Pos: p.posOf(start)}
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		before := p.pos
		if stmt := p.parseStatement(); stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		if p.pos == before {
			p.advance()
		}
	}
	p.expect(token.RBrace)
	return block
}

func (p *Parser) parseStatement() ast.Stmt {
	t := p.current()
	switch t.Kind {
	case token.LBrace:
		return p.parseBlock()
	case token.KwVar:
		return p.parseVarDecl()
	case token.KwIf:
		return p.parseIf()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwFor:
		return p.parseFor()
	case token.KwForeach:
		return p.parseForeach()
	case token.KwReturn:
		p.advance()
		stmt := &ast.ReturnStmt{Pos: p.posOf(t)}
		if !p.check(token.Semicolon) {
			stmt.Value = p.parseExpression()
		}
		p.expect(token.Semicolon)
		return stmt
	case token.KwBreak:
		p.advance()
		p.expect(token.Semicolon)
		return &ast.BreakStmt{Pos: p.posOf(t)}
	case token.KwContinue:
		p.advance()
		p.expect(token.Semicolon)
		return &ast.ContinueStmt{Pos: p.posOf(t)}
	}

	if p.startsLocalDeclaration() {
		return p.parseTypedDecl()
	}

	expr := p.parseExpression()
	p.expect(token.Semicolon)
	return &ast.ExprStmt{Pos: p.posOf(t), Expr: expr}
}

// startsLocalDeclaration decides, with at most a two-token peek,
// whether the statement at the cursor is a typed local declaration:
//
//	int x ...        primitive keyword + identifier
//	Dog d ...        identifier + identifier
//	Dog[] pack ...   identifier + [ + ] exactly
//
// Everything else starting with an identifier is an expression
// statement (call, member access, assignment).
func (p *Parser) startsLocalDeclaration() bool {
	t := p.current()
	if t.Kind.IsTypeKeyword() {
		return p.peek(1).Kind == token.Identifier ||
			(p.peek(1).Kind == token.LBracket && p.peek(2).Kind == token.RBracket)
	}
	if t.Kind != token.Identifier {
		return false
	}
	if p.peek(1).Kind == token.Identifier {
		return true
	}
	return p.peek(1).Kind == token.LBracket && p.peek(2).Kind == token.RBracket
}

func (p *Parser) parseVarDecl() ast.Stmt {
	start := p.advance() // var
	name, _ := p.expect(token.Identifier)
	stmt := &ast.VarDeclStmt{Pos: p.posOf(start), Name: name.Value, Inferred: true}
	if p.match(token.Assign) {
		stmt.Initializer = p.parseExpression()
	}
	p.expect(token.Semicolon)
	return stmt
}

func (p *Parser) parseTypedDecl() ast.Stmt {
	start := p.current()
	typeRef := p.parseTypeRef()
	name, _ := p.expect(token.Identifier)
	stmt := &ast.VarDeclStmt{Pos: p.posOf(start), Name: name.Value, Type: typeRef}
	if p.match(token.Assign) {
		stmt.Initializer = p.parseExpression()
	}
	p.expect(token.Semicolon)
	return stmt
}

func (p *Parser) parseIf() ast.Stmt {
	start := p.advance() // if
	p.expect(token.LParen)
	cond := p.parseExpression()
	p.expect(token.RParen)
	stmt := &ast.IfStmt{Pos: p.posOf(start), Condition: cond}
	stmt.Then = p.parseStatement()
	if p.match(token.KwElse) {
		stmt.Else = p.parseStatement()
	}
	return stmt
}

func (p *Parser) parseWhile() ast.Stmt {
	start := p.advance() // while
	p.expect(token.LParen)
	cond := p.parseExpression()
	p.expect(token.RParen)
	return &ast.WhileStmt{Pos: p.posOf(start), Condition: cond, Body: p.parseStatement()}
}

func (p *Parser) parseFor() ast.Stmt {
	start := p.advance() // for
	p.expect(token.LParen)
	stmt := &ast.ForStmt{Pos: p.posOf(start)}

	if !p.match(token.Semicolon) {
		stmt.Init = p.parseForInit()
		p.expect(token.Semicolon)
	}
	if !p.check(token.Semicolon) {
		stmt.Condition = p.parseExpression()
	}
	p.expect(token.Semicolon)
	if !p.check(token.RParen) {
		stmt.Step = p.parseExpression()
	}
	p.expect(token.RParen)
	stmt.Body = p.parseStatement()
	return stmt
}

// parseForInit parses a loop initializer without its terminating
// semicolon.
func (p *Parser) parseForInit() ast.Stmt {
	start := p.current()
	if p.check(token.KwVar) {
		p.advance()
		name, _ := p.expect(token.Identifier)
		stmt := &ast.VarDeclStmt{Pos: p.posOf(start), Name: name.Value, Inferred: true}
		if p.match(token.Assign) {
			stmt.Initializer = p.parseExpression()
		}
		return stmt
	}
	if p.startsLocalDeclaration() {
		typeRef := p.parseTypeRef()
		name, _ := p.expect(token.Identifier)
		stmt := &ast.VarDeclStmt{Pos: p.posOf(start), Name: name.Value, Type: typeRef}
		if p.match(token.Assign) {
			stmt.Initializer = p.parseExpression()
		}
		return stmt
	}
	return &ast.ExprStmt{Pos: p.posOf(start), Expr: p.parseExpression()}
}

func (p *Parser) parseForeach() ast.Stmt {
	start := p.advance() // foreach
	p.expect(token.LParen)
	stmt := &ast.ForeachStmt{Pos: p.posOf(start)}

	switch {
	case p.check(token.KwVar):
		p.advance()
		name, _ := p.expect(token.Identifier)
		stmt.VarName = name.Value
	case p.current().Kind.IsTypeKeyword(),
		p.check(token.Identifier) && p.peek(1).Kind == token.Identifier,
		p.check(token.Identifier) && p.peek(1).Kind == token.LBracket && p.peek(2).Kind == token.RBracket:
		stmt.VarType = p.parseTypeRef()
		name, _ := p.expect(token.Identifier)
		stmt.VarName = name.Value
	default:
		name, _ := p.expect(token.Identifier)
		stmt.VarName = name.Value
	}

	p.expect(token.KwIn)
	stmt.Iterable = p.parseExpression()
	p.expect(token.RParen)
	stmt.Body = p.parseStatement()
	return stmt
}

// ---------------------------------------------------------------------------
// Expressions, lowest precedence first

func (p *Parser) parseExpression() ast.Expr {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() ast.Expr {
	left := p.parseLogicalOr()
	switch p.current().Kind {
	case token.Assign, token.PlusAssign, token.MinusAssign, token.StarAssign, token.SlashAssign:
		op := p.advance()
		// Right-associative: a = b = c parses as a = (b = c).
		value := p.parseAssignment()
		return &ast.AssignExpr{Pos: p.posOf(op), Operator: op.Value, Target: left, Value: value}
	}
	return left
}

func (p *Parser) parseLogicalOr() ast.Expr {
	left := p.parseLogicalAnd()
	for p.check(token.Or) {
		op := p.advance()
		right := p.parseLogicalAnd()
		left = &ast.BinaryExpr{Pos: p.posOf(op), Operator: op.Value, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseLogicalAnd() ast.Expr {
	left := p.parseEquality()
	for p.check(token.And) {
		op := p.advance()
		right := p.parseEquality()
		left = &ast.BinaryExpr{Pos: p.posOf(op), Operator: op.Value, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseEquality() ast.Expr {
	left := p.parseComparison()
	for p.check(token.Eq) || p.check(token.NotEq) {
		op := p.advance()
		right := p.parseComparison()
		left = &ast.BinaryExpr{Pos: p.posOf(op), Operator: op.Value, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseComparison() ast.Expr {
	left := p.parseBitwise()
	for p.check(token.Less) || p.check(token.Greater) || p.check(token.LessEq) || p.check(token.GreaterEq) {
		op := p.advance()
		right := p.parseBitwise()
		left = &ast.BinaryExpr{Pos: p.posOf(op), Operator: op.Value, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseBitwise() ast.Expr {
	left := p.parseShift()
	for p.check(token.BitAnd) || p.check(token.BitOr) || p.check(token.BitXor) {
		op := p.advance()
		right := p.parseShift()
		left = &ast.BinaryExpr{Pos: p.posOf(op), Operator: op.Value, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseShift() ast.Expr {
	left := p.parseAdditive()
	for p.check(token.Shl) || p.check(token.Shr) {
		op := p.advance()
		right := p.parseAdditive()
		left = &ast.BinaryExpr{Pos: p.posOf(op), Operator: op.Value, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for p.check(token.Plus) || p.check(token.Minus) {
		op := p.advance()
		right := p.parseMultiplicative()
		left = &ast.BinaryExpr{Pos: p.posOf(op), Operator: op.Value, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for p.check(token.Star) || p.check(token.Slash) || p.check(token.Percent) {
		op := p.advance()
		right := p.parseUnary()
		left = &ast.BinaryExpr{Pos: p.posOf(op), Operator: op.Value, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.current().Kind {
	case token.Not, token.Minus, token.BitNot, token.PlusPlus, token.MinusMinus:
		op := p.advance()
		operand := p.parseUnary()
		return &ast.UnaryExpr{Pos: p.posOf(op), Operator: op.Value, Operand: operand}
	}
	return p.parsePostfix()
}

// parsePostfix applies the postfix chain left to right: member access,
// invocation, indexing, postfix increment/decrement and `as` casts.
func (p *Parser) parsePostfix() ast.Expr {
	expr := p.parsePrimary()
	for {
		switch p.current().Kind {
		case token.Dot:
			op := p.advance()
			name, ok := p.expect(token.Identifier)
			if !ok {
				return expr
			}
			expr = &ast.MemberAccessExpr{Pos: p.posOf(op), Target: expr, Name: name.Value}
		case token.LParen:
			op := p.advance()
			call := &ast.CallExpr{Pos: p.posOf(op), Callee: expr}
			if !p.check(token.RParen) {
				call.Args = append(call.Args, p.parseExpression())
				for p.match(token.Comma) {
					call.Args = append(call.Args, p.parseExpression())
				}
			}
			p.expect(token.RParen)
			expr = call
		case token.LBracket:
			op := p.advance()
			index := p.parseExpression()
			p.expect(token.RBracket)
			expr = &ast.IndexExpr{Pos: p.posOf(op), Target: expr, Index: index}
		case token.PlusPlus, token.MinusMinus:
			op := p.advance()
			expr = &ast.PostfixExpr{Pos: p.posOf(op), Operator: op.Value, Operand: expr}
		case token.KwAs:
			op := p.advance()
			expr = &ast.CastExpr{Pos: p.posOf(op), Target: expr, Type: p.parseTypeRef()}
		default:
			return expr
		}
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	t := p.current()
	switch t.Kind {
	case token.IntLit:
		p.advance()
		return &ast.IntLiteral{Pos: p.posOf(t), Value: t.Value}
	case token.FloatLit:
		p.advance()
		return &ast.FloatLiteral{Pos: p.posOf(t), Value: t.Value}
	case token.StringLit:
		p.advance()
		return &ast.StringLiteral{Pos: p.posOf(t), Value: t.Value}
	case token.CharLit:
		p.advance()
		return &ast.CharLiteral{Pos: p.posOf(t), Value: t.Value}
	case token.KwTrue:
		p.advance()
		return &ast.BoolLiteral{Pos: p.posOf(t), Value: true}
	case token.KwFalse:
		p.advance()
		return &ast.BoolLiteral{Pos: p.posOf(t), Value: false}
	case token.KwNull:
		p.advance()
		return &ast.NullLiteral{Pos: p.posOf(t)}
	case token.KwThis:
		p.advance()
		return &ast.ThisExpr{Pos: p.posOf(t)}
	case token.KwBase:
		p.advance()
		return &ast.BaseExpr{Pos: p.posOf(t)}
	case token.Identifier:
		p.advance()
		return &ast.IdentifierExpr{Pos: p.posOf(t), Name: t.Value}
	case token.LParen:
		p.advance()
		expr := p.parseExpression()
		p.expect(token.RParen)
		return expr
	case token.KwNew:
		return p.parseNew()
	}

	p.bag.Errorf(t.Line, t.Column, "expected expression but got '%s'", t.Kind)
	p.advance()
	return &ast.NullLiteral{Pos: p.posOf(t)}
}

// parseNew handles both `new T(args)` object creation and `new T[n]`
// array creation. The two forms are disjoint on the token after the
// type name. Type names may be dotted or primitive keywords.
func (p *Parser) parseNew() ast.Expr {
	start := p.advance() // new
	var name string
	if p.current().Kind.IsTypeKeyword() {
		name = p.advance().Value
	} else {
		name = p.parseDottedName()
	}

	if p.match(token.LBracket) {
		size := p.parseExpression()
		p.expect(token.RBracket)
		return &ast.NewArrayExpr{Pos: p.posOf(start), ElementType: name, Size: size}
	}

	expr := &ast.NewExpr{Pos: p.posOf(start), TypeName: name}
	p.expect(token.LParen)
	if !p.check(token.RParen) {
		expr.Args = append(expr.Args, p.parseExpression())
		for p.match(token.Comma) {
			expr.Args = append(expr.Args, p.parseExpression())
		}
	}
	p.expect(token.RParen)
	return expr
}
