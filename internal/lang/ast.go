package lang

// Node is implemented by every AST node.
type Node interface {
	Pos() (line, col int)
}

// Expr is implemented by all expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by all statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// Decl is implemented by scope-level declarations.
type Decl interface {
	Node
	declNode()
}

type base struct {
	Line int
	Col  int
}

func (b base) Pos() (int, int) { return b.Line, b.Col }

// TypeRef is a source-level type reference. Base is either a scalar
// keyword spelling ("u8", "f32", "bool", "void", "string"), an enum or
// struct name, or a foreign type name left for symbol resolution.
type TypeRef struct {
	base
	Name      string
	IsArray   bool
	ArrayLen  Expr // nil for unsized parameter arrays
	StringCap int  // capacity N of string<N>; 0 when not a string
}

// File is a parsed C-Next compilation unit.
type File struct {
	Path     string
	Includes []string
	Decls    []Decl
}

// ScopeDecl is `scope Name { ... }`. Members compile to flat Name_member
// identifiers in the output.
type ScopeDecl struct {
	base
	Name    string
	Members []Decl
}

// VarDecl is a variable or struct-field declaration, at scope level or
// inside a function body (see DeclStmt).
type VarDecl struct {
	base
	Name    string
	Type    *TypeRef
	Init    Expr // nil when declared without an initializer
	IsConst bool // written const in source; auto-const is inferred later
}

// Param is a single function parameter.
type Param struct {
	base
	Name    string
	Type    *TypeRef
	IsConst bool
}

// FuncDecl is a function definition inside a scope.
type FuncDecl struct {
	base
	Name   string
	Params []*Param
	Return *TypeRef // nil means void
	Body   *BlockStmt
}

// EnumDecl is `enum Name { A, B, C }`. Variants compile to Name_A...
type EnumDecl struct {
	base
	Name     string
	Variants []string
}

// StructDecl declares a plain aggregate. Fields carry no initializers.
type StructDecl struct {
	base
	Name   string
	Fields []*VarDecl
}

// RegisterField is one field of a register block: NAME: u32 rw @ 0x04;
type RegisterField struct {
	base
	Name   string
	Type   *TypeRef
	Access string // rw, ro, wo, w1c, w1s
	Offset Expr
}

// RegisterDecl is `register NAME @ base { ... }`, compiled to volatile
// pointer-dereference macros.
type RegisterDecl struct {
	base
	Name   string
	Base   Expr
	Fields []*RegisterField
}

func (*ScopeDecl) declNode()    {}
func (*VarDecl) declNode()      {}
func (*FuncDecl) declNode()     {}
func (*EnumDecl) declNode()     {}
func (*StructDecl) declNode()   {}
func (*RegisterDecl) declNode() {}

// ---- statements ----

type BlockStmt struct {
	base
	Stmts []Stmt
}

// DeclStmt wraps a local variable declaration.
type DeclStmt struct {
	base
	Decl *VarDecl
}

// AssignStmt is `lhs <- rhs` or a compound form. Op is the assignment
// token type (ASSIGN, PLUS_ASSIGN, ...).
type AssignStmt struct {
	base
	LHS Expr
	Op  TokenType
	RHS Expr
}

type IfStmt struct {
	base
	Cond Expr
	Then *BlockStmt
	Else Stmt // *BlockStmt, *IfStmt, or nil
}

type WhileStmt struct {
	base
	Cond Expr
	Body *BlockStmt
}

type ForStmt struct {
	base
	Init Stmt // *DeclStmt or *AssignStmt, may be nil
	Cond Expr // may be nil
	Post Stmt // *AssignStmt, may be nil
	Body *BlockStmt
}

// CaseClause is one `case v1, v2: { ... }` arm.
type CaseClause struct {
	base
	Values []Expr
	Body   *BlockStmt
}

// DefaultClause is `default(n): { ... }`. Count is the number of enum
// variants the author asserts the default covers; -1 when the switch
// tag is not an enum and the count was omitted.
type DefaultClause struct {
	base
	Count int
	Body  *BlockStmt
}

type SwitchStmt struct {
	base
	Tag     Expr
	Cases   []*CaseClause
	Default *DefaultClause // nil when absent
}

type ReturnStmt struct {
	base
	Value Expr // nil for bare return
}

type BreakStmt struct{ base }
type ContinueStmt struct{ base }

// ExprStmt is an expression in statement position, typically a call.
type ExprStmt struct {
	base
	X Expr
}

func (*BlockStmt) stmtNode()    {}
func (*DeclStmt) stmtNode()     {}
func (*AssignStmt) stmtNode()   {}
func (*IfStmt) stmtNode()       {}
func (*WhileStmt) stmtNode()    {}
func (*ForStmt) stmtNode()      {}
func (*SwitchStmt) stmtNode()   {}
func (*ReturnStmt) stmtNode()   {}
func (*BreakStmt) stmtNode()    {}
func (*ContinueStmt) stmtNode() {}
func (*ExprStmt) stmtNode()     {}

// ---- expressions ----

// Ident is an unqualified name.
type Ident struct {
	base
	Name string
}

// MemberExpr is `x.name`: scope qualification (Other.counter), enum
// variant access (Color.Red), struct field access, or the .length
// property of sized strings and arrays.
type MemberExpr struct {
	base
	X    Expr
	Name string
}

// IndexExpr is `x[i]` or `x[i, n]`. One argument indexes an array
// element or a single bit of an integer; two arguments select a bit
// range or a byte slice depending on the subject's type.
type IndexExpr struct {
	base
	X    Expr
	Args []Expr
}

// CallExpr is f(args). Fn is an *Ident or *MemberExpr.
type CallExpr struct {
	base
	Fn   Expr
	Args []Expr
}

// CastExpr is `x as u8`.
type CastExpr struct {
	base
	X    Expr
	Type *TypeRef
}

// BinaryExpr is x op y.
type BinaryExpr struct {
	base
	Op TokenType
	X  Expr
	Y  Expr
}

// UnaryExpr is op x (-x, ~x, !x).
type UnaryExpr struct {
	base
	Op TokenType
	X  Expr
}

// IntLit is an integer literal. Value holds the parsed magnitude.
type IntLit struct {
	base
	Text  string
	Value uint64
	IsHex bool
}

type FloatLit struct {
	base
	Text string
}

type StringLit struct {
	base
	Value string
}

type CharLit struct {
	base
	Text string
}

type BoolLit struct {
	base
	Value bool
}

// NullLit is the null keyword, valid only against nullable handles.
type NullLit struct{ base }

// BoundaryLit is `i32.min` / `u8.max`: the typed boundary constant the
// language requires instead of spelled-out extreme literals.
type BoundaryLit struct {
	base
	Type  string // scalar keyword spelling, e.g. "i32"
	IsMax bool
}

func (*Ident) exprNode()       {}
func (*MemberExpr) exprNode()  {}
func (*IndexExpr) exprNode()   {}
func (*CallExpr) exprNode()    {}
func (*CastExpr) exprNode()    {}
func (*BinaryExpr) exprNode()  {}
func (*UnaryExpr) exprNode()   {}
func (*IntLit) exprNode()      {}
func (*FloatLit) exprNode()    {}
func (*StringLit) exprNode()   {}
func (*CharLit) exprNode()     {}
func (*BoolLit) exprNode()     {}
func (*NullLit) exprNode()     {}
func (*BoundaryLit) exprNode() {}
