// Package ast defines the minimal typed-AST contract Translate consumes.
// Lexing, parsing and semantic analysis are out of scope (spec §1): a real
// front end would produce values of these types, annotated with resolved
// types and escape information, from Tiger source text. This package
// exists so pkg/translate has a concrete, exercised input rather than an
// interface nothing implements, and so the end-to-end scenarios in spec §8
// can be driven directly from hand-built trees instead of a parser this
// repository does not own.
//
// Declarations (*VarDecl, *Param, *FuncDecl) double as the escape table
// named in spec §6 ("a table recording for each variable and formal
// whether it escapes"): each carries its own Escapes bit rather than a
// separate side map, and references (VarRef, ParamRef, Call) point at the
// declaring node directly rather than through a name lookup — the
// resolution a semantic analyzer performs is assumed already done.
package ast

import "github.com/tigerc/tigerc/pkg/tree"

// Program is a whole compilation unit: Tiger has no top-level declarations
// outside of one implicit "main" function wrapping the program expression.
type Program struct {
	Main *FuncDecl
}

// Param is one formal parameter of a function.
type Param struct {
	Name    string
	Escapes bool
}

// VarDecl is a local variable declaration (var x := ...).
type VarDecl struct {
	Name    string
	Escapes bool
	Init    Expr
}

// FuncDecl is a function declaration. Parent names the lexically enclosing
// function; the JSON loader leaves it nil for every function, and
// Translate does not read it (nesting comes from the Let that declares the
// function).
type FuncDecl struct {
	Name   string
	Parent *FuncDecl
	Params []*Param
	Body   Expr
}

// Decl is either a *VarDecl or a *FuncDecl, as they appear in a Let's
// declaration list.
type Decl interface{ implDecl() }

func (*VarDecl) implDecl()  {}
func (*FuncDecl) implDecl() {}

// Expr is any Tiger expression node.
type Expr interface{ implExpr() }

// IntLit is an integer literal.
type IntLit struct{ Value int64 }

// StringLit is a string literal.
type StringLit struct{ Value string }

// NilLit is the Tiger `nil` literal.
type NilLit struct{}

// ParamRef reads the value of a formal parameter.
type ParamRef struct{ Decl *Param }

// VarRef reads the value of a local variable.
type VarRef struct{ Decl *VarDecl }

// Binop applies an arithmetic/bitwise operator.
type Binop struct {
	Op          tree.BinOp
	Left, Right Expr
}

// Relop applies a relational operator, yielding a boolean-like value
// (lowered directly to Cx by Translate, per spec §4.1: "Short-circuit and
// comparison operators are built directly as Cx").
type Relop struct {
	Op          tree.RelOp
	Left, Right Expr
}

// If is `if Cond then Then [else Else]`. Else is nil for the one-armed
// form with no else branch (which must not be used as a value).
type If struct {
	Cond, Then Expr
	Else       Expr
}

// While is `while Cond do Body`.
type While struct{ Cond, Body Expr }

// For is `for Var := Lo to Hi do Body`.
type For struct {
	Var      *VarDecl
	Lo, Hi   Expr
	Body     Expr
}

// Break exits the nearest lexically enclosing While or For.
type Break struct{}

// Let introduces Decls, then evaluates Body in their scope.
type Let struct {
	Decls []Decl
	Body  Expr
}

// Call invokes a Tiger-level function declared elsewhere in the program.
type Call struct {
	Target *FuncDecl
	Args   []Expr
}

// ExternCall invokes a named runtime/library routine not declared in
// Tiger source (e.g. printString, printInt), per spec §6's runtime symbol list.
type ExternCall struct {
	Name string
	Args []Expr
}

// Assign is `Target := Value`; Target must be a VarRef, ParamRef, Field or
// Subscript.
type Assign struct{ Target, Value Expr }

// Seq evaluates each of Exprs in order, yielding the value of the last
// (or no value, if Exprs is empty — the Tiger `()` unit expression).
type Seq struct{ Exprs []Expr }

// Record allocates a new record with the given field values, via the
// initRecord runtime routine (spec §4.1).
type Record struct{ Fields []Expr }

// Array allocates a new array of Size elements, each initialized to Init,
// via the initArray runtime routine.
type Array struct{ Size, Init Expr }

// Field reads field number Index (0-based word offset) of a record.
type Field struct {
	Base  Expr
	Index int
}

// Subscript reads element Index of an array.
type Subscript struct{ Base, Index Expr }

func (IntLit) implExpr()     {}
func (StringLit) implExpr()  {}
func (NilLit) implExpr()     {}
func (ParamRef) implExpr()   {}
func (VarRef) implExpr()     {}
func (Binop) implExpr()      {}
func (Relop) implExpr()      {}
func (If) implExpr()         {}
func (While) implExpr()      {}
func (For) implExpr()        {}
func (Break) implExpr()      {}
func (Let) implExpr()        {}
func (Call) implExpr()       {}
func (ExternCall) implExpr() {}
func (Assign) implExpr()     {}
func (Seq) implExpr()        {}
func (Record) implExpr()     {}
func (Array) implExpr()      {}
func (Field) implExpr()      {}
func (Subscript) implExpr()  {}
