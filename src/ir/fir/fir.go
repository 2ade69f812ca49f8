// Package fir defines the flattened intermediate representation: every
// Letrec from cir is pulled out into its own top-level Recdecl, and every
// remaining Var reference is resolved, via a scoped environment, into
// either an ordinary stack-resident Var or a Fun naming a lifted
// declaration's label.
package fir

import "loopc/src/ast"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Value is an atomic operand, now distinguishing an ordinary variable from
// a reference to a lifted function's label.
type Value interface {
	valueNode()
}

// Var is an ordinary, stack-resident variable reference.
type Var struct {
	Id string
}

// Fun names a lifted declaration. Slot 0 of every closure tuple holds one
// of these.
type Fun struct {
	Id string
}

// Intv is an atomic integer literal.
type Intv struct {
	Val int
}

func (Var) valueNode() {}
func (Fun) valueNode() {}
func (Intv) valueNode() {}

// Cexp is a computation expression.
type Cexp interface {
	cexpNode()
}

// Val lifts an atomic value to a computation.
type Val struct {
	V Value
}

// Binop applies a binary operator to two atomic operands.
type Binop struct {
	Op   ast.Bintype
	A, B Value
}

// App applies an atomic callee to an explicit argument list.
type App struct {
	F    Value
	Args []Value
}

// If branches on an atomic condition.
type If struct {
	Cond       Value
	Then, Else Exp
}

// Tuple is an n-ary tuple.
type Tuple struct {
	Vals []Value
}

// Proj projects field I out of an atomic tuple value.
type Proj struct {
	A Value
	I int
}

func (Val) cexpNode()   {}
func (Binop) cexpNode() {}
func (App) cexpNode()   {}
func (If) cexpNode()    {}
func (Tuple) cexpNode() {}
func (Proj) cexpNode()  {}

// Exp is a flattened expression: no Letrec remains at this level, since
// every one has already been pulled out into a Recdecl.
type Exp interface {
	expNode()
}

// Compexp is a bare computation with no further binding.
type Compexp struct {
	C Cexp
}

// Let binds Id to the value of C within Body.
type Let struct {
	Id   string
	C    Cexp
	Body Exp
}

// Loop runs Body with Id bound to the value of C.
type Loop struct {
	Id   string
	C    Cexp
	Body Exp
}

// Recur restarts the nearest enclosing Loop with the atomic value V.
type Recur struct {
	V Value
}

func (Compexp) expNode() {}
func (Let) expNode()     {}
func (Loop) expNode()    {}
func (Recur) expNode()   {}

// Recdecl is one top-level function: a name, its formal parameter list
// (for a lifted closure body, always [closureParam, originalParam]), and
// its flattened body.
type Recdecl struct {
	Id   string
	Args []string
	Body Exp
}

// Program is the full flattened output: every lifted declaration plus a
// final "_toplevel" Recdecl holding whatever remained outside any Letrec.
type Program struct {
	Decls []Recdecl
}
