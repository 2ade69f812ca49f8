// Package nir defines the normalized ("A-normal form") intermediate
// representation produced by Normalize: every operand of a computation is
// atomic (a Var or an Intv), and every compound subexpression is named by a
// surrounding Let.
package nir

import "loopc/src/ast"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Value is an atomic operand: a variable reference or an integer literal.
type Value interface {
	valueNode()
}

// Var is an atomic variable reference.
type Var struct {
	Id string
}

// Intv is an atomic integer literal. Booleans are erased to 0/1 here.
type Intv struct {
	Val int
}

func (Var) valueNode()  {}
func (Intv) valueNode() {}

// Cexp is a computation expression: the right-hand side of a Let/Loop, or
// the tail of a Compexp. Every operand it carries is atomic.
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

// App applies a (still unary, pre closure-conversion) function to one
// atomic argument.
type App struct {
	F, A Value
}

// If branches on an atomic condition; both arms are full Exp trees closed
// under the identity context (see normalize.go).
type If struct {
	Cond       Value
	Then, Else Exp
}

// Tuple is a binary tuple; closure conversion generalizes this to n-ary.
type Tuple struct {
	A, B Value
}

// Proj projects field I out of an atomic tuple value.
type Proj struct {
	A Value
	I int
}

func (Val) cexpNode()    {}
func (Binop) cexpNode()  {}
func (App) cexpNode()    {}
func (If) cexpNode()     {}
func (Tuple) cexpNode()  {}
func (Proj) cexpNode()   {}

// Exp is a normalized expression.
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

// Loop runs Body with Id bound to the value of C; a Recur in tail position
// restarts the loop with a new value for Id.
type Loop struct {
	Id   string
	C    Cexp
	Body Exp
}

// Letrec binds FunId to a single-argument recursive function with formal
// ParamId and Body, then evaluates Cont.
type Letrec struct {
	FunId, ParamId string
	Body, Cont     Exp
}

// Recur restarts the nearest enclosing Loop with the atomic value V.
type Recur struct {
	V Value
}

func (Compexp) expNode() {}
func (Let) expNode()     {}
func (Loop) expNode()    {}
func (Letrec) expNode()  {}
func (Recur) expNode()   {}
