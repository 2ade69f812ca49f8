// Package cir defines the closure-converted intermediate representation.
// Every Letrec from nir becomes a top-level-shaped function of exactly two
// formals (the closure itself, then the original parameter) plus, in the
// enclosing scope, an ordinary tuple allocation binding the original name
// to its closure value. Every App becomes a binary call through the
// closure's code-pointer slot.
package cir

import "loopc/src/ast"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Value is an atomic operand. Unchanged in shape from nir.Value: the
// Var/Fun distinction is introduced only by flatten (fir).
type Value interface {
	valueNode()
}

// Var is an atomic variable reference.
type Var struct {
	Id string
}

// Intv is an atomic integer literal.
type Intv struct {
	Val int
}

func (Var) valueNode()  {}
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

// App applies an atomic callee to an explicit argument list. Post
// closure-conversion every App carries exactly two arguments: the closure
// itself (so the callee can find its own captured environment) and the
// original argument.
type App struct {
	F    Value
	Args []Value
}

// If branches on an atomic condition.
type If struct {
	Cond       Value
	Then, Else Exp
}

// Tuple is an n-ary tuple; a closure allocation is an ordinary Tuple whose
// slot 0 is the lifted function's label and whose remaining slots are
// captured free variables in stable order.
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

// Exp is a closure-converted expression.
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

// Letrec declares a lifted, closed function: FunId is its label, Formals is
// always exactly [closureParam, originalParam], Body is its converted body,
// and Cont is the expression evaluated after the declaration (which is
// where the matching closure tuple gets allocated and bound to the
// original, pre-lifting name).
type Letrec struct {
	FunId   string
	Formals []string
	Body    Exp
	Cont    Exp
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
