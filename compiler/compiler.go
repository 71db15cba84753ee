// Package compiler translates datum trees into bytecode chunks for the
// virtual machine. It is a single-pass bootstrap compiler: lexical scope
// resolves to local slots, upvalue paths, or global lookups; tail
// positions are tracked syntactically and always emit TAIL_CALL.
package compiler

import (
	"fmt"

	"github.com/sadderchris/cheshire/pkg/datum"
	"github.com/sadderchris/cheshire/vm"
)

// Error is a compilation error.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return "compile error: " + e.Msg }

func errorf(format string, args ...interface{}) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// Install wires the compiler into a VM so the compile and load
// primitives can reach it.
func Install(v *vm.VM) {
	v.Compile = Compile
}

// Compile translates one top-level datum into a zero-argument thunk.
// Invoking the thunk evaluates the form.
func Compile(v *vm.VM, d datum.Datum) (vm.Value, error) {
	c := newContext(v, nil, true, "")
	pin := v.Heap.Pin(vm.FromObject(c.handle))
	defer v.Heap.Unpin(pin)

	if err := c.expression(d, true); err != nil {
		return vm.Void, err
	}
	c.emitSimple(vm.OpHalt)
	c.chunk.MaxStack = c.max
	return v.NewClosure(c.handle), nil
}

// maxLocals and maxUpvalues follow the one-byte operand encoding.
const (
	maxLocals   = 255
	maxUpvalues = 255
)

type local struct {
	name  uint32
	boxed bool
}

// context is the per-procedure compilation state. Contexts chain through
// parent pointers, mirroring the lexical nesting of lambdas; the chain is
// what upvalue resolution walks.
type context struct {
	vm     *vm.VM
	parent *context

	chunk  *vm.Chunk
	handle vm.Handle

	// topLevel marks the REPL/script thunk context: define binds
	// globals there and no locals exist.
	topLevel bool

	locals []local

	// assigned holds symbol ids that are set! targets (or internal
	// defines) anywhere in this procedure's body, including nested
	// lambdas. Locals with these names are promoted to boxes.
	assigned map[uint32]bool

	// cur/max track operand-stack depth above the frame base; forward-
	// only jumps make the maximum statically known.
	cur, max int
}

func newContext(v *vm.VM, parent *context, topLevel bool, name string) *context {
	ch := &vm.Chunk{Name: name}
	return &context{
		vm:       v,
		parent:   parent,
		chunk:    ch,
		handle:   v.Heap.Alloc(ch),
		topLevel: topLevel,
		assigned: make(map[uint32]bool),
	}
}

// ---------------------------------------------------------------------------
// Emission helpers with stack-depth accounting
// ---------------------------------------------------------------------------

func (c *context) adjust(pop, push int) {
	c.cur -= pop
	if c.cur < 0 {
		c.cur = 0
	}
	c.cur += push
	if c.cur > c.max {
		c.max = c.cur
	}
}

func (c *context) emitSimple(op vm.Opcode) {
	info := vm.GetOpcodeInfo(op)
	c.chunk.Emit(op)
	c.adjust(info.StackPop, info.StackPush)
}

func (c *context) emitByte(op vm.Opcode, operand byte) {
	info := vm.GetOpcodeInfo(op)
	c.chunk.EmitByte(op, operand)
	c.adjust(info.StackPop, info.StackPush)
}

func (c *context) emitU16(op vm.Opcode, operand uint16) {
	info := vm.GetOpcodeInfo(op)
	c.chunk.EmitU16(op, operand)
	c.adjust(info.StackPop, info.StackPush)
}

func (c *context) emitConstant(v vm.Value) error {
	if len(c.chunk.Constants) >= 1<<16 {
		return errorf("too many constants in one chunk")
	}
	c.emitU16(vm.OpConst, c.chunk.AddConstant(v))
	return nil
}

func (c *context) emitCall(argc int, tail bool) error {
	if argc > 255 {
		return errorf("call with more than 255 arguments")
	}
	op := vm.OpCall
	if tail {
		op = vm.OpTailCall
	}
	c.chunk.EmitByte(op, byte(argc))
	c.adjust(argc+1, 1)
	return nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (c *context) expression(d datum.Datum, tail bool) error {
	switch t := d.(type) {
	case datum.Symbol:
		return c.variable(string(t), false)
	case datum.Bool:
		if t {
			c.emitSimple(vm.OpTrue)
		} else {
			c.emitSimple(vm.OpFalse)
		}
		return nil
	case datum.Number:
		return c.emitConstant(vm.FromFloat(float64(t)))
	case datum.Char:
		return c.emitConstant(vm.FromChar(rune(t)))
	case datum.String, *datum.Vector:
		return c.literal(d)
	case datum.Empty:
		return errorf("empty application ()")
	case *datum.Abbrev:
		if t.Kind == datum.AbbrevQuote {
			return c.literal(t.Inner)
		}
		return errorf("%s outside quasiquotation", t.Kind)
	case *datum.Pair:
		return c.combination(t, tail)
	default:
		return errorf("cannot compile %s", datum.Format(d))
	}
}

// literal materializes a quoted datum as a constant Value.
func (c *context) literal(d datum.Datum) error {
	switch t := d.(type) {
	case datum.Bool:
		if t {
			c.emitSimple(vm.OpTrue)
		} else {
			c.emitSimple(vm.OpFalse)
		}
		return nil
	case datum.Empty:
		c.emitSimple(vm.OpNil)
		return nil
	default:
		return c.emitConstant(c.vm.DatumToValue(d))
	}
}

func (c *context) combination(p *datum.Pair, tail bool) error {
	if head, ok := p.Car.(datum.Symbol); ok {
		switch string(head) {
		case "quote":
			return c.quoteForm(p.Cdr)
		case "if":
			return c.ifForm(p.Cdr, tail)
		case "lambda":
			return c.lambdaForm(p.Cdr, "")
		case "define":
			return c.defineForm(p.Cdr)
		case "set!":
			return c.setForm(p.Cdr)
		case "begin":
			forms, ok := datum.Elems(p.Cdr)
			if !ok {
				return errorf("malformed begin")
			}
			return c.sequence(forms, tail)
		case "let":
			return c.letForm(p.Cdr, tail)
		case "let*":
			return c.letStarForm(p.Cdr, tail)
		case "letrec":
			return c.letrecForm(p.Cdr, tail)
		case "quasiquote", "unquote", "unquote-splicing":
			return errorf("%s is not supported by the bootstrap compiler", head)
		}
	}

	// Procedure call.
	if err := c.expression(p.Car, false); err != nil {
		return err
	}
	args, ok := datum.Elems(p.Cdr)
	if !ok {
		return errorf("malformed argument list in %s", datum.Format(p))
	}
	for _, a := range args {
		if err := c.expression(a, false); err != nil {
			return err
		}
	}
	return c.emitCall(len(args), tail)
}

func (c *context) quoteForm(tail datum.Datum) error {
	args, ok := datum.Elems(tail)
	if !ok || len(args) != 1 {
		return errorf("quote expects exactly one datum")
	}
	return c.literal(args[0])
}

func (c *context) ifForm(rest datum.Datum, tail bool) error {
	forms, ok := datum.Elems(rest)
	if !ok || len(forms) < 2 || len(forms) > 3 {
		return errorf("if expects a test, a consequent and an optional alternate")
	}

	if err := c.expression(forms[0], false); err != nil {
		return err
	}
	elseJump := c.chunk.EmitJump(vm.OpJumpIfFalse)
	c.adjust(1, 0)

	depth := c.cur
	if err := c.expression(forms[1], tail); err != nil {
		return err
	}
	endJump := c.chunk.EmitJump(vm.OpJump)
	c.chunk.PatchJump(elseJump)

	// Only one branch executes; the alternate starts at the same depth.
	c.cur = depth
	if len(forms) == 3 {
		if err := c.expression(forms[2], tail); err != nil {
			return err
		}
	} else {
		c.emitSimple(vm.OpVoid)
	}
	c.chunk.PatchJump(endJump)
	return nil
}

func (c *context) sequence(forms []datum.Datum, tail bool) error {
	if len(forms) == 0 {
		c.emitSimple(vm.OpVoid)
		return nil
	}
	for i, f := range forms {
		last := i == len(forms)-1
		if err := c.expression(f, last && tail); err != nil {
			return err
		}
		if !last {
			c.emitSimple(vm.OpPop)
		}
	}
	return nil
}

func (c *context) setForm(rest datum.Datum) error {
	forms, ok := datum.Elems(rest)
	if !ok || len(forms) != 2 {
		return errorf("set! expects a variable and an expression")
	}
	name, ok := forms[0].(datum.Symbol)
	if !ok {
		return errorf("set!: %s is not a variable", datum.Format(forms[0]))
	}
	if err := c.expression(forms[1], false); err != nil {
		return err
	}
	if err := c.variable(string(name), true); err != nil {
		return err
	}
	c.emitSimple(vm.OpPop)
	c.emitSimple(vm.OpVoid)
	return nil
}

func (c *context) defineForm(rest datum.Datum) error {
	if !c.topLevel {
		// Internal defines are lifted by parseBody; reaching one here
		// means it appeared after the first expression of a body.
		return errorf("define in expression context")
	}
	forms, ok := datum.Elems(rest)
	if !ok || len(forms) == 0 {
		return errorf("malformed define")
	}

	switch target := forms[0].(type) {
	case datum.Symbol:
		switch len(forms) {
		case 1:
			c.emitSimple(vm.OpVoid)
		case 2:
			if err := c.namedExpression(forms[1], string(target)); err != nil {
				return err
			}
		default:
			return errorf("define expects one expression")
		}
		return c.emitDefineGlobal(string(target))

	case *datum.Pair:
		// (define (name . formals) body...)
		name, ok := target.Car.(datum.Symbol)
		if !ok {
			return errorf("define: %s is not a variable", datum.Format(target.Car))
		}
		if err := c.function(target.Cdr, rest.(*datum.Pair).Cdr, string(name)); err != nil {
			return err
		}
		return c.emitDefineGlobal(string(name))

	default:
		return errorf("define: %s is not a variable", datum.Format(forms[0]))
	}
}

func (c *context) emitDefineGlobal(name string) error {
	idx := c.chunk.AddConstant(c.vm.Symbols.Symbol(name))
	c.emitU16(vm.OpDefineGlobal, idx)
	c.emitSimple(vm.OpVoid)
	return nil
}

// namedExpression compiles an expression, attaching a procedure name to
// a directly bound lambda for diagnostics.
func (c *context) namedExpression(d datum.Datum, name string) error {
	if p, ok := d.(*datum.Pair); ok {
		if head, ok := p.Car.(datum.Symbol); ok && head == "lambda" {
			return c.lambdaForm(p.Cdr, name)
		}
	}
	return c.expression(d, false)
}

func (c *context) lambdaForm(rest datum.Datum, name string) error {
	p, ok := rest.(*datum.Pair)
	if !ok {
		return errorf("lambda expects a parameter list and a body")
	}
	return c.function(p.Car, p.Cdr, name)
}

// ---------------------------------------------------------------------------
// let family
// ---------------------------------------------------------------------------

// parseBindings splits ((name init) ...) into names and initializers.
func parseBindings(d datum.Datum) (names []datum.Symbol, inits []datum.Datum, err error) {
	bindings, ok := datum.Elems(d)
	if !ok {
		return nil, nil, errorf("malformed binding list %s", datum.Format(d))
	}
	for _, b := range bindings {
		pair, ok := datum.Elems(b)
		if !ok || len(pair) != 2 {
			return nil, nil, errorf("malformed binding %s", datum.Format(b))
		}
		name, ok := pair[0].(datum.Symbol)
		if !ok {
			return nil, nil, errorf("binding name %s is not a symbol", datum.Format(pair[0]))
		}
		names = append(names, name)
		inits = append(inits, pair[1])
	}
	return names, inits, nil
}

func (c *context) letForm(rest datum.Datum, tail bool) error {
	p, ok := rest.(*datum.Pair)
	if !ok {
		return errorf("malformed let")
	}

	// Named let: (let loop (bindings...) body...) desugars to letrec.
	if loopName, ok := p.Car.(datum.Symbol); ok {
		body, ok := p.Cdr.(*datum.Pair)
		if !ok {
			return errorf("malformed named let")
		}
		names, inits, err := parseBindings(body.Car)
		if err != nil {
			return err
		}
		params := make([]datum.Datum, len(names))
		for i, n := range names {
			params[i] = n
		}
		lambdaElems := append([]datum.Datum{datum.Symbol("lambda"), datum.List(params...)},
			mustElems(body.Cdr)...)
		callElems := append([]datum.Datum{loopName}, inits...)
		letrec := datum.List(
			datum.Symbol("letrec"),
			datum.List(datum.List(loopName, datum.List(lambdaElems...))),
			datum.List(callElems...),
		)
		return c.expression(letrec, tail)
	}

	// (let (bindings...) body...) is ((lambda (names...) body...) inits...).
	names, inits, err := parseBindings(p.Car)
	if err != nil {
		return err
	}
	params := make([]datum.Datum, len(names))
	for i, n := range names {
		params[i] = n
	}
	if err := c.function(datum.List(params...), p.Cdr, ""); err != nil {
		return err
	}
	for _, init := range inits {
		if err := c.expression(init, false); err != nil {
			return err
		}
	}
	return c.emitCall(len(inits), tail)
}

func (c *context) letStarForm(rest datum.Datum, tail bool) error {
	p, ok := rest.(*datum.Pair)
	if !ok {
		return errorf("malformed let*")
	}
	bindings, ok := datum.Elems(p.Car)
	if !ok {
		return errorf("malformed let* bindings")
	}
	if len(bindings) <= 1 {
		letElems := append([]datum.Datum{datum.Symbol("let"), p.Car}, mustElems(p.Cdr)...)
		return c.expression(datum.List(letElems...), tail)
	}
	innerElems := append(
		[]datum.Datum{datum.Symbol("let*"), datum.List(bindings[1:]...)},
		mustElems(p.Cdr)...)
	outer := datum.List(
		datum.Symbol("let"),
		datum.List(bindings[0]),
		datum.List(innerElems...),
	)
	return c.expression(outer, tail)
}

// letrecForm compiles (letrec ((n e) ...) body...) as a lambda whose
// parameters are pre-bound to the unspecified value and assigned in
// order before the body runs. The assignments promote every letrec
// variable to a box, so closures created by the initializers share the
// final bindings.
func (c *context) letrecForm(rest datum.Datum, tail bool) error {
	p, ok := rest.(*datum.Pair)
	if !ok {
		return errorf("malformed letrec")
	}
	names, inits, err := parseBindings(p.Car)
	if err != nil {
		return err
	}

	params := make([]datum.Datum, len(names))
	setForms := make([]datum.Datum, len(names))
	for i, n := range names {
		params[i] = n
		setForms[i] = datum.List(datum.Symbol("set!"), n, inits[i])
	}
	bodyForms := mustElems(p.Cdr)
	// The assignments precede the body, so internal definitions in the
	// body would no longer lead it; re-scope them with an empty let.
	if len(bodyForms) > 0 {
		if _, _, ok := internalDefine(bodyForms[0]); ok {
			letElems := append([]datum.Datum{datum.Symbol("let"), datum.List()}, bodyForms...)
			bodyForms = []datum.Datum{datum.List(letElems...)}
		}
	}
	body := append(setForms, bodyForms...)

	if err := c.function(datum.List(params...), datum.List(body...), ""); err != nil {
		return err
	}
	for range names {
		c.emitSimple(vm.OpVoid)
	}
	return c.emitCall(len(names), tail)
}

func mustElems(d datum.Datum) []datum.Datum {
	elems, _ := datum.Elems(d)
	return elems
}

// ---------------------------------------------------------------------------
// Procedures
// ---------------------------------------------------------------------------

// function compiles a nested procedure and emits CLOSURE in the current
// chunk, followed by one inline capture descriptor per upvalue.
func (c *context) function(formals, bodies datum.Datum, name string) error {
	child := newContext(c.vm, c, false, name)
	pin := c.vm.Heap.Pin(vm.FromObject(child.handle))
	defer c.vm.Heap.Unpin(pin)

	child.collectAssigned(bodies)

	if err := child.parseFormals(formals); err != nil {
		return err
	}
	child.cur = len(child.locals)
	if child.cur > child.max {
		child.max = child.cur
	}

	if err := child.parseBody(bodies); err != nil {
		return err
	}
	child.chunk.MaxStack = child.max

	idx := c.chunk.AddConstant(vm.FromObject(child.handle))
	c.chunk.EmitU16(vm.OpClosure, idx)
	for _, u := range child.chunk.Upvalues {
		isLocal := byte(0)
		if u.IsLocal {
			isLocal = 1
		}
		c.chunk.Code = append(c.chunk.Code, isLocal, u.Index)
	}
	c.adjust(0, 1)
	return nil
}

// parseFormals binds the parameter list: proper list (fixed arity),
// improper list (rest-collected), or a bare symbol (all args as a list).
func (c *context) parseFormals(formals datum.Datum) error {
	switch t := formals.(type) {
	case datum.Empty:
		return nil
	case datum.Symbol:
		if err := c.addLocal(string(t)); err != nil {
			return err
		}
		c.chunk.NumParams = 1
		c.chunk.Variadic = true
		return nil
	case *datum.Pair:
		n := 0
		var cur datum.Datum = t
		for {
			p, ok := cur.(*datum.Pair)
			if !ok {
				break
			}
			sym, ok := p.Car.(datum.Symbol)
			if !ok {
				return errorf("parameter %s is not a symbol", datum.Format(p.Car))
			}
			if err := c.addLocal(string(sym)); err != nil {
				return err
			}
			n++
			cur = p.Cdr
		}
		switch rest := cur.(type) {
		case datum.Empty:
			c.chunk.NumParams = uint8(n)
		case datum.Symbol:
			if err := c.addLocal(string(rest)); err != nil {
				return err
			}
			c.chunk.NumParams = uint8(n + 1)
			c.chunk.Variadic = true
		default:
			return errorf("malformed parameter list %s", datum.Format(formals))
		}
		return nil
	default:
		return errorf("malformed parameter list %s", datum.Format(formals))
	}
}

// parseBody compiles a procedure body: internal definitions are lifted
// to the head of the body, their slots reserved and box-promoted, and
// initialized in order before any expression runs. The final expression
// is the tail position.
func (c *context) parseBody(bodies datum.Datum) error {
	forms, ok := datum.Elems(bodies)
	if !ok || len(forms) == 0 {
		return errorf("empty procedure body")
	}

	// Split leading internal definitions from body expressions.
	var defNames []string
	var defInits []datum.Datum
	i := 0
	for ; i < len(forms); i++ {
		name, init, ok := internalDefine(forms[i])
		if !ok {
			break
		}
		defNames = append(defNames, name)
		defInits = append(defInits, init)
	}
	exprs := forms[i:]
	if len(exprs) == 0 {
		return errorf("procedure body has no expression")
	}

	defBase := len(c.locals)
	for _, name := range defNames {
		// Internal defines are always assigned (their initialization is
		// one), so addLocal box-promotes them.
		c.assigned[c.vm.Symbols.Intern(name)] = true
		if err := c.addLocal(name); err != nil {
			return err
		}
		c.emitSimple(vm.OpVoid)
	}

	// Box promotion: convert every assigned local's slot in place. The
	// parameters hold raw arguments at entry; after this prologue every
	// boxed slot holds its cell.
	for slot, l := range c.locals {
		if !l.boxed {
			continue
		}
		c.emitByte(vm.OpGetLocal, byte(slot))
		c.emitSimple(vm.OpMakeBox)
		c.emitByte(vm.OpSetLocal, byte(slot))
		c.emitSimple(vm.OpPop)
	}

	// Initialize internal definitions in order.
	for j, init := range defInits {
		if err := c.namedExpression(init, defNames[j]); err != nil {
			return err
		}
		c.emitByte(vm.OpGetLocal, byte(defBase+j))
		c.emitSimple(vm.OpBoxSet)
		c.emitSimple(vm.OpPop)
	}

	if err := c.sequence(exprs, true); err != nil {
		return err
	}
	c.emitSimple(vm.OpReturn)
	return nil
}

// internalDefine recognizes (define name expr) and (define (name . formals)
// body...) forms, returning the bound name and an initializer expression.
func internalDefine(d datum.Datum) (string, datum.Datum, bool) {
	p, ok := d.(*datum.Pair)
	if !ok {
		return "", nil, false
	}
	head, ok := p.Car.(datum.Symbol)
	if !ok || head != "define" {
		return "", nil, false
	}
	forms, ok := datum.Elems(p.Cdr)
	if !ok || len(forms) == 0 {
		return "", nil, false
	}
	switch target := forms[0].(type) {
	case datum.Symbol:
		if len(forms) == 1 {
			return string(target), datum.Bool(false), true
		}
		if len(forms) == 2 {
			return string(target), forms[1], true
		}
		return "", nil, false
	case *datum.Pair:
		name, ok := target.Car.(datum.Symbol)
		if !ok {
			return "", nil, false
		}
		lambda := &datum.Pair{
			Car: datum.Symbol("lambda"),
			Cdr: &datum.Pair{Car: target.Cdr, Cdr: p.Cdr.(*datum.Pair).Cdr},
		}
		return string(name), lambda, true
	default:
		return "", nil, false
	}
}

// ---------------------------------------------------------------------------
// Scope resolution
// ---------------------------------------------------------------------------

func (c *context) addLocal(name string) error {
	if len(c.locals) >= maxLocals {
		return errorf("too many local variables in one procedure")
	}
	id := c.vm.Symbols.Intern(name)
	for _, l := range c.locals {
		if l.name == id {
			return errorf("duplicate binding %s", name)
		}
	}
	c.locals = append(c.locals, local{name: id, boxed: c.assigned[id]})
	return nil
}

func (c *context) resolveLocal(id uint32) (int, bool, bool) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == id {
			return i, c.locals[i].boxed, true
		}
	}
	return 0, false, false
}

// resolveUpvalue records an upvalue path for id: a direct capture of a
// parent local or a re-capture of the parent's upvalue. Descriptors are
// deduplicated within a chunk.
func (c *context) resolveUpvalue(id uint32) (int, bool, bool, error) {
	if c.parent == nil {
		return 0, false, false, nil
	}
	if slot, boxed, ok := c.parent.resolveLocal(id); ok {
		idx, err := c.addUpvalue(uint8(slot), true)
		return idx, boxed, true, err
	}
	idx, boxed, ok, err := c.parent.resolveUpvalue(id)
	if err != nil || !ok {
		return 0, false, false, err
	}
	self, err := c.addUpvalue(uint8(idx), false)
	return self, boxed, true, err
}

func (c *context) addUpvalue(index uint8, isLocal bool) (int, error) {
	for i, u := range c.chunk.Upvalues {
		if u.Index == index && u.IsLocal == isLocal {
			return i, nil
		}
	}
	if len(c.chunk.Upvalues) >= maxUpvalues {
		return 0, errorf("too many captured variables in one procedure")
	}
	c.chunk.Upvalues = append(c.chunk.Upvalues, vm.UpvalueDesc{Index: index, IsLocal: isLocal})
	return len(c.chunk.Upvalues) - 1, nil
}

// variable compiles a reference to or assignment of name, resolving it
// to a local slot, an upvalue path, or a global lookup, in that order.
// Box-promoted bindings are read through UNBOX and written through
// BOX_SET; the assigned value is expected on the stack for assignments.
func (c *context) variable(name string, assign bool) error {
	id := c.vm.Symbols.Intern(name)

	if slot, boxed, ok := c.resolveLocal(id); ok {
		if assign {
			if boxed {
				c.emitByte(vm.OpGetLocal, byte(slot))
				c.emitSimple(vm.OpBoxSet)
			} else {
				c.emitByte(vm.OpSetLocal, byte(slot))
			}
		} else {
			c.emitByte(vm.OpGetLocal, byte(slot))
			if boxed {
				c.emitSimple(vm.OpUnbox)
			}
		}
		return nil
	}

	idx, boxed, ok, err := c.resolveUpvalue(id)
	if err != nil {
		return err
	}
	if ok {
		if assign {
			if boxed {
				c.emitByte(vm.OpGetUpvalue, byte(idx))
				c.emitSimple(vm.OpBoxSet)
			} else {
				c.emitByte(vm.OpSetUpvalue, byte(idx))
			}
		} else {
			c.emitByte(vm.OpGetUpvalue, byte(idx))
			if boxed {
				c.emitSimple(vm.OpUnbox)
			}
		}
		return nil
	}

	constIdx := c.chunk.AddConstant(vm.FromSymbol(id))
	if assign {
		c.emitU16(vm.OpSetGlobal, constIdx)
	} else {
		c.emitU16(vm.OpGetGlobal, constIdx)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Assignment analysis
// ---------------------------------------------------------------------------

// collectAssigned records every name that is the target of a set! (or an
// internal define) anywhere under d, skipping quoted data. The analysis
// ignores shadowing, which at worst box-promotes a variable that did not
// need it; boxed reads stay correct either way.
func (c *context) collectAssigned(d datum.Datum) {
	switch t := d.(type) {
	case *datum.Pair:
		if head, ok := t.Car.(datum.Symbol); ok {
			switch string(head) {
			case "quote":
				return
			case "set!":
				if rest, ok := t.Cdr.(*datum.Pair); ok {
					if name, ok := rest.Car.(datum.Symbol); ok {
						c.assigned[c.vm.Symbols.Intern(string(name))] = true
					}
				}
			case "define":
				if rest, ok := t.Cdr.(*datum.Pair); ok {
					switch target := rest.Car.(type) {
					case datum.Symbol:
						c.assigned[c.vm.Symbols.Intern(string(target))] = true
					case *datum.Pair:
						if name, ok := target.Car.(datum.Symbol); ok {
							c.assigned[c.vm.Symbols.Intern(string(name))] = true
						}
					}
				}
			}
		}
		c.collectAssigned(t.Car)
		c.collectAssigned(t.Cdr)
	case *datum.Vector:
		for _, e := range t.Elems {
			c.collectAssigned(e)
		}
	case *datum.Abbrev:
		if t.Kind != datum.AbbrevQuote {
			c.collectAssigned(t.Inner)
		}
	}
}
