package avm

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// DefaultBudget is the per-program execution cost ceiling (1 unit per op).
const DefaultBudget = 700

const maxStack = 256

// Execution faults. Underflow is the one the tutorial contract trips over.
var (
	ErrUnderflow    = errors.New("- underflowed below zero")
	ErrOverflow     = errors.New("+ overflowed")
	ErrAssertFailed = errors.New("assert failed")
	ErrTypeMismatch = errors.New("type mismatch")
	ErrStackEmpty   = errors.New("stack underrun")
	ErrStackFull    = errors.New("stack overflow")
	ErrBudget       = errors.New("execution cost budget exceeded")
	ErrNoReturn     = errors.New("program ran past end without return")
	ErrExplicit     = errors.New("err opcode reached")
	ErrBadGroupIdx  = errors.New("group index out of range")
)

// Fault describes where and why execution aborted.
type Fault struct {
	PC   int
	Line int
	Op   string
	Err  error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("execution fault at line %d (%s): %v", f.Line, f.Op, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// Context is everything a program evaluation can see. Globals is mutated in
// place; callers that need atomicity pass a clone and commit it on approval.
type Context struct {
	Group    []Txn
	TxnIndex int
	Globals  GlobalState
	Budget   int // 0 means DefaultBudget
	Log      *zap.Logger
}

func (c *Context) txn() *Txn { return &c.Group[c.TxnIndex] }

// Frame is a snapshot taken after one instruction executed, for traces and
// the step debugger.
type Frame struct {
	PC      int
	Line    int
	Op      string
	Stack   []Value
	Globals GlobalState
}

// Session executes a program one instruction at a time.
type Session struct {
	prog     *Program
	ctx      *Context
	initial  GlobalState // for Reset
	pc       int
	stack    []Value
	cost     int
	done     bool
	approved bool
	fault    error
	log      *zap.Logger
}

// NewSession prepares a stepped evaluation of prog under ctx.
func NewSession(prog *Program, ctx *Context) *Session {
	if ctx.Globals == nil {
		ctx.Globals = make(GlobalState)
	}
	log := ctx.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		prog:    prog,
		ctx:     ctx,
		initial: ctx.Globals.Clone(),
		log:     log,
	}
}

// Done reports whether execution has finished (returned or faulted).
func (s *Session) Done() bool { return s.done }

// Result returns the final verdict. Only meaningful once Done.
func (s *Session) Result() (approved bool, err error) {
	return s.approved, s.fault
}

// PC returns the index of the next instruction to execute.
func (s *Session) PC() int { return s.pc }

// CurrentLine returns the source line of the next instruction, or 0 when done.
func (s *Session) CurrentLine() int {
	if s.done || s.pc >= len(s.prog.Instrs) {
		return 0
	}
	return s.prog.Instrs[s.pc].Line
}

// Reset rewinds the session to the initial state, restoring globals.
func (s *Session) Reset() {
	s.ctx.Globals = s.initial.Clone()
	s.pc = 0
	s.stack = nil
	s.cost = 0
	s.done = false
	s.approved = false
	s.fault = nil
}

// Step executes one instruction and returns its frame. Returns nil once the
// session is done; a fault both finishes the session and is reported in the
// frame's error.
func (s *Session) Step() (*Frame, error) {
	if s.done {
		return nil, s.fault
	}
	if s.pc >= len(s.prog.Instrs) {
		return nil, s.fail(len(s.prog.Instrs)-1, ErrNoReturn)
	}

	budget := s.ctx.Budget
	if budget == 0 {
		budget = DefaultBudget
	}
	s.cost++
	if s.cost > budget {
		return nil, s.fail(s.pc, ErrBudget)
	}

	pc := s.pc
	in := &s.prog.Instrs[pc]
	if err := s.exec(in); err != nil {
		return nil, s.fail(pc, err)
	}

	frame := &Frame{
		PC:      pc,
		Line:    in.Line,
		Op:      renderInstr(in),
		Stack:   append([]Value(nil), s.stack...),
		Globals: s.ctx.Globals.Clone(),
	}
	s.log.Debug("vm step",
		zap.Int("pc", pc),
		zap.Int("line", in.Line),
		zap.String("op", frame.Op),
		zap.Int("stack", len(s.stack)),
	)
	return frame, nil
}

func (s *Session) fail(pc int, err error) error {
	line := 0
	op := ""
	if pc >= 0 && pc < len(s.prog.Instrs) {
		line = s.prog.Instrs[pc].Line
		op = s.prog.Instrs[pc].Op.Name()
	}
	s.done = true
	s.fault = &Fault{PC: pc, Line: line, Op: op, Err: err}
	s.log.Debug("vm fault", zap.Int("pc", pc), zap.Int("line", line), zap.Error(err))
	return s.fault
}

func (s *Session) exec(in *Instr) error {
	next := s.pc + 1
	switch in.Op {
	case OpInt:
		if err := s.push(Uint64(in.Uint)); err != nil {
			return err
		}
	case OpByte, OpAddr:
		if err := s.push(Bytes(in.Bytes)); err != nil {
			return err
		}
	case OpTxn:
		v, err := txnField(s.ctx.txn(), in.Field, len(s.ctx.Group))
		if err != nil {
			return err
		}
		if err := s.push(v); err != nil {
			return err
		}
	case OpGtxn:
		if int(in.Uint) >= len(s.ctx.Group) {
			return fmt.Errorf("%w: gtxn %d of %d", ErrBadGroupIdx, in.Uint, len(s.ctx.Group))
		}
		v, err := txnField(&s.ctx.Group[in.Uint], in.Field, len(s.ctx.Group))
		if err != nil {
			return err
		}
		if err := s.push(v); err != nil {
			return err
		}
	case OpGlobalGet:
		key, err := s.popBytes()
		if err != nil {
			return err
		}
		v, ok := s.ctx.Globals[string(key)]
		if !ok {
			v = Uint64(0) // missing keys read as zero
		}
		if err := s.push(v); err != nil {
			return err
		}
	case OpGlobalPut:
		val, err := s.pop()
		if err != nil {
			return err
		}
		key, err := s.popBytes()
		if err != nil {
			return err
		}
		s.ctx.Globals[string(key)] = val
	case OpGlobalDel:
		key, err := s.popBytes()
		if err != nil {
			return err
		}
		delete(s.ctx.Globals, string(key))
	case OpAdd:
		a, b, err := s.pop2Uints()
		if err != nil {
			return err
		}
		if a+b < a {
			return ErrOverflow
		}
		if err := s.push(Uint64(a + b)); err != nil {
			return err
		}
	case OpSub:
		a, b, err := s.pop2Uints()
		if err != nil {
			return err
		}
		if b > a {
			return fmt.Errorf("%w: %d - %d", ErrUnderflow, a, b)
		}
		if err := s.push(Uint64(a - b)); err != nil {
			return err
		}
	case OpEq:
		b, err := s.pop()
		if err != nil {
			return err
		}
		a, err := s.pop()
		if err != nil {
			return err
		}
		if a.Kind != b.Kind {
			return fmt.Errorf("%w: == on %v and %v", ErrTypeMismatch, a, b)
		}
		if err := s.push(boolVal(a.Equal(b))); err != nil {
			return err
		}
	case OpGe:
		a, b, err := s.pop2Uints()
		if err != nil {
			return err
		}
		if err := s.push(boolVal(a >= b)); err != nil {
			return err
		}
	case OpGt:
		a, b, err := s.pop2Uints()
		if err != nil {
			return err
		}
		if err := s.push(boolVal(a > b)); err != nil {
			return err
		}
	case OpLt:
		a, b, err := s.pop2Uints()
		if err != nil {
			return err
		}
		if err := s.push(boolVal(a < b)); err != nil {
			return err
		}
	case OpAnd:
		a, b, err := s.pop2Uints()
		if err != nil {
			return err
		}
		if err := s.push(boolVal(a != 0 && b != 0)); err != nil {
			return err
		}
	case OpOr:
		a, b, err := s.pop2Uints()
		if err != nil {
			return err
		}
		if err := s.push(boolVal(a != 0 || b != 0)); err != nil {
			return err
		}
	case OpNot:
		a, err := s.popUint()
		if err != nil {
			return err
		}
		if err := s.push(boolVal(a == 0)); err != nil {
			return err
		}
	case OpDup:
		if len(s.stack) == 0 {
			return ErrStackEmpty
		}
		if err := s.push(s.stack[len(s.stack)-1]); err != nil {
			return err
		}
	case OpPop:
		if _, err := s.pop(); err != nil {
			return err
		}
	case OpAssert:
		a, err := s.popUint()
		if err != nil {
			return err
		}
		if a == 0 {
			return ErrAssertFailed
		}
	case OpReturn:
		a, err := s.popUint()
		if err != nil {
			return err
		}
		s.done = true
		s.approved = a != 0
	case OpBranch:
		next = in.Target
	case OpBnz:
		a, err := s.popUint()
		if err != nil {
			return err
		}
		if a != 0 {
			next = in.Target
		}
	case OpBz:
		a, err := s.popUint()
		if err != nil {
			return err
		}
		if a == 0 {
			next = in.Target
		}
	case OpErr:
		return ErrExplicit
	default:
		return fmt.Errorf("unimplemented opcode %d", in.Op)
	}
	s.pc = next
	return nil
}

// Eval runs prog to completion and reports the verdict. A fault rejects.
func Eval(prog *Program, ctx *Context) (bool, error) {
	sess := NewSession(prog, ctx)
	for !sess.Done() {
		if _, err := sess.Step(); err != nil {
			return false, err
		}
	}
	return sess.Result()
}

// EvalTrace runs prog to completion collecting every frame. The trace is
// returned even when execution faults.
func EvalTrace(prog *Program, ctx *Context) ([]Frame, bool, error) {
	sess := NewSession(prog, ctx)
	var frames []Frame
	for !sess.Done() {
		f, err := sess.Step()
		if err != nil {
			approved, _ := sess.Result()
			return frames, approved, err
		}
		if f != nil {
			frames = append(frames, *f)
		}
	}
	approved, err := sess.Result()
	return frames, approved, err
}

// --- stack helpers ---

func (s *Session) push(v Value) error {
	if len(s.stack) >= maxStack {
		return ErrStackFull
	}
	s.stack = append(s.stack, v)
	return nil
}

func (s *Session) pop() (Value, error) {
	if len(s.stack) == 0 {
		return Value{}, ErrStackEmpty
	}
	v := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return v, nil
}

func (s *Session) popUint() (uint64, error) {
	v, err := s.pop()
	if err != nil {
		return 0, err
	}
	if v.Kind != KindUint {
		return 0, fmt.Errorf("%w: want uint, got %v", ErrTypeMismatch, v)
	}
	return v.Uint, nil
}

func (s *Session) popBytes() ([]byte, error) {
	v, err := s.pop()
	if err != nil {
		return nil, err
	}
	if v.Kind != KindBytes {
		return nil, fmt.Errorf("%w: want bytes, got %v", ErrTypeMismatch, v)
	}
	return v.Bytes, nil
}

// pop2Uints pops b then a (a was pushed first).
func (s *Session) pop2Uints() (a, b uint64, err error) {
	b, err = s.popUint()
	if err != nil {
		return 0, 0, err
	}
	a, err = s.popUint()
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func boolVal(b bool) Value {
	if b {
		return Uint64(1)
	}
	return Uint64(0)
}

func txnField(t *Txn, f TxnField, groupSize int) (Value, error) {
	switch f {
	case FieldSender:
		return Bytes(t.Sender), nil
	case FieldReceiver:
		return Bytes(t.Receiver), nil
	case FieldAmount:
		return Uint64(t.Amount), nil
	case FieldTypeEnum:
		return Uint64(t.Type), nil
	case FieldApplicationID:
		return Uint64(t.AppID), nil
	case FieldOnCompletion:
		return Uint64(t.OnCompletion), nil
	case FieldGroupIndex:
		return Uint64(t.GroupIndex), nil
	case FieldGroupSize:
		return Uint64(uint64(groupSize)), nil
	}
	return Value{}, fmt.Errorf("unknown txn field %d", f)
}

func renderInstr(in *Instr) string {
	switch in.Op {
	case OpInt:
		return fmt.Sprintf("int %d", in.Uint)
	case OpByte, OpAddr:
		return fmt.Sprintf("%s %s", in.Op.Name(), Bytes(in.Bytes))
	case OpTxn:
		return "txn " + fieldNames[in.Field]
	case OpGtxn:
		return fmt.Sprintf("gtxn %d %s", in.Uint, fieldNames[in.Field])
	case OpBranch, OpBnz, OpBz:
		return in.Op.Name() + " " + in.Label
	}
	return in.Op.Name()
}
