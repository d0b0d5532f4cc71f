package avm

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chainlab-dev/chainlab/internal/keys"
)

// ErrAssemble wraps all assembler failures.
var ErrAssemble = errors.New("assemble error")

// Assemble parses assembly source text into a Program.
//
// Syntax, one instruction per line:
//
//	label:            branch target
//	int 42            push uint
//	byte "owner"      push byte string (quoted, or 0x-prefixed hex)
//	addr CVMQX7...    push an address as bytes (checksum-validated)
//	txn Amount        push a field of the current transaction
//	gtxn 0 Receiver   push a field of group transaction 0
//	bnz done          branch if nonzero
//
// `//` starts a comment. Blank lines are ignored.
func Assemble(source string) (*Program, error) {
	lines := strings.Split(source, "\n")
	prog := &Program{Source: source, Lines: lines}
	labels := make(map[string]int)

	type pendingRef struct {
		instr int
		label string
		line  int
	}
	var refs []pendingRef

	for i, raw := range lines {
		lineNo := i + 1
		line := raw
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Label definition.
		if strings.HasSuffix(line, ":") && !strings.ContainsAny(line[:len(line)-1], " \t") {
			name := line[:len(line)-1]
			if _, dup := labels[name]; dup {
				return nil, fmt.Errorf("%w: line %d: duplicate label %q", ErrAssemble, lineNo, name)
			}
			labels[name] = len(prog.Instrs)
			continue
		}

		tokens := splitTokens(line)
		op, ok := opByName[tokens[0]]
		if !ok {
			return nil, fmt.Errorf("%w: line %d: unknown opcode %q", ErrAssemble, lineNo, tokens[0])
		}

		in := Instr{Op: op, Line: lineNo}
		switch op {
		case OpInt:
			if len(tokens) != 2 {
				return nil, fmt.Errorf("%w: line %d: int takes one operand", ErrAssemble, lineNo)
			}
			v, err := strconv.ParseUint(tokens[1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: bad int literal %q", ErrAssemble, lineNo, tokens[1])
			}
			in.Uint = v

		case OpByte:
			if len(tokens) != 2 {
				return nil, fmt.Errorf("%w: line %d: byte takes one operand", ErrAssemble, lineNo)
			}
			b, err := parseByteLiteral(tokens[1])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrAssemble, lineNo, err)
			}
			in.Bytes = b

		case OpAddr:
			if len(tokens) != 2 {
				return nil, fmt.Errorf("%w: line %d: addr takes one operand", ErrAssemble, lineNo)
			}
			if !keys.IsValidAddress(tokens[1]) {
				return nil, fmt.Errorf("%w: line %d: invalid address %q", ErrAssemble, lineNo, tokens[1])
			}
			in.Bytes = []byte(tokens[1])

		case OpTxn:
			if len(tokens) != 2 {
				return nil, fmt.Errorf("%w: line %d: txn takes one field operand", ErrAssemble, lineNo)
			}
			f, ok := fieldByName[tokens[1]]
			if !ok {
				return nil, fmt.Errorf("%w: line %d: unknown txn field %q", ErrAssemble, lineNo, tokens[1])
			}
			in.Field = f

		case OpGtxn:
			if len(tokens) != 3 {
				return nil, fmt.Errorf("%w: line %d: gtxn takes index and field operands", ErrAssemble, lineNo)
			}
			idx, err := strconv.ParseUint(tokens[1], 10, 8)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: bad group index %q", ErrAssemble, lineNo, tokens[1])
			}
			f, ok := fieldByName[tokens[2]]
			if !ok {
				return nil, fmt.Errorf("%w: line %d: unknown txn field %q", ErrAssemble, lineNo, tokens[2])
			}
			in.Uint = idx
			in.Field = f

		case OpBranch, OpBnz, OpBz:
			if len(tokens) != 2 {
				return nil, fmt.Errorf("%w: line %d: %s takes a label operand", ErrAssemble, lineNo, tokens[0])
			}
			in.Label = tokens[1]
			refs = append(refs, pendingRef{instr: len(prog.Instrs), label: tokens[1], line: lineNo})

		default:
			if len(tokens) != 1 {
				return nil, fmt.Errorf("%w: line %d: %s takes no operands", ErrAssemble, lineNo, tokens[0])
			}
		}

		prog.Instrs = append(prog.Instrs, in)
	}

	// Resolve branch targets. A label at the very end of the program is a
	// valid target: jumping there ends execution as a fall-off (fault), the
	// same as in the live VM.
	for _, ref := range refs {
		target, ok := labels[ref.label]
		if !ok {
			return nil, fmt.Errorf("%w: line %d: undefined label %q", ErrAssemble, ref.line, ref.label)
		}
		prog.Instrs[ref.instr].Target = target
	}

	if len(prog.Instrs) == 0 {
		return nil, fmt.Errorf("%w: empty program", ErrAssemble)
	}
	return prog, nil
}

func parseByteLiteral(tok string) ([]byte, error) {
	if strings.HasPrefix(tok, "0x") || strings.HasPrefix(tok, "0X") {
		b, err := hex.DecodeString(tok[2:])
		if err != nil {
			return nil, fmt.Errorf("bad hex literal %q", tok)
		}
		return b, nil
	}
	if strings.HasPrefix(tok, `"`) {
		s, err := strconv.Unquote(tok)
		if err != nil {
			return nil, fmt.Errorf("bad string literal %s", tok)
		}
		return []byte(s), nil
	}
	return nil, fmt.Errorf("byte literal must be quoted or 0x-prefixed, got %q", tok)
}

// splitTokens splits on whitespace but keeps quoted strings whole.
func splitTokens(line string) []string {
	var out []string
	var cur strings.Builder
	inQuote := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuote = !inQuote
			cur.WriteByte(c)
		case (c == ' ' || c == '\t') && !inQuote:
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
