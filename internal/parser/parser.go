package parser

import (
	"strconv"
	"strings"

	"tracejit/internal/ir"
	"tracejit/internal/tjerr"
)

// Parse drives an ir.Builder through src and returns the finished
// Program. Grammar, line by line, matching spec.md §6 exactly (the
// tokeniser only splits on whitespace; trailing commas are accepted but
// not required, while the "=>"/"->" separators are required where
// shown):
//
//	.data
//	name = 123                              // int global
//	name = 1.5                               // float global
//	.text
//	.frame NAME, SIZE, rNN, rNN, ...
//	LABEL:
//	  loadI  VAL    => rD
//	  i2i    rS     => rD
//	  add    rS1, rS2 => rD
//	  addI   rS,  VAL => rD
//	  mult   rS1, rS2 => rD
//	  multI  rS,  VAL => rD
//	  cmp_LT rS1, rS2 => rD   // and _LE, _GT, _GE
//	  cbr    rS     -> LABEL
//	  iwrite rS
//	  ret
//	  nop
func Parse(src string) (*ir.Program, error) {
	b := ir.NewBuilder()
	lines := lex(src)

	for i := 0; i < len(lines); i++ {
		ln := lines[i]
		switch ln.fields[0] {
		case ".data":
			if err := b.StartData(); err != nil {
				return nil, annotate(ln, err)
			}
		case ".text":
			if err := b.StartText(); err != nil {
				return nil, annotate(ln, err)
			}
		case ".frame":
			name, frameSize, params, err := parseFrame(ln.fields[1:])
			if err != nil {
				return nil, annotate(ln, err)
			}
			if err := b.PushFrame(name, frameSize, params); err != nil {
				return nil, annotate(ln, err)
			}
		default:
			if strings.HasSuffix(ln.fields[0], ":") && len(ln.fields) == 1 {
				name := strings.TrimSuffix(ln.fields[0], ":")
				if err := b.PushLabel(name); err != nil {
					return nil, annotate(ln, err)
				}
				continue
			}
			if len(ln.fields) >= 3 && ln.fields[1] == "=" {
				if err := parseGlobal(b, ln.fields); err != nil {
					return nil, annotate(ln, err)
				}
				continue
			}
			instr, err := parseInstr(ln.fields)
			if err != nil {
				return nil, annotate(ln, err)
			}
			if err := b.PushInstr(instr); err != nil {
				return nil, annotate(ln, err)
			}
		}
	}

	return b.Finalize()
}

func annotate(ln line, err error) error {
	if _, ok := tjerr.KindOf(err); ok {
		return err
	}
	return tjerr.Wrap(tjerr.Parse, err, "line %d: %s", ln.num, ln.raw)
}

func parseGlobal(b *ir.Builder, fields []string) error {
	name := fields[0]
	v, err := parseValueLiteral(trimComma(fields[2]))
	if err != nil {
		return err
	}
	return b.PushGlobal(name, v)
}

func parseFrame(fields []string) (name string, frameSize uint32, params []ir.Register, err error) {
	if len(fields) < 2 {
		return "", 0, nil, tjerr.New(tjerr.Parse, ".frame requires a name and a size")
	}
	name = trimComma(fields[0])
	n, err := strconv.ParseUint(trimComma(fields[1]), 10, 32)
	if err != nil {
		return "", 0, nil, tjerr.Wrap(tjerr.Parse, err, "invalid frame size %q", fields[1])
	}
	frameSize = uint32(n)
	for _, f := range fields[2:] {
		r, err := parseReg(trimComma(f))
		if err != nil {
			return "", 0, nil, err
		}
		params = append(params, r)
	}
	return name, frameSize, params, nil
}

// parseInstr parses one text-section instruction line in the mnemonic-
// first form spec.md §6 shows: `MNEMONIC operand, operand => rD` or
// `cbr rS -> LABEL`. Mnemonic matching is case-insensitive, so both
// `loadI`/`cmp_LT` (as written in the grammar and as Instr.String's
// pretty-printer emits it) and all-lowercase spellings are accepted.
func parseInstr(fields []string) (ir.Instr, error) {
	mnemonic := strings.ToLower(fields[0])
	switch {
	case mnemonic == "ret":
		return ir.Ret(), nil
	case mnemonic == "nop":
		return ir.Nop(), nil
	case mnemonic == "iwrite":
		if len(fields) != 2 {
			return ir.Instr{}, tjerr.New(tjerr.Parse, "iwrite requires one register")
		}
		src, err := parseReg(fields[1])
		if err != nil {
			return ir.Instr{}, err
		}
		return ir.IWrite(src), nil
	case mnemonic == "cbr":
		return parseCbr(fields)
	case mnemonic == "loadi":
		return parseLoadImm(fields)
	case mnemonic == "i2i":
		return parseI2I(fields)
	case mnemonic == "add":
		a, b, d, err := parseTwoRegsArrowDst(fields)
		if err != nil {
			return ir.Instr{}, err
		}
		return ir.Add(d, a, b), nil
	case mnemonic == "addi":
		a, v, d, err := parseRegImmArrowDst(fields)
		if err != nil {
			return ir.Instr{}, err
		}
		return ir.AddImm(d, a, v), nil
	case mnemonic == "mult":
		a, b, d, err := parseTwoRegsArrowDst(fields)
		if err != nil {
			return ir.Instr{}, err
		}
		return ir.Mult(d, a, b), nil
	case mnemonic == "multi":
		a, v, d, err := parseRegImmArrowDst(fields)
		if err != nil {
			return ir.Instr{}, err
		}
		return ir.MultImm(d, a, v), nil
	case strings.HasPrefix(mnemonic, "cmp_"):
		return parseCmp(mnemonic, fields)
	default:
		return ir.Instr{}, tjerr.New(tjerr.Parse, "unrecognized instruction %q", fields[0])
	}
}

// parseLoadImm parses "loadI VAL => rD".
func parseLoadImm(fields []string) (ir.Instr, error) {
	if len(fields) != 4 {
		return ir.Instr{}, tjerr.New(tjerr.Parse, "loadI requires a value and a destination register")
	}
	if err := expectArrow(fields[2], "=>"); err != nil {
		return ir.Instr{}, err
	}
	v, err := parseValueLiteral(fields[1])
	if err != nil {
		return ir.Instr{}, err
	}
	dst, err := parseReg(fields[3])
	if err != nil {
		return ir.Instr{}, err
	}
	return ir.LoadImm(dst, v), nil
}

// parseI2I parses "i2i rS => rD".
func parseI2I(fields []string) (ir.Instr, error) {
	if len(fields) != 4 {
		return ir.Instr{}, tjerr.New(tjerr.Parse, "i2i requires a source and a destination register")
	}
	if err := expectArrow(fields[2], "=>"); err != nil {
		return ir.Instr{}, err
	}
	src, err := parseReg(fields[1])
	if err != nil {
		return ir.Instr{}, err
	}
	dst, err := parseReg(fields[3])
	if err != nil {
		return ir.Instr{}, err
	}
	return ir.I2I(dst, src), nil
}

// parseCbr parses "cbr rS -> LABEL". The target must be a label, not a
// numeric literal (spec.md §8 scenario S5).
func parseCbr(fields []string) (ir.Instr, error) {
	if len(fields) != 4 {
		return ir.Instr{}, tjerr.New(tjerr.Parse, "cbr requires a condition register and a label")
	}
	if err := expectArrow(fields[2], "->"); err != nil {
		return ir.Instr{}, err
	}
	cond, err := parseReg(fields[1])
	if err != nil {
		return ir.Instr{}, err
	}
	target := trimComma(fields[3])
	if _, err := strconv.ParseInt(target, 10, 64); err == nil {
		return ir.Instr{}, tjerr.New(tjerr.Parse, "cbr target %q must be a label, not a numeric literal", target)
	}
	return ir.Cbr(cond, target), nil
}

// parseTwoRegsArrowDst parses "MNEM rS1, rS2 => rD".
func parseTwoRegsArrowDst(fields []string) (a, b, dst ir.Register, err error) {
	if len(fields) != 5 {
		return 0, 0, 0, tjerr.New(tjerr.Parse, "%s requires two source registers and a destination", fields[0])
	}
	if err := expectArrow(fields[3], "=>"); err != nil {
		return 0, 0, 0, err
	}
	a, err = parseReg(trimComma(fields[1]))
	if err != nil {
		return 0, 0, 0, err
	}
	b, err = parseReg(fields[2])
	if err != nil {
		return 0, 0, 0, err
	}
	dst, err = parseReg(fields[4])
	if err != nil {
		return 0, 0, 0, err
	}
	return a, b, dst, nil
}

// parseRegImmArrowDst parses "MNEM rS, VAL => rD".
func parseRegImmArrowDst(fields []string) (a ir.Register, v ir.Value, dst ir.Register, err error) {
	if len(fields) != 5 {
		return 0, ir.Value{}, 0, tjerr.New(tjerr.Parse, "%s requires a source register, an immediate, and a destination", fields[0])
	}
	if err := expectArrow(fields[3], "=>"); err != nil {
		return 0, ir.Value{}, 0, err
	}
	a, err = parseReg(trimComma(fields[1]))
	if err != nil {
		return 0, ir.Value{}, 0, err
	}
	v, err = parseValueLiteral(fields[2])
	if err != nil {
		return 0, ir.Value{}, 0, err
	}
	dst, err = parseReg(fields[4])
	if err != nil {
		return 0, ir.Value{}, 0, err
	}
	return a, v, dst, nil
}

func parseCmp(mnemonic string, fields []string) (ir.Instr, error) {
	a, b, dst, err := parseTwoRegsArrowDst(fields)
	if err != nil {
		return ir.Instr{}, err
	}
	switch mnemonic {
	case "cmp_gt":
		return ir.CmpGT(dst, a, b), nil
	case "cmp_ge":
		return ir.CmpGE(dst, a, b), nil
	case "cmp_lt":
		return ir.CmpLT(dst, a, b), nil
	case "cmp_le":
		return ir.CmpLE(dst, a, b), nil
	default:
		return ir.Instr{}, tjerr.New(tjerr.Parse, "unrecognized comparison %q", mnemonic)
	}
}

func expectArrow(tok, want string) error {
	if tok != want {
		return tjerr.New(tjerr.Parse, "expected %q, got %q", want, tok)
	}
	return nil
}

func parseReg(tok string) (ir.Register, error) {
	tok = trimComma(tok)
	if !strings.HasPrefix(tok, "r") {
		return 0, tjerr.New(tjerr.Parse, "expected register, got %q", tok)
	}
	n, err := strconv.ParseUint(tok[1:], 10, 32)
	if err != nil {
		return 0, tjerr.Wrap(tjerr.Parse, err, "invalid register %q", tok)
	}
	return ir.Register(n), nil
}

func parseValueLiteral(tok string) (ir.Value, error) {
	tok = trimComma(tok)
	if strings.Contains(tok, ".") {
		f, err := strconv.ParseFloat(tok, 32)
		if err != nil {
			return ir.Value{}, tjerr.Wrap(tjerr.Parse, err, "invalid float literal %q", tok)
		}
		return ir.FloatVal(float32(f)), nil
	}
	i, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return ir.Value{}, tjerr.Wrap(tjerr.Parse, err, "invalid int literal %q", tok)
	}
	return ir.IntVal(i), nil
}

func trimComma(s string) string {
	return strings.TrimSuffix(s, ",")
}
