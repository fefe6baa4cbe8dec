package ir

import "tracejit/internal/tjerr"

// Builder assembles a Program from the fixed sequence of events a
// front-end drives it through: StartData, StartText, PushFrame,
// PushLabel, PushInstr, Finalize. It mirrors original_source/interp.cpp's
// Parser state machine, but every state-machine violation the source
// only logs (or marks TODO and ignores) becomes a real tjerr.Shape error
// here, per spec.md §4.D.
type Builder struct {
	prog       *Program
	inData     bool
	curFunc    *Function
	curBlock   *Block
	sawDataSec bool
	sawTextSec bool
}

func NewBuilder() *Builder {
	return &Builder{prog: NewProgram()}
}

// StartData opens the data section. Global constants pushed after this
// (and before StartText) land in Program.Globals.
func (b *Builder) StartData() error {
	if b.sawDataSec {
		return tjerr.New(tjerr.Shape, "duplicate data section")
	}
	b.sawDataSec = true
	b.inData = true
	return nil
}

// PushGlobal records a named constant while the data section is open.
func (b *Builder) PushGlobal(name string, v Value) error {
	if !b.inData {
		return tjerr.New(tjerr.Shape, "push_global with no active data section")
	}
	if _, exists := b.prog.Globals[name]; exists {
		return tjerr.New(tjerr.Shape, "duplicate global %q", name)
	}
	b.prog.Globals[name] = v
	return nil
}

// StartText closes the data section and opens the text (code) section.
func (b *Builder) StartText() error {
	if b.sawTextSec {
		return tjerr.New(tjerr.Shape, "duplicate text section")
	}
	b.inData = false
	b.sawTextSec = true
	return nil
}

// PushFrame opens a new function. Duplicate function names are a Shape
// error — the source only has a "// TODO: check if func already named"
// comment here and silently overwrites.
func (b *Builder) PushFrame(name string, frameSize uint32, params []Register) error {
	if _, exists := b.prog.Funcs[name]; exists {
		return tjerr.New(tjerr.Shape, "duplicate function %q", name)
	}
	fn := &Function{Name: name, FrameSize: frameSize, Params: params, Blocks: map[string]*Block{}}
	b.prog.Funcs[name] = fn
	b.prog.Order = append(b.prog.Order, name)
	b.curFunc = fn
	b.curBlock = nil
	return nil
}

// PushLabel opens a new block within the current function. Requires an
// active function (the source silently prints "NO FUNC TO PUSH TO" and
// drops the label instead of failing).
func (b *Builder) PushLabel(name string) error {
	if b.curFunc == nil {
		return tjerr.New(tjerr.Shape, "push_label %q with no active function", name)
	}
	if _, exists := b.curFunc.Blocks[name]; exists {
		return tjerr.New(tjerr.Shape, "duplicate block %q in function %q", name, b.curFunc.Name)
	}
	blk := &Block{Name: name}
	b.curFunc.Blocks[name] = blk
	b.curFunc.Order = append(b.curFunc.Order, name)
	// Fallthrough is purely textual adjacency (spec.md §4.C): the block
	// being closed falls through to the block being opened regardless
	// of what its last instruction was. Whether that link is ever
	// followed depends on whether control runs off the end of the
	// block at run time.
	if b.curBlock != nil {
		b.curBlock.Fallthrough = name
	}
	b.curBlock = blk
	return nil
}

// PushInstr appends an instruction to the current block. Requires an
// active block outside the data section (the source silently prints
// "NO BLOCK TO PUSH TO" instead of failing).
func (b *Builder) PushInstr(in Instr) error {
	if b.inData {
		return tjerr.New(tjerr.Shape, "push_instr inside data section")
	}
	if b.curBlock == nil {
		return tjerr.New(tjerr.Shape, "push_instr with no active block")
	}
	b.curBlock.Instrs = append(b.curBlock.Instrs, in)
	return nil
}

// Finalize validates the assembled program and returns it. A function
// with no blocks at all is a Shape error; a last block with an empty
// fallthrough is left as-is (the interpreter treats running off its end
// as halt-on-end).
func (b *Builder) Finalize() (*Program, error) {
	if !b.sawTextSec {
		return nil, tjerr.New(tjerr.Shape, "program has no text section")
	}
	for _, name := range b.prog.Order {
		fn := b.prog.Funcs[name]
		if len(fn.Blocks) == 0 {
			return nil, tjerr.New(tjerr.Shape, "function %q has no blocks", name)
		}
	}
	return b.prog, nil
}
