// Package main is the tracejit CLI: parse a program file, interpret it
// with tracing JIT promotion for hot blocks, report the outcome. The
// single-command, positional-file-argument shape and the top-level
// "Failed: <kind>: <message>" error line follow KTStephano-GVM/main.go's
// argument handling, re-expressed through cobra per SPEC_FULL.md's
// ambient-stack CLI section (grounded on keurnel-assembler's cobra
// root-command layout) instead of the teacher's manual os.Args parsing.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tracejit/internal/interp"
	"tracejit/internal/ir"
	"tracejit/internal/iosink"
	"tracejit/internal/obslog"
	"tracejit/internal/parser"
	"tracejit/internal/tjerr"
)

var (
	flagJITThreshold uint64
	flagNoJIT        bool
	flagTrace        bool
	flagLogJSON      bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tracejit <program-file>",
		Short:         "Interpret a three-address IR program, JIT-compiling hot blocks",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0])
		},
	}
	cmd.Flags().Uint64Var(&flagJITThreshold, "jit-threshold", 1, "exec count a block must exceed before it is JIT-compiled")
	cmd.Flags().BoolVar(&flagNoJIT, "no-jit", false, "disable JIT compilation; run purely interpreted")
	cmd.Flags().BoolVar(&flagTrace, "trace", false, "log the parsed program structure before executing it")
	cmd.Flags().BoolVar(&flagLogJSON, "log-json", false, "emit diagnostics as JSON instead of console text")
	return cmd
}

func run(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return tjerr.Wrap(tjerr.Resource, err, "failed to read %q", path)
	}

	prog, err := parser.Parse(string(src))
	if err != nil {
		return err
	}

	log := obslog.New(flagLogJSON, flagTrace)
	if flagTrace {
		dumpProgram(log, prog)
	}

	in := interp.New(prog, iosink.NewStdout(), log)
	in.DisableJIT = flagNoJIT
	in.JITThreshold = flagJITThreshold

	return in.Run("main")
}

func dumpProgram(log *zap.SugaredLogger, prog *ir.Program) {
	for _, fname := range prog.Order {
		fn, _ := prog.Func(fname)
		log.Infof("function %s (frame=%d, params=%v)", fn.Name, fn.FrameSize, fn.Params)
		for _, bname := range fn.Order {
			blk, _ := fn.Block(bname)
			log.Infof("  block %s -> %q", blk.Name, blk.Fallthrough)
			for _, in := range blk.Instrs {
				log.Infof("    %s", in)
			}
		}
	}
}
