// Command asmforge is a thin demonstration driver over the library:
// it builds one small program for the chosen architecture, then
// either saves it as a standalone ELF-64 executable or runs it
// in-memory via a sealed memfd, per spec.md §4.5's two execution
// modes. It is not the assembler front-end (no source file is parsed
// here; that tokenizer/parser is an out-of-scope external
// collaborator per spec.md §1) — it exists only to exercise the
// library end to end the way a host program would.
//
// Grounded on the teacher's main.go: flag-based argument parsing
// (-o, -target, -v), no config file, no subcommands.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/xyproto/asmforge/arm64"
	"github.com/xyproto/asmforge/buffer"
	"github.com/xyproto/asmforge/elfobj"
	"github.com/xyproto/asmforge/label"
	"github.com/xyproto/asmforge/x86"
)

func main() {
	var (
		target  = flag.String("target", defaultTarget(), "architecture to assemble for: x86_64 or arm64")
		output  = flag.String("o", "", "path to save the standalone ELF-64 executable (optional)")
		run     = flag.Bool("run", false, "execute the assembled image in-memory via a sealed memfd")
		verbose = flag.Bool("v", false, "set the encoders' Verbose field (no emitter prints a trace)")
	)
	flag.Parse()

	buf, entry, err := assembleExitProgram(*target, *verbose)
	if err != nil {
		log.Fatalf("asmforge: %v", err)
	}

	obj, err := elfobj.Build(buf, &entry, elfobj.DefaultMount, nil)
	if err != nil {
		log.Fatalf("asmforge: build ELF: %v", err)
	}

	if *output != "" {
		if err := obj.Save(*output); err != nil {
			log.Fatalf("asmforge: save %s: %v", *output, err)
		}
		fmt.Printf("wrote %s (%d bytes)\n", *output, len(obj.Bytes))
	}

	if *run || *output == "" {
		result, err := obj.Run()
		if err != nil {
			log.Fatalf("asmforge: run: %v", err)
		}
		fmt.Printf("child ran=%v exit=%d\n", result.Ran, result.ExitCode)
		os.Exit(result.ExitCode)
	}
}

func defaultTarget() string {
	if runtime.GOARCH == "arm64" {
		return "arm64"
	}
	return "x86_64"
}

// assembleExitProgram builds a one-instruction-block program that
// exits with status 42, the same constant spec.md §8 scenario 6
// checks for, in whichever of the two supported architectures is
// requested.
func assembleExitProgram(target string, verbose bool) (*buffer.SegmentedBuffer, label.Label, error) {
	start := label.New("_start")

	switch target {
	case "x86_64", "amd64":
		buf := buffer.New(buffer.MachineX86_64)
		buf.UseSection(buffer.X|buffer.R, ".text")
		e := x86.New(buf)
		e.Verbose = verbose

		if err := buf.AddLabel(start); err != nil {
			return nil, label.Label{}, err
		}
		if err := e.MovImm(x86.Reg(x86.RBX), 42); err != nil {
			return nil, label.Label{}, err
		}
		if err := e.MovImm(x86.Reg(x86.RAX), 1); err != nil {
			return nil, label.Label{}, err
		}
		if err := e.Int(0x80); err != nil {
			return nil, label.Label{}, err
		}
		return buf, start, nil

	case "arm64", "aarch64":
		buf := buffer.New(buffer.MachineARM64)
		buf.UseSection(buffer.X|buffer.R, ".text")
		e := arm64.New(buf)
		e.Verbose = verbose

		if err := buf.AddLabel(start); err != nil {
			return nil, label.Label{}, err
		}
		// Linux AArch64 sys_exit: x8 = 93, x0 = status, then SVC #0.
		if err := e.MovImm(arm64.X(0), 42); err != nil {
			return nil, label.Label{}, err
		}
		if err := e.MovImm(arm64.X(8), 93); err != nil {
			return nil, label.Label{}, err
		}
		if err := e.Svc(0); err != nil {
			return nil, label.Label{}, err
		}
		return buf, start, nil

	default:
		return nil, label.Label{}, fmt.Errorf("unknown target %q (want x86_64 or arm64)", target)
	}
}
