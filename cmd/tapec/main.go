// tapec compiles a Brainfuck-dialect source file to a relocatable x86-64
// ELF object (default) or to a raw instruction stream. The runtime that
// provides the tape and the tape_read/tape_write externals is linked in
// separately.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"tapec"
)

func main() {
	var (
		output = flag.String("o", "out.o", "output file")
		raw    = flag.Bool("raw", false, "emit a raw instruction stream instead of an object file")
		base   = flag.String("base", "", "base address for raw output (overrides TAPEC_BASE)")
	)
	flag.Parse()

	input := os.Stdin
	name := "<stdin>"
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		input = f
		name = filepath.Base(flag.Arg(0))
	}

	src, err := io.ReadAll(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "can't read program: %v\n", err)
		os.Exit(1)
	}

	ir, err := decode(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		os.Exit(1)
	}

	settings := tapec.DefaultSettings()
	if *base != "" {
		addr, err := strconv.ParseUint(*base, 0, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad base address %q: %v\n", *base, err)
			os.Exit(1)
		}
		settings.BaseAddress = addr
	}

	compiler := tapec.New(settings)
	var out []byte
	if *raw {
		out, err = compiler.CompileToBytecode(ir)
	} else {
		var obj *tapec.Object
		obj, err = compiler.CompileToObject(ir, name)
		if err == nil {
			out = obj.Bytes()
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		os.Exit(1)
	}

	if err := os.WriteFile(*output, out, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
