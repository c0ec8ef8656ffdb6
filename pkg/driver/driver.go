package driver

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"regjs/pkg/ast"
	"regjs/pkg/bytecode"
	"regjs/pkg/compiler"
	"regjs/pkg/config"
)

var log = commonlog.GetLogger("regjs.driver")

const debugDriver = false

func debugPrintf(format string, args ...any) {
	if debugDriver {
		log.Debugf(format, args...)
	}
}

// Driver compiles ESTree documents with one fixed set of compiler options.
// A Driver holds no per-program state and may be shared between goroutines.
type Driver struct {
	options compiler.Options
	// Parallelism bounds CompileAll. Zero means GOMAXPROCS.
	Parallelism int
}

// New creates a driver compiling with the given options.
func New(options compiler.Options) *Driver {
	return &Driver{options: options}
}

// NewFromConfig creates a driver from a loaded configuration and applies its
// logging settings.
func NewFromConfig(cfg *config.Config) *Driver {
	cfg.Log.Apply(cfg.Dir)
	return New(cfg.CompilerOptions())
}

// CompileProgram compiles an already decoded syntax tree.
func (d *Driver) CompileProgram(program *ast.Program) (*bytecode.Program, error) {
	return compiler.Compile(program, d.options)
}

// CompileJSON decodes an ESTree JSON document and compiles it.
func (d *Driver) CompileJSON(data []byte) (*bytecode.Program, error) {
	program, err := ast.DecodeESTree(data)
	if err != nil {
		return nil, err
	}
	return d.CompileProgram(program)
}

// CompileFile reads an ESTree JSON file and compiles it.
func (d *Driver) CompileFile(filename string) (*bytecode.Program, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", filename, err)
	}
	prog, err := d.CompileJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return prog, nil
}

// Input is one named ESTree document for CompileAll.
type Input struct {
	Name string
	Data []byte
}

// Result is the outcome of compiling one Input.
type Result struct {
	Name    string
	Program *bytecode.Program
	Err     error
}

// CompileAll compiles independent documents concurrently. Results are in
// input order and carry their own compile errors; the returned error is only
// set when ctx is cancelled before every input was compiled.
func (d *Driver) CompileAll(ctx context.Context, inputs []Input) ([]Result, error) {
	results := make([]Result, len(inputs))
	limit := d.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, input := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			prog, err := d.CompileJSON(input.Data)
			results[i] = Result{Name: input.Name, Program: prog, Err: err}
			if err != nil {
				log.Errorf("%s: %s", input.Name, err)
			} else {
				debugPrintf("%s: compiled %d functions", input.Name, len(prog.Functions))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// CompileJSON compiles an ESTree JSON document with the default options.
func CompileJSON(data []byte) (*bytecode.Program, error) {
	return New(compiler.DefaultOptions()).CompileJSON(data)
}
