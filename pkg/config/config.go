// Package config handles regjs.toml compiler configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/dlclark/regexp2"
	"github.com/tliron/commonlog"

	"regjs/pkg/bytecode"
	"regjs/pkg/compiler"

	_ "github.com/tliron/commonlog/simple"
)

// FileName is the name of the configuration file looked up by Load.
const FileName = "regjs.toml"

var log = commonlog.GetLogger("regjs.config")

// identifierPattern matches an ECMAScript IdentifierName.
var identifierPattern = regexp2.MustCompile(
	`^[\p{L}\p{Nl}$_][\p{L}\p{Nl}\p{Mn}\p{Mc}\p{Nd}\p{Pc}$_\u200C\u200D]*$`, regexp2.None)

// Config represents a regjs.toml configuration.
type Config struct {
	Compiler Compiler `toml:"compiler"`
	Log      Log      `toml:"log"`

	// Dir is the directory containing the regjs.toml file (set at load time).
	Dir string `toml:"-"`
}

// Compiler configures name resolution and emission.
type Compiler struct {
	Globals []string `toml:"globals"`
	// Intrinsics maps a name to a directive mnemonic, e.g. "__halt__" = "HALT".
	Intrinsics     map[string]string `toml:"intrinsics"`
	ReleaseScopes  bool              `toml:"release-scopes"`
	CheckRegisters bool              `toml:"check-registers"`
}

// Log configures the commonlog backend.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no regjs.toml exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load parses a regjs.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	log.Debugf("loaded %s", path)
	return c, nil
}

// Parse decodes and validates configuration text.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	defaults := compiler.DefaultOptions()
	if c.Compiler.Globals == nil {
		c.Compiler.Globals = defaults.Globals
	}
	if c.Compiler.Intrinsics == nil {
		c.Compiler.Intrinsics = make(map[string]string, len(defaults.Intrinsics))
		for name, op := range defaults.Intrinsics {
			c.Compiler.Intrinsics[name] = op.String()
		}
	}
}

// IsIdentifier reports whether name is a valid identifier name.
func IsIdentifier(name string) bool {
	ok, err := identifierPattern.MatchString(name)
	return err == nil && ok
}

// Validate checks names and intrinsic mnemonics.
func (c *Config) Validate() error {
	seen := make(map[string]string)
	for _, name := range c.Compiler.Globals {
		if !IsIdentifier(name) {
			return fmt.Errorf("global %q is not a valid identifier", name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("global %q is listed twice", name)
		}
		seen[name] = "global"
	}
	for _, name := range sortedKeys(c.Compiler.Intrinsics) {
		if !IsIdentifier(name) {
			return fmt.Errorf("intrinsic %q is not a valid identifier", name)
		}
		if kind, dup := seen[name]; dup {
			return fmt.Errorf("intrinsic %q is already declared as a %s", name, kind)
		}
		seen[name] = "intrinsic"
		mnemonic := c.Compiler.Intrinsics[name]
		op, ok := bytecode.LookupOpCode(mnemonic)
		if !ok || !op.IsDirective() {
			return fmt.Errorf("intrinsic %q: %q is not a directive opcode", name, mnemonic)
		}
	}
	return nil
}

// CompilerOptions converts the [compiler] section into compiler options.
// The configuration must have been validated.
func (c *Config) CompilerOptions() compiler.Options {
	intrinsics := make(map[string]bytecode.OpCode, len(c.Compiler.Intrinsics))
	for name, mnemonic := range c.Compiler.Intrinsics {
		if op, ok := bytecode.LookupOpCode(mnemonic); ok {
			intrinsics[name] = op
		}
	}
	globals := make([]string, len(c.Compiler.Globals))
	copy(globals, c.Compiler.Globals)
	return compiler.Options{
		Globals:        globals,
		Intrinsics:     intrinsics,
		ReleaseScopes:  c.Compiler.ReleaseScopes,
		CheckRegisters: c.Compiler.CheckRegisters,
	}
}

// Apply configures the commonlog backend. A relative log file is resolved
// against the configuration directory.
func (l Log) Apply(dir string) {
	if l.File == "" {
		commonlog.Configure(l.Verbosity, nil)
		return
	}
	path := l.File
	if !filepath.IsAbs(path) && dir != "" {
		path = filepath.Join(dir, path)
	}
	commonlog.Configure(l.Verbosity, &path)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
