package gen

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sundials-codes/sundials4py-generate/genconfig"
	"github.com/sundials-codes/sundials4py-generate/internal/bindgen"
	"github.com/sundials-codes/sundials4py-generate/internal/codeutil"
	"github.com/sundials-codes/sundials4py-generate/internal/cparse"
)

// ConfigFileName is the conventional name of per-package config files
// discovered in directory mode.
const ConfigFileName = "generate.yaml"

// ErrNoConfigs is returned when directory mode finds no config files.
var ErrNoConfigs = errors.New("no generate.yaml files found")

// Generator drives binding generation for one invocation. Each module gets
// a fresh Options derived from Base; nothing carries over between modules.
type Generator struct {
	DumpSrcML bool
	Base      *bindgen.Options
	Log       *logrus.Logger
	Stdout    io.Writer
}

func NewGenerator() *Generator {
	return &Generator{
		Base:   baseOptions(),
		Log:    logrus.StandardLogger(),
		Stdout: os.Stdout,
	}
}

// Process generates from a single config file, or from every config file
// found beneath a directory. Generation is all-or-nothing: the first
// failure aborts the invocation.
func (g *Generator) Process(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	configs := []string{path}
	if info.IsDir() {
		configs, err = discoverConfigs(path)
		if err != nil {
			return err
		}
	}

	for _, cfgPath := range configs {
		if err := g.generate(cfgPath); err != nil {
			return err
		}
	}
	return nil
}

func discoverConfigs(dir string) ([]string, error) {
	var configs []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == ConfigFileName {
			configs = append(configs, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("%w in directory %s", ErrNoConfigs, dir)
	}
	sort.Strings(configs)
	return configs, nil
}

func (g *Generator) generate(cfgPath string) error {
	g.Log.WithField("config", cfgPath).Info("generating")

	cfg, err := genconfig.Load(cfgPath)
	if err != nil {
		return err
	}
	cfgDir := filepath.Dir(cfgPath)

	for _, name := range cfg.Names() {
		if err := g.generateModule(cfg, cfgDir, name); err != nil {
			return fmt.Errorf("module %s: %w", name, err)
		}
	}
	return nil
}

func (g *Generator) generateModule(cfg *genconfig.File, cfgDir, name string) error {
	opts := g.moduleOptions(cfg, name)
	module := cfg.Modules[name]

	source, err := concatHeaders(cfgDir, module.Headers)
	if err != nil {
		return err
	}

	outPath := module.Path
	if outPath != "" && !filepath.IsAbs(outPath) {
		outPath = filepath.Join(cfgDir, outPath)
	}

	if g.DumpSrcML {
		return g.dumpUnit(opts, name, source, outPath)
	}

	result, err := bindgen.Generate(opts, name, source)
	if err != nil {
		return err
	}

	if outPath == "" {
		fmt.Fprint(g.Stdout, result.GlueCode)
		fmt.Fprint(g.Stdout, result.PydefCode)
		return nil
	}
	g.Log.WithFields(logrus.Fields{"module": name, "path": outPath}).Info("writing bindings")
	return os.WriteFile(outPath, []byte(result.GlueCode+result.PydefCode), 0o644)
}

// dumpUnit writes the parsed structural model as XML, the diagnostic
// alternative to generating bindings.
func (g *Generator) dumpUnit(opts *bindgen.Options, name, source, outPath string) error {
	if opts.Preprocess != nil {
		source = opts.Preprocess(source)
	}
	unit, err := cparse.Parse(source)
	if err != nil {
		return err
	}
	data, err := unit.XML()
	if err != nil {
		return err
	}
	if outPath == "" {
		fmt.Fprintln(g.Stdout, string(data))
		return nil
	}
	g.Log.WithFields(logrus.Fields{"module": name, "path": outPath + ".xml"}).Info("writing structural dump")
	return os.WriteFile(outPath+".xml", data, 0o644)
}

// moduleOptions derives the module's Options from the shared base. The
// base is cloned so that one module's settings can never leak into the
// next: exclusion and nullable lists are replaced, and pointer types are
// the built-ins plus this module's own additions only.
func (g *Generator) moduleOptions(cfg *genconfig.File, name string) *bindgen.Options {
	opts := g.Base.Clone()
	opts.PointerTypes = append(opts.PointerTypes, cfg.PointerTypes(name)...)
	opts.NullableParams = cfg.NullableParams(name)
	opts.EnumExcludeRegex = codeutil.JoinByPipe(cfg.IgnoreEnums(name))
	opts.ClassExcludeRegex = codeutil.JoinByPipe(cfg.IgnoreClasses(name))
	opts.FnExcludeRegex = codeutil.JoinByPipe(cfg.IgnoreFunctions(name))
	opts.MacroIncludeRegex = codeutil.JoinByPipe(cfg.MacroDefines(name))
	return opts
}

func concatHeaders(cfgDir string, headers []string) (string, error) {
	var b strings.Builder
	for _, h := range headers {
		if !filepath.IsAbs(h) {
			h = filepath.Join(cfgDir, h)
		}
		data, err := os.ReadFile(h)
		if err != nil {
			return "", fmt.Errorf("read header: %w", err)
		}
		b.Write(data)
		b.WriteString("\n")
	}
	return b.String(), nil
}
