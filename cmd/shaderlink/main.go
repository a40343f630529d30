// Command shaderlink links a program described by a TOML manifest and
// prints its info log, reflection tables and generated code.
//
// Usage:
//
//	shaderlink [options] <manifest.toml>
//
// Examples:
//
//	shaderlink program.toml                  # Link and print everything
//	shaderlink -o program.bin program.toml   # Also save the program binary
//	shaderlink -binary program.toml > p.bin  # Write only the binary to stdout
//	shaderlink -print-config program.toml    # Print the effective device config
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/term"

	"github.com/gogpu/shaderlink"
	"github.com/gogpu/shaderlink/binary"
	"github.com/gogpu/shaderlink/config"
	"github.com/gogpu/shaderlink/program"
	"github.com/gogpu/shaderlink/shader"
)

var (
	output      = flag.String("o", "", "write the program binary to file")
	binaryOut   = flag.Bool("binary", false, "write only the program binary to stdout")
	configPath  = flag.String("config", "", "device config (overrides the manifest)")
	printConfig = flag.Bool("print-config", false, "print the effective device config and exit")
	version     = flag.Bool("version", false, "print version")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if *version {
		fmt.Printf("shaderlink version %s\n", binary.BuildVersion)
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: no manifest specified")
		usage()
		os.Exit(1)
	}
	if err := run(args[0], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(path string, stdout *os.File) error {
	manifest, err := LoadManifest(path)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(manifest)
	if err != nil {
		return err
	}
	if *printConfig {
		return config.Write(stdout, cfg)
	}
	if *binaryOut && term.IsTerminal(int(stdout.Fd())) {
		return fmt.Errorf("refusing to write a binary to a terminal; redirect stdout or use -o")
	}

	p, err := linkManifest(manifest, cfg)
	if err != nil {
		if p != nil {
			fmt.Fprint(os.Stderr, p.InfoLog())
		}
		return fmt.Errorf("link failed: %w", err)
	}

	blob, _ := p.Binary()
	if *output != "" {
		if err := os.WriteFile(*output, blob, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %s (%d bytes)\n", *output, len(blob))
	}
	if *binaryOut {
		_, err := stdout.Write(blob)
		return err
	}
	report(stdout, p)
	return nil
}

func loadConfig(m *Manifest) (config.Config, error) {
	if *configPath != "" {
		return config.Load(*configPath)
	}
	return m.LoadConfig()
}

func linkManifest(m *Manifest, cfg config.Config) (*program.Program, error) {
	opts, err := m.LinkOptions()
	if err != nil {
		return nil, err
	}
	opts.Program = append(opts.Program, program.WithCache(nil))
	shaders := make([]*shader.Shader, 0, len(m.Shaders))
	for i := range m.Shaders {
		module, err := m.Shaders[i].Module()
		if err != nil {
			return nil, err
		}
		s, err := shaderlink.FromModule(module)
		if err != nil {
			return nil, err
		}
		shaders = append(shaders, s)
	}
	return shaderlink.LinkWithOptions(cfg, opts, shaders...)
}

// report prints the reflection tables and the code of every linked stage.
func report(w io.Writer, p *program.Program) {
	exe := p.Executable()

	fmt.Fprintf(w, "// stages: %s\n", exe.LinkedStages)
	for _, a := range p.ActiveAttributes() {
		fmt.Fprintf(w, "// attribute %-24s location %d\n", a.Name, a.Location)
	}
	for _, u := range p.ActiveUniforms() {
		fmt.Fprintf(w, "// uniform   %-24s location %d\n", u.Name, p.GetUniformLocation(u.Name))
	}
	for _, o := range exe.OutputVariables {
		fmt.Fprintf(w, "// output    %-24s location %d index %d\n", o.Name, o.Location, o.Index)
	}
	for i := range exe.TransformFeedbackVaryings {
		v := &exe.TransformFeedbackVaryings[i]
		fmt.Fprintf(w, "// capture   %-24s slot %d\n", v.NameWithArrayIndex(), i)
	}

	vars := p.Variables()
	names := maps.Keys(vars)
	slices.Sort(names)
	for _, name := range names {
		v := vars[name]
		fmt.Fprintf(w, "// variable  %-24s set %d binding %d location %d\n", name, v.DescriptorSet, v.Binding, v.Location)
	}

	for _, stage := range exe.LinkedStages.Stages() {
		fmt.Fprintf(w, "\n// ----- %s -----\n", stage)
		fmt.Fprint(w, p.Source(stage))
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: shaderlink [options] <manifest.toml>\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  shaderlink program.toml                 Link and print everything\n")
	fmt.Fprintf(os.Stderr, "  shaderlink -o program.bin program.toml  Also save the binary\n")
	fmt.Fprintf(os.Stderr, "  shaderlink -binary program.toml > p.bin Write only the binary\n")
}
