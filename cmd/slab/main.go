// Command slab converts JSON documents to slab containers and binary frames
// and prints what ends up in them.
//
//	slab [-config file] [-log-level level] inspect file.json...
//	slab pack [-zstd] in.json out.slb
//	slab unpack in.slb
//	slab dump [-format yaml|json] file.json...
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rawbytedev/slab"
	"github.com/rawbytedev/slab/config"
	"github.com/rawbytedev/slab/pkg/binwire"
	"github.com/rawbytedev/slab/pkg/jsonwire"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

var errUsage = errors.New("usage: slab [-config file] [-log-level level] inspect|pack|unpack|dump ...")

func main() {
	if err := mainImpl(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "slab: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	cfg *config.Config
	rt  *slab.Runtime
	out io.Writer
	log *zap.Logger
}

func mainImpl(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("slab", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "YAML config file")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error); overrides the config")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			return err
		}
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	slab.SetLogger(logger)

	a := &app{cfg: cfg, rt: slab.NewRuntime(cfg.RegistryOptions()), out: out, log: logger}
	rest := fs.Args()
	if len(rest) == 0 {
		return errUsage
	}
	switch cmd, rest := rest[0], rest[1:]; cmd {
	case "inspect":
		return a.inspect(rest)
	case "pack":
		return a.pack(rest)
	case "unpack":
		return a.unpack(rest)
	case "dump":
		return a.dump(rest)
	default:
		return fmt.Errorf("unknown command %q\n%w", cmd, errUsage)
	}
}

// decodeFiles decodes every file concurrently into the shared runtime and
// returns the roots in argument order.
func (a *app) decodeFiles(paths []string) ([]*slab.Container, error) {
	roots := make([]*slab.Container, len(paths))
	var g errgroup.Group
	for i, p := range paths {
		g.Go(func() error {
			data, err := os.ReadFile(p) //nolint:gosec // User-specified input path
			if err != nil {
				return err
			}
			c, err := jsonwire.Decode(a.rt.Registry, data)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			a.log.Debug("decoded", zap.String("file", p), zap.Uint64("container", c.ID()))
			roots[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return roots, nil
}

func (a *app) inspect(paths []string) error {
	if len(paths) == 0 {
		return errUsage
	}
	roots, err := a.decodeFiles(paths)
	if err != nil {
		return err
	}
	for i, root := range roots {
		fmt.Fprintf(a.out, "== %s\n", paths[i])
		if err := slab.Walk(root, func(c *slab.Container) error {
			printTable(a.out, slab.Describe(c))
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

func printTable(w io.Writer, info slab.ContainerInfo) {
	fmt.Fprintf(w, "#%d gen=%d stride=%d\n", info.ID, info.Generation, info.Stride)
	for _, f := range info.Fields {
		kind := f.Type
		if f.Array {
			kind += "[]"
		}
		fmt.Fprintf(w, "  %-16s %-10s @%-5d %4dB  %s\n", f.Name, kind, f.Offset, f.Length, strings.Join(f.Values, " "))
	}
}

func (a *app) pack(args []string) error {
	fs := flag.NewFlagSet("pack", flag.ContinueOnError)
	useZstd := fs.Bool("zstd", false, "Compress the frame body")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errUsage
	}
	roots, err := a.decodeFiles(fs.Args()[:1])
	if err != nil {
		return err
	}
	flags := a.cfg.BinaryFlags()
	if *useZstd {
		flags |= binwire.FlagZstd
	}
	frame, err := binwire.Encode(roots[0], flags)
	if err != nil {
		return err
	}
	a.log.Info("packed", zap.String("file", fs.Arg(1)), zap.Int("bytes", len(frame)), zap.Uint16("flags", flags))
	return os.WriteFile(fs.Arg(1), frame, 0o644) //nolint:gosec // User-specified output path
}

func (a *app) unpack(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	frame, err := os.ReadFile(args[0]) //nolint:gosec // User-specified input path
	if err != nil {
		return err
	}
	root, err := binwire.Decode(a.rt.Registry, frame)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	doc, err := jsonwire.Encode(root)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "%s\n", doc)
	return err
}

func (a *app) dump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	format := fs.String("format", "yaml", "Output format (yaml, json)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errUsage
	}
	if _, err := a.decodeFiles(fs.Args()); err != nil {
		return err
	}
	infos := slab.DescribeAll(a.rt.Registry.Snapshot())
	switch *format {
	case "yaml":
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(infos); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}
	return fmt.Errorf("unknown format %q", *format)
}
