// gbin inspects gbin blob files and raw mapped byte ranges.
//
// Usage:
//
//	gbin [--config FILE] [--debug] inspect FILE...
//	gbin [--config FILE] [--debug] dump [--start N] [--length N] [--backend os|heap] FILE
//
// inspect prints the header, metadata and checksum status of each blob file
// and exits with status 1 if any file fails validation. dump prints a hex
// dump of a byte range of any file, read through a memory mapping.
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/pflag"

	"github.com/oy3o/gbin/blobfile"
	"github.com/oy3o/gbin/internal/config"
	"github.com/oy3o/gbin/mmap"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// errUsage marks errors caused by bad invocation; they exit with status 2.
var errUsage = errors.New("usage")

type app struct {
	cfg    *config.Config
	logger *slog.Logger
	stdout io.Writer
}

func run(args []string, stdout, stderr io.Writer) int {
	var configPath string
	var debug bool

	flagSet := pflag.NewFlagSet("gbin", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&configPath, "config", "", "path to YAML config file (default: $"+config.EnvVar+")")
	flagSet.BoolVar(&debug, "debug", os.Getenv("GBIN_DEBUG") != "", "enable debug logging (also GBIN_DEBUG)")
	flagSet.Usage = func() { printUsage(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	level, _ := cfg.Level()
	if debug {
		level = slog.LevelDebug
	}
	a := &app{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
		stdout: stdout,
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printUsage(stderr, flagSet)
		return 2
	}
	switch rest[0] {
	case "inspect":
		err = a.inspect(rest[1:])
	case "dump":
		err = a.dump(rest[1:])
	default:
		err = fmt.Errorf("%w: unknown command %q", errUsage, rest[0])
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, pflag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `Usage: gbin [flags] <command> [args]

Commands:
  inspect FILE...   print header, metadata and checksum status of blob files
  dump FILE         hex dump a byte range of a file through a memory mapping

Flags:
%s`, flagSet.FlagUsages())
}

func (a *app) backend(name string) (mmap.Backend, error) {
	switch name {
	case "":
		return 0, nil
	case "os":
		return mmap.BackendOS, nil
	case "heap":
		return mmap.BackendHeap, nil
	}
	return 0, fmt.Errorf("%w: unknown backend %q", errUsage, name)
}

func (a *app) inspect(args []string) error {
	flagSet := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	backendName := flagSet.String("backend", a.cfg.Backend, "mapping backend: os or heap")
	if err := flagSet.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if flagSet.NArg() == 0 {
		return fmt.Errorf("%w: inspect needs at least one file", errUsage)
	}
	backend, err := a.backend(*backendName)
	if err != nil {
		return err
	}
	opts := []blobfile.OpenOption{blobfile.WithLogger(a.logger)}
	if backend != 0 {
		opts = append(opts, blobfile.WithBackend(backend))
	}

	var failed []error
	for _, path := range flagSet.Args() {
		info, err := blobfile.Inspect(path, opts...)
		if err != nil {
			failed = append(failed, err)
			continue
		}
		a.printInfo(info)
		if !info.ChecksumOK {
			failed = append(failed, fmt.Errorf("%s: %w", path, blobfile.ErrChecksum))
		}
	}
	return errors.Join(failed...)
}

func (a *app) printInfo(info blobfile.Info) {
	h := info.Header
	checksum := "ok"
	if !info.ChecksumOK {
		checksum = "MISMATCH"
	}

	w := a.stdout
	fmt.Fprintf(w, "%s\n", info.Path)
	fmt.Fprintf(w, "  size:         %d bytes\n", info.Size)
	fmt.Fprintf(w, "  version:      %d\n", h.Version)
	fmt.Fprintf(w, "  records:      %d\n", h.Records)
	fmt.Fprintf(w, "  fingerprint:  %016x\n", h.Fingerprint)
	fmt.Fprintf(w, "  byte order:   %s\n", h.Order())
	fmt.Fprintf(w, "  alignment:    %d\n", h.Alignment)
	fmt.Fprintf(w, "  compression:  %s (%d -> %d bytes)\n", h.Compression, h.RawLen, h.StoredLen)
	fmt.Fprintf(w, "  checksum:     %s\n", checksum)
	if len(info.Metadata) > 0 {
		fmt.Fprintf(w, "  metadata:\n")
		keys := make([]string, 0, len(info.Metadata))
		for k := range info.Metadata {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "    %s: %s\n", k, info.Metadata[k])
		}
	}
}

func (a *app) dump(args []string) error {
	flagSet := pflag.NewFlagSet("dump", pflag.ContinueOnError)
	start := flagSet.Uint64("start", a.cfg.Dump.Start, "offset of the first byte")
	length := flagSet.Uint64("length", a.cfg.Dump.Length, "number of bytes, 0 for the rest of the file")
	backendName := flagSet.String("backend", a.cfg.Backend, "mapping backend: os or heap")
	if err := flagSet.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("%w: dump needs exactly one file", errUsage)
	}
	path := flagSet.Arg(0)
	backend, err := a.backend(*backendName)
	if err != nil {
		return err
	}

	count := *length
	if count == 0 {
		count = mmap.ToEnd
	} else if st, err := os.Stat(path); err == nil && *start < uint64(st.Size()) {
		count = min(count, uint64(st.Size())-*start)
	}
	opts := []mmap.Option{
		mmap.WithRange(*start, count),
		mmap.WithReporter(mmap.LogReporter(a.logger)),
	}
	if backend != 0 {
		opts = append(opts, mmap.WithBackend(backend))
	}

	m, err := mmap.Open(path, opts...)
	if err != nil {
		return err
	}
	defer m.Close()
	a.logger.Debug("mapped range",
		"path", m.Path(),
		"offset", m.Offset(),
		"length", m.Len(),
		"backend", m.Backend().String(),
	)

	fmt.Fprintf(a.stdout, "%s [%d, %d)\n", m.Path(), m.Offset(), m.Offset()+uint64(m.Len()))
	d := hex.Dumper(a.stdout)
	if _, err := d.Write(m.Bytes()); err != nil {
		return err
	}
	return d.Close()
}
