package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/marmos91/cosfs/pkg/cosfile"
	"github.com/marmos91/cosfs/pkg/cosfs"
	"github.com/marmos91/cosfs/pkg/store"
)

// app carries what every command needs.
type app struct {
	fs     *cosfs.FileSystem
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	name    string
	usage   string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands []*command

func init() {
	commands = []*command{
		{"ls", "ls [-l] [path]", "List buckets, directories and objects", runLs},
		{"info", "info <path>", "Show metadata of a path", runInfo},
		{"find", "find [--maxdepth N] [--withdirs] [--prefix P] <path>", "List every object below a path", runFind},
		{"cat", "cat [--cache TYPE] <path>", "Write an object to stdout", runCat},
		{"get", "get [--cache TYPE] <path> <local|->", "Download an object", runGet},
		{"put", "put [--block-size N] [--staged] <local|-> <path>", "Upload a local file or stdin", runPut},
		{"cp", "cp [-r] <src> <dst>", "Copy server-side", runCp},
		{"mv", "mv [-r] <src> <dst>", "Move (copy, then delete the source)", runMv},
		{"rm", "rm [-r] <path>...", "Delete objects or, with -r, whole trees", runRm},
		{"touch", "touch [--truncate=false] <path>", "Create an empty object", runTouch},
	}
}

func lookupCommand(name string) (*command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

// flagSet creates the flag set of one command. Usage and parse errors go
// to stderr.
func flagSet(c string, stderr io.Writer) *pflag.FlagSet {
	cmd, _ := lookupCommand(c)
	fs := pflag.NewFlagSet(c, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: cosfs %s\n%s", cmd.usage, fs.FlagUsages())
	}
	return fs
}

// parseArgs parses flags and checks the positional argument count.
// max < 0 means unbounded.
func parseArgs(fs *pflag.FlagSet, args []string, min, max int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	rest := fs.Args()
	if len(rest) < min || (max >= 0 && len(rest) > max) {
		fs.Usage()
		return nil, store.InvalidArgument("wrong number of arguments")
	}
	return rest, nil
}

func runLs(ctx context.Context, a *app, args []string) error {
	flags := flagSet("ls", a.stderr)
	long := flags.BoolP("long", "l", false, "Show type, size and modification time")
	rest, err := parseArgs(flags, args, 0, 1)
	if err != nil {
		return err
	}

	path := ""
	if len(rest) == 1 {
		path = rest[0]
	}

	entries, err := a.fs.Ls(ctx, path)
	if err != nil {
		return err
	}
	return printEntries(a.stdout, entries, *long)
}

func printEntries(w io.Writer, entries []store.ObjectInfo, long bool) error {
	if !long {
		for _, e := range entries {
			if _, err := fmt.Fprintln(w, e.Name); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		modified := "-"
		if !e.LastModified.IsZero() {
			modified = e.LastModified.UTC().Format(time.RFC3339)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", e.Type, e.Size, modified, e.Name)
	}
	return tw.Flush()
}

func runInfo(ctx context.Context, a *app, args []string) error {
	rest, err := parseArgs(flagSet("info", a.stderr), args, 1, 1)
	if err != nil {
		return err
	}

	info, err := a.fs.Info(ctx, rest[0])
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "name:\t%s\n", info.Name)
	_, _ = fmt.Fprintf(tw, "type:\t%s\n", info.Type)
	if info.Type == store.EntryFile {
		_, _ = fmt.Fprintf(tw, "size:\t%d\n", info.Size)
		_, _ = fmt.Fprintf(tw, "modified:\t%s\n", info.LastModified.UTC().Format(time.RFC3339))
		_, _ = fmt.Fprintf(tw, "etag:\t%s\n", info.ETag)
		if info.VersionID != "" {
			_, _ = fmt.Fprintf(tw, "version:\t%s\n", info.VersionID)
		}
	}
	return tw.Flush()
}

func runFind(ctx context.Context, a *app, args []string) error {
	flags := flagSet("find", a.stderr)
	var opts cosfs.FindOptions
	flags.IntVar(&opts.MaxDepth, "maxdepth", 0, "Maximum depth (0 = unlimited)")
	flags.BoolVar(&opts.WithDirs, "withdirs", false, "Include directories")
	flags.StringVar(&opts.Prefix, "prefix", "", "Only keys starting with <path>/<prefix>")
	long := flags.BoolP("long", "l", false, "Show type, size and modification time")
	rest, err := parseArgs(flags, args, 1, 1)
	if err != nil {
		return err
	}

	found, err := a.fs.Find(ctx, rest[0], opts)
	if err != nil {
		return err
	}
	return printEntries(a.stdout, found, *long)
}

// cacheFlag registers --cache on flags.
func cacheFlag(flags *pflag.FlagSet, def cosfile.CacheType) *string {
	return flags.String("cache", string(def), "Read cache: none, readahead, blockcache")
}

func runCat(ctx context.Context, a *app, args []string) error {
	flags := flagSet("cat", a.stderr)
	cache := cacheFlag(flags, cosfile.CacheNone)
	rest, err := parseArgs(flags, args, 1, 1)
	if err != nil {
		return err
	}

	cacheType, err := cosfile.ParseCacheType(*cache)
	if err != nil {
		return err
	}
	_, err = a.fs.GetTo(ctx, rest[0], a.stdout, cosfile.WithCacheType(cacheType))
	return err
}

func runGet(ctx context.Context, a *app, args []string) error {
	flags := flagSet("get", a.stderr)
	cache := cacheFlag(flags, cosfile.CacheReadahead)
	rest, err := parseArgs(flags, args, 2, 2)
	if err != nil {
		return err
	}

	cacheType, err := cosfile.ParseCacheType(*cache)
	if err != nil {
		return err
	}

	if rest[1] == "-" {
		_, err = a.fs.GetTo(ctx, rest[0], a.stdout, cosfile.WithCacheType(cacheType))
		return err
	}

	f, err := os.Create(rest[1])
	if err != nil {
		return err
	}

	n, err := a.fs.GetTo(ctx, rest[0], f, cosfile.WithCacheType(cacheType))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		// no partial downloads
		_ = os.Remove(rest[1])
		return err
	}

	_, _ = fmt.Fprintf(a.stdout, "%s -> %s (%d bytes)\n", rest[0], rest[1], n)
	return nil
}

func runPut(ctx context.Context, a *app, args []string) error {
	flags := flagSet("put", a.stderr)
	blockSize := flags.Int64("block-size", 0, "Upload part size in bytes (0 = configured default)")
	staged := flags.Bool("staged", false, "Upload to a staging key and publish only on success")
	rest, err := parseArgs(flags, args, 2, 2)
	if err != nil {
		return err
	}

	var r io.Reader = a.stdin
	if rest[0] != "-" {
		f, err := os.Open(rest[0])
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	opts := []cosfile.Option{cosfile.WithBlockSize(*blockSize)}
	if *staged {
		opts = append(opts, cosfile.WithAutocommit(false))
	}

	n, err := a.fs.PutFrom(ctx, rest[1], r, opts...)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.stdout, "%s -> %s (%d bytes)\n", rest[0], rest[1], n)
	return nil
}

func runCp(ctx context.Context, a *app, args []string) error {
	flags := flagSet("cp", a.stderr)
	recursive := flags.BoolP("recursive", "r", false, "Copy directories recursively")
	rest, err := parseArgs(flags, args, 2, 2)
	if err != nil {
		return err
	}
	return a.fs.Copy(ctx, rest[0], rest[1], *recursive)
}

func runMv(ctx context.Context, a *app, args []string) error {
	flags := flagSet("mv", a.stderr)
	recursive := flags.BoolP("recursive", "r", false, "Move directories recursively")
	rest, err := parseArgs(flags, args, 2, 2)
	if err != nil {
		return err
	}
	return a.fs.Move(ctx, rest[0], rest[1], *recursive)
}

func runRm(ctx context.Context, a *app, args []string) error {
	flags := flagSet("rm", a.stderr)
	recursive := flags.BoolP("recursive", "r", false, "Delete everything below each path")
	rest, err := parseArgs(flags, args, 1, -1)
	if err != nil {
		return err
	}
	return a.fs.Rm(ctx, rest, *recursive)
}

func runTouch(ctx context.Context, a *app, args []string) error {
	flags := flagSet("touch", a.stderr)
	truncate := flags.Bool("truncate", true, "Replace an existing object with an empty one (false fails on existing objects)")
	rest, err := parseArgs(flags, args, 1, 1)
	if err != nil {
		return err
	}
	return a.fs.Touch(ctx, rest[0], *truncate)
}
