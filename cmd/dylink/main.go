package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"

	"github.com/ZenLiuCN/dylink"
	"github.com/ZenLiuCN/dylink/internal/sdk"
	"github.com/davecgh/go-spew/spew"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var reg *dylink.Registry

func main() {
	app := cli.NewApp()
	app.Name = "dylink"
	app.Usage = "lazy dynamic linking inspector"
	app.Description = "probe native library candidates, resolve and call their symbols the way dylink cells do"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, EnvVars: []string{"DYLINK_DEBUG"}, Usage: "log loader activity"},
		&cli.BoolFlag{Name: "self", EnvVars: []string{"DYLINK_SELF"}, Usage: "only resolve from images already loaded, use @self for the whole process"},
		&cli.DurationFlag{Name: "backoff", Usage: "replay resolution failures for this long"},
	}
	app.Before = setup
	app.After = teardown
	app.Commands = []*cli.Command{
		{Name: "probe", Action: probe, Usage: "open a library and print the candidate that opened", Flags: libFlags()},
		{Name: "resolve",
			Action:    resolve,
			Usage:     "resolve symbols and print their addresses",
			ArgsUsage: "symbol...",
			Flags:     append(libFlags(), &cli.BoolFlag{Name: "dump", Usage: "dump the registry after resolution"}),
			Args:      true,
		},
		{Name: "call",
			Action:    call,
			Usage:     "call a symbol taking and returning integers",
			ArgsUsage: "symbol [int...]",
			Flags:     libFlags(),
			Args:      true,
		},
		{Name: "prepare", Action: prepare, Usage: "copy internals of go sdk for the goloader tag"},
		{Name: "clean", Action: clean, Usage: "remove copied internals of go sdk"},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatalf("failure %s", err)
	}
}

func libFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{Name: "lib", Aliases: []string{"l"}, Usage: "library candidate, repeat in search order", Required: true},
		&cli.BoolFlag{Name: "ext", Aliases: []string{"e"}, Usage: "append the platform library extension to candidates"},
	}
}

func setup(ctx *cli.Context) (err error) {
	if ctx.Bool("debug") {
		var l *zap.Logger
		if l, err = zap.NewDevelopment(); err != nil {
			return
		}
		dylink.SetLogger(l)
	}
	opts := dylink.DefaultOptions()
	if ctx.Bool("self") {
		opts.Loader = dylink.SelfLoader()
	}
	opts.FailureBackoff = ctx.Duration("backoff")
	reg = dylink.NewRegistry(opts)
	return
}

func teardown(*cli.Context) error {
	_ = dylink.Logger().Sync()
	if reg == nil {
		return nil
	}
	return reg.Close()
}

func name(ctx *cli.Context) (n dylink.LibraryName, err error) {
	if n, err = dylink.NewLibraryName(ctx.StringSlice("lib")...); err != nil {
		return
	}
	if ctx.Bool("ext") {
		n = n.WithExtension()
	}
	return
}

func probe(ctx *cli.Context) (err error) {
	var n dylink.LibraryName
	if n, err = name(ctx); err != nil {
		return
	}
	l, err := reg.Acquire(n)
	if err != nil {
		for _, e := range multierr.Errors(errors.Unwrap(err)) {
			fmt.Println(e)
		}
		return err
	}
	defer func() { err = multierr.Append(err, reg.Release(l)) }()
	fmt.Printf("%s => %s (handle %#x)\n", n, l.Path(), l.Handle())
	return
}

func resolve(ctx *cli.Context) (err error) {
	var n dylink.LibraryName
	if n, err = name(ctx); err != nil {
		return
	}
	if ctx.NArg() == 0 {
		return fmt.Errorf("missing symbols")
	}
	for _, s := range ctx.Args().Slice() {
		a, e := reg.Cell(n, s).Addr()
		if e != nil {
			fmt.Printf("%s: %s\n", s, e)
			err = multierr.Append(err, e)
			continue
		}
		fmt.Printf("%s: %#x\n", s, a)
	}
	if ctx.Bool("dump") {
		sp := spew.NewDefaultConfig()
		sp.MaxDepth = 3
		sp.DisablePointerAddresses = true
		for _, l := range reg.Libraries() {
			sp.Dump(l.Path(), l)
		}
	}
	return
}

func call(ctx *cli.Context) (err error) {
	var n dylink.LibraryName
	if n, err = name(ctx); err != nil {
		return
	}
	if ctx.NArg() == 0 {
		return fmt.Errorf("missing symbol")
	}
	args := make([]uintptr, 0, ctx.NArg()-1)
	for _, s := range ctx.Args().Tail() {
		var v int64
		if v, err = strconv.ParseInt(s, 0, 64); err != nil {
			return fmt.Errorf("argument %q: %w", s, err)
		}
		args = append(args, uintptr(v))
	}
	r, err := reg.Cell(n, ctx.Args().First()).Call(args...)
	if err != nil {
		return
	}
	fmt.Println(int64(r))
	return
}

func goroot() string {
	if r := os.Getenv("GOROOT"); r != "" {
		return r
	}
	return runtime.GOROOT()
}

func prepare(*cli.Context) error {
	return sdk.Prepare(dylink.Logger(), goroot())
}

func clean(*cli.Context) error {
	return sdk.Clean(dylink.Logger(), goroot())
}
