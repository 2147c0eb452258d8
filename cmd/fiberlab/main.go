package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/trace"
	"syscall"

	"github.com/fiberlab/fiberlab/internal/analyzer"
	"github.com/fiberlab/fiberlab/internal/demo"
	"github.com/fiberlab/fiberlab/internal/fiber"
	"github.com/fiberlab/fiberlab/internal/output"
	"github.com/fiberlab/fiberlab/internal/server"
	"github.com/fiberlab/fiberlab/internal/stats"
	"github.com/fiberlab/fiberlab/internal/traceparser"
)

const Version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printGeneralUsage()
		return
	}

	switch os.Args[1] {
	case "list":
		handleList()
	case "run":
		handleRun()
	case "serve":
		handleServe()
	case "trace":
		handleTrace()
	case "monitor":
		handleMonitor()
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printGeneralUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", os.Args[1])
		printGeneralUsage()
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("fiberlab %s\n", Version)
}

func printGeneralUsage() {
	title := output.GetTitleStyle().Render(" FIBERLAB — LIGHTWEIGHT THREADS, OBSERVED ")
	fmt.Println("\n" + title + "\n")

	fmt.Printf("Usage: fiberlab <command> [<args>]\n\n")
	fmt.Println("Commands:")
	fmt.Printf("  %-10s %s\n", "list", "List the available demos")
	fmt.Printf("  %-10s %s\n", "run", "Run one or more demos (or 'all')")
	fmt.Printf("  %-10s %s\n", "serve", "Start the HTTP workload server")
	fmt.Printf("  %-10s %s\n", "trace", "Run a demo under the runtime tracer and profile it")
	fmt.Printf("  %-10s %s\n", "monitor", "Run a demo with a live carrier dashboard")
	fmt.Printf("  %-10s %s\n", "version", "Print current version")

	fmt.Printf("\nRun 'fiberlab <command> --help' for flags.\n")
}

func handleList() {
	reg := demo.Default()
	fmt.Println("\n" + output.GetTitleStyle().Render(" AVAILABLE DEMOS ") + "\n")
	for _, topic := range reg.Topics() {
		fmt.Printf("%s\n", topic)
		for _, d := range reg.ByTopic(topic) {
			fmt.Printf("  %-14s %s\n", d.Name, d.Synopsis)
		}
		fmt.Println()
	}
}

func handleRun() {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	carriers := fs.Int("carriers", 4, "Number of carriers in the pool")
	tasks := fs.Int("tasks", 50, "Base task count for workloads")
	jsonOutput := fs.Bool("json", false, "Print the recording summary in JSON after each demo")
	fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: fiberlab run [flags] <demo>...|all\n")
		os.Exit(1)
	}

	reg := demo.Default()
	var demos []*demo.Demo
	if fs.NArg() == 1 && fs.Arg(0) == "all" {
		demos = reg.All()
	} else {
		for _, name := range fs.Args() {
			d, ok := reg.Lookup(name)
			if !ok {
				fmt.Fprintf(os.Stderr, "Error: unknown demo %q (try 'fiberlab list')\n", name)
				os.Exit(1)
			}
			demos = append(demos, d)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, d := range demos {
		env := demo.NewEnv(os.Stdout)
		env.Carriers = *carriers
		env.Tasks = *tasks
		if err := d.Run(ctx, env); err != nil {
			fmt.Fprintf(os.Stderr, "Error: demo %s: %v\n", d.Name, err)
			os.Exit(1)
		}
		if *jsonOutput && env.Recorder.Len() > 0 {
			summary := stats.NewAggregator(env.Recorder.Events()).Summary()
			if err := output.NewJSONFormatter(os.Stdout).FormatRunSummary(summary); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}
	}
}

func handleServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":8080", "Listen address")
	carriers := fs.Int("carriers", 8, "Number of carriers for request fibers")
	fs.Parse(os.Args[2:])

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := fiber.NewCarrierPool(*carriers, nil)
	srv := server.New(pool)
	fmt.Printf("fiberlab server listening on %s\n", *addr)
	if err := srv.ListenAndServe(ctx, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func handleTrace() {
	fs := flag.NewFlagSet("trace", flag.ExitOnError)
	out := fs.String("out", "trace.out", "Trace output file")
	carriers := fs.Int("carriers", 4, "Number of carriers in the pool")
	fs.Parse(os.Args[2:])

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: fiberlab trace [flags] <demo>\n")
		os.Exit(1)
	}

	reg := demo.Default()
	d, ok := reg.Lookup(fs.Arg(0))
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown demo %q (try 'fiberlab list')\n", fs.Arg(0))
		os.Exit(1)
	}

	if !runTraced(d, *out, *carriers) {
		fmt.Println("\n✖ Scheduling issues detected (exit code 2)")
		os.Exit(2)
	}
}

func runTraced(d *demo.Demo, out string, carriers int) bool {
	f, err := os.Create(out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: create %s: %v\n", out, err)
		os.Exit(1)
	}

	if err := trace.Start(f); err != nil {
		f.Close()
		fmt.Fprintf(os.Stderr, "Error: start trace: %v\n", err)
		os.Exit(1)
	}

	env := demo.NewEnv(os.Stdout)
	env.Carriers = carriers
	runErr := d.Run(context.Background(), env)
	trace.Stop()
	if err := f.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: close %s: %v\n", out, err)
		os.Exit(1)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: demo %s: %v\n", d.Name, runErr)
		os.Exit(1)
	}

	in, err := os.Open(out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: open %s: %v\n", out, err)
		os.Exit(1)
	}
	defer in.Close()

	profile, err := traceparser.Parse(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: parse trace: %v\n", err)
		os.Exit(1)
	}

	fmtr := output.NewFormatter(os.Stdout)
	if err := fmtr.FormatTraceProfile(profile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	summary := stats.NewAggregator(env.Recorder.Events()).Summary()
	return !analyzer.Analyze(summary).HasSchedulingIssues
}

func handleMonitor() {
	fs := flag.NewFlagSet("monitor", flag.ExitOnError)
	carriers := fs.Int("carriers", 4, "Number of carriers in the pool")
	tasks := fs.Int("tasks", 100, "Base task count for the workload")
	fs.Parse(os.Args[2:])

	run := demo.RunInstrumented
	if fs.NArg() > 0 {
		d, ok := demo.Default().Lookup(fs.Arg(0))
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown demo %q (try 'fiberlab list')\n", fs.Arg(0))
			os.Exit(1)
		}
		run = d.Run
	}

	env := demo.NewEnv(io.Discard)
	env.Carriers = *carriers
	env.Tasks = *tasks
	env.Recorder.Start()

	done := make(chan error, 1)
	go func() {
		done <- run(context.Background(), env)
	}()

	if err := output.RunMonitor(env.Recorder, done); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	env.Recorder.Stop()
}
