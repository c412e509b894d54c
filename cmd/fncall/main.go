// Command fncall runs the tool-calling dispatch service.
//
//	fncall serve                        start the HTTP API
//	fncall ask -prompt "..."            run one conversation and print it
//	fncall ask -demo ops                run a built-in demo conversation
//
// Configuration comes from the file named by FNCALL_CONFIG and from the
// environment (DASHSCOPE_API_KEY, FNCALL_PROVIDER, ...).
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimiro1/banner"
	"github.com/opsdesk/fncall/internal/agent"
	"github.com/opsdesk/fncall/internal/config"
	"github.com/opsdesk/fncall/internal/dispatch"
	"github.com/opsdesk/fncall/internal/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const version = "dev"

var demoPrompts = map[string]struct {
	scenario string
	prompt   string
}{
	"weather": {"weather", "What's the weather like in Dalian?"},
	"ops": {"operations", `Alert: database connection count exceeded threshold.
Time: 2024-08-03 15:30:00`},
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = serve(os.Args[2:])
	case "ask":
		err = ask(os.Args[2:], os.Stdout)
	case "version":
		fmt.Println(version)
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		usage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "fncall:", err)
		}
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `usage: fncall <command> [flags]

commands:
  serve    start the HTTP API
  ask      run one conversation and print the transcript
  version  print the version`)
}

func serve(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	quiet := fs.Bool("no-banner", false, "do not print the startup banner")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	if !*quiet {
		printBanner(cfg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

func ask(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	prompt := fs.String("prompt", "", "user message")
	scenario := fs.String("scenario", "", "weather|operations (default: route by keywords)")
	system := fs.String("system", "", "system prompt override")
	demo := fs.String("demo", "", "run a built-in demo: weather|ops")
	maxIter := fs.Int("max-iterations", 0, "model call budget (default from config)")
	verbose := fs.Bool("v", false, "print progress while the conversation runs")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *demo != "" {
		d, ok := demoPrompts[*demo]
		if !ok {
			return fmt.Errorf("unknown demo %q", *demo)
		}
		*prompt = d.prompt
		if *scenario == "" {
			*scenario = d.scenario
		}
	}
	if *prompt == "" {
		return errors.New("ask: -prompt or -demo is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var observer dispatch.Observer
	if *verbose {
		observer = &progressPrinter{w: os.Stderr}
	}
	deps, err := server.Build(ctx, cfg, observer)
	if err != nil {
		return err
	}
	defer deps.Close()

	res, runErr := deps.Agent.Run(ctx, agent.Request{
		Prompt:        *prompt,
		SystemPrompt:  *system,
		Scenario:      *scenario,
		MaxIterations: *maxIter,
	})
	if res != nil {
		printTranscript(out, res.Transcript)
	}
	return runErr
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func printBanner(cfg *config.Config) {
	tpl := "{{ .Title \"fncall\" \"\" 0 }}\n" +
		"Version: " + version + "  Provider: " + string(cfg.ModelConfig().Provider) + "\n" +
		"{{ .GoVersion }} {{ .GOOS }}/{{ .GOARCH }}\n\n"
	banner.Init(os.Stdout, true, !cfg.IsProduction(), bytes.NewBufferString(tpl))
}
