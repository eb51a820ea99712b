package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/outlinetools/olv/pkg/config"
	"github.com/outlinetools/olv/pkg/outline"
	"github.com/outlinetools/olv/pkg/parser"
	"github.com/outlinetools/olv/pkg/ui"
	"github.com/outlinetools/olv/pkg/version"
	"github.com/outlinetools/olv/pkg/watcher"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	robotFlag := flag.Bool("robot", false, "Print the outline as JSON and exit (no TUI)")
	configPath := flag.String("config", "", "Load configuration from this file instead of the default location")
	langFlag := flag.String("lang", "", "Force a language (markdown, python) instead of detecting by extension")
	noPreview := flag.Bool("no-preview", false, "Start with the preview pane hidden")
	debounceMs := flag.Int("debounce-ms", 0, "Override file-watch debounce interval in milliseconds")
	pollMs := flag.Int("poll-ms", 0, "Override polling interval in milliseconds (fallback mode)")
	forcePoll := flag.Bool("force-poll", false, "Use polling instead of filesystem notifications")
	flag.Parse()

	if *help {
		fmt.Println("Usage: olv [options] <file> [file...]")
		fmt.Println("\nA TUI outline viewer for markdown and python files.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("olv %s\n", version.Version)
		os.Exit(0)
	}

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no input file")
		fmt.Fprintln(os.Stderr, "Usage: olv [options] <file> [file...]")
		os.Exit(2)
	}

	registry := parser.NewRegistry()

	cfg, cfgErr := loadConfig(*configPath)
	if cfgErr != nil {
		// Non-fatal: continue with defaults.
		cfg = config.DefaultConfig()
	}
	for ext, lang := range cfg.Languages {
		registry.MapExtension(ext, lang)
	}
	if *noPreview {
		cfg.UI.ShowPreview = false
	}
	if *debounceMs > 0 {
		cfg.Watch.DebounceMs = *debounceMs
	}
	if *pollMs > 0 {
		cfg.Watch.PollMs = *pollMs
	}
	if *forcePoll {
		cfg.Watch.ForcePoll = true
	}

	// Without a terminal there is nothing to draw; fall back to robot
	// output so `olv doc.md | jq` just works.
	if *robotFlag || !term.IsTerminal(int(os.Stdout.Fd())) {
		if err := runRobot(os.Stdout, registry, files, *langFlag); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if len(files) > 1 {
		fmt.Fprintln(os.Stderr, "Error: the TUI views one file at a time (use --robot for batches)")
		os.Exit(2)
	}
	path := files[0]

	langID := *langFlag
	if langID == "" {
		langID = registry.DetectLanguage(path)
	}

	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	session := outline.NewSession(registry.ParseHeadings)
	defer session.Close()

	watchErrs := make(chan error, 4)
	w, err := watcher.New(path,
		watcher.WithDebounceDuration(time.Duration(cfg.Watch.DebounceMs)*time.Millisecond),
		watcher.WithPollInterval(time.Duration(cfg.Watch.PollMs)*time.Millisecond),
		watcher.WithForcePoll(cfg.Watch.ForcePoll),
		watcher.WithOnError(func(e error) {
			select {
			case watchErrs <- e:
			default:
			}
		}),
	)
	if err == nil {
		err = w.Start()
	}
	if err != nil {
		// Live reload is best effort: the viewer still works without it.
		fmt.Fprintf(os.Stderr, "Warning: file watch disabled: %v\n", err)
		w = nil
	} else {
		defer w.Stop()
	}

	m := ui.NewModel(session, path, langID, w, watchErrs, cfg)
	if err := runTUIProgram(m); err != nil {
		fmt.Fprintf(os.Stderr, "Error running outline viewer: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func runTUIProgram(m tea.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set OLV_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("OLV_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	_, err := p.Run()
	if err != nil && (errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted)) {
		return nil
	}
	return err
}
