// Package main is the textfilter CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/textfilter/internal/cli"
	"github.com/hyperjump/textfilter/internal/config"
	"github.com/hyperjump/textfilter/internal/filters"
	"github.com/hyperjump/textfilter/internal/models"
	"github.com/hyperjump/textfilter/internal/server"
	"github.com/hyperjump/textfilter/internal/templates"
	"github.com/hyperjump/textfilter/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/textfilter/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// loadConfigOrDefaults is loadConfig for commands that can run without a config file.
func loadConfigOrDefaults(path string) *config.Config {
	cfg, _, err := loadConfig(path)
	if err != nil {
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
	}
	return cfg
}

func newRegistry(cfg *config.Config) *filters.Registry {
	return filters.NewRegistry(
		filters.WithHighlightClass(cfg.Filters.HighlightClass),
		filters.WithDefaultTruncate(cfg.Filters.DefaultTruncate),
	)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "apply":
		runApply()
	case "list":
		runList()
	case "version", "--version", "-v":
		fmt.Printf("textfilter version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (requests, template reloads)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	registry := newRegistry(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store *templates.Store
	if cfg.Templates.Directory != "" {
		store, err = templates.NewStore(
			cfg.Templates.Directory,
			registry.FuncMap(),
			templates.WithExtensions(cfg.Templates.Extensions...),
			templates.WithLogger(logger),
		)
		if err != nil {
			logger.Fatal("Failed to load templates", zap.Error(err))
		}
		if cfg.Templates.WatchOrDefault() {
			if err := store.Watch(ctx); err != nil {
				logger.Fatal("Failed to watch templates", zap.Error(err))
			}
		}
		logger.Info("templates loaded",
			zap.String("dir", store.Dir()),
			zap.Int("count", len(store.Names())),
		)
	}

	srv := server.NewServer(registry, store, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// printApplyUsage prints apply subcommand usage.
func printApplyUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: textfilter apply [flags] <filter> [args...] <text>\n\n")
	fmt.Fprintf(fs.Output(), "The text is the last argument; arguments between the filter name and the text are passed to the filter.\n")
	fmt.Fprintf(fs.Output(), "With -stdin the text is read from standard input and every argument after the filter name is a filter argument.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  textfilter apply capitalize "hello world"
  textfilter apply truncate 5 abcdefgh
  textfilter apply truncate -1 abc                  # non-positive bound
  textfilter apply capitalize -- "-leading dash"    # text after -- is never a flag
  textfilter apply highlight wor "Hello World"
  echo "hello world" | textfilter apply -stdin capitalize
  textfilter apply -server http://localhost:8080 -output json truncate 40 "$(cat key.pub)"
`)
}

// applyArgsReorder moves the flags defined on fs (and their values) in front of
// the positionals and ends them with "--", so that flag.Parse() sees every flag
// and positionals such as "-1" are not taken for flags. Tokens after a "--" in
// args are always positional.
func applyArgsReorder(fs *flag.FlagSet, args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		name, hasValue := flagName(a)
		if name == "h" || name == "help" {
			flags = append(flags, a)
			continue
		}
		f := fs.Lookup(name)
		if name == "" || f == nil {
			positional = append(positional, a)
			continue
		}
		flags = append(flags, a)
		if !hasValue && !isBoolFlag(f) && i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}
	reordered := make([]string, 0, len(flags)+len(positional)+1)
	reordered = append(reordered, flags...)
	reordered = append(reordered, "--")
	return append(reordered, positional...)
}

// flagName returns the name of a "-name", "--name" or "-name=value" token and
// whether it carries its value. Non-flag tokens return "".
func flagName(a string) (string, bool) {
	if len(a) < 2 || a[0] != '-' {
		return "", false
	}
	name := strings.TrimPrefix(a[1:], "-")
	if i := strings.IndexByte(name, '='); i >= 0 {
		return name[:i], true
	}
	return name, false
}

func isBoolFlag(f *flag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

// splitApplyArgs splits positionals into the filter name, its arguments and the
// input text. When input is non-nil it is the text and all remaining positionals
// are arguments.
func splitApplyArgs(positional []string, input *string) (name string, req models.FilterRequest, err error) {
	if len(positional) == 0 {
		return "", req, fmt.Errorf("filter name is required")
	}
	name = positional[0]
	rest := positional[1:]
	if input == nil {
		if len(rest) == 0 {
			return "", req, fmt.Errorf("text is required")
		}
		text := rest[len(rest)-1]
		input = &text
		rest = rest[:len(rest)-1]
	}
	req.Input = *input
	for _, a := range rest {
		req.Args = append(req.Args, a)
	}
	return name, req, nil
}

// applyOptions holds the apply subcommand flags.
type applyOptions struct {
	configPath *string
	serverURL  *string
	output     *string
	stdin      *bool
}

func newApplyFlagSet(handling flag.ErrorHandling) (*flag.FlagSet, *applyOptions) {
	fs := flag.NewFlagSet("apply", handling)
	opts := &applyOptions{
		configPath: fs.String("config", defaultConfigPath, "config file path (filter settings for local application)"),
		serverURL:  fs.String("server", "", "server URL (empty = apply locally)"),
		output:     fs.String("output", "compact", "output format: compact (output only), text, or json"),
		stdin:      fs.Bool("stdin", false, "read the text from standard input"),
	}
	fs.Usage = func() { printApplyUsage(fs) }
	return fs, opts
}

func runApply() {
	fs, opts := newApplyFlagSet(flag.ExitOnError)
	_ = fs.Parse(applyArgsReorder(fs, os.Args[2:]))
	defaultCfg := loadConfigOrDefaults(*opts.configPath)
	serverURL, fromStdin := opts.serverURL, opts.stdin

	format, err := cli.ParseOutputFormat(*opts.output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var input *string
	if *fromStdin {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read stdin: %v\n", err)
			os.Exit(1)
		}
		text := strings.TrimRight(string(data), "\r\n")
		input = &text
	}
	name, req, err := splitApplyArgs(fs.Args(), input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\n", err)
		printApplyUsage(fs)
		os.Exit(1)
	}

	var result *models.FilterResult
	if *serverURL != "" {
		result, err = applyViaHTTP(*serverURL, name, &req)
	} else {
		result, err = applyLocal(newRegistry(defaultCfg), name, &req)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Apply failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteFilterResult(os.Stdout, result, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func applyLocal(registry *filters.Registry, name string, req *models.FilterRequest) (*models.FilterResult, error) {
	out, err := registry.Apply(name, req.Input, req.Args...)
	if err != nil {
		return nil, err
	}
	return &models.FilterResult{Filter: name, Input: filters.Text(req.Input), Output: out}, nil
}

func applyViaHTTP(serverURL string, name string, req *models.FilterRequest) (*models.FilterResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	endpoint := strings.TrimRight(serverURL, "/") + "/api/v1/filters/" + url.PathEscape(name)
	resp, err := http.Post(endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var result models.FilterResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

func runList() {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	registry := newRegistry(loadConfigOrDefaults(*configPath))
	var list []models.FilterInfo
	for _, f := range registry.Filters() {
		list = append(list, models.FilterInfo{Name: f.Name, Description: f.Description})
	}
	if err := cli.WriteFilterList(os.Stdout, list); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`textfilter - text filters for templates

Usage:
  textfilter <command> [flags]

Commands:
  server    Run the HTTP server (filters API and template rendering)
  apply     Apply a filter to text, locally or through the server
  list      List available filters
  version   Print the version
  help      Show this help

Run "textfilter <command> -h" for command flags.
`)
}
