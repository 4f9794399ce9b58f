// Command farmdash serves the farm dashboard cards.
//
// Usage:
//
//	farmdash -config farmdash.yaml              # HTTP + WebSocket + MCP on /mcp
//	farmdash -page farm.html -filter wood       # print one summary and exit
//	farmdash -page farm.html -resource 3 -markdown
//	farmdash -page farm.html -mcp stdio         # MCP over stdin/stdout
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/farmdash/dashboard"
)

const version = "0.3.0"

type options struct {
	configPath string
	pagePath   string
	dbPath     string
	listen     string
	filter     string
	resource   int
	markdown   bool
	mcpMode    string
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "path to farmdash.yaml config file")
	flag.StringVar(&o.pagePath, "page", "", "dashboard HTML file or http(s) URL")
	flag.StringVar(&o.dbPath, "db", "", "path to the preferences database")
	flag.StringVar(&o.listen, "listen", "", "HTTP listen address")
	flag.StringVar(&o.filter, "filter", "", "print the summary for this filter and exit")
	flag.IntVar(&o.resource, "resource", -1, "print the card of this map element and exit")
	flag.BoolVar(&o.markdown, "markdown", false, "print cards as Markdown instead of JSON")
	flag.StringVar(&o.mcpMode, "mcp", "", "serve MCP over stdio instead of HTTP (stdio)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, o); err != nil {
		logger.Error("farmdash: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, o options) error {
	cfg, err := resolveConfig(o)
	if err != nil {
		return err
	}

	d, err := dashboard.New(cfg, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	switch {
	case o.filter != "":
		view, err := d.Summary(ctx, o.filter, nil)
		if err != nil {
			return err
		}
		return printView(d, view, o.markdown)
	case o.resource >= 0:
		view, err := d.ResourceCard(ctx, o.resource, time.Now())
		if err != nil {
			return err
		}
		return printView(d, view, o.markdown)
	}

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("browser: %w", err)
	}

	srv := mcp.NewServer(&mcp.Implementation{Name: "farmdash", Version: version}, nil)
	d.RegisterMCP(srv)

	switch o.mcpMode {
	case "":
	case "stdio":
		logger.Info("farmdash: serving MCP on stdio")
		return srv.Run(ctx, &mcp.StdioTransport{})
	default:
		return fmt.Errorf("unknown -mcp mode %q", o.mcpMode)
	}

	return serve(ctx, logger, cfg.Listen, d, srv)
}

func serve(ctx context.Context, logger *slog.Logger, addr string, d *dashboard.Dashboard, mcpSrv *mcp.Server) error {
	r := chi.NewRouter()
	r.Mount("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return mcpSrv }, nil))
	r.Mount("/", d.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("farmdash: listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("farmdash: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func printView(d *dashboard.Dashboard, view *dashboard.CardView, markdown bool) error {
	if markdown {
		if view.Card == nil {
			if len(view.Suggestions) > 0 {
				fmt.Fprintf(os.Stderr, "nothing matched %q; did you mean %s?\n", view.FilterID, strings.Join(view.Suggestions, ", "))
			}
			return nil
		}
		md, err := d.Markdown(view.Card)
		if err != nil {
			return err
		}
		fmt.Println(md)
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}

func resolveConfig(o options) (*dashboard.Config, error) {
	cfg := &dashboard.Config{}
	if o.configPath != "" {
		loaded, err := dashboard.LoadConfigFile(o.configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if o.pagePath != "" {
		if strings.HasPrefix(o.pagePath, "http://") || strings.HasPrefix(o.pagePath, "https://") {
			cfg.PageURL, cfg.PagePath = o.pagePath, ""
		} else {
			cfg.PagePath, cfg.PageURL = o.pagePath, ""
		}
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	if o.listen != "" {
		cfg.Listen = o.listen
	}
	return cfg, nil
}
