// forge-demo wires a handful of built-in components into the forge
// runtime: it loads a TOML manifest, initializes the application in
// dependency order, dispatches a decorated channel call, and can expose
// the runtime's prometheus metrics.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/anvil-platform/forge/app"
	"github.com/anvil-platform/forge/host"
)

const version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:           "forge-demo",
		Short:         "Demo application for the forge extensibility runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the demo version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("forge-demo %s\n", version)
		},
	}
}

func newRunCmd() *cobra.Command {
	var configPath string
	var metricsAddr string
	var greet string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Initialize the components and dispatch a greeting",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := DefaultConfig()
			if configPath != "" {
				loaded, err := LoadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			return run(cfg, metricsAddr, greet)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to a TOML component manifest.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address to serve prometheus metrics on; empty disables it.")
	cmd.Flags().StringVar(&greet, "greet", "world", "Name to greet over the demo channel.")
	return cmd
}

func run(cfg Config, metricsAddr, greet string) error {
	log, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}

	h := host.New(host.WithLogger(log))
	a := app.New(h, app.WithResolver(builtinResolver()))

	for _, c := range cfg.Components {
		err := a.AddComponent(app.ComponentDef{
			Name:      c.Name,
			Version:   c.Version,
			Provides:  c.Provides,
			Requires:  c.Requires,
			ModuleRef: c.Module,
		})
		if err != nil {
			return fmt.Errorf("register component %q: %w", c.Name, err)
		}
	}

	if err := a.Init(); err != nil {
		return err
	}
	defer func() {
		if err := a.Destroy(); err != nil {
			log.Error(err, "destroy failed")
		}
	}()

	v, err := h.Call("demo/greet", []any{greet}, nil)
	if err != nil {
		return fmt.Errorf("greeting call: %w", err)
	}
	fmt.Println(v)

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		log.Info("serving metrics", "addr", metricsAddr)
		return http.ListenAndServe(metricsAddr, mux)
	}
	return nil
}

func newLogger(level string) (logger logr.Logger, err error) {
	lvl := zapcore.InfoLevel
	switch level {
	case "", "info":
	case "debug":
		lvl = zapcore.DebugLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		return logr.Logger{}, fmt.Errorf("unknown log level %q", level)
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	z, err := zc.Build()
	if err != nil {
		return logr.Logger{}, err
	}
	return zapr.NewLogger(z), nil
}
