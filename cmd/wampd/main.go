// Command wampd runs the WAMP router process: loads configuration,
// wires the transport multiplexer and admin API around one
// router.Router, and serves until a termination signal arrives.
// Flag parsing, config validation, and graceful shutdown on SIGINT/SIGTERM
// follow the same shape as the rest of this codebase's binaries.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/CHOUAiB/wampcore/internal/adminapi"
	"github.com/CHOUAiB/wampcore/internal/auth"
	"github.com/CHOUAiB/wampcore/internal/config"
	"github.com/CHOUAiB/wampcore/internal/formatter/jsoncodec"
	"github.com/CHOUAiB/wampcore/internal/formatter/msgpack"
	"github.com/CHOUAiB/wampcore/internal/logging"
	"github.com/CHOUAiB/wampcore/internal/metrics"
	"github.com/CHOUAiB/wampcore/internal/router"
	"github.com/CHOUAiB/wampcore/internal/transport"
	"github.com/CHOUAiB/wampcore/internal/transport/wslisten"
)

const appName = "wampd"

func main() {
	var (
		configPath  = flag.String("config", "", "path to a YAML config file")
		listenAddr  = flag.String("listen", ":8080", "WebSocket listen address")
		adminAddr   = flag.String("admin", ":8081", "admin API listen address")
		wsPath      = flag.String("ws-path", "/ws", "WebSocket upgrade path")
		logLevel    = flag.String("log-level", "info", "log level (trace, debug, info, warn, error)")
		showVersion = flag.Bool("version", false, "show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v0.1.0\n", appName)
		os.Exit(0)
	}

	cfg := config.NewConfig(*listenAddr, nil)
	cfg.AdminAddress = *adminAddr
	cfg.LogLevel = *logLevel
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fatal("invalid configuration: %v", err)
		}
		cfg = loaded
	} else {
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			fatal("invalid configuration: %v", err)
		}
	}

	logger := logging.New(appName, cfg.LogLevel)
	logger.Info("starting router", "listen", cfg.ListenAddress, "admin", cfg.AdminAddress, "realms", cfg.Realms)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	acceptHook := realmWhitelistHook(cfg.Realms)
	if cfg.AuthEnabled {
		jwtHook := auth.New(cfg.JWTSecret).AcceptHook()
		acceptHook = combineHooks(acceptHook, jwtHook)
		logger.Info("JWT session acceptance enabled")
	}

	r := router.New(
		router.WithAcceptHook(acceptHook),
		router.WithLogger(logger),
		router.WithMetrics(m),
	)

	mux := transport.NewMultiplexer(logger)
	bindings := []transport.Binding{
		{Subprotocol: "wamp.2.json", Formatter: jsoncodec.New()},
		{Subprotocol: "wamp.2.msgpack", Formatter: msgpack.New()},
	}
	for _, b := range bindings {
		if err := mux.AddBinding(b); err != nil {
			fatal("binding setup: %v", err)
		}
	}

	src, err := wslisten.New(cfg.ListenAddress, *wsPath, logger)
	if err != nil {
		fatal("failed to start WebSocket listener: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go mux.Serve(ctx, src, r)

	adminSrv := adminapi.NewServer(r, adminapi.Config{
		Addr:      cfg.AdminAddress,
		JWTSecret: cfg.JWTSecret,
		NoAuth:    !cfg.AuthEnabled,
		Registry:  reg,
	})
	go func() {
		if err := adminSrv.Start(); err != nil {
			logger.Error("admin API exited", "error", err)
		}
	}()

	setupGracefulShutdown(cancel, mux, adminSrv, logger)

	logger.Info("router started, waiting for shutdown signal")
	<-ctx.Done()
	logger.Info("router stopped")
}

func setupGracefulShutdown(cancel context.CancelFunc, mux *transport.Multiplexer, adminSrv *adminapi.Server, logger logging.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received signal, shutting down", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := adminSrv.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping admin API", "error", err)
		}
		if err := mux.Close(); err != nil {
			logger.Warn("error closing transport", "error", err)
		}

		cancel()
	}()
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// realmWhitelistHook rejects a HELLO for any realm not in the
// configured list. An empty list accepts every realm; a config loaded
// through config.Config never has one, since SetDefaults fills an unset
// list with "realm1" and Validate rejects an empty one.
func realmWhitelistHook(realms []string) router.AcceptHook {
	if len(realms) == 0 {
		return router.AllowAll
	}
	allowed := make(map[string]struct{}, len(realms))
	for _, name := range realms {
		allowed[name] = struct{}{}
	}
	return func(realm string, details map[string]interface{}) (bool, string) {
		if _, ok := allowed[realm]; !ok {
			return false, fmt.Sprintf("realm %q is not configured on this router", realm)
		}
		return true, ""
	}
}

// combineHooks accepts a HELLO only if every hook accepts it, returning
// the first rejection reason encountered.
func combineHooks(hooks ...router.AcceptHook) router.AcceptHook {
	return func(realm string, details map[string]interface{}) (bool, string) {
		for _, hook := range hooks {
			if ok, reason := hook(realm, details); !ok {
				return false, reason
			}
		}
		return true, ""
	}
}
