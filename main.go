package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/OdyseeTeam/gondola/admin"
	"github.com/OdyseeTeam/gondola/api"
	"github.com/OdyseeTeam/gondola/catalog"
	"github.com/OdyseeTeam/gondola/internal/config"
	"github.com/OdyseeTeam/gondola/library"
	"github.com/OdyseeTeam/gondola/listing"
	"github.com/OdyseeTeam/gondola/pages"
	"github.com/OdyseeTeam/gondola/pkg/logging"
	"github.com/OdyseeTeam/gondola/pkg/logging/zapadapter"
	"github.com/OdyseeTeam/gondola/playback"

	"github.com/alecthomas/kong"
)

var CLI struct {
	Serve struct {
		Config string `optional name:"config" help:"Path to config file, gondola.* next to the binary or in the working directory is used by default." type:"path"`
		Bind   string `optional name:"bind" help:"Address to listen on, overrides config."`
		Debug  bool   `optional name:"debug" help:"Debug mode."`
	} `cmd help:"Start the video site."`
	Digest struct {
		Key string `arg help:"Shell key to hash."`
	} `cmd help:"Print the password file content for a shell key."`
}

func main() {
	ctx := kong.Parse(&CLI)
	switch ctx.Command() {
	case "serve":
		serve()
	case "digest <key>":
		fmt.Println(admin.Digest(CLI.Digest.Key))
	default:
		panic(ctx.Command())
	}
}

func serve() {
	cfg, err := config.Read(CLI.Serve.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if CLI.Serve.Bind != "" {
		cfg.Bind = CLI.Serve.Bind
	}

	logCfg := logging.Prod
	if CLI.Serve.Debug {
		logCfg = logging.Dev
	}
	zl := logging.Create("gondola", logging.WithFile(logCfg, cfg.Paths.Log))
	defer zl.Sync()
	log := zapadapter.NewKV(zl.Desugar())

	renderer, err := pages.New(cfg.Site.Pages())
	if err != nil {
		zl.Fatalw("unable to parse page templates", "err", err)
	}
	cache := listing.New(renderer)
	cat := catalog.New()

	lib, err := library.New(library.Config{
		Paths:   cfg.Paths.Library(),
		Catalog: cat,
		Listing: cache,
		Log:     zapadapter.Named(zl, "library"),
		Workers: cfg.Library.Workers,
	})
	if err != nil {
		zl.Fatalw("unable to initialize library", "err", err)
	}
	lib.Bootstrap()

	stopReconcile, reconcileDone := library.SpawnReconciliation(lib, cfg.Library.Interval)

	var stopWatch func() error
	if cfg.Library.Watch {
		stopWatch, err = lib.WatchRemovals()
		if err != nil {
			log.Warn("removal directory is not watched, waiting for scheduled passes", "err", err)
		}
	}

	state := admin.NewState()
	verifier := admin.NewVerifier(cfg.Paths.Password, cfg.Shell.SecretTTL, zapadapter.Named(zl, "shell"))
	shell := admin.NewShell(admin.ShellConfig{
		State:    state,
		Verifier: verifier,
		Rate:     cfg.Shell.Rate,
		Burst:    cfg.Shell.Burst,
		Log:      zapadapter.Named(zl, "shell"),
	})

	server := api.NewServer(api.Configure().
		Debug(CLI.Serve.Debug).
		Addr(cfg.Bind).
		FilesPath(cfg.Paths.Files).
		DefaultVideo(cfg.DefaultVideo).
		Catalog(cat).
		Picker(playback.NewPicker()).
		Renderer(renderer).
		Listing(cache).
		State(state).
		Shell(shell).
		Log(zapadapter.Named(zl, "http")),
	)
	go func() {
		if err := server.Start(); err != nil {
			zl.Fatalw("http server failed", "err", err)
		}
	}()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	sig := <-stopChan
	zl.Infof("caught an %v signal, shutting down...", sig)

	if err := server.Shutdown(); err != nil {
		zl.Errorw("http server shutdown failed", "err", err)
	}
	if stopWatch != nil {
		stopWatch()
	}
	close(stopReconcile)
	<-reconcileDone
	zl.Infof("reconciliation stopped")

	// Persist views accumulated since the last scheduled pass.
	lib.Reconcile()
	lib.Close()
	verifier.Stop()
	zl.Infof("shutdown complete")
}
