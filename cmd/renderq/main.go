package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"renderq/internal/backend"
	"renderq/internal/configuration"
	"renderq/internal/estimate"
	"renderq/internal/manifest"
	"renderq/internal/pathing"
	"renderq/internal/queue"
	"renderq/internal/scheduler"
	"renderq/internal/schema"
	"renderq/internal/ui"
)

const (
	stackTraceBufMax = 1 << 24
)

//nolint:gochecknoglobals
var (
	ExitCode = 0
	Version  string

	uiEnabled  = flag.Bool("ui", true, "enable the UI")
	configFile = flag.String("config", "", "read configuration from this file")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	memprofile = flag.String("memprofile", "", "write memory profile to this file")
)

func setupLogging() {
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stdout, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
		}),
	))
}

func setupSignalHandlers(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigChan
		cancel()
	}()

	sigChan2 := make(chan os.Signal, 1)
	signal.Notify(sigChan2, syscall.SIGUSR1)
	go func() {
		for range sigChan2 {
			buf := make([]byte, stackTraceBufMax)
			stacklen := runtime.Stack(buf, true)
			os.Stderr.Write(buf[:stacklen])
		}
	}()

	sigChan3 := make(chan os.Signal, 1)
	signal.Notify(sigChan3, syscall.SIGUSR2)
	go func() {
		for range sigChan3 {
			runtime.GC()
		}
	}()
}

func startApp(ctx context.Context, wg *sync.WaitGroup, app *App) {
	defer wg.Done()

	if app.uiHandler != nil {
		slog.Info("Waiting for UI...")
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if app.uiHandler.Ready.Load() || app.uiHandler.Failed.Load() {
				break
			}
		}
	}

	if err := app.Launch(ctx); err != nil {
		ExitCode = 1
	}
}

func startUI(ctx context.Context, wg *sync.WaitGroup, app *App) {
	defer wg.Done()

	if app.uiHandler != nil {
		defer setupLogging()

		slog.SetDefault(slog.New(
			tint.NewHandler(app.uiHandler.LogWriter, &tint.Options{
				Level:      slog.LevelDebug,
				TimeFormat: time.Kitchen,
				NoColor:    true,
			}),
		))

		if err := app.LaunchUI(); err != nil {
			slog.Error("UI failure: falling back to terminal.", "err", err)
		}
	}
}

func main() {
	defer func() {
		os.Exit(ExitCode)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	flag.Parse()
	setupLogging()
	setupSignalHandlers(cancel)

	allocWatch := watchAllocations(ctx)
	defer allocWatch.Stop()

	stopCPUProfile := startCPUProfile(*cpuprofile)
	defer stopCPUProfile()

	writeAllocProfile := startAllocProfile(*memprofile)
	defer writeAllocProfile()

	osProvider := &schema.OS{}
	unixProvider := &schema.Unix{}
	configProvider := &configuration.GodotenvProvider{}

	configHandler := configuration.NewHandler(configProvider)

	var configFiles []string
	if configFile != nil && *configFile != "" {
		configFiles = append(configFiles, *configFile)
	}

	appConfig, err := configHandler.EstablishAppConfiguration(configFiles...)
	if err != nil {
		slog.Error("Failed to establish application configuration.",
			"err", err,
		)
		ExitCode = 1

		return
	}

	clock := schema.WallClock{}
	timer := schema.WallTimer{}

	provider := backend.NewStaticProvider(appConfig.Scenes)
	eventBus := backend.NewBus()
	renderBackend := backend.NewHandler(eventBus, appConfig.BackendCommand, appConfig.BackendArgs)

	workspace := schema.NewMemoryWorkspace("", appConfig.OutputRoot)
	pathingHandler := pathing.NewHandler(appConfig.OutputRoot, osProvider, unixProvider)
	manifestHandler := manifest.NewHandler(osProvider)
	estimator := estimate.NewHandler(clock, appConfig.ImagePrior)
	queueManager := queue.NewManager()

	schedulerHandler := scheduler.NewHandler(
		queueManager,
		provider,
		renderBackend,
		eventBus,
		workspace,
		clock,
		timer,
		estimator,
		pathingHandler,
		manifestHandler,
	)
	schedulerHandler.SetTickInterval(appConfig.TickInterval)

	var uiHandler *ui.Handler
	if uiEnabled != nil && *uiEnabled {
		uiHandler = ui.NewHandler(ctx, cancel, schedulerHandler, queueManager, provider)
	}

	var wg sync.WaitGroup
	app := NewApp(provider, queueManager, schedulerHandler, uiHandler)

	wg.Add(1)
	go startUI(ctx, &wg, app)

	wg.Add(1)
	go startApp(ctx, &wg, app)

	wg.Wait()
}
