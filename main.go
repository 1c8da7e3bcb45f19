package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/mfahlbusch/camswitch/cmd"
	"github.com/mfahlbusch/camswitch/internal/api"
	"github.com/mfahlbusch/camswitch/internal/camera"
	"github.com/mfahlbusch/camswitch/internal/config"
	"github.com/mfahlbusch/camswitch/internal/control"
	"github.com/mfahlbusch/camswitch/internal/events"
	"github.com/mfahlbusch/camswitch/internal/logging"
	"github.com/mfahlbusch/camswitch/internal/metrics"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port    string `help:"HTTP API port" short:"p" default:":8080" toml:"server.port" env:"SERVER_PORT"`
	TCPAddr string `help:"TCP control socket address" default:":9000" toml:"server.tcp_addr" env:"SERVER_TCP_ADDR"`

	// Camera settings
	CamerasConfigFile string `help:"Camera definitions file" default:"cameras.toml" toml:"cameras.config_file" env:"CAMERAS_CONFIG_FILE"`
	HLSRoot           string `help:"Directory for HLS output" default:"/tmp/hls" toml:"cameras.hls_root" env:"HLS_ROOT"`
	Go2RTCURL         string `help:"Base URL of the go2rtc service" default:"http://172.17.0.1:1984" toml:"cameras.go2rtc_url" env:"GO2RTC_URL"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCamera  string `help:"Camera logging level" default:"info" toml:"logging.camera" env:"LOGGING_CAMERA"`
	LoggingProcess string `help:"Process supervisor logging level" default:"info" toml:"logging.process" env:"LOGGING_PROCESS"`
	LoggingFfmpeg  string `help:"FFmpeg output logging level" default:"info" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingControl string `help:"TCP control logging level" default:"info" toml:"logging.control" env:"LOGGING_CONTROL"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"camera":  opts.LoggingCamera,
				"process": opts.LoggingProcess,
				"ffmpeg":  opts.LoggingFfmpeg,
				"control": opts.LoggingControl,
				"api":     opts.LoggingAPI,
			},
		})

		logger := logging.GetLogger("main")

		eventBus := events.New()

		camerasCfg, found, err := config.LoadCameras(opts.CamerasConfigFile)
		if err != nil {
			logger.Error("Invalid camera configuration", "file", opts.CamerasConfigFile, "error", err)
			os.Exit(1)
		}
		if !found {
			logger.Warn("Camera configuration not found, using built-in default",
				"file", opts.CamerasConfigFile)
		}

		registry, err := camera.NewRegistry(camerasCfg.Cameras, opts.HLSRoot, eventBus, logging.GetLogger("camera"))
		if err != nil {
			logger.Error("Failed to create cameras", "error", err)
			os.Exit(1)
		}

		promMetrics := metrics.New(eventBus, registry)

		controlServer := control.NewServer(registry, logging.GetLogger("control"))

		apiServer := api.NewServer(&api.Options{
			Registry:       registry,
			EventBus:       eventBus,
			Go2RTCURL:      opts.Go2RTCURL,
			HLSRoot:        opts.HLSRoot,
			MetricsHandler: promMetrics.Handler(),
		})

		// Camera definitions are applied at startup only. The watcher
		// surfaces edits so operators know a restart is needed.
		watcher := config.NewWatcher(opts.CamerasConfigFile, func(path string) (config.CamerasFile, error) {
			cfg, _, err := config.LoadCameras(path)
			return cfg, err
		}, logger)
		watcher.OnReload(func(config.CamerasFile) {
			logger.Warn("Camera configuration changed on disk, restart to apply",
				"file", opts.CamerasConfigFile)
			eventBus.Publish(events.ConfigReloadedEvent{
				Path:      opts.CamerasConfigFile,
				Timestamp: time.Now().Format(time.RFC3339),
			})
		})

		hooks.OnStart(func() {
			registry.StartAll()

			if startErr := controlServer.Start(opts.TCPAddr); startErr != nil {
				logger.Error("Failed to start TCP control server", "error", startErr)
				os.Exit(1)
			}

			if watchErr := watcher.Start(); watchErr != nil {
				logger.Warn("Config watcher unavailable", "error", watchErr)
			}

			if _, notifyErr := daemon.SdNotify(false, daemon.SdNotifyReady); notifyErr != nil {
				logger.Debug("sd_notify failed", "error", notifyErr)
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := apiServer.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			daemon.SdNotify(false, daemon.SdNotifyStopping)

			if stopErr := apiServer.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			controlServer.Stop()
			registry.StopAll()
			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Debug("Error stopping config watcher", "error", stopErr)
			}
			promMetrics.Close()
		})
	})

	cli.Root().AddCommand(cmd.CreateCtlCmd())
	cli.Root().AddCommand(cmd.CreateUpdateCmd())

	cli.Run()
}
