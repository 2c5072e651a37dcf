package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cucumber/godog"
	"github.com/cucumber/godog/colors"

	"github.com/svarogrud/ctrlup-aht/internal/adapter/steps"
	"github.com/svarogrud/ctrlup-aht/internal/di"
	"github.com/svarogrud/ctrlup-aht/internal/infrastructure/artifacts"
	"github.com/svarogrud/ctrlup-aht/internal/infrastructure/config"
	"github.com/svarogrud/ctrlup-aht/internal/infrastructure/env"
	"github.com/svarogrud/ctrlup-aht/internal/infrastructure/features"
	"github.com/svarogrud/ctrlup-aht/internal/infrastructure/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts := godog.Options{
		Output:      colors.Colored(os.Stdout),
		Format:      "pretty",
		Concurrency: 1,
	}
	godog.BindCommandLineFlags("godog.", &opts)
	cfgName := flag.String("cfg", "", "config file, or a name looked up as configs/<name>.yml")
	workDir := flag.String("dir", ".", "directory holding .env files and configs/")
	flag.Parse()

	envs, err := env.Load(*workDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "environment: %v\n", err)
		return 2
	}

	name := *cfgName
	if name == "" {
		name = envs.GetWithDefault("AHT_CONFIG", "")
	}
	cfg, err := config.Load(config.Resolve(name, *workDir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}

	log, err := logger.NewLoggerAdapter(logger.Options{
		Dir:     cfg.LogsDir,
		Name:    "aht",
		Level:   cfg.LogLevel,
		Console: envs.GetBool("AHT_LOG_CONSOLE", true),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 2
	}
	defer log.Close()

	log.Info("Run started",
		"app_env", envs.AppEnv(),
		"env_files", envs.Files(),
		"driver", cfg.Driver,
		"browser", cfg.Browser,
		"service_url", cfg.AirportGap.ServiceURL,
	)

	var capturer steps.Capturer
	if cfg.Artifacts {
		rec := artifacts.NewRecorder(cfg.LogsDir, log)
		log.Info("Failure artifacts enabled", "dir", rec.Dir())
		capturer = rec
	}

	suite := steps.NewSuite(func() steps.Session { return di.NewSession(cfg, log) }, log, capturer)

	// sessions own a browser each; scenarios never overlap
	opts.Concurrency = 1
	if args := flag.Args(); len(args) > 0 {
		opts.Paths = args
	}
	if len(opts.Paths) == 0 {
		opts.FS = features.FS()
		opts.Paths = features.Paths()
	}

	status := godog.TestSuite{
		Name:                "aht",
		ScenarioInitializer: suite.InitializeScenario,
		Options:             &opts,
	}.Run()

	log.Info("Run finished", "status", status)
	return status
}
