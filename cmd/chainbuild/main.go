package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/chainbuild/internal/application"
	"github.com/eugenenazirov/chainbuild/internal/config"
	"github.com/eugenenazirov/chainbuild/internal/logging"
	"github.com/eugenenazirov/chainbuild/internal/node"
	"github.com/eugenenazirov/chainbuild/internal/task"
)

const dotEnvFileName = ".env"

var (
	notifyContext = signal.NotifyContext
	terminate     = os.Exit
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// cli holds the parsed global flags and the per-task parameter flags.
type cli struct {
	app          *kingpin.Application
	configFile   *string
	envFile      *string
	network      *string
	solcVersion  *string
	optimizer    *bool
	optimizerSet bool
	logLevel     *string
	logFormat    *string
	taskArgs     map[string]map[string]*string
}

func newCLI(tasks []task.Task, stdout, stderr io.Writer) *cli {
	app := kingpin.New("chainbuild", "Smart-contract build tool: configuration, networks and tasks").
		Version(node.ClientVersion).
		UsageWriter(stdout).
		ErrorWriter(stderr).
		Terminate(terminate)

	c := &cli{
		app:         app,
		configFile:  app.Flag("config", "Path to YAML configuration file (default: nearest "+application.ConfigFileName+")").String(),
		envFile:     app.Flag("env-file", "Path to a .env file loaded into the environment (default: .env in the project root)").String(),
		network:     app.Flag("network", "Network to run the task against").String(),
		solcVersion: app.Flag("solc-version", "Solidity compiler version").String(),
		logLevel:    app.Flag("log-level", "Log level (debug, info, warn, error)").Default("info").String(),
		logFormat:   app.Flag("log-format", "Log format (json, console)").Default(logging.FormatJSON).Enum(logging.FormatJSON, logging.FormatConsole),
		taskArgs:    make(map[string]map[string]*string, len(tasks)),
	}
	c.optimizer = app.Flag("optimizer", "Enable the Solidity optimizer").IsSetByUser(&c.optimizerSet).Bool()

	for _, t := range tasks {
		cmd := app.Command(t.Name, t.Description)
		params := make(map[string]*string, len(t.Params))
		for _, p := range t.Params {
			params[p.Name] = cmd.Flag(p.Name, p.Description).Default(p.Default).String()
		}
		c.taskArgs[t.Name] = params
	}
	return c
}

// overrides converts the global flags into configuration overrides. Unset
// flags stay nil so lower layers keep their values.
func (c *cli) overrides() (*config.CLIOverrides, error) {
	overrides := &config.CLIOverrides{
		ConfigFile: *c.configFile,
		EnvFile:    *c.envFile,
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if overrides.ConfigFile == "" {
		if path, err := application.DiscoverConfigFile(wd); err == nil {
			overrides.ConfigFile = path
		}
	}
	// The project root is the directory holding the configuration file.
	if overrides.EnvFile == "" {
		root := wd
		if overrides.ConfigFile != "" {
			if abs, err := filepath.Abs(overrides.ConfigFile); err == nil {
				root = filepath.Dir(abs)
			}
		}
		overrides.EnvFile = filepath.Join(root, dotEnvFileName)
	}
	if *c.network != "" {
		overrides.Network = c.network
	}
	if *c.solcVersion != "" {
		overrides.SolidityVersion = c.solcVersion
	}
	if c.optimizerSet {
		overrides.OptimizerEnabled = c.optimizer
	}
	return overrides, nil
}

func (c *cli) args(taskName string) map[string]string {
	params := c.taskArgs[taskName]
	args := make(map[string]string, len(params))
	for name, value := range params {
		args[name] = *value
	}
	return args
}

// run parses args, loads the configuration and executes the selected task,
// returning the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	tasks, err := application.NewTaskRegistry()
	if err != nil {
		fmt.Fprintf(stderr, "chainbuild: %v\n", err)
		return 1
	}

	c := newCLI(tasks.Tasks(), stdout, stderr)
	command, err := c.app.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "chainbuild: %v, try --help\n", err)
		return 2
	}

	overrides, err := c.overrides()
	if err != nil {
		fmt.Fprintf(stderr, "chainbuild: %v\n", err)
		return 1
	}
	cfg, err := config.Load(overrides)
	if err != nil {
		fmt.Fprintf(stderr, "chainbuild: failed to load configuration: %v\n", err)
		return 1
	}

	logger, err := logging.New(*c.logLevel, *c.logFormat)
	if err != nil {
		fmt.Fprintf(stderr, "chainbuild: failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger, tasks, application.WithStdout(stdout))
	if err != nil {
		logger.Error("failed to initialize application", zap.Error(err))
		return 1
	}

	ctx, stop := notifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, command, c.args(command)); err != nil {
		logger.Error("task failed",
			zap.String("task", command),
			zap.String("network", cfg.DefaultNetwork),
			zap.Error(err),
		)
		return 1
	}
	return 0
}
