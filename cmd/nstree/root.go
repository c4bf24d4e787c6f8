package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/brettbedarf/nstree/config"
	"github.com/brettbedarf/nstree/internal/util"
	"github.com/brettbedarf/nstree/namespace"
	"github.com/brettbedarf/nstree/requests"
)

const (
	envPrefix = "NSTREE"

	verboseFlagName = "verbose"
	logFileFlagName = "log-file"
	configFlagName  = "config"
	rootFlagName    = "root"

	defaultVerbose       = config.InfoVerbose
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
)

// configKeys are the config.ConfigOverride keys read from the config file or
// NSTREE_* environment variables
var configKeys = []string{"log_lvl", "default_name", "default_writable", "max_file_size"}

const rootLongDescription = `nstree loads a namespace fixture (YAML or JSON) into an in-memory tree
of directories, files and links and inspects it.

Configuration is read from --config and NSTREE_* environment variables,
i.e. NSTREE_DEFAULT_NAME or NSTREE_MAX_FILE_SIZE.`

// app holds the state shared by every command of one invocation
type app struct {
	v         *viper.Viper
	cfg       *config.Config
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	return newApp().rootCmd()
}

func newApp() *app {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	for _, key := range configKeys {
		cobra.CheckErr(v.BindEnv(key))
	}
	return &app{v: v}
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "nstree",
		Short:             "Inspect namespace fixtures",
		Long:              rootLongDescription,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.logCloser != nil {
				return a.logCloser.Close()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().IntP(verboseFlagName, "v", defaultVerbose, "log verbosity between 1 (error) and 5 (trace)")
	a.bindFlag(cmd.PersistentFlags().Lookup(verboseFlagName), verboseFlagName)
	cmd.PersistentFlags().String(logFileFlagName, "", "write logs to a rotating file instead of stderr")
	a.bindFlag(cmd.PersistentFlags().Lookup(logFileFlagName), logFileFlagName)
	cmd.PersistentFlags().StringP(configFlagName, "c", "", "config override file (.yaml, .yml or .json)")
	a.bindFlag(cmd.PersistentFlags().Lookup(configFlagName), configFlagName)

	cmd.AddCommand(
		newTreeCmd(a),
		newLsCmd(a),
		newDuCmd(a),
		newStatCmd(a),
		newCheckCmd(a),
	)
	return cmd
}

// bindFlag wires a cobra flag to a viper key so env values feed the flag.
func (a *app) bindFlag(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}
	cobra.CheckErr(a.v.BindPFlag(key, flag))
}

// setup resolves the configuration and initializes logging before any command runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	if path := a.v.GetString(logFileFlagName); path != "" {
		a.logCloser = util.InitializeFileLogger(cfg.LogLvl, util.LogFile{
			Filename:   path,
			MaxSize:    defaultLogMaxSize,
			MaxBackups: defaultLogMaxBackups,
			MaxAge:     defaultLogMaxAge,
			Compress:   true,
		})
	} else {
		util.InitializeLogger(cfg.LogLvl)
	}
	logger := util.GetLogger("main")
	logger.Debug().Str("command", cmd.Name()).Interface("config", cfg).Msg("nstree initialized")
	return nil
}

// loadConfig merges, in increasing precedence, the defaults, the config file,
// NSTREE_* environment variables and the --verbose flag.
func (a *app) loadConfig() (*config.Config, error) {
	if path := a.v.GetString(configFlagName); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var override config.ConfigOverride
	if err := a.v.Unmarshal(&override); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if a.v.IsSet(verboseFlagName) {
		verbose := a.v.GetInt(verboseFlagName)
		override.LogLvl = &verbose
	}

	cfg := config.NewConfig(&override)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadTree builds a tree holding the fixture at path as roots.
func (a *app) loadTree(path string) (*namespace.Tree, error) {
	logger := util.GetLogger("main")

	reqs, err := requests.LoadFixtureFile(path, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load fixture %s: %w", path, err)
	}
	tree, err := namespace.NewTree(a.cfg)
	if err != nil {
		return nil, err
	}
	if _, err := tree.AddNodes(nil, reqs); err != nil {
		return nil, fmt.Errorf("failed to build tree from %s: %w", path, err)
	}
	logger.Info().Str("fixture", path).Int("nodes", tree.Len()).Msg("Loaded tree")
	return tree, nil
}

// findRoot returns the live root carrying name, ignoring case.
func findRoot(tree *namespace.Tree, name string) (namespace.Node, error) {
	for _, r := range tree.Roots() {
		if strings.EqualFold(r.Name(), name) {
			return r, nil
		}
	}
	return nil, fmt.Errorf("no root named %q", name)
}
