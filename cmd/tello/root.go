package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"tello-mission/internal/config"
	"tello-mission/internal/observability"
)

// cli carries what the persistent pre-run loads for every subcommand.
type cli struct {
	v       *viper.Viper
	cfgFile string
	sim     bool
	capture bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	config.SetDefaults(c.v)

	root := &cobra.Command{
		Use:          "tello",
		Short:        "Plan and fly autonomous Tello missions.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&c.cfgFile, "config", "c", "", "config file (default is ./tello.yaml)")
	pf.BoolVar(&c.sim, "sim", false, "fly the simulator whatever drone.backend says")
	pf.BoolVar(&c.capture, "capture", false, "take a photo at every waypoint")
	pf.Bool("return-home", false, "return above the takeoff point before landing")
	pf.Float64("max-leg", 0, "split legs longer than this many cm (0 keeps legs whole)")
	pf.Bool("telemetry", false, "serve the live dashboard while flying")
	_ = c.v.BindPFlag("mission.return_home", pf.Lookup("return-home"))
	_ = c.v.BindPFlag("mission.max_leg", pf.Lookup("max-leg"))
	_ = c.v.BindPFlag("telemetry.enabled", pf.Lookup("telemetry"))

	root.AddCommand(patternCommands(c.fly)...)

	plan := &cobra.Command{
		Use:   "plan",
		Short: "Print a mission plan as JSON without flying it.",
	}
	plan.AddCommand(patternCommands(c.printPlan)...)
	root.AddCommand(plan)

	return root
}

// load reads the config file and environment, then starts the logger.
func (c *cli) load() error {
	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
	} else {
		c.v.AddConfigPath(".")
		c.v.SetConfigName("tello")
		c.v.SetConfigType("yaml")
	}
	c.v.SetEnvPrefix(config.EnvPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	c.v.AutomaticEnv()

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	if c.sim {
		c.v.Set("drone.backend", config.BackendSim)
	}

	cfg, err := config.NewConfigFromViper(c.v)
	if err != nil {
		return err
	}
	c.cfg = cfg

	observability.InitializeLogger(cfg.Logger)
	c.logger = observability.GetLogger()
	if f := c.v.ConfigFileUsed(); f != "" {
		c.logger.Debug("Loaded config", zap.String("file", f))
	}
	return nil
}
