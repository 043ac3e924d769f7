package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Seednode/sketchbox/internal/prompts"
)

type Config struct {
	bind           string
	port           int
	prefix         string
	profile        bool
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool

	roundDuration time.Duration
	prepareDelay  time.Duration
	canvasWidth   int
	canvasHeight  int
	pack          string
	packsDir      string
	mdns          bool
	chatRate      float64
	chatBurst     int

	logger zerolog.Logger
}

type watchConfig struct {
	name   string
	color  string
	out    string
	binary bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.roundDuration < 10*time.Second {
		return fmt.Errorf("invalid round duration (must be at least 10s): %s", c.roundDuration)
	}
	if c.prepareDelay < 0 {
		return fmt.Errorf("invalid prepare delay (must not be negative): %s", c.prepareDelay)
	}
	if c.canvasWidth < 1 || c.canvasWidth > 4096 || c.canvasHeight < 1 || c.canvasHeight > 4096 {
		return fmt.Errorf("invalid canvas size (each side must be between 1-4096 inclusive): %dx%d", c.canvasWidth, c.canvasHeight)
	}
	if c.chatRate <= 0 || c.chatBurst < 1 {
		return fmt.Errorf("invalid chat limits (rate must be positive, burst at least 1): %v/%d", c.chatRate, c.chatBurst)
	}
	if strings.TrimSpace(c.pack) == "" {
		return errors.New("--pack must not be empty")
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// bindEnv lets every flag in fs be set from a SKETCHBOX_ environment
// variable unless it was given on the command line.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SKETCHBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "sketchbox",
		Short:         "A drawing and guessing party game, served as a single webapp.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.logger = newLogger(cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: SKETCHBOX_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: SKETCHBOX_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: SKETCHBOX_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: SKETCHBOX_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle games are ended (env: SKETCHBOX_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: SKETCHBOX_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: SKETCHBOX_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: SKETCHBOX_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: SKETCHBOX_VERSION)")
	fs.DurationVar(&cfg.roundDuration, "round-duration", 100*time.Second, "length of each drawing round (env: SKETCHBOX_ROUND_DURATION)")
	fs.DurationVar(&cfg.prepareDelay, "prepare-delay", 3*time.Second, "pause between rounds (env: SKETCHBOX_PREPARE_DELAY)")
	fs.IntVar(&cfg.canvasWidth, "canvas-width", 800, "canvas width in pixels (env: SKETCHBOX_CANVAS_WIDTH)")
	fs.IntVar(&cfg.canvasHeight, "canvas-height", 600, "canvas height in pixels (env: SKETCHBOX_CANVAS_HEIGHT)")
	fs.StringVar(&cfg.pack, "pack", prompts.DefaultPack, "prompt pack used for new rounds (env: SKETCHBOX_PACK)")
	fs.StringVar(&cfg.packsDir, "packs-dir", "", "directory of additional *.json prompt packs (env: SKETCHBOX_PACKS_DIR)")
	fs.BoolVar(&cfg.mdns, "mdns", false, "advertise the server on the local network (env: SKETCHBOX_MDNS)")
	fs.Float64Var(&cfg.chatRate, "chat-rate", 2, "chat messages per second allowed per player (env: SKETCHBOX_CHAT_RATE)")
	fs.IntVar(&cfg.chatBurst, "chat-burst", 5, "chat messages a player may send at once (env: SKETCHBOX_CHAT_BURST)")

	bindEnv(v, fs)

	cmd.AddCommand(newWatchCmd(cfg, v), newDiscoverCmd())

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("sketchbox v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func newWatchCmd(cfg *Config, v *viper.Viper) *cobra.Command {
	wc := &watchConfig{}

	cmd := &cobra.Command{
		Use:   "watch <ws-url>",
		Short: "Join a game as a headless player and save the final canvas.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return watch(cmd.Context(), cfg, wc, args[0])
		},
	}

	fs := cmd.Flags()

	fs.StringVar(&wc.name, "name", "watcher", "display name in the game (env: SKETCHBOX_NAME)")
	fs.StringVar(&wc.color, "color", "#5b8def", "avatar color (env: SKETCHBOX_COLOR)")
	fs.StringVar(&wc.out, "out", "canvas.png", "where to write the canvas on exit (env: SKETCHBOX_OUT)")
	fs.BoolVar(&wc.binary, "binary", false, "use binary frames for drawing events (env: SKETCHBOX_BINARY)")
	fs.IntVar(&cfg.canvasWidth, "canvas-width", 800, "canvas width in pixels (env: SKETCHBOX_CANVAS_WIDTH)")
	fs.IntVar(&cfg.canvasHeight, "canvas-height", 600, "canvas height in pixels (env: SKETCHBOX_CANVAS_HEIGHT)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: SKETCHBOX_VERBOSE)")

	bindEnv(v, fs)

	return cmd
}
