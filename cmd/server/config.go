package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flags holds every CLI-settable knob for the party quiz server. Each one
// except public-base-url also has a direct environment-variable equivalent
// (named to match what internal/config.ValidateEnv already reads), bound
// through viper so a flag
// left unset falls back to the environment before falling back to its
// default.
type flags struct {
	port       string
	contentDir string
	goEnv      string
	logLevel   string

	allowedOrigins string
	otlpEndpoint   string

	roomCleanupEnabled             bool
	roomCleanupIntervalSeconds     int
	roomWithoutHostTTLMinutes      int
	disconnectedPlayerGraceSeconds int

	autoplayEnabled          bool
	autoplayPollIntervalMs   int
	autoplayMinActionDelayMs int
	autoplayMaxActionDelayMs int

	rateLimitWsCommands string

	publicBaseURL string
}

// envKey maps a flag name to the environment variable internal/config reads.
var envKey = map[string]string{
	"port":                               "PORT",
	"content-dir":                        "CONTENT_DIR",
	"go-env":                             "GO_ENV",
	"log-level":                          "LOG_LEVEL",
	"allowed-origins":                    "ALLOWED_ORIGINS",
	"otlp-endpoint":                      "OTEL_EXPORTER_OTLP_ENDPOINT",
	"room-cleanup-enabled":               "ROOM_CLEANUP_ENABLED",
	"room-cleanup-interval-seconds":      "ROOM_CLEANUP_INTERVAL_SECONDS",
	"room-without-host-ttl-minutes":      "ROOM_WITHOUT_HOST_TTL_MINUTES",
	"disconnected-player-grace-seconds":  "DISCONNECTED_PLAYER_GRACE_SECONDS",
	"autoplay-enabled":                   "AUTOPLAY_ENABLED",
	"autoplay-poll-interval-ms":          "AUTOPLAY_POLL_INTERVAL_MS",
	"autoplay-min-action-delay-ms":       "AUTOPLAY_MIN_ACTION_DELAY_MS",
	"autoplay-max-action-delay-ms":       "AUTOPLAY_MAX_ACTION_DELAY_MS",
	"rate-limit-ws-commands":             "RATE_LIMIT_WS_COMMANDS",
}

// newCmd builds the root cobra command the way Seednode-partybox's newCmd
// does: a viper instance bound to every pflag by name, each flag readable
// from its own environment variable, CLI value wins, then env, then default.
func newCmd(f *flags, run func(cmd *cobra.Command, f *flags) error) *cobra.Command {
	v := viper.New()
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "partyquiz-server",
		Short:         "Realtime orchestration server for the multi-room party quiz game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&f.port, "port", "", "port to listen on (env: PORT, required)")
	fs.StringVar(&f.contentDir, "content-dir", "", "directory of content packs (env: CONTENT_DIR, required)")
	fs.StringVar(&f.goEnv, "go-env", "production", "deployment environment, \"development\" enables human-readable logs (env: GO_ENV)")
	fs.StringVar(&f.logLevel, "log-level", "info", "log level (env: LOG_LEVEL)")
	fs.StringVar(&f.allowedOrigins, "allowed-origins", "", "comma-separated CORS allowed origins, empty allows all (env: ALLOWED_ORIGINS)")
	fs.StringVar(&f.otlpEndpoint, "otlp-endpoint", "", "OTLP trace collector host:port, empty disables tracing (env: OTEL_EXPORTER_OTLP_ENDPOINT)")

	fs.BoolVar(&f.roomCleanupEnabled, "room-cleanup-enabled", true, "run the janitor sweep (env: ROOM_CLEANUP_ENABLED)")
	fs.IntVar(&f.roomCleanupIntervalSeconds, "room-cleanup-interval-seconds", 30, "janitor sweep cadence (env: ROOM_CLEANUP_INTERVAL_SECONDS)")
	fs.IntVar(&f.roomWithoutHostTTLMinutes, "room-without-host-ttl-minutes", 10, "hostless room TTL before teardown (env: ROOM_WITHOUT_HOST_TTL_MINUTES)")
	fs.IntVar(&f.disconnectedPlayerGraceSeconds, "disconnected-player-grace-seconds", 60, "grace period before a disconnected player is evicted (env: DISCONNECTED_PLAYER_GRACE_SECONDS)")

	fs.BoolVar(&f.autoplayEnabled, "autoplay-enabled", false, "run the bot autoplay driver (env: AUTOPLAY_ENABLED)")
	fs.IntVar(&f.autoplayPollIntervalMs, "autoplay-poll-interval-ms", 500, "bot poll cadence (env: AUTOPLAY_POLL_INTERVAL_MS)")
	fs.IntVar(&f.autoplayMinActionDelayMs, "autoplay-min-action-delay-ms", 800, "bot minimum action delay (env: AUTOPLAY_MIN_ACTION_DELAY_MS)")
	fs.IntVar(&f.autoplayMaxActionDelayMs, "autoplay-max-action-delay-ms", 4000, "bot maximum action delay (env: AUTOPLAY_MAX_ACTION_DELAY_MS)")

	fs.StringVar(&f.rateLimitWsCommands, "rate-limit-ws-commands", "30-M", "per-connection inbound command rate, ulule/limiter format (env: RATE_LIMIT_WS_COMMANDS)")
	fs.StringVar(&f.publicBaseURL, "public-base-url", "", "scheme://host used to render QR join URLs; derived from the request when empty")

	fs.VisitAll(func(fl *pflag.Flag) {
		_ = v.BindPFlag(fl.Name, fl)
		if key, ok := envKey[fl.Name]; ok {
			_ = v.BindEnv(fl.Name, key)
		}
		if !fl.Changed && v.IsSet(fl.Name) {
			_ = fs.Set(fl.Name, viperString(v, fl.Name))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}

func viperString(v *viper.Viper, key string) string {
	switch val := v.Get(key).(type) {
	case bool:
		return strconv.FormatBool(val)
	case string:
		return val
	default:
		return v.GetString(key)
	}
}

// exportEnv pushes every resolved flag value into the process environment
// under the name internal/config.ValidateEnv reads, so the CLI/viper layer
// and the validated-config layer stay decoupled: this package only knows
// about flags, internal/config only knows about the environment.
func (f *flags) exportEnv(setenv func(key, value string) error) {
	_ = setenv("PORT", f.port)
	_ = setenv("CONTENT_DIR", f.contentDir)
	_ = setenv("GO_ENV", f.goEnv)
	_ = setenv("LOG_LEVEL", f.logLevel)
	_ = setenv("ALLOWED_ORIGINS", f.allowedOrigins)
	_ = setenv("OTEL_EXPORTER_OTLP_ENDPOINT", f.otlpEndpoint)

	_ = setenv("ROOM_CLEANUP_ENABLED", strconv.FormatBool(f.roomCleanupEnabled))
	_ = setenv("ROOM_CLEANUP_INTERVAL_SECONDS", strconv.Itoa(f.roomCleanupIntervalSeconds))
	_ = setenv("ROOM_WITHOUT_HOST_TTL_MINUTES", strconv.Itoa(f.roomWithoutHostTTLMinutes))
	_ = setenv("DISCONNECTED_PLAYER_GRACE_SECONDS", strconv.Itoa(f.disconnectedPlayerGraceSeconds))

	_ = setenv("AUTOPLAY_ENABLED", strconv.FormatBool(f.autoplayEnabled))
	_ = setenv("AUTOPLAY_POLL_INTERVAL_MS", strconv.Itoa(f.autoplayPollIntervalMs))
	_ = setenv("AUTOPLAY_MIN_ACTION_DELAY_MS", strconv.Itoa(f.autoplayMinActionDelayMs))
	_ = setenv("AUTOPLAY_MAX_ACTION_DELAY_MS", strconv.Itoa(f.autoplayMaxActionDelayMs))

	_ = setenv("RATE_LIMIT_WS_COMMANDS", f.rateLimitWsCommands)
}
