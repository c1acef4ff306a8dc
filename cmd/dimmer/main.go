// Gray Logic Dimmer - MQTT network dimmer
//
// This is the main entry point for the dimmer. It brings up the light
// output, watches the host network and, whenever an address is held,
// runs one broker session that maps switch and brightness commands onto
// fades of the output.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	_ "github.com/nerrad567/gray-logic-dimmer/migrations"

	"github.com/nerrad567/gray-logic-dimmer/internal/connectivity"
	"github.com/nerrad567/gray-logic-dimmer/internal/dispatch"
	"github.com/nerrad567/gray-logic-dimmer/internal/fade"
	"github.com/nerrad567/gray-logic-dimmer/internal/history"
	"github.com/nerrad567/gray-logic-dimmer/internal/identity"
	"github.com/nerrad567/gray-logic-dimmer/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-dimmer/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-dimmer/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-dimmer/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-dimmer/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-dimmer/internal/pwm"
	"github.com/nerrad567/gray-logic-dimmer/internal/session"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

const (
	// historyQueueSize bounds light changes waiting for the journal writer.
	historyQueueSize = 64

	// historyPruneInterval is how often expired history is deleted.
	historyPruneInterval = time.Hour
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options holds the parsed command line.
type options struct {
	configPath    string
	showVersion   bool
	migrateDown   bool
	migrateStatus bool
}

// parseFlags parses the command line. pflag.ErrHelp is returned for -h.
func parseFlags(args []string, out io.Writer) (options, error) {
	var opts options

	flagSet := pflag.NewFlagSet("dimmer", pflag.ContinueOnError)
	flagSet.SetOutput(out)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "path to config.yaml (default $DIMMER_CONFIG or "+defaultConfigPath+")")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version information and exit")
	flagSet.BoolVar(&opts.migrateDown, "migrate-down", false, "roll back the most recent journal migration and exit")
	flagSet.BoolVar(&opts.migrateStatus, "migrate-status", false, "print applied and pending journal migrations and exit")

	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	if flagSet.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", flagSet.Args())
	}
	if opts.migrateDown && opts.migrateStatus {
		return options{}, errors.New("--migrate-down and --migrate-status are mutually exclusive")
	}

	return opts, nil
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - args: Command line arguments without the program name
//   - out: Destination for --version and --help output
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, args []string, out io.Writer) error {
	opts, err := parseFlags(args, out)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Fprintf(out, "dimmer %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic Dimmer",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath(opts.configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	if opts.migrateDown || opts.migrateStatus {
		return runMigrations(ctx, cfg.Database, opts.migrateDown, out, log)
	}

	clientID, err := identity.Resolve(cfg.Device.ClientID, cfg.Device.ClientIDPrefix, identity.Interface(cfg.Device.Interface))
	if err != nil {
		return fmt.Errorf("resolving client id: %w", err)
	}
	log = log.With("client_id", clientID)
	log.Info("identity resolved")

	engine, err := startLight(cfg, log)
	if err != nil {
		return err
	}

	// Journal (optional)
	var db *database.DB
	if cfg.Database.Enabled {
		db, err = openDatabase(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		log.Info("database connected", "path", db.Path())

		repo := history.NewSQLiteRepository(db.DB)

		if cfg.Light.RestoreLastState {
			restored, restoreErr := history.RestoreLatest(ctx, repo, clientID, engine)
			if restoreErr != nil {
				log.Warn("restoring last light state failed", "error", restoreErr)
			} else if restored {
				log.Info("last light state restored",
					"state", engine.State().String(),
					"target", engine.Target(),
				)
			}
		}

		recorder := history.NewRecorder(repo, history.RecorderConfig{
			ClientID:      clientID,
			QueueSize:     historyQueueSize,
			Retention:     cfg.GetHistoryRetention(),
			PruneInterval: historyPruneInterval,
		})
		recorder.SetLogger(log.Component("history"))
		engine.AddListener(recorder)

		recCtx, stopRecorder := context.WithCancel(ctx)
		recDone := make(chan struct{})
		go func() {
			defer close(recDone)
			recorder.Run(recCtx)
		}()
		defer func() {
			stopRecorder()
			<-recDone
			log.Info("light history flushed",
				"written", recorder.Written(),
				"dropped", recorder.Dropped(),
			)
		}()
	} else {
		log.Info("light history disabled")
	}

	// Telemetry (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		engine.AddListener(influxClient.Listener(clientID))
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, db, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	dispatcher, err := dispatch.New(engine, dispatch.Config{
		ClientID:        clientID,
		Switch:          cfg.Topics.Switch,
		Brightness:      cfg.Topics.Brightness,
		Combined:        cfg.Topics.Combined,
		PayloadCapacity: cfg.Topics.PayloadCapacity,
	})
	if err != nil {
		return fmt.Errorf("building command routes: %w", err)
	}
	dispatcher.SetLogger(log.Component("dispatch"))
	log.Info("command topics", "topics", dispatcher.Topics())

	network := connectivity.NewHostNetwork(cfg.Network.Interface, cfg.GetPollInterval(), cfg.Network.ConnectCommand)
	network.SetLogger(log.Component("network"))

	supervisor, err := connectivity.NewSupervisor(network, newSessionFunc(cfg, clientID, dispatcher, engine, influxClient, log))
	if err != nil {
		return fmt.Errorf("creating supervisor: %w", err)
	}
	supervisor.SetLogger(log.Component("connectivity"))

	log.Info("initialisation complete, waiting for network",
		"interface", cfg.Network.Interface,
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
	)

	if err := supervisor.Run(ctx, network.Events()); err != nil {
		return fmt.Errorf("running supervisor: %w", err)
	}

	log.Info("shutdown signal received, cleaning up", "sessions", supervisor.Sessions())

	// Deferred calls run in reverse order:
	// 1. InfluxDB (if enabled)
	// 2. History recorder flush
	// 3. Database

	log.Info("Gray Logic Dimmer stopped")
	return nil
}

// getConfigPath returns the configuration file path. The flag wins over
// DIMMER_CONFIG, which wins over the default.
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv("DIMMER_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// newOutput builds the PWM peripheral named in cfg.Driver.
func newOutput(cfg config.PWMConfig) (pwm.Output, error) {
	var out pwm.Output
	switch cfg.Driver {
	case "sysfs":
		out = pwm.NewSysfsOutput(cfg.SysfsRoot, cfg.Chip, cfg.Channel)
	case "memory", "":
		out = pwm.NewMemoryOutput()
	default:
		return nil, fmt.Errorf("unknown pwm driver %q", cfg.Driver)
	}

	if err := out.Configure(cfg.ResolutionBits, cfg.FrequencyHz); err != nil {
		return nil, fmt.Errorf("configuring %s output: %w", cfg.Driver, err)
	}
	return out, nil
}

// startLight configures the output, drives it to the bottom of the range
// and returns the fade engine in the Off state.
func startLight(cfg *config.Config, log *logging.Logger) (*fade.Engine, error) {
	out, err := newOutput(cfg.Light.PWM)
	if err != nil {
		return nil, err
	}
	if err := out.Write(cfg.Light.Min); err != nil {
		return nil, fmt.Errorf("writing initial level: %w", err)
	}

	fader := pwm.NewSoftFader(out, cfg.Light.Min, cfg.GetStepInterval())
	fader.SetLogger(log.Component("pwm"))

	engine, err := fade.NewEngine(fader, fade.Config{
		Min:      cfg.Light.Min,
		Max:      cfg.Light.Max,
		Duration: cfg.GetFadeDuration(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating fade engine: %w", err)
	}
	engine.SetLogger(log.Component("fade"))

	log.Info("light output ready",
		"driver", cfg.Light.PWM.Driver,
		"min", cfg.Light.Min,
		"max", cfg.Light.Max,
		"fade", cfg.GetFadeDuration(),
	)
	return engine, nil
}

// openDatabase opens the journal and applies pending migrations.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// runMigrations is the maintenance mode behind --migrate-down and
// --migrate-status. It never applies pending migrations.
func runMigrations(ctx context.Context, cfg config.DatabaseConfig, down bool, out io.Writer, log *logging.Logger) error {
	if !cfg.Enabled {
		return errors.New("database is disabled in configuration")
	}

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // Read-mostly maintenance run

	if down {
		if err := db.MigrateDown(ctx); err != nil {
			return fmt.Errorf("rolling back migration: %w", err)
		}
		log.Info("latest migration rolled back", "path", db.Path())
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}

	fmt.Fprintf(out, "database: %s\n", db.Path())
	for _, m := range applied {
		fmt.Fprintf(out, "applied  %s  %s\n", m.Version, m.AppliedAt.UTC().Format(time.RFC3339))
	}
	for _, m := range pending {
		fmt.Fprintf(out, "pending  %s  %s\n", m.Version, m.Name)
	}
	return nil
}

// newSessionFunc returns the body run by the supervisor for every
// association. Each call owns a fresh broker handle.
func newSessionFunc(
	cfg *config.Config,
	clientID string,
	dispatcher *dispatch.Dispatcher,
	engine *fade.Engine,
	influxClient *influxdb.Client,
	log *logging.Logger,
) connectivity.SessionFunc {
	return func(ctx context.Context) {
		client := mqtt.New(cfg.MQTT, clientID)
		client.SetLogger(log.Component("mqtt"))

		manager := session.New(client, dispatcher.Subscriptions(), session.Config{
			ClientID:     clientID,
			PumpTimeout:  cfg.GetPumpTimeout(),
			PublishState: cfg.MQTT.PublishState,
		})
		manager.SetLogger(log.Component("session").With("boot_id", client.BootID()))
		manager.SetStateSource(engine)

		if err := manager.Run(ctx); err != nil {
			log.Warn("session ended with error", "error", err)
		}

		if influxClient != nil {
			influxClient.WriteSessionStats(clientID, statsFields(manager.Stats()))
		}
	}
}

// statsFields flattens session counters into InfluxDB fields.
func statsFields(s session.Stats) map[string]any {
	return map[string]any{
		"connected":          s.Connected,
		"subscribed":         s.Subscribed,
		"subscribe_failures": s.SubscribeFailures,
		"pumps":              s.Pumps,
		"delivered":          s.Delivered,
		"pump_failures":      s.PumpFailures,
		"state_publishes":    s.StatePublishes,
	}
}

// healthCheck verifies the optional stores are reachable. The broker is
// not dialled until the network is up.
func healthCheck(ctx context.Context, db *database.DB, influxClient *influxdb.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
