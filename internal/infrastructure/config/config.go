package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// maxResolutionBits is the widest duty resolution accepted for the PWM output.
const maxResolutionBits = 20

// Config is the root configuration structure for the dimmer.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	Network  NetworkConfig  `yaml:"network"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Topics   TopicsConfig   `yaml:"topics"`
	Light    LightConfig    `yaml:"light"`
	Database DatabaseConfig `yaml:"database"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DeviceConfig controls how the controller identifies itself on the broker.
type DeviceConfig struct {
	// ClientID is used verbatim when set. When empty the identifier is
	// derived from ClientIDPrefix and the hardware address of Interface.
	ClientID       string `yaml:"client_id"`
	ClientIDPrefix string `yaml:"client_id_prefix"`
	Interface      string `yaml:"interface"`
}

// NetworkConfig contains settings for the host network layer.
type NetworkConfig struct {
	// Interface is the network interface watched for address changes.
	Interface string `yaml:"interface"`

	// PollInterval is how often the interface is checked (seconds).
	PollInterval int `yaml:"poll_interval"`

	// ConnectCommand is run on every association attempt, e.g.
	// ["nmcli", "device", "connect", "wlan0"]. Empty means the OS
	// associates on its own.
	ConnectCommand []string `yaml:"connect_command"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker MQTTBrokerConfig `yaml:"broker"`
	Auth   MQTTAuthConfig   `yaml:"auth"`

	// CommandTimeout bounds connect/subscribe/publish round trips (seconds).
	CommandTimeout int `yaml:"command_timeout"`

	// PumpTimeoutMS is how long one pump iteration waits for inbound traffic.
	PumpTimeoutMS int `yaml:"pump_timeout_ms"`

	// InboxSize is the number of inbound messages buffered between pumps.
	InboxSize int `yaml:"inbox_size"`

	// PublishState enables retained state topics after light changes.
	PublishState bool `yaml:"publish_state"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	TLS  bool   `yaml:"tls"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// TopicsConfig contains the relative command topics. Every topic is
// prefixed with the client identifier at subscription time.
type TopicsConfig struct {
	Switch     string `yaml:"switch"`
	Brightness string `yaml:"brightness"`

	// Combined is the legacy single topic accepting ON/OFF/TOGGLE and
	// numeric brightness. Disabled when empty.
	Combined string `yaml:"combined"`

	// PayloadCapacity is the size of the payload buffer including the
	// terminator slot; payloads of PayloadCapacity bytes or more are rejected.
	PayloadCapacity int `yaml:"payload_capacity"`
}

// LightConfig contains output range and fade settings.
type LightConfig struct {
	Min              int       `yaml:"min"`
	Max              int       `yaml:"max"`
	FadeMS           int       `yaml:"fade_ms"`
	StepMS           int       `yaml:"step_ms"`
	RestoreLastState bool      `yaml:"restore_last_state"`
	PWM              PWMConfig `yaml:"pwm"`
}

// PWMConfig selects and configures the output driver.
type PWMConfig struct {
	// Driver is "memory" or "sysfs".
	Driver         string `yaml:"driver"`
	SysfsRoot      string `yaml:"sysfs_root"`
	Chip           int    `yaml:"chip"`
	Channel        int    `yaml:"channel"`
	FrequencyHz    int    `yaml:"frequency_hz"`
	ResolutionBits int    `yaml:"resolution_bits"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// RetentionDays is how long light history is kept. Zero keeps everything.
	RetentionDays int `yaml:"retention_days"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: DIMMER_SECTION_KEY
// For example: DIMMER_MQTT_HOST, DIMMER_DEVICE_CLIENT_ID
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			ClientIDPrefix: "ESP32",
			Interface:      "wlan0",
		},
		Network: NetworkConfig{
			Interface:    "wlan0",
			PollInterval: 2,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host: "localhost",
				Port: 1883,
			},
			CommandTimeout: 5,
			PumpTimeoutMS:  1000,
			InboxSize:      16,
			PublishState:   true,
		},
		Topics: TopicsConfig{
			Switch:          "light/switch",
			Brightness:      "light/brightness/set",
			PayloadCapacity: 32,
		},
		Light: LightConfig{
			Min:    0,
			Max:    1023,
			FadeMS: 1000,
			StepMS: 10,
			PWM: PWMConfig{
				Driver:         "memory",
				SysfsRoot:      "/sys/class/pwm",
				FrequencyHz:    5000,
				ResolutionBits: 10,
			},
		},
		Database: DatabaseConfig{
			Path:          "./data/dimmer.db",
			WALMode:       true,
			BusyTimeout:   5,
			RetentionDays: 30,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: DIMMER_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Device
	if v := os.Getenv("DIMMER_DEVICE_CLIENT_ID"); v != "" {
		cfg.Device.ClientID = v
	}

	// MQTT
	if v := os.Getenv("DIMMER_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("DIMMER_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("DIMMER_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Database
	if v := os.Getenv("DIMMER_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("DIMMER_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Identity validation
	if c.Device.ClientID == "" && c.Device.Interface == "" {
		errs = append(errs, "device.interface is required when device.client_id is empty")
	}

	if c.Network.Interface == "" {
		errs = append(errs, "network.interface is required")
	}

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.PumpTimeoutMS <= 0 {
		errs = append(errs, "mqtt.pump_timeout_ms must be positive")
	}

	// Topic validation
	if c.Topics.Switch == "" && c.Topics.Brightness == "" && c.Topics.Combined == "" {
		errs = append(errs, "topics: at least one command topic is required")
	}
	if dup := c.Topics.duplicate(); dup != "" {
		errs = append(errs, fmt.Sprintf("topics: %q is configured more than once", dup))
	}
	if c.Topics.PayloadCapacity < 2 {
		errs = append(errs, "topics.payload_capacity must be at least 2")
	}

	// Light validation
	if c.Light.Min < 0 {
		errs = append(errs, "light.min must not be negative")
	}
	if c.Light.Max <= c.Light.Min {
		errs = append(errs, "light.max must be greater than light.min")
	}
	if c.Light.FadeMS < 0 {
		errs = append(errs, "light.fade_ms must not be negative")
	}
	switch c.Light.PWM.Driver {
	case "memory", "sysfs":
	default:
		errs = append(errs, "light.pwm.driver must be \"memory\" or \"sysfs\"")
	}
	if c.Light.PWM.ResolutionBits < 1 || c.Light.PWM.ResolutionBits > maxResolutionBits {
		errs = append(errs, fmt.Sprintf("light.pwm.resolution_bits must be between 1 and %d", maxResolutionBits))
	} else if c.Light.Max > 1<<c.Light.PWM.ResolutionBits-1 {
		errs = append(errs, "light.max exceeds the PWM resolution")
	}
	if c.Light.PWM.FrequencyHz <= 0 {
		errs = append(errs, "light.pwm.frequency_hz must be positive")
	}

	// Database validation
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}
	if c.Database.RetentionDays < 0 {
		errs = append(errs, "database.retention_days must not be negative")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// duplicate returns the first non-empty command topic shared by two
// handlers, or "" when every configured topic is distinct.
func (t TopicsConfig) duplicate() string {
	seen := make(map[string]bool, 3)
	for _, topic := range []string{t.Switch, t.Brightness, t.Combined} {
		if topic == "" {
			continue
		}
		if seen[topic] {
			return topic
		}
		seen[topic] = true
	}
	return ""
}

// GetFadeDuration returns the fade duration as a Duration.
func (c *Config) GetFadeDuration() time.Duration {
	return time.Duration(c.Light.FadeMS) * time.Millisecond
}

// GetStepInterval returns the software fader step interval as a Duration.
func (c *Config) GetStepInterval() time.Duration {
	return time.Duration(c.Light.StepMS) * time.Millisecond
}

// GetPumpTimeout returns the session pump timeout as a Duration.
func (c *Config) GetPumpTimeout() time.Duration {
	return time.Duration(c.MQTT.PumpTimeoutMS) * time.Millisecond
}

// GetHistoryRetention returns the light history retention as a Duration.
func (c *Config) GetHistoryRetention() time.Duration {
	return time.Duration(c.Database.RetentionDays) * 24 * time.Hour
}

// GetPollInterval returns the network poll interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Network.PollInterval) * time.Second
}
