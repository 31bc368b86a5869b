// Package config loads the scenetwind configuration.
//
// Configuration is read from a YAML file on top of built-in defaults, then
// selected keys are overridden from SCENETWIN_* environment variables, and the
// result is validated.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration of the daemon.
type Config struct {
	Scene     SceneConfig      `yaml:"scene"`
	Poll      PollConfig       `yaml:"poll"`
	Data      DataConfig       `yaml:"data"`
	Telemetry TelemetryConfig  `yaml:"telemetry"`
	StateFeed StateFeedConfig  `yaml:"statefeed"`
	API       APIConfig        `yaml:"api"`
	Logging   LoggingConfig    `yaml:"logging"`
	Overrides []OverrideConfig `yaml:"overrides"`
}

// SceneConfig locates the scene document and its assets.
type SceneConfig struct {
	// Bucket is a gocloud blob URL, e.g. file:///var/lib/scenetwin.
	Bucket string `yaml:"bucket"`
	// Document is the key of the scene document within Bucket.
	Document string `yaml:"document"`
	// Assets is the blob URL of the model and motion assets; empty means Bucket.
	Assets string `yaml:"assets"`
	// Template fills the ${name} placeholders of data bindings.
	Template map[string]string `yaml:"template"`
}

// PollConfig controls the reconciliation cadence.
type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// DataConfig controls the telemetry store.
type DataConfig struct {
	// Window is the history kept per series.
	Window time.Duration `yaml:"window"`
}

// TelemetryConfig selects the telemetry feeders. Every feeder is optional.
type TelemetryConfig struct {
	// Subscription is a gocloud pubsub subscription URL.
	Subscription string         `yaml:"subscription"`
	MQTT         MQTTConfig     `yaml:"mqtt"`
	InfluxDB     InfluxDBConfig `yaml:"influxdb"`
}

// MQTTConfig configures the MQTT feeder; an empty Broker disables it.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	Topic       string `yaml:"topic"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
}

// InfluxDBConfig configures the history backfill; an empty URL disables it.
type InfluxDBConfig struct {
	URL         string `yaml:"url"`
	Token       string `yaml:"token"`
	Org         string `yaml:"org"`
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement"`
}

// StateFeedConfig configures the state change feed; an empty Topic disables it.
type StateFeedConfig struct {
	// Topic is a gocloud pubsub topic URL.
	Topic string `yaml:"topic"`
}

// APIConfig configures the HTTP status API; an empty Addr disables it.
type APIConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LoggingConfig configures the root logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Override kinds.
const (
	KindModel  = "model"
	KindButton = "button"
	KindText   = "text"
)

// OverrideConfig declares how one tag is replaced. Exactly the section that
// matches Kind is used.
type OverrideConfig struct {
	Tag    string       `yaml:"tag"`
	Kind   string       `yaml:"kind"`
	Model  ModelConfig  `yaml:"model"`
	Button ButtonConfig `yaml:"button"`
	Text   TextConfig   `yaml:"text"`
}

// ModelConfig configures a model override.
type ModelConfig struct {
	Path  string  `yaml:"path"`
	Scale float64 `yaml:"scale"`
	Angle float64 `yaml:"angle"`
	// Motions maps a motion key to its asset path.
	Motions map[string]string `yaml:"motions"`
	// States maps a state to the motion keys played together when the model
	// enters it. The "default" entry applies to every other state.
	States map[string][]string `yaml:"states"`
}

// ButtonConfig configures a button override.
type ButtonConfig struct {
	Content string  `yaml:"content"`
	Width   float64 `yaml:"width"`
	Height  float64 `yaml:"height"`
	Angle   float64 `yaml:"angle"`
	// Styles maps an interaction (idle, hovered, selected) to its colours.
	Styles map[string]ColorConfig `yaml:"styles"`
	// States maps a state to the button label shown in it.
	States map[string]string `yaml:"states"`
}

// ColorConfig holds 24-bit RGB colours, e.g. 0x5f7d9e.
type ColorConfig struct {
	Background uint32 `yaml:"background"`
	Font       uint32 `yaml:"font"`
}

// TextConfig configures a text override.
type TextConfig struct {
	Content string  `yaml:"content"`
	Angle   float64 `yaml:"angle"`
	// Clock replaces the content with the current time on every frame.
	Clock bool `yaml:"clock"`
	// States maps a state to the text shown in it.
	States map[string]string `yaml:"states"`
}

// Load reads the configuration file at path, applies the SCENETWIN_*
// environment overrides and validates the result.
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

func defaultConfig() *Config {
	return &Config{
		Scene: SceneConfig{
			Document: "scene.json",
		},
		Poll: PollConfig{
			Interval: 500 * time.Millisecond,
		},
		Data: DataConfig{
			Window: 10 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			MQTT: MQTTConfig{
				ClientID: "scenetwind",
				Topic:    "scenetwin/#",
				QoS:      1,
			},
			InfluxDB: InfluxDBConfig{
				Measurement: "telemetry",
			},
		},
		API: APIConfig{
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides. Variables follow
// the pattern SCENETWIN_SECTION_KEY.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCENETWIN_SCENE_BUCKET"); v != "" {
		cfg.Scene.Bucket = v
	}
	if v := os.Getenv("SCENETWIN_SCENE_DOCUMENT"); v != "" {
		cfg.Scene.Document = v
	}
	if v := os.Getenv("SCENETWIN_MQTT_BROKER"); v != "" {
		cfg.Telemetry.MQTT.Broker = v
	}
	if v := os.Getenv("SCENETWIN_MQTT_USERNAME"); v != "" {
		cfg.Telemetry.MQTT.Username = v
	}
	if v := os.Getenv("SCENETWIN_MQTT_PASSWORD"); v != "" {
		cfg.Telemetry.MQTT.Password = v
	}
	if v := os.Getenv("SCENETWIN_INFLUXDB_TOKEN"); v != "" {
		cfg.Telemetry.InfluxDB.Token = v
	}
	if v := os.Getenv("SCENETWIN_API_ADDR"); v != "" {
		cfg.API.Addr = v
	}
	if v := os.Getenv("SCENETWIN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Scene.Bucket == "" {
		errs = append(errs, "scene.bucket is required")
	}
	if c.Scene.Document == "" {
		errs = append(errs, "scene.document is required")
	}
	if c.Poll.Interval <= 0 {
		errs = append(errs, "poll.interval must be positive")
	}
	if c.Data.Window <= 0 {
		errs = append(errs, "data.window must be positive")
	}
	if m := c.Telemetry.MQTT; m.Broker != "" {
		if m.QoS < 0 || m.QoS > 2 {
			errs = append(errs, "telemetry.mqtt.qos must be 0, 1, or 2")
		}
		if m.Topic == "" {
			errs = append(errs, "telemetry.mqtt.topic is required")
		}
	}
	if i := c.Telemetry.InfluxDB; i.URL != "" && (i.Org == "" || i.Bucket == "") {
		errs = append(errs, "telemetry.influxdb.org and telemetry.influxdb.bucket are required")
	}

	seen := make(map[string]bool, len(c.Overrides))
	for i, o := range c.Overrides {
		switch {
		case o.Tag == "":
			errs = append(errs, fmt.Sprintf("overrides[%d].tag is required", i))
		case seen[o.Tag]:
			errs = append(errs, fmt.Sprintf("overrides[%d].tag %q is declared twice", i, o.Tag))
		}
		seen[o.Tag] = true
		switch o.Kind {
		case KindModel:
			if o.Model.Path == "" {
				errs = append(errs, fmt.Sprintf("overrides[%d].model.path is required", i))
			}
			for state, keys := range o.Model.States {
				for _, key := range keys {
					if _, ok := o.Model.Motions[key]; !ok {
						errs = append(errs, fmt.Sprintf("overrides[%d].model.states[%s] names unknown motion %q", i, state, key))
					}
				}
			}
		case KindButton:
			if o.Button.Width <= 0 || o.Button.Height <= 0 {
				errs = append(errs, fmt.Sprintf("overrides[%d].button width and height must be positive", i))
			}
			for name := range o.Button.Styles {
				if name != "idle" && name != "hovered" && name != "selected" {
					errs = append(errs, fmt.Sprintf("overrides[%d].button.styles has unknown interaction %q", i, name))
				}
			}
		case KindText:
		default:
			errs = append(errs, fmt.Sprintf("overrides[%d].kind must be model, button, or text", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
