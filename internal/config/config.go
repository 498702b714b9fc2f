// Package config loads Vigil's configuration: compiled-in defaults,
// overlaid by an optional YAML file, overlaid by environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// DefaultKey selects the fallback entry in per-service rule tables.
const DefaultKey = "__default__"

// Config holds all Vigil configuration.
type Config struct {
	HTTPAddr  string `yaml:"http_addr"`
	LogLevel  string `yaml:"log_level"`
	LogPretty bool   `yaml:"log_pretty"`

	Detection DetectionConfig `yaml:"detection"`
	History   HistoryConfig   `yaml:"history"`
	RateAlert RateAlertConfig `yaml:"rate_alert"`
	Alerts    AlertConfig     `yaml:"alerts"`
	Feedback  FeedbackConfig  `yaml:"feedback"`
}

// DetectionConfig holds rule tables and scorer settings. Rules maps
// service name to feature thresholds; the DefaultKey entry applies to
// services without a table of their own.
type DetectionConfig struct {
	Rules        map[string]map[string]float64 `yaml:"rules"`
	FeatureNames []string                      `yaml:"feature_names"`
	ScoreCutoff  float64                       `yaml:"score_cutoff"`
	ZThreshold   float64                       `yaml:"z_threshold"`
	ModelPath    string                        `yaml:"model_path"`
}

// HistoryConfig holds anomaly retention settings.
type HistoryConfig struct {
	Capacity     int      `yaml:"capacity"`
	SnapshotPath string   `yaml:"snapshot_path"`
	S3           S3Config `yaml:"s3"`
}

// S3Config mirrors snapshots to an S3 object when Bucket is set.
type S3Config struct {
	Bucket         string `yaml:"bucket"`
	Key            string `yaml:"key"`
	Region         string `yaml:"region"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// RatePolicy fires a rate alert when Count anomalies are seen for one
// service within WindowSeconds.
type RatePolicy struct {
	Count         int `yaml:"count" json:"count"`
	WindowSeconds int `yaml:"window_seconds" json:"window_seconds"`
}

// RateAlertConfig maps service name to rate policy; the DefaultKey
// entry covers everything else.
type RateAlertConfig struct {
	Policies map[string]RatePolicy `yaml:"policies"`
}

// AlertConfig enables alert sinks. A sink is active when its setting is
// non-empty.
type AlertConfig struct {
	Console             bool        `yaml:"console"`
	SlackWebhookURL     string      `yaml:"slack_webhook_url"`
	PagerDutyRoutingKey string      `yaml:"pagerduty_routing_key"`
	WebhookURL          string      `yaml:"webhook_url"`
	Redis               RedisConfig `yaml:"redis"`
}

// RedisConfig publishes alerts to a Redis channel when Addr is set.
type RedisConfig struct {
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

// FeedbackConfig holds the labeled-feedback store location.
type FeedbackConfig struct {
	Path string `yaml:"path"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		HTTPAddr:  ":8000",
		LogLevel:  "info",
		LogPretty: false,
		Detection: DetectionConfig{
			Rules: map[string]map[string]float64{
				"web_server": {
					"response_time": 2000,
					"error_rate":    0.1,
				},
				"database": {
					"query_time":       5000,
					"connection_count": 500,
					"error_rate":       0.05,
				},
				"application": {
					"cpu_usage":    90,
					"memory_usage": 85,
					"thread_count": 300,
				},
				DefaultKey: {
					"cpu_usage":    95,
					"memory_usage": 90,
					"error_rate":   0.2,
				},
			},
			FeatureNames: []string{"resp_time", "bytes_out", "error_rate"},
			ScoreCutoff:  0.25,
			ZThreshold:   3.0,
			ModelPath:    "data/model.json",
		},
		History: HistoryConfig{
			Capacity:     500,
			SnapshotPath: "data/anomalies.json.gz",
			S3: S3Config{
				Key:            "anomalies.json.gz",
				TimeoutSeconds: 10,
			},
		},
		RateAlert: RateAlertConfig{
			Policies: map[string]RatePolicy{
				"web_server":  {Count: 3, WindowSeconds: 60},
				"database":    {Count: 5, WindowSeconds: 120},
				"application": {Count: 8, WindowSeconds: 180},
				DefaultKey:    {Count: 10, WindowSeconds: 300},
			},
		},
		Alerts: AlertConfig{
			Console: true,
			Redis: RedisConfig{
				Channel: "vigil:alerts",
			},
		},
		Feedback: FeedbackConfig{
			Path: "data/feedback.json",
		},
	}
}

// Load builds the configuration. The YAML file named by VIGIL_CONFIG
// (or the path argument when non-empty) is overlaid on the defaults,
// then environment variables are overlaid on both.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("VIGIL_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.HTTPAddr = getenv("VIGIL_HTTP_ADDR", cfg.HTTPAddr)
	cfg.LogLevel = getenv("VIGIL_LOG_LEVEL", cfg.LogLevel)
	cfg.LogPretty = getenvBool("VIGIL_LOG_PRETTY", cfg.LogPretty)

	cfg.Detection.ScoreCutoff = getenvFloat("VIGIL_SCORE_CUTOFF", cfg.Detection.ScoreCutoff)
	cfg.Detection.ZThreshold = getenvFloat("VIGIL_Z_THRESHOLD", cfg.Detection.ZThreshold)
	cfg.Detection.ModelPath = getenv("VIGIL_MODEL_PATH", cfg.Detection.ModelPath)
	if v := os.Getenv("VIGIL_FEATURE_NAMES"); v != "" {
		var names []string
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		if len(names) > 0 {
			cfg.Detection.FeatureNames = names
		}
	}
	if v := os.Getenv("VIGIL_ALERT_CONDITIONS"); v != "" {
		var rules map[string]map[string]float64
		if err := json.Unmarshal([]byte(v), &rules); err != nil {
			return fmt.Errorf("config: parse VIGIL_ALERT_CONDITIONS: %w", err)
		}
		mergeRules(cfg.Detection.Rules, rules)
	}
	if v := os.Getenv("VIGIL_RATE_ALERT_RULES"); v != "" {
		var policies map[string]RatePolicy
		if err := json.Unmarshal([]byte(v), &policies); err != nil {
			return fmt.Errorf("config: parse VIGIL_RATE_ALERT_RULES: %w", err)
		}
		for service, policy := range policies {
			cfg.RateAlert.Policies[service] = policy
		}
	}

	cfg.History.Capacity = getenvInt("VIGIL_HISTORY_CAPACITY", cfg.History.Capacity)
	cfg.History.SnapshotPath = getenv("VIGIL_SNAPSHOT_PATH", cfg.History.SnapshotPath)
	cfg.History.S3.Bucket = getenv("VIGIL_S3_BUCKET", cfg.History.S3.Bucket)
	cfg.History.S3.Key = getenv("VIGIL_S3_KEY", cfg.History.S3.Key)
	cfg.History.S3.Region = getenv("VIGIL_S3_REGION", cfg.History.S3.Region)

	cfg.Alerts.Console = getenvBool("VIGIL_CONSOLE_ALERTS", cfg.Alerts.Console)
	cfg.Alerts.SlackWebhookURL = getenv("VIGIL_SLACK_WEBHOOK_URL", cfg.Alerts.SlackWebhookURL)
	cfg.Alerts.PagerDutyRoutingKey = getenv("VIGIL_PAGERDUTY_ROUTING_KEY", cfg.Alerts.PagerDutyRoutingKey)
	cfg.Alerts.WebhookURL = getenv("VIGIL_WEBHOOK_URL", cfg.Alerts.WebhookURL)
	cfg.Alerts.Redis.Addr = getenv("VIGIL_REDIS_ADDR", cfg.Alerts.Redis.Addr)
	cfg.Alerts.Redis.Channel = getenv("VIGIL_REDIS_CHANNEL", cfg.Alerts.Redis.Channel)

	cfg.Feedback.Path = getenv("VIGIL_FEEDBACK_PATH", cfg.Feedback.Path)
	return nil
}

// mergeRules overlays src on dst per service, key by key, so a partial
// override keeps the untouched thresholds.
func mergeRules(dst, src map[string]map[string]float64) {
	for service, overrides := range src {
		table, ok := dst[service]
		if !ok {
			table = make(map[string]float64, len(overrides))
			dst[service] = table
		}
		for feat, threshold := range overrides {
			table[feat] = threshold
		}
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
