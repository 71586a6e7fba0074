package cfg

import (
	"io"

	"github.com/pelletier/go-toml"
)

type Config struct {
	HTTPListenAddr  string `toml:"http_server_listen_addr"`
	HTTPSListenAddr string `toml:"https_server_listen_addr"`
	HTTPSCertFile   string `toml:"https_ssl_cert_file"`
	HTTPSKeyFile    string `toml:"https_ssl_key_file"`

	GithubWebHookSecret string `toml:"github_webhook_secret"`
	GithubAPIToken      string `toml:"github_api_token"`

	RedisServerAddr string `toml:"redis_server_addr"`
	RedisPassword   string `toml:"redis_password"`
	RedisDB         int    `toml:"redis_db"`

	JobQueueKey      string `toml:"job_queue_key"`
	UpdateChannel    string `toml:"update_channel"`
	EventFilterQuery string `toml:"event_filter_query"`

	PrometheusMetricsEndpoint string `toml:"prometheus_metrics_endpoint"`

	LogFormat  string `toml:"log_format"`
	LogTimeKey string `toml:"log_time_key"`
	LogLevel   string `toml:"log_level"`
}

const (
	DefRedisServerAddr = "localhost:6379"
	DefJobQueueKey     = "mergefront:jobs"
	DefUpdateChannel   = "update"
	DefLogFormat       = "logfmt"
	DefLogLevel        = "info"
)

func Load(reader io.Reader) (*Config, error) {
	result := Config{
		RedisServerAddr: DefRedisServerAddr,
		JobQueueKey:     DefJobQueueKey,
		UpdateChannel:   DefUpdateChannel,
		LogFormat:       DefLogFormat,
		LogLevel:        DefLogLevel,
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *Config) Marshal(writer io.Writer) error {
	return toml.NewEncoder(writer).Encode(r)
}
