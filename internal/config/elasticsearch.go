package config

// ElasticsearchConfig содержит настройки подключения к Elasticsearch
type ElasticsearchConfig struct {
	Enabled    bool
	URL        string
	Username   string
	Password   string
	Index      string
	MaxRetries int
}
