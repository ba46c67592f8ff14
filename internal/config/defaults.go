package config

// Embedding backends understood by embedding.NewLoader.
const (
	BackendONNX   = "onnx"
	BackendOpenAI = "openai"
	BackendMock   = "mock"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/semlight/data/topics.db"
	}
	if cfg.Storage.TopicsPath == "" {
		cfg.Storage.TopicsPath = "/usr/local/var/semlight/data/topics.json"
	}
	if cfg.Embedding.Backend == "" {
		cfg.Embedding.Backend = BackendONNX
	}
	if cfg.Embedding.ModelName == "" {
		cfg.Embedding.ModelName = "all-MiniLM-L6-v2"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/semlight/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.OutputName == "" {
		cfg.Embedding.OutputName = "last_hidden_state"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	// A negative cache size disables caching.
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Scoring.MaxPassages == 0 {
		cfg.Scoring.MaxPassages = 2000
	}
	if cfg.Highlight.Threshold == nil {
		th := DefaultHighlightThreshold
		cfg.Highlight.Threshold = &th
	}
	if cfg.Highlight.MinPassageLength == 0 {
		cfg.Highlight.MinPassageLength = 10
	}
	if cfg.Highlight.ClassName == "" {
		cfg.Highlight.ClassName = "semantic-highlight"
	}
	if cfg.Topics.FuzzyThreshold == 0 {
		cfg.Topics.FuzzyThreshold = 0.4
	}
	if cfg.Topics.SearchLimit == 0 {
		cfg.Topics.SearchLimit = 10
	}
	if cfg.Topics.KeywordsPerTopic == 0 {
		cfg.Topics.KeywordsPerTopic = 50
	}
	if cfg.Topics.Watch == nil {
		t := true
		cfg.Topics.Watch = &t
	}
}
