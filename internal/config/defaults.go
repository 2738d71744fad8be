package config

// ApplyDefaults sets default values for any zero values in cfg.
// Chunking defaults (size 800, overlap 100, preview 300) and retrieval top_k 4
// match the parameters the corpus was originally tuned with.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Accounts.Host == "" {
		cfg.Accounts.Host = "localhost"
	}
	if cfg.Accounts.Port == 0 {
		cfg.Accounts.Port = 8001
	}
	if cfg.Accounts.BaseURL == "" {
		cfg.Accounts.BaseURL = "http://127.0.0.1:8001"
	}
	if cfg.Storage.SnapshotDir == "" {
		cfg.Storage.SnapshotDir = "/usr/local/var/teller/data/snapshot"
	}
	if cfg.Storage.LedgerPath == "" {
		cfg.Storage.LedgerPath = "/usr/local/var/teller/data/db/ledger.db"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "TELLER_EMBEDDING_API_KEY"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/teller/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "TELLER_LLM_API_KEY"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4.1-mini"
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 30
	}
	if cfg.Ingest.DocsDir == "" {
		cfg.Ingest.DocsDir = "/usr/local/var/teller/data/docs"
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 800
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 100
	}
	if cfg.Ingest.PreviewChars == 0 {
		cfg.Ingest.PreviewChars = 300
	}
	if cfg.Ingest.Extensions == nil {
		cfg.Ingest.Extensions = []string{".pdf", ".txt", ".md", ".docx", ".xlsx"}
	}
	if cfg.Chat.TopK == 0 {
		cfg.Chat.TopK = 4
	}
	if cfg.Chat.ContextChars == 0 {
		cfg.Chat.ContextChars = 400
	}
	if cfg.Chat.RequestTimeoutSecs == 0 {
		cfg.Chat.RequestTimeoutSecs = 60
	}
}
