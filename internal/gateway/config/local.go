package config

// applyLocalDefaults fills in a development setup: documents are read from
// ./documents unless a remote source is configured.
func applyLocalDefaults(cfg *Config) {
	docs := &cfg.Documents
	if !docs.S3.Enabled && docs.URL == "" && docs.Dir == "" {
		docs.Dir = "documents"
	}
	docs.S3.UseSSL = false
}
