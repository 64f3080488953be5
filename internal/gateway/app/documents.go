package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/dswarm/dswarm/internal/gateway/config"
	"github.com/dswarm/dswarm/internal/transport"
)

func newDocumentSource(cfg config.DocumentConfig, log *zap.SugaredLogger) (transport.DocumentSource, error) {
	origin, err := newOriginSource(cfg, log)
	if err != nil {
		return nil, err
	}
	return transport.NewCachedSource(origin, transport.CacheConfig{TTL: cfg.CacheTTL}), nil
}

func newOriginSource(cfg config.DocumentConfig, log *zap.SugaredLogger) (transport.DocumentSource, error) {
	switch {
	case cfg.S3.Enabled:
		src, err := transport.NewS3Source(cfg.S3.Source())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize document s3 source: %w", err)
		}
		log.Infow("document source: s3", "bucket", cfg.S3.Bucket, "endpoint", cfg.S3.Endpoint)
		return src, nil
	case cfg.URL != "":
		src, err := transport.NewHTTPSource(cfg.URL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize document http source: %w", err)
		}
		log.Infow("document source: http", "url", cfg.URL)
		return src, nil
	case cfg.Dir != "":
		src, err := transport.NewDirSource(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize document directory: %w", err)
		}
		log.Infow("document source: directory", "dir", cfg.Dir)
		return src, nil
	}
	return nil, fmt.Errorf("no document source configured")
}
