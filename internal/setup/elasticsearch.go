package setup

import (
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/iseelabs/isee/internal/config"
	"github.com/iseelabs/isee/internal/pkg/logger"
	"go.uber.org/zap"
)

// InitElasticsearch builds the search client, or nil when no addresses are
// configured. Callers treat a nil client as "search disabled".
func InitElasticsearch(cfg *config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	if len(cfg.Addresses) == 0 {
		logger.Warn("Elasticsearch not configured, video search falls back to the database")
		return nil, nil
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to reach Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch info request failed: %s", res.Status())
	}

	logger.Info("Elasticsearch connected", zap.Strings("addresses", cfg.Addresses))
	return client, nil
}
