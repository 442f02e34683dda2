package main

import (
	"fmt"

	"github.com/tee8z/weather-oracle/catalog"
	"github.com/tee8z/weather-oracle/cmn"
)

// localCatalogFromConfig picks the S3 or local-disk catalog backend the
// same way weatherd does.
func localCatalogFromConfig(cfg cmn.Config) (catalog.Catalog, error) {
	if cfg.S3Bucket != "" {
		c, err := catalog.NewS3(cfg.S3Bucket, cfg.S3Endpoint)
		if err != nil {
			return nil, fmt.Errorf("init s3 catalog: %w", err)
		}
		return c, nil
	}
	return catalog.NewLocal(cfg.WeatherDir), nil
}
