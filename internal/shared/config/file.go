package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// applyFile overlays non-zero values from a YAML file onto cfg.
func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var overlay Config
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.Port, overlay.Port)
	setString(&cfg.Env, overlay.Env)
	if len(overlay.CORSAllowOrigin) > 0 {
		cfg.CORSAllowOrigin = overlay.CORSAllowOrigin
	}
	setString(&cfg.DatabaseURL, overlay.DatabaseURL)
	if overlay.AutoMigrate {
		cfg.AutoMigrate = true
	}
	setString(&cfg.ObjectStoreType, overlay.ObjectStoreType)
	setString(&cfg.LocalStoreDir, overlay.LocalStoreDir)
	setString(&cfg.AWSRegion, overlay.AWSRegion)
	setString(&cfg.S3Bucket, overlay.S3Bucket)
	setString(&cfg.S3Prefix, overlay.S3Prefix)
	setString(&cfg.SSEKMSKeyID, overlay.SSEKMSKeyID)
	setString(&cfg.StoragePublicBaseURL, overlay.StoragePublicBaseURL)
	setString(&cfg.StorageFolder, overlay.StorageFolder)
	setString(&cfg.PublicAPIBaseURL, overlay.PublicAPIBaseURL)
	setString(&cfg.LLMProvider, overlay.LLMProvider)
	setString(&cfg.LLMModel, overlay.LLMModel)
	setString(&cfg.GoogleClientID, overlay.GoogleClientID)
	setString(&cfg.GoogleRedirectURL, overlay.GoogleRedirectURL)
	setString(&cfg.UIRedirectURL, overlay.UIRedirectURL)
	if overlay.SignedURLTTL > 0 {
		cfg.SignedURLTTL = overlay.SignedURLTTL
	}
	if overlay.MaxUploadBytes > 0 {
		cfg.MaxUploadBytes = overlay.MaxUploadBytes
	}
	if overlay.MaxPayloadBytes > 0 {
		cfg.MaxPayloadBytes = overlay.MaxPayloadBytes
	}
	if overlay.AuthCacheTTL > 0 {
		cfg.AuthCacheTTL = overlay.AuthCacheTTL
	}
	return nil
}

func setString(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}
