package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Config holds everything a single run needs. Loaded once at startup;
// missing required values fail before any Shopify or Notion call is made.
type Config struct {
	ShopifyDomain     string
	ShopifyToken      string
	ShopifyAPIVersion string

	NotionToken      string
	NotionDatabaseID string
	// NotionDataSourceID is optional; when empty it is resolved from the
	// database once per run and passed down explicitly.
	NotionDataSourceID string

	// Optional explicit window bounds for manual/backfill runs (RFC3339).
	CreatedAtMin string
	CreatedAtMax string

	// Optional ops wiring.
	AlertsTopicArn string
	RunLogTable    string

	ShopifyRPS         float64
	NotionRPS          float64
	ShopifyConcurrency int
	NotionConcurrency  int

	HTTPTimeout time.Duration
}

func Load(ctx context.Context) (*Config, error) {
	cfg := &Config{
		ShopifyAPIVersion:  stringWithDefault("SHOPIFY_API_VERSION", "2025-10"),
		NotionDataSourceID: os.Getenv("NOTION_DATA_SOURCE_ID"),
		CreatedAtMin:       os.Getenv("CREATED_AT_MIN"),
		CreatedAtMax:       os.Getenv("CREATED_AT_MAX"),
		AlertsTopicArn:     os.Getenv("ALERTS_TOPIC_ARN"),
		RunLogTable:        os.Getenv("RUN_LOG_TABLE"),
		HTTPTimeout:        30 * time.Second,
	}

	var err error
	if cfg.ShopifyDomain, err = requiredString("SHOPIFY_STORE_DOMAIN"); err != nil {
		return nil, err
	}
	cfg.ShopifyDomain = normalizeDomain(cfg.ShopifyDomain)

	if cfg.ShopifyToken, err = secretString(ctx, "SHOPIFY_ACCESS_TOKEN"); err != nil {
		return nil, err
	}
	if cfg.NotionToken, err = secretString(ctx, "NOTION_TOKEN"); err != nil {
		return nil, err
	}
	if cfg.NotionDatabaseID, err = requiredString("NOTION_DATABASE_ID"); err != nil {
		return nil, err
	}

	if cfg.ShopifyRPS, err = floatWithDefault("SHOPIFY_RPS", 2); err != nil {
		return nil, err
	}
	if cfg.NotionRPS, err = floatWithDefault("NOTION_RPS", 3); err != nil {
		return nil, err
	}
	if cfg.ShopifyConcurrency, err = intWithDefault("SHOPIFY_CONCURRENCY", 1); err != nil {
		return nil, err
	}
	if cfg.NotionConcurrency, err = intWithDefault("NOTION_CONCURRENCY", 1); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadShopify loads only the store-side settings, for tools that never
// touch Notion.
func LoadShopify(ctx context.Context) (*Config, error) {
	cfg := &Config{
		ShopifyAPIVersion: stringWithDefault("SHOPIFY_API_VERSION", "2025-10"),
		CreatedAtMin:      os.Getenv("CREATED_AT_MIN"),
		CreatedAtMax:      os.Getenv("CREATED_AT_MAX"),
		HTTPTimeout:       30 * time.Second,
	}

	var err error
	if cfg.ShopifyDomain, err = requiredString("SHOPIFY_STORE_DOMAIN"); err != nil {
		return nil, err
	}
	cfg.ShopifyDomain = normalizeDomain(cfg.ShopifyDomain)

	if cfg.ShopifyToken, err = secretString(ctx, "SHOPIFY_ACCESS_TOKEN"); err != nil {
		return nil, err
	}
	if cfg.ShopifyRPS, err = floatWithDefault("SHOPIFY_RPS", 2); err != nil {
		return nil, err
	}
	if cfg.ShopifyConcurrency, err = intWithDefault("SHOPIFY_CONCURRENCY", 1); err != nil {
		return nil, err
	}
	return cfg, nil
}

func requiredString(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("missing required env var: %s", key)
	}
	return strings.TrimSpace(v), nil
}

func stringWithDefault(key, def string) string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func intWithDefault(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %w", key, err)
	}
	return n, nil
}

func floatWithDefault(key string, def float64) (float64, error) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float for %s: %w", key, err)
	}
	return f, nil
}

// secretString reads KEY from the environment, falling back to the SSM
// parameter named by KEY_SSM_PARAM (decrypted) when the plain value is unset.
func secretString(ctx context.Context, key string) (string, error) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v, nil
	}

	param := strings.TrimSpace(os.Getenv(key + "_SSM_PARAM"))
	if param == "" {
		return "", fmt.Errorf("missing required env var: %s (or %s_SSM_PARAM)", key, key)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("load aws config for %s: %w", param, err)
	}

	out, err := ssm.NewFromConfig(awsCfg).GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(param),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("ssm get parameter %s: %w", param, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil || strings.TrimSpace(*out.Parameter.Value) == "" {
		return "", fmt.Errorf("ssm parameter %s is empty", param)
	}
	return strings.TrimSpace(*out.Parameter.Value), nil
}

func normalizeDomain(d string) string {
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	return strings.TrimSuffix(d, "/")
}
