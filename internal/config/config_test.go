package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SHOPIFY_STORE_DOMAIN", "https://x.myshopify.com/")
	t.Setenv("SHOPIFY_ACCESS_TOKEN", "shpat_test")
	t.Setenv("NOTION_TOKEN", "secret_test")
	t.Setenv("NOTION_DATABASE_ID", "db1")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "x.myshopify.com", cfg.ShopifyDomain)
	assert.Equal(t, "2025-10", cfg.ShopifyAPIVersion)
	assert.Equal(t, 2.0, cfg.ShopifyRPS)
	assert.Equal(t, 3.0, cfg.NotionRPS)
	assert.Equal(t, 1, cfg.ShopifyConcurrency)
	assert.Equal(t, 1, cfg.NotionConcurrency)
	assert.Empty(t, cfg.NotionDataSourceID)
}

func TestLoadMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("NOTION_DATABASE_ID", "")

	_, err := Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOTION_DATABASE_ID")
}

func TestLoadMissingSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("NOTION_TOKEN", "")

	_, err := Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOTION_TOKEN")
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SHOPIFY_RPS", "4.5")
	t.Setenv("NOTION_CONCURRENCY", "3")
	t.Setenv("NOTION_DATA_SOURCE_ID", "ds-pinned")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4.5, cfg.ShopifyRPS)
	assert.Equal(t, 3, cfg.NotionConcurrency)
	assert.Equal(t, "ds-pinned", cfg.NotionDataSourceID)
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	setRequired(t)
	t.Setenv("SHOPIFY_RPS", "fast")

	_, err := Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHOPIFY_RPS")
}

func TestLoadShopifyIgnoresNotionEnv(t *testing.T) {
	t.Setenv("SHOPIFY_STORE_DOMAIN", "x.myshopify.com")
	t.Setenv("SHOPIFY_ACCESS_TOKEN", "shpat_test")
	t.Setenv("NOTION_TOKEN", "")
	t.Setenv("NOTION_DATABASE_ID", "")

	cfg, err := LoadShopify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x.myshopify.com", cfg.ShopifyDomain)
}

func TestNormalizeDomain(t *testing.T) {
	assert.Equal(t, "x.myshopify.com", normalizeDomain("http://x.myshopify.com/"))
	assert.Equal(t, "x.myshopify.com", normalizeDomain("x.myshopify.com"))
}
