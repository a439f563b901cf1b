package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                  "development",
		Port:                 "8000",
		JWTSecret:            "secure-secret-at-least-32-chars-long",
		DBDriver:             "postgres",
		DBPassword:           "secure-password",
		PostsPerPage:         10,
		IndexCacheTTLSeconds: 20,
		MaxUploadSizeMB:      5,
		GraphBackend:         GraphBackendSQL,
		TracingSampleRatio:   1,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid development", func(c *Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"zero page size", func(c *Config) { c.PostsPerPage = 0 }, true},
		{"zero cache ttl", func(c *Config) { c.IndexCacheTTLSeconds = 0 }, true},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"sqlite driver", func(c *Config) { c.DBDriver = "sqlite" }, false},
		{"unknown graph backend", func(c *Config) { c.GraphBackend = "dgraph" }, true},
		{"neo4j without uri", func(c *Config) { c.GraphBackend = GraphBackendNeo4j }, true},
		{"neo4j with uri", func(c *Config) {
			c.GraphBackend = GraphBackendNeo4j
			c.Neo4jURI = "neo4j://localhost:7687"
		}, false},
		{"sample ratio above one", func(c *Config) { c.TracingSampleRatio = 1.5 }, true},
		{"production default secret", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = defaultJWTSecret
		}, true},
		{"production short secret", func(c *Config) {
			c.Env = "prod"
			c.JWTSecret = "short"
		}, true},
		{"production default db password", func(c *Config) {
			c.Env = "production"
			c.DBPassword = "password"
		}, true},
		{"production sqlite ignores db password", func(c *Config) {
			c.Env = "production"
			c.DBDriver = "sqlite"
			c.DBPassword = ""
		}, false},
		{"production strong settings", func(c *Config) { c.Env = "production" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_DefaultsAndNormalization(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("GRAPH_BACKEND", " SQL ")
	t.Setenv("POSTS_PER_PAGE", "7")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, GraphBackendSQL, c.GraphBackend)
	assert.Equal(t, 7, c.PostsPerPage)
	assert.Equal(t, 20, c.IndexCacheTTLSeconds)
	assert.Equal(t, "8000", c.Port)
	assert.Equal(t, "media", c.MediaRoot)
}
