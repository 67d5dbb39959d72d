package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		want    *Config
		wantErr bool
	}{
		{
			name:    "default configuration",
			envVars: map[string]string{},
			want: &Config{
				Server: ServerConfig{
					Host:         "0.0.0.0",
					Port:         "8080",
					ReadTimeout:  30 * time.Second,
					WriteTimeout: 30 * time.Second,
					IdleTimeout:  120 * time.Second,
				},
				Rom: RomConfig{
					Region:      "auto",
					FixChecksum: true,
					MaxRequest:  4 << 20,
				},
				Security: SecurityConfig{
					AllowedOrigins:     []string{},
					MaxConnections:     100,
					EnableRateLimit:    true,
					RateLimitPerMinute: 60,
				},
				Logging: LoggingConfig{
					Level:  "info",
					Format: "text",
				},
			},
			wantErr: false,
		},
		{
			name: "custom environment variables",
			envVars: map[string]string{
				"SERVER_HOST":      "127.0.0.1",
				"SERVER_PORT":      "9090",
				"LOG_LEVEL":        "debug",
				"LOG_FORMAT":       "json",
				"MAX_CONNECTIONS":  "50",
				"ROM_REGION":       "FR",
				"ROM_FIX_CHECKSUM": "false",
				"ALLOWED_ORIGINS":  "https://editor.example, http://ls.local",
			},
			want: &Config{
				Server: ServerConfig{
					Host:         "127.0.0.1",
					Port:         "9090",
					ReadTimeout:  30 * time.Second,
					WriteTimeout: 30 * time.Second,
					IdleTimeout:  120 * time.Second,
				},
				Rom: RomConfig{
					Region:      "FR",
					FixChecksum: false,
					MaxRequest:  4 << 20,
				},
				Security: SecurityConfig{
					AllowedOrigins:     []string{"https://editor.example", "http://ls.local"},
					MaxConnections:     50,
					EnableRateLimit:    true,
					RateLimitPerMinute: 60,
				},
				Logging: LoggingConfig{
					Level:  "debug",
					Format: "json",
				},
			},
			wantErr: false,
		},
		{
			name:    "unknown region",
			envVars: map[string]string{"ROM_REGION": "EU"},
			wantErr: true,
		},
		{
			name:    "missing ROM file",
			envVars: map[string]string{"ROM_PATH": "/nonexistent/landstalker.bin"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg)
		})
	}
}

func TestLoadWithOverrides(t *testing.T) {
	dir := t.TempDir()
	romPath := filepath.Join(dir, "ls.bin")
	require.NoError(t, os.WriteFile(romPath, []byte{0}, 0o644))

	t.Setenv("ROM_REGION", "JP")
	cfg, err := LoadWithOverrides(LoadOptions{
		Host:     "192.168.1.100",
		Port:     "443",
		LogLevel: "warn",
		RomPath:  romPath,
		Region:   "US",
	})
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.100", cfg.Server.Host)
	assert.Equal(t, "443", cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, romPath, cfg.Rom.Path)
	assert.Equal(t, "US", cfg.Rom.Region)
	assert.Same(t, cfg, GetGlobalConfig())

	_, err = LoadWithOverrides(LoadOptions{LabelsPath: filepath.Join(dir, "labels.yaml")})
	assert.ErrorContains(t, err, "file does not exist")
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Host: "0.0.0.0", Port: "8080"},
			Rom:      RomConfig{Region: "auto", MaxRequest: 1024},
			Security: SecurityConfig{MaxConnections: 100, RateLimitPerMinute: 60, EnableRateLimit: true},
			Logging:  LoggingConfig{Level: "info", Format: "text"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid configuration",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing server port",
			mutate:  func(c *Config) { c.Server.Port = "" },
			wantErr: true,
			errMsg:  "server port cannot be empty",
		},
		{
			name:    "invalid port range",
			mutate:  func(c *Config) { c.Server.Port = "99999" },
			wantErr: true,
			errMsg:  "invalid server port",
		},
		{
			name:    "invalid region",
			mutate:  func(c *Config) { c.Rom.Region = "us" },
			wantErr: true,
			errMsg:  "invalid ROM region",
		},
		{
			name:    "invalid request size",
			mutate:  func(c *Config) { c.Rom.MaxRequest = 0 },
			wantErr: true,
			errMsg:  "max request size must be positive",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "invalid" },
			wantErr: true,
			errMsg:  "invalid log level",
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: true,
			errMsg:  "invalid log format",
		},
		{
			name:    "TLS enabled without certs",
			mutate:  func(c *Config) { c.Security.EnableTLS = true },
			wantErr: true,
			errMsg:  "TLS certificate and key files must be specified",
		},
		{
			name:    "zero connections",
			mutate:  func(c *Config) { c.Security.MaxConnections = 0 },
			wantErr: true,
			errMsg:  "max connections must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestGetEnvWithDefault(t *testing.T) {
	key := "TEST_CONFIG_VAR"
	defaultValue := "default"
	testValue := "test_value"

	// Test when env var is not set
	os.Unsetenv(key)
	result := getEnvWithDefault(key, defaultValue)
	assert.Equal(t, defaultValue, result)

	// Test when env var is set
	os.Setenv(key, testValue)
	result = getEnvWithDefault(key, defaultValue)
	assert.Equal(t, testValue, result)

	// Clean up
	os.Unsetenv(key)
}

func TestGetIntWithDefault(t *testing.T) {
	key := "TEST_INT_VAR"
	defaultValue := 42
	testValue := "100"

	// Test when env var is not set
	os.Unsetenv(key)
	result := getIntWithDefault(key, defaultValue)
	assert.Equal(t, defaultValue, result)

	// Test when env var is set with valid integer
	os.Setenv(key, testValue)
	result = getIntWithDefault(key, defaultValue)
	assert.Equal(t, 100, result)

	// Test when env var is set with invalid integer
	os.Setenv(key, "invalid")
	result = getIntWithDefault(key, defaultValue)
	assert.Equal(t, defaultValue, result)

	// Clean up
	os.Unsetenv(key)
}

func TestGetBoolWithDefault(t *testing.T) {
	key := "TEST_BOOL_VAR"
	defaultValue := false

	// Test when env var is not set
	os.Unsetenv(key)
	result := getBoolWithDefault(key, defaultValue)
	assert.Equal(t, defaultValue, result)

	// Test when env var is set with true
	os.Setenv(key, "true")
	result = getBoolWithDefault(key, defaultValue)
	assert.Equal(t, true, result)

	// Test when env var is set with false
	os.Setenv(key, "false")
	result = getBoolWithDefault(key, defaultValue)
	assert.Equal(t, false, result)

	// Test when env var is set with invalid boolean
	os.Setenv(key, "invalid")
	result = getBoolWithDefault(key, defaultValue)
	assert.Equal(t, defaultValue, result)

	// Clean up
	os.Unsetenv(key)
}

func TestGetDurationWithDefault(t *testing.T) {
	key := "TEST_DURATION_VAR"
	defaultValue := 30 * time.Second
	testValue := "60s"

	// Test when env var is not set
	os.Unsetenv(key)
	result := getDurationWithDefault(key, defaultValue)
	assert.Equal(t, defaultValue, result)

	// Test when env var is set with valid duration
	os.Setenv(key, testValue)
	result = getDurationWithDefault(key, defaultValue)
	assert.Equal(t, 60*time.Second, result)

	// Test when env var is set with invalid duration
	os.Setenv(key, "invalid")
	result = getDurationWithDefault(key, defaultValue)
	assert.Equal(t, defaultValue, result)

	// Clean up
	os.Unsetenv(key)
}

func TestGetStringSliceWithDefault(t *testing.T) {
	key := "TEST_SLICE_VAR"
	defaultValue := []string{"default1", "default2"}
	testValue := "value1,value2,value3"

	// Test when env var is not set
	os.Unsetenv(key)
	result := getStringSliceWithDefault(key, defaultValue)
	assert.Equal(t, defaultValue, result)

	// Test when env var is set with comma-separated values
	os.Setenv(key, testValue)
	result = getStringSliceWithDefault(key, defaultValue)
	assert.Equal(t, []string{"value1", "value2", "value3"}, result)

	// Test when env var is empty
	os.Setenv(key, "")
	result = getStringSliceWithDefault(key, defaultValue)
	assert.Equal(t, defaultValue, result)

	// Clean up
	os.Unsetenv(key)
}

func TestGetOverrideOrEnv(t *testing.T) {
	key := "TEST_OVERRIDE_VAR"
	override := "override_value"
	envValue := "env_value"
	defaultValue := "default_value"

	// Test when override is provided
	os.Setenv(key, envValue)
	result := getOverrideOrEnv(override, key, defaultValue)
	assert.Equal(t, override, result)

	// Test when override is empty but env var is set
	os.Setenv(key, envValue)
	result = getOverrideOrEnv("", key, defaultValue)
	assert.Equal(t, envValue, result)

	// Test when both override and env are empty
	os.Unsetenv(key)
	result = getOverrideOrEnv("", key, defaultValue)
	assert.Equal(t, defaultValue, result)

	// Clean up
	os.Unsetenv(key)
}

func TestSplitString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		sep      string
		expected []string
	}{
		{
			name:     "normal comma separation",
			input:    "a,b,c",
			sep:      ",",
			expected: []string{"a", "b", "c"},
		},
		{
			name:     "with whitespace",
			input:    "a, b , c",
			sep:      ",",
			expected: []string{"a", "b", "c"},
		},
		{
			name:     "empty input",
			input:    "",
			sep:      ",",
			expected: []string{},
		},
		{
			name:     "empty elements",
			input:    "a,,c",
			sep:      ",",
			expected: []string{"a", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitString(tt.input, tt.sep)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGetGlobalConfig(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Same(t, cfg, GetGlobalConfig())
}
