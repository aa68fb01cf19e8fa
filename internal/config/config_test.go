package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigSuite is a test suite for config operations.
type ConfigSuite struct {
	suite.Suite
	tempDir     string
	origHomeDir string
}

func (s *ConfigSuite) SetupTest() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "config-test-*")
	s.Require().NoError(err)

	s.origHomeDir = os.Getenv("HOME")
	os.Setenv("HOME", s.tempDir)
}

func (s *ConfigSuite) TearDownTest() {
	os.Setenv("HOME", s.origHomeDir)
	os.RemoveAll(s.tempDir)
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) TestDefault() {
	cfg := Default()

	s.Equal(DefaultWorkerPort, cfg.WorkerPort)
	s.Equal(DefaultWorkerHost, cfg.WorkerHost)
	s.Equal(DefaultModel, cfg.Model)
	s.Equal(DefaultMaxTokens, cfg.MaxTokens)
	s.InDelta(0.7, cfg.Temperature, 0.0001)
	s.Equal("sqlite", cfg.DBDriver)
	s.Equal(DBPath(), cfg.DBPath)
	s.Equal(4, cfg.MaxConns)
	s.Equal(DefaultCacheTTL, cfg.CacheTTLSeconds)
	s.Empty(cfg.RedisURL)
	s.Empty(cfg.APITokenHash)
	s.True(cfg.SearchEnabled)
	s.Equal("http://127.0.0.1:3000", cfg.ServerURL)
	s.Equal("127.0.0.1:3000", cfg.Addr())
}

func (s *ConfigSuite) TestPaths() {
	s.Contains(DataDir(), ".sitelog")
	s.Contains(DBPath(), "sitelog.db")
	s.Contains(SettingsPath(), "settings.json")
	s.Contains(ThreadsPath(), "threads.json")
}

func (s *ConfigSuite) TestEnsureDataDir() {
	s.NoError(EnsureDataDir())

	info, err := os.Stat(DataDir())
	s.NoError(err)
	s.True(info.IsDir())
}

func (s *ConfigSuite) TestEnsureSettings() {
	s.Require().NoError(EnsureDataDir())
	s.Require().NoError(EnsureSettings())

	info, err := os.Stat(SettingsPath())
	s.NoError(err)
	s.False(info.IsDir())

	// existing file is left alone
	s.Require().NoError(os.WriteFile(SettingsPath(), []byte(`{"SITELOG_MODEL": "custom"}`), 0600))
	s.NoError(EnsureSettings())
	cfg, err := Load()
	s.NoError(err)
	s.Equal("custom", cfg.Model)
}

func (s *ConfigSuite) TestEnsureAll() {
	s.NoError(EnsureAll())

	_, err := os.Stat(DataDir())
	s.NoError(err)
	_, err = os.Stat(SettingsPath())
	s.NoError(err)

	// the generated file round-trips to the defaults
	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal(DefaultWorkerPort, cfg.WorkerPort)
	s.True(cfg.SearchEnabled)
}

func (s *ConfigSuite) TestLoad_TableDriven() {
	tests := []struct {
		name          string
		settingsJSON  string
		expectedModel string
		expectedPort  int
		expectedConns int
	}{
		{
			name:          "no settings file",
			expectedPort:  DefaultWorkerPort,
			expectedModel: DefaultModel,
			expectedConns: 4,
		},
		{
			name:          "custom port",
			settingsJSON:  `{"SITELOG_WORKER_PORT": 38888}`,
			expectedPort:  38888,
			expectedModel: DefaultModel,
			expectedConns: 4,
		},
		{
			name:          "custom model",
			settingsJSON:  `{"SITELOG_MODEL": "gpt-4o"}`,
			expectedPort:  DefaultWorkerPort,
			expectedModel: "gpt-4o",
			expectedConns: 4,
		},
		{
			name:          "multiple settings",
			settingsJSON:  `{"SITELOG_WORKER_PORT": 39999, "SITELOG_MODEL": "gpt-4.1", "SITELOG_DB_MAX_CONNS": 12}`,
			expectedPort:  39999,
			expectedModel: "gpt-4.1",
			expectedConns: 12,
		},
		{
			name:          "non-positive values ignored",
			settingsJSON:  `{"SITELOG_WORKER_PORT": 0, "SITELOG_DB_MAX_CONNS": -1}`,
			expectedPort:  DefaultWorkerPort,
			expectedModel: DefaultModel,
			expectedConns: 4,
		},
		{
			name:          "invalid JSON returns defaults",
			settingsJSON:  `{invalid}`,
			expectedPort:  DefaultWorkerPort,
			expectedModel: DefaultModel,
			expectedConns: 4,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			tempDir, err := os.MkdirTemp("", "config-test-*")
			s.Require().NoError(err)
			defer os.RemoveAll(tempDir)

			os.Setenv("HOME", tempDir)

			err = os.MkdirAll(filepath.Join(tempDir, ".sitelog"), 0750)
			s.Require().NoError(err)

			if tt.settingsJSON != "" {
				writeErr := os.WriteFile(
					filepath.Join(tempDir, ".sitelog", "settings.json"),
					[]byte(tt.settingsJSON),
					0600,
				)
				s.Require().NoError(writeErr)
			}

			cfg, err := Load()
			s.NoError(err)
			s.NotNil(cfg)
			s.Equal(tt.expectedPort, cfg.WorkerPort)
			s.Equal(tt.expectedModel, cfg.Model)
			s.Equal(tt.expectedConns, cfg.MaxConns)
		})
	}
}

func (s *ConfigSuite) TestLoad_EnvOverridesFile() {
	s.Require().NoError(EnsureDataDir())
	s.Require().NoError(os.WriteFile(SettingsPath(), []byte(`{
		"SITELOG_DB_DRIVER": "sqlite",
		"SITELOG_MODEL": "from-file",
		"SITELOG_TEMPERATURE": 0.2,
		"SITELOG_SEARCH_ENABLED": false
	}`), 0600))

	s.T().Setenv(KeyDBDriver, "postgres")
	s.T().Setenv(KeyDBDSN, "postgres://localhost/sitelog")
	s.T().Setenv(EnvOpenAIAPIKey, "  sk-test  ")

	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal("postgres", cfg.DBDriver)
	s.Equal("postgres://localhost/sitelog", cfg.DBDSN)
	s.Equal("from-file", cfg.Model)
	s.InDelta(0.2, cfg.Temperature, 0.0001)
	s.False(cfg.SearchEnabled)
	s.Equal("sk-test", cfg.OpenAIAPIKey)
}

func (s *ConfigSuite) TestLoad_APIKeyNeverFromFile() {
	s.Require().NoError(EnsureDataDir())
	s.Require().NoError(os.WriteFile(SettingsPath(), []byte(`{"OPENAI_API_KEY": "sk-file"}`), 0600))
	s.T().Setenv(EnvOpenAIAPIKey, "")

	cfg, err := Load()
	s.Require().NoError(err)
	s.Empty(cfg.OpenAIAPIKey)
}

func (s *ConfigSuite) TestLoad_OutOfRangeTemperatureIgnored() {
	s.Require().NoError(EnsureDataDir())
	s.Require().NoError(os.WriteFile(SettingsPath(), []byte(`{"SITELOG_TEMPERATURE": 5}`), 0600))

	cfg, err := Load()
	s.Require().NoError(err)
	s.InDelta(DefaultTemperature, cfg.Temperature, 0.0001)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SITELOG_DOTENV_PROBE=from-dotenv\n"), 0600))
	t.Setenv("SITELOG_DOTENV_PROBE", "")
	os.Unsetenv("SITELOG_DOTENV_PROBE")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-dotenv", os.Getenv("SITELOG_DOTENV_PROBE"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}

func TestGet(t *testing.T) {
	origHome := os.Getenv("HOME")
	tempDir, err := os.MkdirTemp("", "config-get-test-*")
	require.NoError(t, err)
	defer func() {
		os.Setenv("HOME", origHome)
		os.RemoveAll(tempDir)
	}()
	os.Setenv("HOME", tempDir)

	cfg := Get()
	require.NotNil(t, cfg)
	assert.Greater(t, cfg.WorkerPort, 0)
	assert.NotEmpty(t, cfg.Model)
	assert.Same(t, cfg, Get())
}

func TestGetWorkerPort_WithEnv(t *testing.T) {
	origEnv := os.Getenv(KeyWorkerPort)
	defer os.Setenv(KeyWorkerPort, origEnv)

	os.Setenv(KeyWorkerPort, "45678")
	assert.Equal(t, 45678, GetWorkerPort())

	os.Setenv(KeyWorkerPort, "not-a-number")
	assert.Greater(t, GetWorkerPort(), 0)

	os.Setenv(KeyWorkerPort, "0")
	assert.Greater(t, GetWorkerPort(), 0)

	os.Unsetenv(KeyWorkerPort)
	assert.Greater(t, GetWorkerPort(), 0)
}
