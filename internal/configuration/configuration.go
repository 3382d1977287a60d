package configuration

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/malonaz/navi/internal/file"
)

const (
	envAPIBaseURL = "NAVI_API_BASE_URL"
	envWebBaseURL = "NAVI_WEB_BASE_URL"
	envSocketURL  = "NAVI_SOCKET_URL"
)

func defaultConfig() *Config {
	return &Config{
		APIBaseURL:     "http://localhost:3000",
		WebBaseURL:     "http://localhost:5173",
		RequestTimeout: 30,
		StateDatabase:  "~/.config/navi/state.db",
		UI: &UIConfig{
			HeaderTemplate:       `{{ .Title | default "New chat" | trunc 60 }}{{ if .AssistantName }} · {{ .AssistantName }}{{ end }}`,
			DefaultAssistantName: "Aria",
			SidebarWidth:         32,
			MaxInputHeight:       6,
		},
	}
}

// Config holds configuration for the navi client.
type Config struct {
	// Base URL of the backend. REST calls are issued under '<api_base_url>/api'.
	APIBaseURL string `json:"api_base_url"`
	// Socket.IO endpoint. Defaults to the API base URL.
	SocketURL string `json:"socket_url,omitempty"`
	// Base URL of the web client, used to build shareable links.
	WebBaseURL string `json:"web_base_url"`
	// Timeout of a single REST call, in seconds.
	RequestTimeout int `json:"request_timeout"`
	// Path of the SQLite database holding the persisted client state.
	StateDatabase string `json:"state_database"`

	UI *UIConfig `json:"ui"`
}

// UIConfig holds configuration for the terminal UI.
type UIConfig struct {
	// Go template (with sprig functions) rendering the chat header.
	HeaderTemplate string `json:"header_template"`
	// Name displayed for the assistant when the user has not set one.
	DefaultAssistantName string `json:"default_assistant_name"`
	// Width of the chat history sidebar.
	SidebarWidth int `json:"sidebar_width"`
	// Maximum height of the input area.
	MaxInputHeight int `json:"max_input_height"`
}

// APIEndpoint returns the root of the REST API.
func (c *Config) APIEndpoint() string {
	return strings.TrimSuffix(c.APIBaseURL, "/") + "/api"
}

// SocketEndpoint returns the Socket.IO endpoint.
func (c *Config) SocketEndpoint() string {
	if c.SocketURL != "" {
		return c.SocketURL
	}
	return c.APIBaseURL
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// Parse a configuration file.
func Parse(path string) (*Config, error) {
	path, err := file.ExpandPath(path)
	if err != nil {
		return nil, errors.Wrap(err, "expanding path")
	}

	if err := initializeIfNotPresent(path); err != nil {
		return nil, errors.Wrap(err, "initializing configuration")
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}

	config := &Config{}
	if err = json.Unmarshal(bytes, config); err != nil {
		return nil, errors.Wrap(err, "unmarshaling into config")
	}
	if err := mergo.Merge(config, defaultConfig()); err != nil {
		return nil, errors.Wrap(err, "merging default config")
	}
	if err := applyEnvironment(config); err != nil {
		return nil, errors.Wrap(err, "applying environment")
	}

	expandedStateDatabase, err := file.ExpandPath(config.StateDatabase)
	if err != nil {
		return nil, errors.Wrap(err, "expanding state database path")
	}
	config.StateDatabase = expandedStateDatabase
	return config, nil
}

// applyEnvironment overrides endpoints from the environment and an optional '.env' file.
func applyEnvironment(config *Config) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "loading .env")
	}
	if value := os.Getenv(envAPIBaseURL); value != "" {
		config.APIBaseURL = value
	}
	if value := os.Getenv(envWebBaseURL); value != "" {
		config.WebBaseURL = value
	}
	if value := os.Getenv(envSocketURL); value != "" {
		config.SocketURL = value
	}
	return nil
}

// save a configuration file.
func (c *Config) save(path string) error {
	bytes, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}

	err = os.WriteFile(path, bytes, 0644)
	if err != nil {
		return errors.Wrap(err, "writing file")
	}

	return nil
}

// initializeIfNotPresent initializes a config if it does not exist.
func initializeIfNotPresent(path string) error {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	// Create the directories.
	dir, _ := filepath.Split(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "creating folders")
	}

	if err := defaultConfig().save(path); err != nil {
		return errors.Wrap(err, "saving default config")
	}
	return nil
}
