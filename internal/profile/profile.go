package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where love-agent stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	// Completion service configuration
	AIAPIKey       string // LOVEAGENT_AI_API_KEY (legacy: DASHSCOPE_API_KEY)
	AIBaseURL      string // LOVEAGENT_AI_BASE_URL (default: dashscope compatible-mode)
	AIChatModel    string // LOVEAGENT_AI_CHAT_MODEL (default: qwen-plus)
	AIVisionModel  string // LOVEAGENT_AI_VISION_MODEL (default: qwen-vl-plus)
	AIEmbedModel   string // LOVEAGENT_AI_EMBED_MODEL (default: text-embedding-v3)
	AIMaxRetries   int    // LOVEAGENT_AI_MAX_RETRIES (default: 3)
	AIRequestsPerS int    // LOVEAGENT_AI_RPS (default: 8)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if the completion service credentials are configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIAPIKey != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
// The API key supports the legacy DASHSCOPE_API_KEY name as a fallback.
func (p *Profile) FromEnv() {
	if key := os.Getenv("LOVEAGENT_AI_API_KEY"); key != "" {
		p.AIAPIKey = key
	} else {
		p.AIAPIKey = os.Getenv("DASHSCOPE_API_KEY")
	}
	p.AIBaseURL = getEnvOrDefault("LOVEAGENT_AI_BASE_URL", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	p.AIChatModel = getEnvOrDefault("LOVEAGENT_AI_CHAT_MODEL", "qwen-plus")
	p.AIVisionModel = getEnvOrDefault("LOVEAGENT_AI_VISION_MODEL", "qwen-vl-plus")
	p.AIEmbedModel = getEnvOrDefault("LOVEAGENT_AI_EMBED_MODEL", "text-embedding-v3")
	p.AIMaxRetries = getIntEnvOrDefault("LOVEAGENT_AI_MAX_RETRIES", 3)
	p.AIRequestsPerS = getIntEnvOrDefault("LOVEAGENT_AI_RPS", 8)

	if driver := os.Getenv("LOVEAGENT_DRIVER"); driver != "" {
		p.Driver = driver
	}
	if dsn := os.Getenv("LOVEAGENT_DSN"); dsn != "" {
		p.DSN = dsn
	}
	if data := os.Getenv("LOVEAGENT_DATA"); data != "" {
		p.Data = data
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver == "" {
		p.Driver = "sqlite"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "loveagent")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/loveagent"
		}
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("loveagent_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for postgres driver")
	}

	return nil
}
