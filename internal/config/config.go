package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all settings for the three pipeline services. Values come from
// an optional YAML file, overridden by environment variables (optionally
// seeded from a .env file).
type Config struct {
	DataDir string

	TranscriptPath     string
	StampPath          string
	ChatTranscriptPath string
	SummaryLogPath     string
	ChatSummaryLogPath string
	ScoresPath         string

	AudioPort   string
	ChatPort    string
	ScoringPort string

	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMTemperature float64

	STTBaseURL  string
	STTAPIKey   string
	STTModel    string
	STTLanguage string

	HandoffTimeout time.Duration
	HandoffPoll    time.Duration

	MaxRetries     int
	RetryBaseDelay time.Duration

	HistoryLimit int
}

// fileConfig mirrors the optional YAML config file.
type fileConfig struct {
	DataDir string `yaml:"data_dir"`
	Ports   struct {
		Audio   string `yaml:"audio"`
		Chat    string `yaml:"chat"`
		Scoring string `yaml:"scoring"`
	} `yaml:"ports"`
	LLM struct {
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`
	STT struct {
		BaseURL  string `yaml:"base_url"`
		Model    string `yaml:"model"`
		Language string `yaml:"language"`
	} `yaml:"stt"`
}

// Load reads configuration from the YAML file (SUPPORT_CONFIG or
// ./support.yaml if present) and the environment. Environment wins.
func Load() Config {
	_ = godotenv.Load()

	fc := loadFile()

	cfg := Config{
		DataDir:        getenv("DATA_DIR", firstOf(fc.DataDir, "./data")),
		AudioPort:      getenv("AUDIO_PORT", firstOf(fc.Ports.Audio, "8000")),
		ChatPort:       getenv("CHAT_PORT", firstOf(fc.Ports.Chat, "8001")),
		ScoringPort:    getenv("SCORING_PORT", firstOf(fc.Ports.Scoring, "8002")),
		LLMBaseURL:     getenv("LLM_BASE_URL", firstOf(fc.LLM.BaseURL, "https://api.groq.com/openai/v1")),
		LLMAPIKey:      getenv("LLM_API_KEY", os.Getenv("GROQ_API_KEY")),
		LLMModel:       getenv("LLM_MODEL", firstOf(fc.LLM.Model, "llama-3.3-70b-versatile")),
		LLMTemperature: getenvFloat("LLM_TEMPERATURE", firstFloat(fc.LLM.Temperature, 0.1)),
		STTBaseURL:     getenv("STT_BASE_URL", firstOf(fc.STT.BaseURL, "https://api.openai.com/v1")),
		STTAPIKey:      getenv("STT_API_KEY", ""),
		STTModel:       getenv("STT_MODEL", firstOf(fc.STT.Model, "whisper-1")),
		STTLanguage:    getenv("STT_LANGUAGE", firstOf(fc.STT.Language, "en")),
		HandoffTimeout: getenvDuration("HANDOFF_TIMEOUT", 10*time.Second),
		HandoffPoll:    getenvDuration("HANDOFF_POLL_INTERVAL", 250*time.Millisecond),
		MaxRetries:     clampInt(getenvInt("LLM_MAX_RETRIES", 3), 0, 10),
		RetryBaseDelay: getenvDuration("LLM_RETRY_BASE_DELAY", 2*time.Second),
		HistoryLimit:   clampInt(getenvInt("HISTORY_LIMIT", 10), 1, 10),
	}

	cfg.TranscriptPath = filepath.Join(cfg.DataDir, getenv("TRANSCRIPT_FILE", "transcriptions_with_speakers.csv"))
	cfg.StampPath = filepath.Join(cfg.DataDir, getenv("TRANSCRIPT_STAMP_FILE", "transcript_stamp.json"))
	cfg.ChatTranscriptPath = filepath.Join(cfg.DataDir, getenv("CHAT_TRANSCRIPT_FILE", "text_transcript.csv"))
	cfg.SummaryLogPath = filepath.Join(cfg.DataDir, getenv("SUMMARY_FILE", "final_summaries.csv"))
	cfg.ChatSummaryLogPath = filepath.Join(cfg.DataDir, getenv("CHAT_SUMMARY_FILE", "text_summaries.csv"))
	cfg.ScoresPath = filepath.Join(cfg.DataDir, getenv("SCORES_FILE", "quality_scores.json"))

	return cfg
}

func loadFile() fileConfig {
	var fc fileConfig
	path := os.Getenv("SUPPORT_CONFIG")
	if path == "" {
		path = "support.yaml"
	}
	f, err := os.Open(path)
	if err != nil {
		return fc
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(&fc); err != nil {
		log.Printf("config: ignoring malformed %s: %v", path, err)
		return fileConfig{}
	}
	return fc
}

func firstOf(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func firstFloat(v, def float64) float64 {
	if v != 0 {
		return v
	}
	return def
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Now returns utc time helper for deterministic timestamps.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
