package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./data/app.db" description:"Path to the SQLite database file"`
	UploadsDir string `long:"uploads-dir" env:"UPLOADS_DIR" description:"Directory for uploaded media files (defaults to <db dir>/uploads)"`

	// HTTP server configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Facebook Graph API configuration
	PageAccessToken string `long:"page-access-token" env:"FB_PAGE_ACCESS_TOKEN" description:"Facebook page access token (required)" required:"true"`
	DefaultPageID   string `long:"default-page-id" env:"DEFAULT_PAGE_ID" description:"Page ID used when a post has none"`
	GraphAPIVersion string `long:"graph-api-version" env:"GRAPH_API_VERSION" default:"v20.0" description:"Facebook Graph API version"`

	// Content generation configuration
	OpenAIAPIKey      string  `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key (required)" required:"true"`
	OpenAIModel       string  `long:"openai-model" env:"OPENAI_MODEL" default:"gpt-4o-mini" description:"Chat completions model"`
	OpenAITemperature float64 `long:"openai-temperature" env:"OPENAI_TEMPERATURE" default:"0.7" description:"Sampling temperature for generation"`
	OpenAIBaseURL     string  `long:"openai-base-url" env:"OPENAI_BASE_URL" default:"https://api.openai.com/v1" description:"OpenAI-compatible API base URL"`
	SerpAPIKey        string  `long:"serpapi-key" env:"SERPAPI_KEY" description:"SerpAPI key for keyword suggestions (optional)"`

	// Unattended publishing schedule
	ScheduleHour   int `long:"schedule-hour" env:"SCHEDULE_HOUR" default:"8" description:"Hour of the daily unattended publish run"`
	ScheduleMinute int `long:"schedule-minute" env:"SCHEDULE_MINUTE" default:"0" description:"Minute of the daily unattended publish run"`

	// Optional settings file
	SettingsFile string `long:"settings-file" env:"SETTINGS_FILE" description:"YAML file with prompt template and fan-out pages (optional)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Bangkok)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`

	// One-shot CLI commands
	PublishID   int64 `long:"publish" description:"Publish the given post ID and exit"`
	PreviewID   int64 `long:"preview" description:"Generate a caption preview for the given post ID and exit"`
	PublishNext bool  `long:"publish-next" description:"Publish the most recent approved post and exit"`
}

func Load() (*Cfg, *Command, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil, nil
			}
		}
		return nil, nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		UploadsDir:        raw.UploadsDir,
		Port:              raw.Port,
		APIAccessKey:      raw.APIAccessKey,
		PageAccessToken:   raw.PageAccessToken,
		DefaultPageID:     raw.DefaultPageID,
		GraphAPIVersion:   raw.GraphAPIVersion,
		OpenAIAPIKey:      raw.OpenAIAPIKey,
		OpenAIModel:       raw.OpenAIModel,
		OpenAITemperature: raw.OpenAITemperature,
		OpenAIBaseURL:     raw.OpenAIBaseURL,
		SerpAPIKey:        raw.SerpAPIKey,
		ScheduleHour:      raw.ScheduleHour,
		ScheduleMinute:    raw.ScheduleMinute,
		SettingsFile:      raw.SettingsFile,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	cmd := &Command{
		PublishID:   raw.PublishID,
		PreviewID:   raw.PreviewID,
		PublishNext: raw.PublishNext,
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, cmd, nil
}

func applyTimezone(timezone string) error {
	if timezone == "" {
		return nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}
	time.Local = loc
	return nil
}
