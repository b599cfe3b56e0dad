package cfg

type Cfg struct {
	// Storage configuration
	DBPath     string
	UploadsDir string

	// HTTP server configuration
	Port         string
	APIAccessKey string

	// Facebook Graph API configuration
	PageAccessToken string
	DefaultPageID   string
	GraphAPIVersion string

	// Content generation configuration
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAITemperature float64
	OpenAIBaseURL     string
	SerpAPIKey        string

	// Unattended publishing schedule
	ScheduleHour   int
	ScheduleMinute int

	// Optional settings file (prompt template, fan-out pages)
	SettingsFile string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}

// Command holds the one-shot CLI mode requested via flags. When no field
// is set the application runs in server mode.
type Command struct {
	PublishID   int64
	PreviewID   int64
	PublishNext bool
}

func (c Command) IsSet() bool {
	return c.PublishID > 0 || c.PreviewID > 0 || c.PublishNext
}
