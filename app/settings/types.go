package settings

// Settings holds operator-editable publishing settings loaded from an
// optional YAML file. Everything has a usable default, so running without
// a settings file is fine.
type Settings struct {
	// PromptTemplate is the generation prompt. The slots {topic}, {main}
	// and {seo_keywords} are substituted before the template is sent to
	// the generation service.
	PromptTemplate string `yaml:"prompt_template"`

	// DefaultPageID overrides the page ID used when a post has none.
	DefaultPageID string `yaml:"default_page_id"`

	// FanOutPages lists the pages a post can be re-published to with
	// distinct credentials.
	FanOutPages []FanOutPage `yaml:"fanout_pages"`
}

// FanOutPage is one fan-out target. The page identity is resolved from
// the access token at publish time; Name is only a label for operators.
type FanOutPage struct {
	Name        string `yaml:"name"`
	AccessToken string `yaml:"access_token"`
}

// PageTokens returns the access tokens of all configured fan-out pages.
func (s *Settings) PageTokens() []string {
	tokens := make([]string, 0, len(s.FanOutPages))
	for _, p := range s.FanOutPages {
		if p.AccessToken != "" {
			tokens = append(tokens, p.AccessToken)
		}
	}
	return tokens
}
