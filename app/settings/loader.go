package settings

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPromptTemplate is used when the settings file does not provide
// one. The trailing mandatory block is appended verbatim by the caption
// builder, never reworded by the model, so the template only has to say so.
const DefaultPromptTemplate = `You are a social media content writer for a company page.

Write one Facebook page status about the topic: {topic}
Cover these key points:
{main}

Hard requirements:
- Put the title on its own line.
- Plain text only, no bold/italic markers or asterisks.
- If you use a list of key points, start each line with an emoji, not at the end of the sentence.
- Keep it short, engaging and easy to read.
- Always include 5 relevant, popular hashtags.
- SEO keyword hints to consider (if any): {seo_keywords}

A mandatory closing block (if any) is appended to the post verbatim; do not rewrite it.`

// Load reads the YAML settings file at path. An empty path returns the
// defaults. A missing or unreadable file is an error, since an operator
// pointed at it explicitly.
func Load(path string) (*Settings, error) {
	s := &Settings{PromptTemplate: DefaultPromptTemplate}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	if strings.TrimSpace(s.PromptTemplate) == "" {
		s.PromptTemplate = DefaultPromptTemplate
	}

	if err := validate(s); err != nil {
		return nil, fmt.Errorf("invalid settings file %s: %w", path, err)
	}

	return s, nil
}

func validate(s *Settings) error {
	if !strings.Contains(s.PromptTemplate, "{topic}") {
		return fmt.Errorf("prompt_template is missing the {topic} slot")
	}
	if !strings.Contains(s.PromptTemplate, "{main}") {
		return fmt.Errorf("prompt_template is missing the {main} slot")
	}
	for i, p := range s.FanOutPages {
		if p.AccessToken == "" {
			return fmt.Errorf("fanout_pages[%d] has no access_token", i)
		}
	}
	return nil
}
