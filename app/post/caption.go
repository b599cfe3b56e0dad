package post

import "strings"

// BuildCaption assembles the final caption: title and body separated by a
// blank line, then the mandatory block verbatim on its own line. The
// mandatory block is operator-provided contact/CTA text and is never
// reworded, reflowed or truncated.
func BuildCaption(title, content, mandatory string) string {
	mandatory = strings.TrimSpace(mandatory)
	base := strings.TrimSpace(title + "\n\n" + content)
	if mandatory == "" {
		return base
	}
	return base + "\n" + mandatory
}
