package post

import (
	"encoding/json"
	"strings"

	"github.com/adg-labs/pagepost/app/database"
)

// Source kinds. A file source is a name inside the uploads directory, a
// URL source is a publicly reachable address.
const (
	SourceFile = "file"
	SourceURL  = "url"
)

// Source is one normalized media reference.
type Source struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// ResolveMedia normalizes a post's media columns into ordered source
// lists, one per media kind. Precedence per kind: JSON file list, then
// JSON URL list, then the legacy scalar columns (file first). Only one
// representation is ever used per kind. Resolution is best-effort and
// never fails: malformed JSON list columns count as empty.
func ResolveMedia(p *database.Post) (images, videos []Source) {
	images = resolveKind(p.ImageFileNamesJSON, p.ImageURLsJSON, p.ImageFileName, p.ImageURL)
	videos = resolveKind(p.VideoFileNamesJSON, p.VideoURLsJSON, p.VideoFileName, p.VideoURL)
	return images, videos
}

func resolveKind(fileListJSON, urlListJSON, legacyFile, legacyURL string) []Source {
	if files := DecodeList(fileListJSON); len(files) > 0 {
		return toSources(SourceFile, files)
	}
	if urls := DecodeList(urlListJSON); len(urls) > 0 {
		return toSources(SourceURL, urls)
	}
	if name := strings.TrimSpace(legacyFile); name != "" {
		return []Source{{Kind: SourceFile, Value: name}}
	}
	if u := strings.TrimSpace(legacyURL); u != "" {
		return []Source{{Kind: SourceURL, Value: u}}
	}
	return nil
}

func toSources(kind string, values []string) []Source {
	sources := make([]Source, 0, len(values))
	for _, v := range values {
		sources = append(sources, Source{Kind: kind, Value: v})
	}
	return sources
}

// DecodeList parses a JSON-encoded string list column. Blank entries are
// dropped; anything unparseable yields nil, deliberately, so old rows
// with garbage in a list column keep working off their legacy scalars.
func DecodeList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "[]" {
		return nil
	}

	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}

	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// EncodeList encodes a string list for storage in a JSON list column.
func EncodeList(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(b)
}
