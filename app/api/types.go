package api

import (
	"context"

	"github.com/adg-labs/pagepost/app/database"
	"github.com/adg-labs/pagepost/app/post"
	"github.com/adg-labs/pagepost/app/settings"
)

// PublisherInterface is the lifecycle surface the HTTP layer needs.
type PublisherInterface interface {
	Approve(id int64) error
	Delete(id int64) error
	Preview(ctx context.Context, id int64) (*post.PreviewOutcome, error)
	Publish(ctx context.Context, id int64) (*post.Outcome, error)
	PublishToPages(ctx context.Context, id int64, tokens []string) (*post.FanOutOutcome, error)
	PublishNextApproved(ctx context.Context) (*post.Outcome, error)
}

var _ PublisherInterface = (*post.Publisher)(nil)

type Handler struct {
	repo       database.PostRepository
	publisher  PublisherInterface
	settings   *settings.Settings
	uploadsDir string
	version    string
}

type createPostRequest struct {
	Topic             string   `json:"topic"`
	Main              string   `json:"main"`
	ExtraRequirements string   `json:"extra_requirements"`
	Mandatory         string   `json:"mandatory"`
	PageID            string   `json:"page_id"`
	ImageURL          string   `json:"image_url"`
	ImageFileName     string   `json:"image_file_name"`
	ImageURLs         []string `json:"image_urls"`
	ImageFileNames    []string `json:"image_file_names"`
	VideoURL          string   `json:"video_url"`
	VideoFileName     string   `json:"video_file_name"`
	VideoURLs         []string `json:"video_urls"`
	VideoFileNames    []string `json:"video_file_names"`
}

// postResponse is the JSON shape of a post. List columns are decoded so
// clients never see raw JSON column text.
type postResponse struct {
	ID                int64    `json:"id"`
	Topic             string   `json:"topic"`
	Main              string   `json:"main"`
	ExtraRequirements string   `json:"extra_requirements,omitempty"`
	Mandatory         string   `json:"mandatory,omitempty"`
	PageID            string   `json:"page_id,omitempty"`
	Status            string   `json:"status"`
	ImageURLs         []string `json:"image_urls,omitempty"`
	ImageFileNames    []string `json:"image_file_names,omitempty"`
	VideoURLs         []string `json:"video_urls,omitempty"`
	VideoFileNames    []string `json:"video_file_names,omitempty"`
	SEOKeywords       []string `json:"seo_keywords,omitempty"`
	AITitle           string   `json:"ai_title,omitempty"`
	AIContent         string   `json:"ai_content,omitempty"`
	Caption           string   `json:"caption,omitempty"`
	FBPostIDs         []string `json:"fb_post_ids,omitempty"`
	FBPostURL         string   `json:"fb_post_url,omitempty"`
	PostedAt          string   `json:"posted_at,omitempty"`
	LastError         string   `json:"last_error,omitempty"`
	CreatedAt         string   `json:"created_at"`
	UpdatedAt         string   `json:"updated_at"`
}
