package post

import (
	"context"

	"github.com/adg-labs/pagepost/app/ai"
	"github.com/adg-labs/pagepost/app/facebook"
)

// GraphAPI is the publishing platform surface the controller needs.
// Implemented by facebook.Client; tests substitute a fake.
type GraphAPI interface {
	ResolvePage(ctx context.Context, accessToken string) (facebook.Page, error)

	PostPhotoByURL(ctx context.Context, pageID, accessToken, imageURL, caption string) (facebook.PublishResult, error)
	PostPhotoByFile(ctx context.Context, pageID, accessToken, filePath, caption string) (facebook.PublishResult, error)
	PostVideoByURL(ctx context.Context, pageID, accessToken, videoURL, caption string) (facebook.PublishResult, error)
	PostVideoByFile(ctx context.Context, pageID, accessToken, filePath, caption string) (facebook.PublishResult, error)

	UploadPhotoByURL(ctx context.Context, pageID, accessToken, imageURL string) (string, error)
	UploadPhotoByFile(ctx context.Context, pageID, accessToken, filePath string) (string, error)
	CreateAttachedMediaPost(ctx context.Context, pageID, accessToken, caption string, handles []string) (facebook.PublishResult, error)
}

// Generator produces generated captions. Implemented by ai.Generator.
type Generator interface {
	Generate(ctx context.Context, in ai.GenerationInput) (*ai.Generated, error)
}

// KeywordSuggester provides SEO keyword hints. Implemented by
// ai.KeywordClient. Failures are non-fatal to the caption flow.
type KeywordSuggester interface {
	Suggest(ctx context.Context, query string) ([]string, error)
}
