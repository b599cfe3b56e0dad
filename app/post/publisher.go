package post

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/adg-labs/pagepost/app/ai"
	"github.com/adg-labs/pagepost/app/database"
	"github.com/adg-labs/pagepost/app/facebook"
)

// Precondition and validation failures. None of these mutate the post.
var (
	ErrNotFound       = errors.New("post not found")
	ErrNotApproved    = errors.New("post must be APPROVED before publishing")
	ErrMissingPageID  = errors.New("missing page id: set it on the post or configure DEFAULT_PAGE_ID")
	ErrNoMedia        = errors.New("missing media: a post needs at least one image or video")
	ErrMissingContent = errors.New("missing topic or main content")
	ErrPostedFinal    = errors.New("published posts cannot change status")
)

// Publisher orchestrates the post lifecycle: preview generation,
// approval, the publish flow for one page and the fan-out variant. It is
// the only component that mutates persisted post state.
type Publisher struct {
	repo          database.PostRepository
	graph         GraphAPI
	generator     Generator
	keywords      KeywordSuggester
	pageToken     string
	defaultPageID string
	uploadsDir    string
}

// NewPublisher creates a publisher. keywords may be nil when no keyword
// service is configured.
func NewPublisher(repo database.PostRepository, graph GraphAPI, generator Generator,
	keywords KeywordSuggester, pageToken, defaultPageID, uploadsDir string) *Publisher {
	return &Publisher{
		repo:          repo,
		graph:         graph,
		generator:     generator,
		keywords:      keywords,
		pageToken:     pageToken,
		defaultPageID: defaultPageID,
		uploadsDir:    uploadsDir,
	}
}

// Outcome is the result of one successful publish.
type Outcome struct {
	PostID    int64    `json:"post_id"`
	PageID    string   `json:"page_id"`
	FBPostIDs []string `json:"fb_post_ids"`
	PostURLs  []string `json:"post_urls"`
	PostURL   string   `json:"post_url"`
}

// PreviewOutcome is the result of one caption generation run.
type PreviewOutcome struct {
	PostID   int64    `json:"post_id"`
	Keywords []string `json:"seo_keywords"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Caption  string   `json:"caption"`
}

// PageResult is the per-credential result of a fan-out publish.
type PageResult struct {
	PageID   string `json:"page_id"`
	PageName string `json:"page_name"`
	PostURL  string `json:"post_url,omitempty"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// FanOutOutcome aggregates a fan-out publish. Any failed page marks the
// whole post FAILED even when other pages succeeded; the per-page results
// still report every success.
type FanOutOutcome struct {
	PostID    int64        `json:"post_id"`
	Results   []PageResult `json:"results"`
	Published int          `json:"published"`
	Failed    int          `json:"failed"`
}

// Approve moves a post to APPROVED and clears its last error. APPROVED is
// reachable from any state except the terminal POSTED.
func (p *Publisher) Approve(id int64) error {
	rec, err := p.repo.GetByID(id)
	if err != nil {
		return fmt.Errorf("failed to load post %d: %w", id, err)
	}
	if rec == nil {
		return ErrNotFound
	}
	if rec.Status == database.StatusPosted {
		return ErrPostedFinal
	}

	return p.repo.SetStatus(id, database.StatusApproved, "")
}

// Delete force-fails a post instead of removing the row, keeping the
// history visible. POSTED posts cannot be deleted.
func (p *Publisher) Delete(id int64) error {
	rec, err := p.repo.GetByID(id)
	if err != nil {
		return fmt.Errorf("failed to load post %d: %w", id, err)
	}
	if rec == nil {
		return ErrNotFound
	}
	if rec.Status == database.StatusPosted {
		return ErrPostedFinal
	}

	return p.repo.SetStatus(id, database.StatusFailed, database.DeletedByUserError)
}

// Preview generates title, content and the assembled caption for a post,
// overwriting any previously generated content. Keyword lookup failure
// degrades to a diagnostic placeholder; generation failure leaves the
// post untouched.
func (p *Publisher) Preview(ctx context.Context, id int64) (*PreviewOutcome, error) {
	rec, err := p.repo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load post %d: %w", id, err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}

	topic := strings.TrimSpace(rec.Topic)
	main := strings.TrimSpace(rec.Main)
	if topic == "" || main == "" {
		return nil, ErrMissingContent
	}
	if extra := strings.TrimSpace(rec.ExtraRequirements); extra != "" {
		main = main + "\n" + extra
	}

	var keywords []string
	if p.keywords != nil {
		keywords, err = p.keywords.Suggest(ctx, topic)
		if err != nil {
			slog.Warn("Keyword lookup failed, continuing without suggestions", "post_id", id, "error", err)
			keywords = []string{fmt.Sprintf("(keyword lookup failed: %v)", err)}
		}
	}

	gen, err := p.generator.Generate(ctx, ai.GenerationInput{Topic: topic, Main: main, Keywords: keywords})
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	caption := BuildCaption(gen.Title, gen.Content, rec.Mandatory)

	if err := p.repo.SavePreview(id, EncodeList(keywords), gen.Title, gen.Content, caption); err != nil {
		return nil, err
	}

	slog.Info("Preview generated", "post_id", id, "keywords", len(keywords))

	return &PreviewOutcome{
		PostID:   id,
		Keywords: keywords,
		Title:    gen.Title,
		Content:  gen.Content,
		Caption:  caption,
	}, nil
}

// Publish runs the full publish flow for one post. Precondition failures
// (missing post, wrong status, no page id, no media, caption generation)
// leave the post untouched; once the platform is being called, any
// failure marks the post FAILED with the diagnostic text and is still
// returned to the caller.
func (p *Publisher) Publish(ctx context.Context, id int64) (*Outcome, error) {
	rec, err := p.repo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load post %d: %w", id, err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	if rec.Status != database.StatusApproved {
		return nil, fmt.Errorf("%w (current status: %s)", ErrNotApproved, rec.Status)
	}

	pageID := strings.TrimSpace(rec.PageID)
	if pageID == "" {
		pageID = p.defaultPageID
	}
	if pageID == "" {
		return nil, ErrMissingPageID
	}

	caption, err := p.ensureCaption(ctx, rec)
	if err != nil {
		return nil, err
	}

	images, videos := ResolveMedia(rec)
	strategy, err := SelectStrategy(images, videos)
	if err != nil {
		return nil, err
	}

	slog.Info("Publishing post", "post_id", id, "page_id", pageID, "strategy", strategy.String(),
		"images", len(images), "videos", len(videos))

	results, err := p.executeStrategy(ctx, strategy, pageID, p.pageToken, caption, images, videos)
	if err != nil {
		p.markFailed(id, err)
		return nil, err
	}

	outcome := p.buildOutcome(id, pageID, results)

	if err := p.repo.MarkPosted(id, database.PostedOutcome{
		PageID:         pageID,
		FBPostID:       first(outcome.FBPostIDs),
		FBPostURL:      outcome.PostURL,
		FBPostIDsJSON:  EncodeList(outcome.FBPostIDs),
		FBPostURLsJSON: EncodeList(outcome.PostURLs),
		PostedAt:       time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		p.markFailed(id, err)
		return nil, err
	}

	slog.Info("Post published", "post_id", id, "page_id", pageID, "post_url", outcome.PostURL)

	return outcome, nil
}

// PublishNextApproved publishes the most recently approved post, the
// entry point for unattended scheduled runs. An empty approved queue
// returns (nil, nil).
func (p *Publisher) PublishNextApproved(ctx context.Context) (*Outcome, error) {
	rec, err := p.repo.NextApproved()
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return p.Publish(ctx, rec.ID)
}

// PublishToPages publishes one approved post to every page behind the
// given access tokens, resolving each page identity from its token.
// Individual page failures never short-circuit the loop. Any failure
// marks the post FAILED ("k/N pages failed") even when other pages
// succeeded, so an operator has to confirm which pages received the
// content; only zero failures mark it POSTED.
func (p *Publisher) PublishToPages(ctx context.Context, id int64, tokens []string) (*FanOutOutcome, error) {
	rec, err := p.repo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load post %d: %w", id, err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	if rec.Status != database.StatusApproved {
		return nil, fmt.Errorf("%w (current status: %s)", ErrNotApproved, rec.Status)
	}
	if len(tokens) == 0 {
		return nil, errors.New("no fan-out pages configured")
	}

	caption, err := p.ensureCaption(ctx, rec)
	if err != nil {
		return nil, err
	}

	images, videos := ResolveMedia(rec)
	strategy, err := SelectStrategy(images, videos)
	if err != nil {
		return nil, err
	}

	out := &FanOutOutcome{PostID: id}
	var ids, urls []string

	for _, token := range tokens {
		page, err := p.graph.ResolvePage(ctx, token)
		if err != nil {
			slog.Warn("Fan-out page resolution failed", "post_id", id, "error", err)
			out.Results = append(out.Results, PageResult{OK: false, Error: err.Error()})
			out.Failed++
			continue
		}

		results, err := p.executeStrategy(ctx, strategy, page.ID, token, caption, images, videos)
		if err != nil {
			slog.Warn("Fan-out publish failed", "post_id", id, "page_id", page.ID, "error", err)
			out.Results = append(out.Results, PageResult{PageID: page.ID, PageName: page.Name, OK: false, Error: err.Error()})
			out.Failed++
			continue
		}

		postURL := facebook.PostURL(results[0].BestID())
		for _, r := range results {
			ids = append(ids, r.BestID())
			urls = append(urls, facebook.PostURL(r.BestID()))
		}

		out.Results = append(out.Results, PageResult{PageID: page.ID, PageName: page.Name, PostURL: postURL, OK: true})
		out.Published++
	}

	if out.Failed > 0 {
		summary := fmt.Sprintf("%d/%d pages failed", out.Failed, len(tokens))
		if err := p.repo.SetStatus(id, database.StatusFailed, summary); err != nil {
			slog.Error("Failed to record fan-out failure", "post_id", id, "error", err)
		}
		slog.Warn("Fan-out finished with failures", "post_id", id, "published", out.Published, "failed", out.Failed)
		return out, nil
	}

	if err := p.repo.MarkPosted(id, database.PostedOutcome{
		PageID:         rec.PageID,
		FBPostID:       first(ids),
		FBPostURL:      strings.Join(urls, "\n"),
		FBPostIDsJSON:  EncodeList(ids),
		FBPostURLsJSON: EncodeList(urls),
		PostedAt:       time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		slog.Error("Failed to record fan-out success", "post_id", id, "error", err)
	}

	slog.Info("Fan-out finished", "post_id", id, "published", out.Published)

	return out, nil
}

// ensureCaption returns the stored caption, generating one inline when
// absent. Generation here is a convenience fallback; failures leave the
// post untouched.
func (p *Publisher) ensureCaption(ctx context.Context, rec *database.Post) (string, error) {
	caption := strings.TrimSpace(rec.Caption)
	if caption != "" {
		return caption, nil
	}

	slog.Info("Post has no caption, generating inline", "post_id", rec.ID)

	if _, err := p.Preview(ctx, rec.ID); err != nil {
		return "", err
	}

	fresh, err := p.repo.GetByID(rec.ID)
	if err != nil {
		return "", fmt.Errorf("failed to reload post %d: %w", rec.ID, err)
	}

	caption = strings.TrimSpace(fresh.Caption)
	if caption == "" {
		return "", errors.New("caption is still empty after generation")
	}
	return caption, nil
}

// executeStrategy invokes the adapter primitives for the chosen strategy
// and returns one result per published content unit.
func (p *Publisher) executeStrategy(ctx context.Context, strategy Strategy, pageID, token, caption string,
	images, videos []Source) ([]facebook.PublishResult, error) {
	switch strategy {
	case StrategySingleVideo:
		res, err := p.publishVideo(ctx, pageID, token, videos[0], caption)
		if err != nil {
			return nil, err
		}
		return []facebook.PublishResult{res}, nil

	case StrategyVideoSequence:
		results := make([]facebook.PublishResult, 0, len(videos))
		for _, video := range videos {
			res, err := p.publishVideo(ctx, pageID, token, video, caption)
			if err != nil {
				// Earlier videos in the sequence are already live on the
				// platform; that remote state stays as-is.
				return nil, err
			}
			results = append(results, res)
		}
		return results, nil

	case StrategySinglePhoto:
		res, err := p.publishPhoto(ctx, pageID, token, images[0], caption)
		if err != nil {
			return nil, err
		}
		return []facebook.PublishResult{res}, nil

	case StrategyMultiPhoto:
		handles := make([]string, 0, len(images))
		for _, image := range images {
			handle, err := p.uploadPhoto(ctx, pageID, token, image)
			if err != nil {
				// Abort before the attach phase. Already-uploaded
				// unpublished photos are orphaned on the platform and
				// not cleaned up.
				return nil, err
			}
			handles = append(handles, handle)
		}
		res, err := p.graph.CreateAttachedMediaPost(ctx, pageID, token, caption, handles)
		if err != nil {
			return nil, err
		}
		return []facebook.PublishResult{res}, nil
	}

	return nil, fmt.Errorf("unknown publish strategy %d", strategy)
}

func (p *Publisher) publishPhoto(ctx context.Context, pageID, token string, src Source, caption string) (facebook.PublishResult, error) {
	if src.Kind == SourceFile {
		return p.graph.PostPhotoByFile(ctx, pageID, token, p.mediaPath(src.Value), caption)
	}
	return p.graph.PostPhotoByURL(ctx, pageID, token, src.Value, caption)
}

func (p *Publisher) publishVideo(ctx context.Context, pageID, token string, src Source, caption string) (facebook.PublishResult, error) {
	if src.Kind == SourceFile {
		return p.graph.PostVideoByFile(ctx, pageID, token, p.mediaPath(src.Value), caption)
	}
	return p.graph.PostVideoByURL(ctx, pageID, token, src.Value, caption)
}

func (p *Publisher) uploadPhoto(ctx context.Context, pageID, token string, src Source) (string, error) {
	if src.Kind == SourceFile {
		return p.graph.UploadPhotoByFile(ctx, pageID, token, p.mediaPath(src.Value))
	}
	return p.graph.UploadPhotoByURL(ctx, pageID, token, src.Value)
}

func (p *Publisher) mediaPath(name string) string {
	return filepath.Join(p.uploadsDir, name)
}

func (p *Publisher) buildOutcome(id int64, pageID string, results []facebook.PublishResult) *Outcome {
	outcome := &Outcome{PostID: id, PageID: pageID}
	for _, r := range results {
		bestID := r.BestID()
		outcome.FBPostIDs = append(outcome.FBPostIDs, bestID)
		outcome.PostURLs = append(outcome.PostURLs, facebook.PostURL(bestID))
	}
	outcome.PostURL = first(outcome.PostURLs)
	return outcome
}

// markFailed records the failure on the post. The original error is
// still returned to the caller; a secondary storage error is only
// logged, never allowed to mask it.
func (p *Publisher) markFailed(id int64, cause error) {
	if err := p.repo.SetStatus(id, database.StatusFailed, cause.Error()); err != nil {
		slog.Error("Failed to record publish failure", "post_id", id, "error", err)
	}
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
