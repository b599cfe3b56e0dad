package post

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/adg-labs/pagepost/app/ai"
	"github.com/adg-labs/pagepost/app/database"
	"github.com/adg-labs/pagepost/app/facebook"
)

type fakeRepo struct {
	posts     map[int64]*database.Post
	nextID    int64
	failOnSet bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{posts: map[int64]*database.Post{}, nextID: 1}
}

func (r *fakeRepo) add(p *database.Post) int64 {
	id := r.nextID
	r.nextID++
	p.ID = id
	if p.Status == "" {
		p.Status = database.StatusDraft
	}
	r.posts[id] = p
	return id
}

func (r *fakeRepo) Create(p *database.Post) (int64, error) {
	return r.add(p), nil
}

func (r *fakeRepo) GetByID(id int64) (*database.Post, error) {
	p, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

func (r *fakeRepo) List(status string, limit int) ([]database.Post, error) {
	var out []database.Post
	for _, p := range r.posts {
		if status == "" || p.Status == status {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeRepo) SetStatus(id int64, status, lastError string) error {
	if r.failOnSet {
		return errors.New("storage unavailable")
	}
	p, ok := r.posts[id]
	if !ok {
		return fmt.Errorf("post %d not found", id)
	}
	p.Status = status
	p.LastError = lastError
	return nil
}

func (r *fakeRepo) SavePreview(id int64, seoKeywordsJSON, aiTitle, aiContent, caption string) error {
	p, ok := r.posts[id]
	if !ok {
		return fmt.Errorf("post %d not found", id)
	}
	p.SEOKeywordsJSON = seoKeywordsJSON
	p.AITitle = aiTitle
	p.AIContent = aiContent
	p.Caption = caption
	p.LastError = ""
	return nil
}

func (r *fakeRepo) MarkPosted(id int64, outcome database.PostedOutcome) error {
	p, ok := r.posts[id]
	if !ok {
		return fmt.Errorf("post %d not found", id)
	}
	p.Status = database.StatusPosted
	p.PageID = outcome.PageID
	p.FBPostID = outcome.FBPostID
	p.FBPostURL = outcome.FBPostURL
	p.FBPostIDsJSON = outcome.FBPostIDsJSON
	p.FBPostURLsJSON = outcome.FBPostURLsJSON
	p.PostedAt = outcome.PostedAt
	p.LastError = ""
	return nil
}

func (r *fakeRepo) NextApproved() (*database.Post, error) {
	var best *database.Post
	for _, p := range r.posts {
		if p.Status != database.StatusApproved {
			continue
		}
		if best == nil || p.ID > best.ID {
			best = p
		}
	}
	if best == nil {
		return nil, nil
	}
	clone := *best
	return &clone, nil
}

func (r *fakeRepo) GetStatusCounts() (map[string]int, error) {
	counts := map[string]int{}
	for _, p := range r.posts {
		counts[p.Status]++
	}
	return counts, nil
}

// fakeGraph records every adapter call in order. failOps maps an
// operation name (optionally suffixed with the access token) to the
// error to return.
type fakeGraph struct {
	calls   []string
	failOps map[string]error
	serial  int
}

func (g *fakeGraph) record(op string) {
	g.calls = append(g.calls, op)
}

func (g *fakeGraph) fail(op, token string) error {
	if err, ok := g.failOps[op+"/"+token]; ok {
		return err
	}
	return g.failOps[op]
}

func (g *fakeGraph) nextResult() facebook.PublishResult {
	g.serial++
	return facebook.PublishResult{ID: fmt.Sprintf("id-%d", g.serial), PostID: fmt.Sprintf("page_post-%d", g.serial)}
}

func (g *fakeGraph) ResolvePage(_ context.Context, accessToken string) (facebook.Page, error) {
	g.record("resolve:" + accessToken)
	if err := g.fail("resolve", accessToken); err != nil {
		return facebook.Page{}, err
	}
	return facebook.Page{ID: "page-" + accessToken, Name: "Page " + accessToken}, nil
}

func (g *fakeGraph) PostPhotoByURL(_ context.Context, pageID, token, imageURL, caption string) (facebook.PublishResult, error) {
	g.record("photo_url:" + imageURL)
	if err := g.fail("photo_url", token); err != nil {
		return facebook.PublishResult{}, err
	}
	return g.nextResult(), nil
}

func (g *fakeGraph) PostPhotoByFile(_ context.Context, pageID, token, filePath, caption string) (facebook.PublishResult, error) {
	g.record("photo_file:" + filePath)
	if err := g.fail("photo_file", token); err != nil {
		return facebook.PublishResult{}, err
	}
	return g.nextResult(), nil
}

func (g *fakeGraph) PostVideoByURL(_ context.Context, pageID, token, videoURL, caption string) (facebook.PublishResult, error) {
	g.record("video_url:" + videoURL)
	if err := g.fail("video_url", token); err != nil {
		return facebook.PublishResult{}, err
	}
	return g.nextResult(), nil
}

func (g *fakeGraph) PostVideoByFile(_ context.Context, pageID, token, filePath, caption string) (facebook.PublishResult, error) {
	g.record("video_file:" + filePath)
	if err := g.fail("video_file", token); err != nil {
		return facebook.PublishResult{}, err
	}
	return g.nextResult(), nil
}

func (g *fakeGraph) UploadPhotoByURL(_ context.Context, pageID, token, imageURL string) (string, error) {
	g.record("upload_url:" + imageURL)
	if err := g.fail("upload_url", token); err != nil {
		return "", err
	}
	g.serial++
	return fmt.Sprintf("handle-%d", g.serial), nil
}

func (g *fakeGraph) UploadPhotoByFile(_ context.Context, pageID, token, filePath string) (string, error) {
	g.record("upload_file:" + filePath)
	if err := g.fail("upload_file", token); err != nil {
		return "", err
	}
	g.serial++
	return fmt.Sprintf("handle-%d", g.serial), nil
}

func (g *fakeGraph) CreateAttachedMediaPost(_ context.Context, pageID, token, caption string, handles []string) (facebook.PublishResult, error) {
	g.record("attach:" + strings.Join(handles, ","))
	if err := g.fail("attach", token); err != nil {
		return facebook.PublishResult{}, err
	}
	return g.nextResult(), nil
}

type fakeGenerator struct {
	generated *ai.Generated
	err       error
	calls     int
	lastInput ai.GenerationInput
}

func (f *fakeGenerator) Generate(_ context.Context, in ai.GenerationInput) (*ai.Generated, error) {
	f.calls++
	f.lastInput = in
	if f.err != nil {
		return nil, f.err
	}
	return f.generated, nil
}

type fakeSuggester struct {
	keywords []string
	err      error
}

func (f *fakeSuggester) Suggest(context.Context, string) ([]string, error) {
	return f.keywords, f.err
}

func newTestPublisher(repo *fakeRepo, graph *fakeGraph) *Publisher {
	gen := &fakeGenerator{generated: &ai.Generated{Title: "Generated Title", Content: "Generated content."}}
	return NewPublisher(repo, graph, gen, &fakeSuggester{keywords: []string{"k1", "k2"}},
		"page-token", "default-page", "/data/uploads")
}

func approvedPost(repo *fakeRepo, mutate func(*database.Post)) int64 {
	p := &database.Post{
		Topic:   "Topic",
		Main:    "Main body",
		Status:  database.StatusApproved,
		Caption: "Ready caption",
	}
	if mutate != nil {
		mutate(p)
	}
	return repo.add(p)
}

func TestPublish_SinglePhotoByURL(t *testing.T) {
	repo := newFakeRepo()
	graph := &fakeGraph{}
	id := approvedPost(repo, func(p *database.Post) {
		p.ImageURL = "http://x/1.jpg"
	})

	outcome, err := newTestPublisher(repo, graph).Publish(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.PageID != "default-page" {
		t.Errorf("expected default page id, got %q", outcome.PageID)
	}
	if len(outcome.FBPostIDs) != 1 || outcome.FBPostIDs[0] != "page_post-1" {
		t.Errorf("unexpected post ids: %v", outcome.FBPostIDs)
	}
	if outcome.PostURL != "https://www.facebook.com/page_post-1" {
		t.Errorf("unexpected post url: %q", outcome.PostURL)
	}

	stored, _ := repo.GetByID(id)
	if stored.Status != database.StatusPosted {
		t.Errorf("expected POSTED, got %s", stored.Status)
	}
	if stored.FBPostID != "page_post-1" {
		t.Errorf("unexpected stored fb post id: %q", stored.FBPostID)
	}
	if stored.PostedAt == "" {
		t.Error("expected posted_at to be set")
	}
}

func TestPublish_MultiPhotoUploadsThenAttaches(t *testing.T) {
	repo := newFakeRepo()
	graph := &fakeGraph{}
	id := approvedPost(repo, func(p *database.Post) {
		p.ImageURLsJSON = `["http://x/1.jpg","http://x/2.jpg","http://x/3.jpg"]`
	})

	outcome, err := newTestPublisher(repo, graph).Publish(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedCalls := []string{
		"upload_url:http://x/1.jpg",
		"upload_url:http://x/2.jpg",
		"upload_url:http://x/3.jpg",
		"attach:handle-1,handle-2,handle-3",
	}
	if len(graph.calls) != len(expectedCalls) {
		t.Fatalf("expected %d calls, got %v", len(expectedCalls), graph.calls)
	}
	for i, call := range expectedCalls {
		if graph.calls[i] != call {
			t.Errorf("call %d: expected %q, got %q", i, call, graph.calls[i])
		}
	}
	if len(outcome.FBPostIDs) != 1 {
		t.Errorf("expected one content unit, got %v", outcome.FBPostIDs)
	}
}

func TestPublish_MultiPhotoAbortsOnUploadFailure(t *testing.T) {
	repo := newFakeRepo()
	graph := &fakeGraph{failOps: map[string]error{"upload_url": errors.New("upload rejected")}}
	id := approvedPost(repo, func(p *database.Post) {
		p.ImageURLsJSON = `["http://x/1.jpg","http://x/2.jpg"]`
	})

	_, err := newTestPublisher(repo, graph).Publish(context.Background(), id)
	if err == nil {
		t.Fatal("expected error")
	}

	for _, call := range graph.calls {
		if strings.HasPrefix(call, "attach:") {
			t.Errorf("attach must not run after an upload failure, calls: %v", graph.calls)
		}
	}

	stored, _ := repo.GetByID(id)
	if stored.Status != database.StatusFailed {
		t.Errorf("expected FAILED, got %s", stored.Status)
	}
	if !strings.Contains(stored.LastError, "upload rejected") {
		t.Errorf("expected diagnostic last_error, got %q", stored.LastError)
	}
}

func TestPublish_VideoSequence(t *testing.T) {
	repo := newFakeRepo()
	graph := &fakeGraph{}
	id := approvedPost(repo, func(p *database.Post) {
		p.VideoFileNamesJSON = `["a.mp4","b.mp4"]`
	})

	outcome, err := newTestPublisher(repo, graph).Publish(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedCalls := []string{"video_file:/data/uploads/a.mp4", "video_file:/data/uploads/b.mp4"}
	if len(graph.calls) != 2 || graph.calls[0] != expectedCalls[0] || graph.calls[1] != expectedCalls[1] {
		t.Fatalf("expected %v, got %v", expectedCalls, graph.calls)
	}

	if len(outcome.FBPostIDs) != 2 {
		t.Fatalf("expected two post ids, got %v", outcome.FBPostIDs)
	}
	if outcome.PostURL != "https://www.facebook.com/page_post-1" {
		t.Errorf("canonical url must be the first post, got %q", outcome.PostURL)
	}

	stored, _ := repo.GetByID(id)
	if stored.FBPostIDsJSON != `["page_post-1","page_post-2"]` {
		t.Errorf("unexpected stored id list: %q", stored.FBPostIDsJSON)
	}
}

func TestPublish_VideosWinOverImages(t *testing.T) {
	repo := newFakeRepo()
	graph := &fakeGraph{}
	id := approvedPost(repo, func(p *database.Post) {
		p.ImageURL = "http://x/1.jpg"
		p.VideoURL = "http://x/clip.mp4"
	})

	if _, err := newTestPublisher(repo, graph).Publish(context.Background(), id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(graph.calls) != 1 || graph.calls[0] != "video_url:http://x/clip.mp4" {
		t.Errorf("expected only the video publish, got %v", graph.calls)
	}
}

func TestPublish_PreconditionsLeavePostUntouched(t *testing.T) {
	repo := newFakeRepo()
	graph := &fakeGraph{}
	pub := newTestPublisher(repo, graph)
	ctx := context.Background()

	draftID := repo.add(&database.Post{Topic: "T", Main: "M", Caption: "C", ImageURL: "http://x/1.jpg"})
	if _, err := pub.Publish(ctx, draftID); !errors.Is(err, ErrNotApproved) {
		t.Errorf("expected ErrNotApproved, got %v", err)
	}

	noMediaID := approvedPost(repo, nil)
	if _, err := pub.Publish(ctx, noMediaID); !errors.Is(err, ErrNoMedia) {
		t.Errorf("expected ErrNoMedia, got %v", err)
	}

	if _, err := pub.Publish(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if len(graph.calls) != 0 {
		t.Errorf("no adapter call may happen on precondition failure, got %v", graph.calls)
	}
	if draft, _ := repo.GetByID(draftID); draft.Status != database.StatusDraft || draft.LastError != "" {
		t.Errorf("draft post mutated: status=%s last_error=%q", draft.Status, draft.LastError)
	}
	if rec, _ := repo.GetByID(noMediaID); rec.Status != database.StatusApproved {
		t.Errorf("approved post mutated: status=%s", rec.Status)
	}
}

func TestPublish_MissingPageID(t *testing.T) {
	repo := newFakeRepo()
	graph := &fakeGraph{}
	id := approvedPost(repo, func(p *database.Post) {
		p.ImageURL = "http://x/1.jpg"
	})

	gen := &fakeGenerator{generated: &ai.Generated{Title: "T", Content: "C"}}
	pub := NewPublisher(repo, graph, gen, nil, "page-token", "", "/data/uploads")

	if _, err := pub.Publish(context.Background(), id); !errors.Is(err, ErrMissingPageID) {
		t.Errorf("expected ErrMissingPageID, got %v", err)
	}
}

func TestPublish_GeneratesCaptionWhenMissing(t *testing.T) {
	repo := newFakeRepo()
	graph := &fakeGraph{}
	id := approvedPost(repo, func(p *database.Post) {
		p.Caption = ""
		p.Mandatory = "Visit us"
		p.ImageURL = "http://x/1.jpg"
	})

	if _, err := newTestPublisher(repo, graph).Publish(context.Background(), id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, _ := repo.GetByID(id)
	expected := "Generated Title\n\nGenerated content.\nVisit us"
	if stored.Caption != expected {
		t.Errorf("expected %q, got %q", expected, stored.Caption)
	}
	if stored.Status != database.StatusPosted {
		t.Errorf("expected POSTED, got %s", stored.Status)
	}
}

func TestPublish_GenerationFailureLeavesStatus(t *testing.T) {
	repo := newFakeRepo()
	graph := &fakeGraph{}
	id := approvedPost(repo, func(p *database.Post) {
		p.Caption = ""
		p.ImageURL = "http://x/1.jpg"
	})

	gen := &fakeGenerator{err: errors.New("model unavailable")}
	pub := NewPublisher(repo, graph, gen, nil, "page-token", "default-page", "/data/uploads")

	if _, err := pub.Publish(context.Background(), id); err == nil {
		t.Fatal("expected error")
	}

	stored, _ := repo.GetByID(id)
	if stored.Status != database.StatusApproved {
		t.Errorf("generation failure must not change status, got %s", stored.Status)
	}
	if len(graph.calls) != 0 {
		t.Errorf("no adapter call expected, got %v", graph.calls)
	}
}

func TestPreview_OverwritesAndStoresKeywordFailurePlaceholder(t *testing.T) {
	repo := newFakeRepo()
	id := repo.add(&database.Post{
		Topic:     "Topic",
		Main:      "Main body",
		AITitle:   "Old title",
		Caption:   "Old caption",
		LastError: "previous failure",
	})

	gen := &fakeGenerator{generated: &ai.Generated{Title: "New", Content: "Body"}}
	suggester := &fakeSuggester{err: errors.New("quota exceeded")}
	pub := NewPublisher(repo, &fakeGraph{}, gen, suggester, "page-token", "default-page", "/data/uploads")

	outcome, err := pub.Preview(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(outcome.Keywords) != 1 || !strings.Contains(outcome.Keywords[0], "keyword lookup failed") {
		t.Errorf("expected failure placeholder keyword, got %v", outcome.Keywords)
	}
	if !strings.Contains(gen.lastInput.Keywords[0], "quota exceeded") {
		t.Errorf("placeholder must flow into the generation input, got %v", gen.lastInput.Keywords)
	}

	stored, _ := repo.GetByID(id)
	if stored.AITitle != "New" || stored.Caption != "New\n\nBody" {
		t.Errorf("preview not persisted: title=%q caption=%q", stored.AITitle, stored.Caption)
	}
	if stored.LastError != "" {
		t.Errorf("expected last_error cleared, got %q", stored.LastError)
	}
}

func TestPreview_ExtraRequirementsAppendedToBrief(t *testing.T) {
	repo := newFakeRepo()
	id := repo.add(&database.Post{Topic: "Topic", Main: "Main body", ExtraRequirements: "Keep it short"})

	gen := &fakeGenerator{generated: &ai.Generated{Title: "T", Content: "C"}}
	pub := NewPublisher(repo, &fakeGraph{}, gen, nil, "page-token", "default-page", "/data/uploads")

	if _, err := pub.Preview(context.Background(), id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.lastInput.Main != "Main body\nKeep it short" {
		t.Errorf("unexpected brief: %q", gen.lastInput.Main)
	}
}

func TestPreview_MissingContent(t *testing.T) {
	repo := newFakeRepo()
	id := repo.add(&database.Post{Topic: "Topic", Main: "   "})

	pub := newTestPublisher(repo, &fakeGraph{})
	if _, err := pub.Preview(context.Background(), id); !errors.Is(err, ErrMissingContent) {
		t.Errorf("expected ErrMissingContent, got %v", err)
	}
}

func TestApproveAndDelete(t *testing.T) {
	repo := newFakeRepo()
	pub := newTestPublisher(repo, &fakeGraph{})

	failedID := repo.add(&database.Post{Topic: "T", Main: "M", Status: database.StatusFailed, LastError: "boom"})
	if err := pub.Approve(failedID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p, _ := repo.GetByID(failedID); p.Status != database.StatusApproved || p.LastError != "" {
		t.Errorf("expected APPROVED with cleared error, got %s %q", p.Status, p.LastError)
	}

	postedID := repo.add(&database.Post{Topic: "T", Main: "M", Status: database.StatusPosted})
	if err := pub.Approve(postedID); !errors.Is(err, ErrPostedFinal) {
		t.Errorf("expected ErrPostedFinal on approve, got %v", err)
	}
	if err := pub.Delete(postedID); !errors.Is(err, ErrPostedFinal) {
		t.Errorf("expected ErrPostedFinal on delete, got %v", err)
	}

	draftID := repo.add(&database.Post{Topic: "T", Main: "M"})
	if err := pub.Delete(draftID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p, _ := repo.GetByID(draftID); p.Status != database.StatusFailed || p.LastError != database.DeletedByUserError {
		t.Errorf("expected forced FAILED, got %s %q", p.Status, p.LastError)
	}

	if err := pub.Approve(999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPublishNextApproved(t *testing.T) {
	repo := newFakeRepo()
	graph := &fakeGraph{}
	pub := newTestPublisher(repo, graph)
	ctx := context.Background()

	outcome, err := pub.PublishNextApproved(ctx)
	if err != nil || outcome != nil {
		t.Fatalf("expected (nil, nil) on empty queue, got %v %v", outcome, err)
	}

	approvedPost(repo, func(p *database.Post) { p.ImageURL = "http://x/old.jpg" })
	newest := approvedPost(repo, func(p *database.Post) { p.ImageURL = "http://x/new.jpg" })

	outcome, err = pub.PublishNextApproved(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.PostID != newest {
		t.Errorf("expected newest approved post %d, got %d", newest, outcome.PostID)
	}
}

func TestPublishToPages_PartialFailure(t *testing.T) {
	repo := newFakeRepo()
	graph := &fakeGraph{failOps: map[string]error{"photo_url/token-b": errors.New("token expired")}}
	id := approvedPost(repo, func(p *database.Post) {
		p.ImageURL = "http://x/1.jpg"
	})

	pub := newTestPublisher(repo, graph)
	outcome, err := pub.PublishToPages(context.Background(), id, []string{"token-a", "token-b", "token-c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.Published != 2 || outcome.Failed != 1 {
		t.Fatalf("expected 2 published / 1 failed, got %d/%d", outcome.Published, outcome.Failed)
	}
	if len(outcome.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(outcome.Results))
	}
	if outcome.Results[0].OK != true || outcome.Results[1].OK != false || outcome.Results[2].OK != true {
		t.Errorf("unexpected per-page results: %+v", outcome.Results)
	}
	if !strings.Contains(outcome.Results[1].Error, "token expired") {
		t.Errorf("expected failure diagnostic, got %q", outcome.Results[1].Error)
	}

	stored, _ := repo.GetByID(id)
	if stored.Status != database.StatusFailed {
		t.Errorf("any page failure must mark the post FAILED, got %s", stored.Status)
	}
	if stored.LastError != "1/3 pages failed" {
		t.Errorf("unexpected last_error: %q", stored.LastError)
	}
}

func TestPublishToPages_AllSucceed(t *testing.T) {
	repo := newFakeRepo()
	graph := &fakeGraph{}
	id := approvedPost(repo, func(p *database.Post) {
		p.PageID = "original-page"
		p.ImageURL = "http://x/1.jpg"
	})

	pub := newTestPublisher(repo, graph)
	outcome, err := pub.PublishToPages(context.Background(), id, []string{"token-a", "token-b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.Published != 2 || outcome.Failed != 0 {
		t.Fatalf("expected 2/0, got %d/%d", outcome.Published, outcome.Failed)
	}

	stored, _ := repo.GetByID(id)
	if stored.Status != database.StatusPosted {
		t.Errorf("expected POSTED, got %s", stored.Status)
	}
	if stored.PageID != "original-page" {
		t.Errorf("fan-out must not overwrite the post's own page id, got %q", stored.PageID)
	}
	urls := strings.Split(stored.FBPostURL, "\n")
	if len(urls) != 2 {
		t.Errorf("expected newline-joined urls for both pages, got %q", stored.FBPostURL)
	}
}

func TestPublishToPages_NoTokens(t *testing.T) {
	repo := newFakeRepo()
	id := approvedPost(repo, func(p *database.Post) { p.ImageURL = "http://x/1.jpg" })

	pub := newTestPublisher(repo, &fakeGraph{})
	if _, err := pub.PublishToPages(context.Background(), id, nil); err == nil {
		t.Fatal("expected error on empty token list")
	}
}
