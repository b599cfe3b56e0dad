package api

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/adg-labs/pagepost/app/database"
	"github.com/adg-labs/pagepost/app/post"
	"github.com/adg-labs/pagepost/app/settings"
)

func NewHandler(repo database.PostRepository, publisher PublisherInterface,
	appSettings *settings.Settings, uploadsDir, version string) *Handler {
	return &Handler{
		repo:       repo,
		publisher:  publisher,
		settings:   appSettings,
		uploadsDir: uploadsDir,
		version:    version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"version":   h.version,
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if counts, err := h.repo.GetStatusCounts(); err == nil {
		health["posts"] = counts
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) ListPosts(c *gin.Context) {
	status := strings.ToUpper(strings.TrimSpace(c.Query("status")))
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	posts, err := h.repo.List(status, limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_posts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list posts"})
		return
	}

	out := make([]postResponse, 0, len(posts))
	for i := range posts {
		out = append(out, toPostResponse(&posts[i]))
	}

	c.JSON(http.StatusOK, gin.H{"posts": out, "count": len(out)})
}

func (h *Handler) GetPost(c *gin.Context) {
	id, ok := h.postID(c)
	if !ok {
		return
	}

	rec, err := h.repo.GetByID(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_post", "post_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load post"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}

	c.JSON(http.StatusOK, toPostResponse(rec))
}

func (h *Handler) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return
	}

	if strings.TrimSpace(req.Topic) == "" || strings.TrimSpace(req.Main) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topic and main are required"})
		return
	}

	rec := &database.Post{
		Topic:              req.Topic,
		Main:               req.Main,
		ExtraRequirements:  req.ExtraRequirements,
		Mandatory:          req.Mandatory,
		PageID:             req.PageID,
		ImageURL:           req.ImageURL,
		ImageFileName:      req.ImageFileName,
		ImageURLsJSON:      post.EncodeList(req.ImageURLs),
		ImageFileNamesJSON: post.EncodeList(req.ImageFileNames),
		VideoURL:           req.VideoURL,
		VideoFileName:      req.VideoFileName,
		VideoURLsJSON:      post.EncodeList(req.VideoURLs),
		VideoFileNamesJSON: post.EncodeList(req.VideoFileNames),
	}

	id, err := h.repo.Create(rec)
	if err != nil {
		slog.Error("Database error", "operation", "create_post", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create post"})
		return
	}

	created, err := h.repo.GetByID(id)
	if err != nil || created == nil {
		c.JSON(http.StatusCreated, gin.H{"id": id, "status": database.StatusDraft})
		return
	}

	slog.Info("Post created", "post_id", id)
	c.JSON(http.StatusCreated, toPostResponse(created))
}

func (h *Handler) ApprovePost(c *gin.Context) {
	id, ok := h.postID(c)
	if !ok {
		return
	}

	if err := h.publisher.Approve(id); err != nil {
		h.renderError(c, "approve", id, err)
		return
	}

	slog.Info("Post approved", "post_id", id)
	c.JSON(http.StatusOK, gin.H{"id": id, "status": database.StatusApproved})
}

func (h *Handler) DeletePost(c *gin.Context) {
	id, ok := h.postID(c)
	if !ok {
		return
	}

	if err := h.publisher.Delete(id); err != nil {
		h.renderError(c, "delete", id, err)
		return
	}

	slog.Info("Post deleted", "post_id", id)
	c.JSON(http.StatusOK, gin.H{"id": id, "status": database.StatusFailed, "last_error": database.DeletedByUserError})
}

func (h *Handler) PreviewPost(c *gin.Context) {
	id, ok := h.postID(c)
	if !ok {
		return
	}

	outcome, err := h.publisher.Preview(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, "preview", id, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

func (h *Handler) PublishPost(c *gin.Context) {
	id, ok := h.postID(c)
	if !ok {
		return
	}

	outcome, err := h.publisher.Publish(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, "publish", id, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

func (h *Handler) PublishPostToPages(c *gin.Context) {
	id, ok := h.postID(c)
	if !ok {
		return
	}

	tokens := h.settings.PageTokens()
	if len(tokens) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fan-out pages configured"})
		return
	}

	outcome, err := h.publisher.PublishToPages(c.Request.Context(), id, tokens)
	if err != nil {
		h.renderError(c, "publish_pages", id, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

func (h *Handler) PublishNextApproved(c *gin.Context) {
	outcome, err := h.publisher.PublishNextApproved(c.Request.Context())
	if err != nil {
		h.renderError(c, "publish_next", 0, err)
		return
	}
	if outcome == nil {
		c.JSON(http.StatusOK, gin.H{"published": false, "message": "no approved posts in the queue"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"published": true, "outcome": outcome})
}

// UploadMedia stores an uploaded file under a generated name and returns
// the name to reference from a post's file name fields.
func (h *Handler) UploadMedia(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required", "message": err.Error()})
		return
	}

	suffix, err := gonanoid.New()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate file name"})
		return
	}

	name := suffix + strings.ToLower(filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, filepath.Join(h.uploadsDir, name)); err != nil {
		slog.Error("Upload failed", "file", file.Filename, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
		return
	}

	slog.Info("Media uploaded", "file", name, "size", file.Size)
	c.JSON(http.StatusCreated, gin.H{"file_name": name, "size": file.Size})
}

func (h *Handler) postID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return 0, false
	}
	return id, true
}

// renderError maps lifecycle errors onto HTTP statuses: unknown posts
// are 404, state conflicts are 409, unpublishable content is 422 and
// anything else (platform or storage failure) is 500.
func (h *Handler) renderError(c *gin.Context, op string, id int64, err error) {
	switch {
	case errors.Is(err, post.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
	case errors.Is(err, post.ErrNotApproved), errors.Is(err, post.ErrPostedFinal):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, post.ErrMissingPageID), errors.Is(err, post.ErrNoMedia), errors.Is(err, post.ErrMissingContent):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		slog.Error("Operation failed", "operation", op, "post_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func toPostResponse(p *database.Post) postResponse {
	return postResponse{
		ID:                p.ID,
		Topic:             p.Topic,
		Main:              p.Main,
		ExtraRequirements: p.ExtraRequirements,
		Mandatory:         p.Mandatory,
		PageID:            p.PageID,
		Status:            p.Status,
		ImageURLs:         listOrScalar(p.ImageURLsJSON, p.ImageURL),
		ImageFileNames:    listOrScalar(p.ImageFileNamesJSON, p.ImageFileName),
		VideoURLs:         listOrScalar(p.VideoURLsJSON, p.VideoURL),
		VideoFileNames:    listOrScalar(p.VideoFileNamesJSON, p.VideoFileName),
		SEOKeywords:       post.DecodeList(p.SEOKeywordsJSON),
		AITitle:           p.AITitle,
		AIContent:         p.AIContent,
		Caption:           p.Caption,
		FBPostIDs:         listOrScalar(p.FBPostIDsJSON, p.FBPostID),
		FBPostURL:         p.FBPostURL,
		PostedAt:          p.PostedAt,
		LastError:         p.LastError,
		CreatedAt:         p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         p.UpdatedAt.Format(time.RFC3339),
	}
}

func listOrScalar(listJSON, scalar string) []string {
	if values := post.DecodeList(listJSON); len(values) > 0 {
		return values
	}
	if scalar = strings.TrimSpace(scalar); scalar != "" {
		return []string{scalar}
	}
	return nil
}
