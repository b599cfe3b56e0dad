package facebook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultBaseURL is the Graph API host.
const DefaultBaseURL = "https://graph.facebook.com"

// Per-call timeouts. Video uploads can legitimately take minutes; photo
// and metadata calls should not.
const (
	metaTimeout      = 30 * time.Second
	photoTimeout     = 60 * time.Second
	photoFileTimeout = 120 * time.Second
	videoTimeout     = 300 * time.Second
)

// Client is a thin Facebook Graph API adapter. Every method is a single
// blocking round-trip with its own timeout; failures never mutate any
// local state here.
type Client struct {
	baseURL    string
	version    string
	httpClient *http.Client
}

// NewClient creates a Graph API client. baseURL is normally
// DefaultBaseURL; tests point it at a local server.
func NewClient(baseURL, version string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		version:    version,
		httpClient: &http.Client{},
	}
}

// ResolvePage resolves the page identity behind an access token.
func (c *Client) ResolvePage(ctx context.Context, accessToken string) (Page, error) {
	query := url.Values{}
	query.Set("fields", "id,name")
	query.Set("access_token", accessToken)

	endpoint := fmt.Sprintf("%s/%s/me?%s", c.baseURL, c.version, query.Encode())

	body, err := c.doGet(ctx, "resolve page", endpoint, metaTimeout)
	if err != nil {
		return Page{}, err
	}

	var page Page
	if err := json.Unmarshal(body, &page); err != nil || page.ID == "" {
		return Page{}, &Error{Op: "resolve page", Message: fmt.Sprintf("unexpected response: %s", body)}
	}

	return page, nil
}

// PostPhotoByURL publishes a single photo from a public URL with the
// caption attached.
func (c *Client) PostPhotoByURL(ctx context.Context, pageID, accessToken, imageURL, caption string) (PublishResult, error) {
	form := url.Values{}
	form.Set("url", imageURL)
	form.Set("message", caption)
	form.Set("access_token", accessToken)

	return c.publishForm(ctx, "post photo", c.endpoint(pageID, "photos"), form, photoTimeout)
}

// PostPhotoByFile publishes a single photo from a local file with the
// caption attached.
func (c *Client) PostPhotoByFile(ctx context.Context, pageID, accessToken, filePath, caption string) (PublishResult, error) {
	fields := map[string]string{
		"message":      caption,
		"access_token": accessToken,
	}

	return c.publishFile(ctx, "post photo file", c.endpoint(pageID, "photos"), filePath, fields, photoFileTimeout)
}

// PostVideoByURL publishes a single video from a public URL with the
// caption as its description.
func (c *Client) PostVideoByURL(ctx context.Context, pageID, accessToken, videoURL, caption string) (PublishResult, error) {
	form := url.Values{}
	form.Set("file_url", videoURL)
	form.Set("description", caption)
	form.Set("access_token", accessToken)

	return c.publishForm(ctx, "post video", c.endpoint(pageID, "videos"), form, videoTimeout)
}

// PostVideoByFile publishes a single video from a local file with the
// caption as its description.
func (c *Client) PostVideoByFile(ctx context.Context, pageID, accessToken, filePath, caption string) (PublishResult, error) {
	fields := map[string]string{
		"description":  caption,
		"access_token": accessToken,
	}

	return c.publishFile(ctx, "post video file", c.endpoint(pageID, "videos"), filePath, fields, videoTimeout)
}

// UploadPhotoByURL uploads a photo without publishing it and returns the
// media handle for later attachment.
func (c *Client) UploadPhotoByURL(ctx context.Context, pageID, accessToken, imageURL string) (string, error) {
	form := url.Values{}
	form.Set("url", imageURL)
	form.Set("published", "false")
	form.Set("access_token", accessToken)

	res, err := c.publishForm(ctx, "upload photo", c.endpoint(pageID, "photos"), form, photoTimeout)
	if err != nil {
		return "", err
	}
	if res.ID == "" {
		return "", &Error{Op: "upload photo", Message: "no media handle in response"}
	}

	return res.ID, nil
}

// UploadPhotoByFile uploads a local photo without publishing it and
// returns the media handle for later attachment.
func (c *Client) UploadPhotoByFile(ctx context.Context, pageID, accessToken, filePath string) (string, error) {
	fields := map[string]string{
		"published":    "false",
		"access_token": accessToken,
	}

	res, err := c.publishFile(ctx, "upload photo file", c.endpoint(pageID, "photos"), filePath, fields, photoFileTimeout)
	if err != nil {
		return "", err
	}
	if res.ID == "" {
		return "", &Error{Op: "upload photo file", Message: "no media handle in response"}
	}

	return res.ID, nil
}

// CreateAttachedMediaPost creates one feed post carrying the caption and
// all previously uploaded media handles.
func (c *Client) CreateAttachedMediaPost(ctx context.Context, pageID, accessToken, caption string, handles []string) (PublishResult, error) {
	form := url.Values{}
	form.Set("message", caption)
	form.Set("access_token", accessToken)
	for i, handle := range handles {
		attached, err := json.Marshal(map[string]string{"media_fbid": handle})
		if err != nil {
			return PublishResult{}, &Error{Op: "create feed post", Message: err.Error()}
		}
		form.Set(fmt.Sprintf("attached_media[%d]", i), string(attached))
	}

	return c.publishForm(ctx, "create feed post", c.endpoint(pageID, "feed"), form, photoTimeout)
}

func (c *Client) endpoint(pageID, edge string) string {
	return fmt.Sprintf("%s/%s/%s/%s", c.baseURL, c.version, pageID, edge)
}

func (c *Client) publishForm(ctx context.Context, op, endpoint string, form url.Values, timeout time.Duration) (PublishResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return PublishResult{}, &Error{Op: op, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(op, req)
	if err != nil {
		return PublishResult{}, err
	}

	return parsePublishResult(op, body)
}

func (c *Client) publishFile(ctx context.Context, op, endpoint, filePath string, fields map[string]string, timeout time.Duration) (PublishResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	file, err := os.Open(filePath)
	if err != nil {
		return PublishResult{}, &Error{Op: op, Message: err.Error()}
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("source", filepath.Base(filePath))
	if err != nil {
		return PublishResult{}, &Error{Op: op, Message: err.Error()}
	}
	if _, err := io.Copy(part, file); err != nil {
		return PublishResult{}, &Error{Op: op, Message: err.Error()}
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return PublishResult{}, &Error{Op: op, Message: err.Error()}
		}
	}
	if err := writer.Close(); err != nil {
		return PublishResult{}, &Error{Op: op, Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return PublishResult{}, &Error{Op: op, Message: err.Error()}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	body, err := c.do(op, req)
	if err != nil {
		return PublishResult{}, err
	}

	return parsePublishResult(op, body)
}

func (c *Client) doGet(ctx context.Context, op, endpoint string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &Error{Op: op, Message: err.Error()}
	}

	return c.do(op, req)
}

// do performs the request and maps non-2xx responses and transport
// failures to *Error. The raw Graph error message is preserved for
// diagnostics.
func (c *Client) do(op string, req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: op, Message: err.Error()}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		message := strings.TrimSpace(string(body))
		var graphErr graphErrorBody
		if err := json.Unmarshal(body, &graphErr); err == nil && graphErr.Error.Message != "" {
			message = graphErr.Error.Message
		}
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Message: message}
	}

	return body, nil
}

func parsePublishResult(op string, body []byte) (PublishResult, error) {
	var res PublishResult
	if err := json.Unmarshal(body, &res); err != nil {
		return PublishResult{}, &Error{Op: op, Message: fmt.Sprintf("unexpected response: %s", body)}
	}
	if res.BestID() == "" {
		return PublishResult{}, &Error{Op: op, Message: fmt.Sprintf("no post id in response: %s", body)}
	}
	return res, nil
}
