package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const postColumns = `id, topic, main, extra_requirements, mandatory,
	image_url, image_file_name, image_urls_json, image_file_names_json,
	video_url, video_file_name, video_urls_json, video_file_names_json,
	page_id, status, seo_keywords_json, ai_title, ai_content, caption,
	fb_post_id, fb_post_url, fb_post_ids_json, fb_post_urls_json,
	posted_at, last_error, created_at, updated_at`

type postRepository struct {
	db *DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(post *Post) (int64, error) {
	ts := nowISO()

	res, err := r.db.Exec(`
		INSERT INTO posts (
			topic, main, extra_requirements, mandatory,
			image_url, image_file_name, image_urls_json, image_file_names_json,
			video_url, video_file_name, video_urls_json, video_file_names_json,
			page_id, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		strings.TrimSpace(post.Topic),
		strings.TrimSpace(post.Main),
		strings.TrimSpace(post.ExtraRequirements),
		strings.TrimSpace(post.Mandatory),
		strings.TrimSpace(post.ImageURL),
		strings.TrimSpace(post.ImageFileName),
		defaultList(post.ImageURLsJSON),
		defaultList(post.ImageFileNamesJSON),
		strings.TrimSpace(post.VideoURL),
		strings.TrimSpace(post.VideoFileName),
		defaultList(post.VideoURLsJSON),
		defaultList(post.VideoFileNamesJSON),
		strings.TrimSpace(post.PageID),
		defaultStatus(post.Status),
		ts, ts,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted post id: %w", err)
	}

	return id, nil
}

func (r *postRepository) GetByID(id int64) (*Post, error) {
	row := r.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE id = ?`, id)

	post, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return post, nil
}

func (r *postRepository) List(status string, limit int) ([]Post, error) {
	if limit <= 0 {
		limit = 200
	}

	var (
		rows *sql.Rows
		err  error
	)
	if status != "" {
		rows, err = r.db.Query(`SELECT `+postColumns+` FROM posts WHERE status = ? ORDER BY id DESC LIMIT ?`, status, limit)
	} else {
		rows, err = r.db.Query(`SELECT `+postColumns+` FROM posts ORDER BY id DESC LIMIT ?`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, *post)
	}

	return posts, rows.Err()
}

func (r *postRepository) SetStatus(id int64, status string, lastError string) error {
	_, err := r.db.Exec(`
		UPDATE posts SET status = ?, last_error = ?, updated_at = ? WHERE id = ?
	`, status, lastError, nowISO(), id)
	if err != nil {
		return fmt.Errorf("failed to set post status: %w", err)
	}
	return nil
}

func (r *postRepository) SavePreview(id int64, seoKeywordsJSON, aiTitle, aiContent, caption string) error {
	_, err := r.db.Exec(`
		UPDATE posts
		SET seo_keywords_json = ?, ai_title = ?, ai_content = ?, caption = ?,
		    last_error = '', updated_at = ?
		WHERE id = ?
	`, defaultList(seoKeywordsJSON), aiTitle, aiContent, caption, nowISO(), id)
	if err != nil {
		return fmt.Errorf("failed to save preview: %w", err)
	}
	return nil
}

func (r *postRepository) MarkPosted(id int64, outcome PostedOutcome) error {
	_, err := r.db.Exec(`
		UPDATE posts
		SET status = ?, page_id = ?,
		    fb_post_id = ?, fb_post_url = ?,
		    fb_post_ids_json = ?, fb_post_urls_json = ?,
		    posted_at = ?, last_error = '', updated_at = ?
		WHERE id = ?
	`, StatusPosted, outcome.PageID,
		outcome.FBPostID, outcome.FBPostURL,
		defaultList(outcome.FBPostIDsJSON), defaultList(outcome.FBPostURLsJSON),
		outcome.PostedAt, nowISO(), id)
	if err != nil {
		return fmt.Errorf("failed to mark post as posted: %w", err)
	}
	return nil
}

func (r *postRepository) NextApproved() (*Post, error) {
	posts, err := r.List(StatusApproved, 1)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, nil
	}
	return &posts[0], nil
}

func (r *postRepository) GetStatusCounts() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM posts GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*Post, error) {
	var p Post
	var createdAt, updatedAt string

	err := row.Scan(
		&p.ID, &p.Topic, &p.Main, &p.ExtraRequirements, &p.Mandatory,
		&p.ImageURL, &p.ImageFileName, &p.ImageURLsJSON, &p.ImageFileNamesJSON,
		&p.VideoURL, &p.VideoFileName, &p.VideoURLsJSON, &p.VideoFileNamesJSON,
		&p.PageID, &p.Status, &p.SEOKeywordsJSON, &p.AITitle, &p.AIContent, &p.Caption,
		&p.FBPostID, &p.FBPostURL, &p.FBPostIDsJSON, &p.FBPostURLsJSON,
		&p.PostedAt, &p.LastError, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.CreatedAt = parseISO(createdAt)
	p.UpdatedAt = parseISO(updatedAt)

	return &p, nil
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseISO(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func defaultList(s string) string {
	if strings.TrimSpace(s) == "" {
		return "[]"
	}
	return strings.TrimSpace(s)
}

func defaultStatus(s string) string {
	if strings.TrimSpace(s) == "" {
		return StatusDraft
	}
	return strings.TrimSpace(s)
}
