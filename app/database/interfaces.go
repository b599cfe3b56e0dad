package database

// PostRepository handles persistence of Post records.
type PostRepository interface {
	Create(post *Post) (int64, error)
	GetByID(id int64) (*Post, error)
	List(status string, limit int) ([]Post, error)

	// SetStatus updates status and last_error in one statement. It is
	// used for approval (APPROVED, ""), publish failures and delete.
	SetStatus(id int64, status string, lastError string) error

	// SavePreview stores a freshly generated caption. Previous generated
	// content is overwritten wholesale, no history is kept.
	SavePreview(id int64, seoKeywordsJSON, aiTitle, aiContent, caption string) error

	// MarkPosted records a successful publish and moves the post to
	// POSTED, clearing last_error.
	MarkPosted(id int64, outcome PostedOutcome) error

	// NextApproved returns the most recently created APPROVED post, or
	// (nil, nil) when the approved queue is empty.
	NextApproved() (*Post, error)

	GetStatusCounts() (map[string]int, error)
}
