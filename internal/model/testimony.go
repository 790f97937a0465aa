package model

import "time"

// TestimonyStatus is controlled by admins; authors only ever create
// pending testimonies.
type TestimonyStatus string

const (
	TestimonyPending  TestimonyStatus = "pending"
	TestimonyApproved TestimonyStatus = "approved"
	TestimonyRejected TestimonyStatus = "rejected"
)

// Testimony mirrors a row in `testimonies`.  Likes are kept in
// testimony_likes and loaded separately as a count.
type Testimony struct {
	ID         uint64
	UserID     uint64
	Title      string
	Text       string
	EventID    *uint64
	CategoryID *uint64
	Image      string
	Status     TestimonyStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Editable reports whether the author may still change the testimony.
func (t Testimony) Editable() bool { return t.Status != TestimonyApproved }

// VisibleTo reports whether viewer (0 for anonymous) may read t.
func (t Testimony) VisibleTo(viewer uint64) bool {
	return t.Status == TestimonyApproved || (viewer != 0 && t.UserID == viewer)
}

// TestimonyView is the client representation.  The body is exposed as
// "content"; the enrichment fields are filled by the service.
type TestimonyView struct {
	ID           uint64             `json:"id"`
	UserID       uint64             `json:"user_id"`
	Title        string             `json:"title"`
	Content      string             `json:"content"`
	EventID      *uint64            `json:"event_id,omitempty"`
	CategoryID   *uint64            `json:"category_id,omitempty"`
	Image        string             `json:"image,omitempty"`
	Status       TestimonyStatus    `json:"status"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	UserName     string             `json:"user_name,omitempty"`
	EventTitle   string             `json:"event_title,omitempty"`
	Category     *TestimonyCategory `json:"category"`
	LikesCount   int                `json:"likes_count"`
	UserHasLiked bool               `json:"user_has_liked"`
}

// View projects t onto its client representation without enrichment.
func (t Testimony) View() TestimonyView {
	return TestimonyView{
		ID:         t.ID,
		UserID:     t.UserID,
		Title:      t.Title,
		Content:    t.Text,
		EventID:    t.EventID,
		CategoryID: t.CategoryID,
		Image:      t.Image,
		Status:     t.Status,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

// TestimonyFilter selects testimonies for a listing.
type TestimonyFilter struct {
	Viewer       uint64 // 0 when anonymous
	Mine         bool
	EventID      *uint64
	CategoryID   *uint64
	CategorySlug string
	Moderation   bool            // admin listing: every status is visible
	Status       TestimonyStatus // with Moderation, restrict to one status
	Page         int
	Limit        int
}

// TestimonyInput carries create/update fields.  On update a nil pointer
// leaves the field unchanged.
type TestimonyInput struct {
	Title      *string
	Text       *string
	EventID    **uint64
	CategoryID **uint64
	Image      *string
}

// TestimonyCategory is the admin-managed taxonomy for testimonies.
type TestimonyCategory struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon"`
	Color       string    `json:"color"`
	Order       int       `json:"order"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
