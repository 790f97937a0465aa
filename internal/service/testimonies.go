package service

import (
	"context"
	"errors"

	"github.com/iliyamo/crusade-registration/internal/model"
	"github.com/iliyamo/crusade-registration/internal/repository"
	"github.com/iliyamo/crusade-registration/internal/sanitize"
)

// DefaultTestimonyLimit is the page size of testimony listings.
const DefaultTestimonyLimit = 20

// Testimonies runs the submission, moderation and like workflows.
type Testimonies struct {
	Store      TestimonyStore
	Categories CategoryStore
	Feed       FeedSource // optional, titles events that are not stored locally
	Notifier   *Notifier
}

// TestimonyPage is one page of enriched testimonies.
type TestimonyPage struct {
	Testimonies []model.TestimonyView
	Pagination  model.Pagination
}

// Like is the outcome of a like toggle.
type Like struct {
	Liked bool `json:"user_has_liked"`
	Count int  `json:"likes_count"`
}

// List pages through the testimonies f selects.
func (s *Testimonies) List(ctx context.Context, f model.TestimonyFilter) (TestimonyPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultTestimonyLimit
	}
	if f.CategoryID != nil {
		f.CategorySlug = ""
	}
	rows, total, err := s.Store.List(ctx, f)
	if err != nil {
		return TestimonyPage{}, err
	}
	views, err := s.enrich(ctx, rows)
	if err != nil {
		return TestimonyPage{}, err
	}
	return TestimonyPage{Testimonies: views, Pagination: model.NewPagination(total, f.Page, f.Limit)}, nil
}

// Get returns one testimony.  Unapproved testimonies are only visible to
// their author.
func (s *Testimonies) Get(ctx context.Context, id, viewer uint64) (model.TestimonyView, error) {
	row, err := s.load(ctx, id, viewer)
	if err != nil {
		return model.TestimonyView{}, err
	}
	if !row.VisibleTo(viewer) {
		return model.TestimonyView{}, ErrTestimonyNotFound
	}
	views, err := s.enrich(ctx, []repository.TestimonyRow{row})
	if err != nil {
		return model.TestimonyView{}, err
	}
	return views[0], nil
}

func (s *Testimonies) load(ctx context.Context, id, viewer uint64) (repository.TestimonyRow, error) {
	row, err := s.Store.Get(ctx, id, viewer)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.TestimonyRow{}, ErrTestimonyNotFound
	}
	return row, err
}

// Create stores a pending testimony written by authorID.
func (s *Testimonies) Create(ctx context.Context, authorID uint64, in model.TestimonyInput) (model.TestimonyView, error) {
	t := model.Testimony{UserID: authorID, Status: model.TestimonyPending}
	apply(&t, in)
	id, err := s.Store.Create(ctx, t)
	if err != nil {
		return model.TestimonyView{}, err
	}
	return s.Get(ctx, id, authorID)
}

// Update changes the author's own, not yet approved, testimony.
func (s *Testimonies) Update(ctx context.Context, actorID, id uint64, in model.TestimonyInput) (model.TestimonyView, error) {
	row, err := s.load(ctx, id, actorID)
	if err != nil {
		return model.TestimonyView{}, err
	}
	if row.UserID != actorID {
		return model.TestimonyView{}, ErrNotTestimonyAuthor
	}
	if !row.Editable() {
		return model.TestimonyView{}, ErrTestimonyApproved
	}
	t := row.Testimony
	apply(&t, in)
	if err := s.Store.Update(ctx, t); err != nil {
		return model.TestimonyView{}, err
	}
	return s.Get(ctx, id, actorID)
}

// apply copies the set fields of in onto t, sanitizing free text.
func apply(t *model.Testimony, in model.TestimonyInput) {
	if in.Title != nil {
		t.Title = sanitize.Text(*in.Title)
	}
	if in.Text != nil {
		t.Text = sanitize.HTML(*in.Text)
	}
	if in.EventID != nil {
		t.EventID = *in.EventID
	}
	if in.CategoryID != nil {
		t.CategoryID = *in.CategoryID
	}
	if in.Image != nil {
		t.Image = *in.Image
	}
}

// Delete removes the author's own testimony.
func (s *Testimonies) Delete(ctx context.Context, actorID, id uint64) error {
	row, err := s.load(ctx, id, actorID)
	if err != nil {
		return err
	}
	if row.UserID != actorID {
		return ErrNotTestimonyAuthor
	}
	return s.Store.Delete(ctx, id)
}

// ToggleLike flips userID's like on testimony id.
func (s *Testimonies) ToggleLike(ctx context.Context, userID, id uint64) (Like, error) {
	if _, err := s.load(ctx, id, userID); err != nil {
		return Like{}, err
	}
	liked, n, err := s.Store.ToggleLike(ctx, id, userID)
	if err != nil {
		return Like{}, err
	}
	return Like{Liked: liked, Count: n}, nil
}

// Moderate sets the status of any testimony.  Approval notifies the author.
func (s *Testimonies) Moderate(ctx context.Context, id uint64, status model.TestimonyStatus) error {
	row, err := s.load(ctx, id, 0)
	if err != nil {
		return err
	}
	if err := s.Store.SetStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTestimonyNotFound
		}
		return err
	}
	if status == model.TestimonyApproved && row.Status != model.TestimonyApproved && s.Notifier != nil {
		s.Notifier.Notify(ctx, model.ToUser(row.UserID), model.NotifyTestimony,
			"Testimony Approved",
			"Your testimony \""+row.Title+"\" has been approved and is now public.",
			map[string]any{"testimony_id": row.ID})
	}
	return nil
}

// Remove deletes any testimony.
func (s *Testimonies) Remove(ctx context.Context, id uint64) error {
	err := s.Store.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTestimonyNotFound
	}
	return err
}

// enrich attaches categories in one query and titles feed events the
// event join could not.
func (s *Testimonies) enrich(ctx context.Context, rows []repository.TestimonyRow) ([]model.TestimonyView, error) {
	ids := make([]uint64, 0, len(rows))
	for _, r := range rows {
		if r.CategoryID != nil {
			ids = append(ids, *r.CategoryID)
		}
	}
	cats := map[uint64]model.TestimonyCategory{}
	if len(ids) > 0 && s.Categories != nil {
		var err error
		if cats, err = s.Categories.GetMany(ctx, ids); err != nil {
			return nil, err
		}
	}

	views := make([]model.TestimonyView, len(rows))
	for i, r := range rows {
		v := r.View()
		v.UserName = r.UserName
		v.EventTitle = r.EventTitle
		v.LikesCount = r.Likes
		v.UserHasLiked = r.Liked
		if r.CategoryID != nil {
			if c, ok := cats[*r.CategoryID]; ok {
				v.Category = &c
			}
		}
		if v.EventTitle == "" && r.EventID != nil && s.Feed != nil {
			if ev, ok := s.Feed.Find(ctx, *r.EventID); ok {
				v.EventTitle = ev.Title
			}
		}
		views[i] = v
	}
	return views, nil
}
