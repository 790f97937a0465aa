package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/iliyamo/crusade-registration/internal/model"
	"github.com/iliyamo/crusade-registration/internal/repository"
	"github.com/iliyamo/crusade-registration/internal/sanitize"
)

// CategoryPreset pairs a well-known category name with its icon and color.
type CategoryPreset struct {
	Name  string
	Icon  string
	Color string
}

// CategoryPresets are offered to admins when creating categories.
var CategoryPresets = []CategoryPreset{
	{"Healing", "medkit-outline", "#10B981"},
	{"Salvation", "heart-outline", "#EF4444"},
	{"Deliverance", "shield-checkmark-outline", "#8B5CF6"},
	{"Financial", "cash-outline", "#F59E0B"},
	{"Family", "people-outline", "#3B82F6"},
	{"Career", "briefcase-outline", "#6366F1"},
	{"Education", "school-outline", "#14B8A6"},
	{"Marriage", "heart-circle-outline", "#EC4899"},
	{"Protection", "shield-outline", "#64748B"},
	{"Miracle", "star-outline", "#FBBF24"},
	{"Other", "ellipsis-horizontal-outline", "#9CA3AF"},
}

const (
	defaultCategoryIcon  = "star-outline"
	defaultCategoryColor = "#007bff"
)

// NewCategoryInput is an admin's category form.  Preset, when it names one
// of CategoryPresets, overrides Icon and Color.
type NewCategoryInput struct {
	Name        string
	Description string
	Preset      string
	Icon        string
	Color       string
}

var (
	whitespace = regexp.MustCompile(`\s+`)
	nonSlug    = regexp.MustCompile(`[^a-z0-9-]`)
)

// Slugify lowercases name, joins words with '-' and drops anything else
// outside [a-z0-9-].
func Slugify(name string) string {
	s := whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return nonSlug.ReplaceAllString(s, "")
}

// Categories serves the testimony taxonomy.
type Categories struct {
	Store CategoryStore
}

// Active lists the categories shown to users, in display order.
func (s *Categories) Active(ctx context.Context) ([]model.TestimonyCategory, error) {
	return s.Store.ListActive(ctx)
}

// All lists every category for admins.
func (s *Categories) All(ctx context.Context) ([]model.TestimonyCategory, error) {
	return s.Store.ListAll(ctx)
}

// Find resolves a numeric id or a slug.
func (s *Categories) Find(ctx context.Context, ref string) (model.TestimonyCategory, error) {
	c, err := s.Store.Find(ctx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		return model.TestimonyCategory{}, ErrCategoryNotFound
	}
	return c, err
}

// Create adds an active category at the end of the display order.
func (s *Categories) Create(ctx context.Context, in NewCategoryInput) (model.TestimonyCategory, error) {
	name := sanitize.Text(in.Name)
	c := model.TestimonyCategory{
		Name:        name,
		Slug:        Slugify(name),
		Description: sanitize.Text(in.Description),
		Icon:        defaultCategoryIcon,
		Color:       defaultCategoryColor,
		Active:      true,
	}
	preset := false
	for _, p := range CategoryPresets {
		if p.Name == in.Preset {
			c.Icon, c.Color, preset = p.Icon, p.Color, true
			break
		}
	}
	if !preset {
		if in.Icon != "" {
			c.Icon = in.Icon
		}
		if in.Color != "" {
			c.Color = in.Color
		}
	}
	created, err := s.Store.Create(ctx, c)
	if errors.Is(err, repository.ErrDuplicate) {
		return model.TestimonyCategory{}, ErrCategoryExists
	}
	return created, err
}

// Toggle flips a category's active flag.
func (s *Categories) Toggle(ctx context.Context, id uint64) (model.TestimonyCategory, error) {
	c, err := s.Store.Toggle(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.TestimonyCategory{}, ErrCategoryNotFound
	}
	return c, err
}

// Delete removes a category.
func (s *Categories) Delete(ctx context.Context, id uint64) error {
	err := s.Store.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrCategoryNotFound
	}
	return err
}
