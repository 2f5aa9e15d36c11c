package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/clock"
	"fintrack/internal/core"

	"github.com/google/uuid"
)

var favoriteLimitMessage = fmt.Sprintf(
	"You have reached the maximum limit of %d categories. Please delete some categories to add new ones.",
	core.MaxFavoritesPerKind)

type AddFavoriteInput struct {
	Category string
	Emoji    string
	Kind     core.Kind
	// Order is appended after the current maximum when nil.
	Order *int
}

type UpdateFavoriteInput struct {
	Emoji *string
	Order *int
}

// CategoryService manages favorite categories and category usage.
type CategoryService struct {
	favorites    FavoriteStore
	transactions TransactionStore
	clock        clock.Clock
	newID        func() string
}

func NewCategoryService(favorites FavoriteStore, transactions TransactionStore, clk clock.Clock) *CategoryService {
	if clk == nil {
		clk = clock.System{}
	}
	return &CategoryService{
		favorites:    favorites,
		transactions: transactions,
		clock:        clk,
		newID:        uuid.NewString,
	}
}

// ListFavorites returns the owner's favorites of kind, or of both kinds when
// kind is empty.
func (s *CategoryService) ListFavorites(ctx context.Context, ownerID string, kind core.Kind) ([]core.FavoriteCategory, error) {
	if kind != "" && !kind.Valid() {
		return nil, &core.ValidationError{Field: "type", Err: core.ErrInvalidKind}
	}
	out, err := s.favorites.ListFavorites(ctx, ownerID, kind)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return out, nil
}

// AddFavorite pins a category for quick entry.
func (s *CategoryService) AddFavorite(ctx context.Context, ownerID string, in AddFavoriteInput) (core.FavoriteCategory, error) {
	fav := core.FavoriteCategory{
		ID:        s.newID(),
		OwnerID:   ownerID,
		Category:  strings.TrimSpace(in.Category),
		Emoji:     strings.TrimSpace(in.Emoji),
		Kind:      in.Kind,
		CreatedAt: s.clock.Now(),
	}
	if in.Order != nil {
		fav.Order = *in.Order
	}
	if err := fav.Validate(); err != nil {
		return core.FavoriteCategory{}, err
	}
	if fav.Emoji == "" {
		return core.FavoriteCategory{}, core.NewValidationError("emoji", "emoji is required")
	}

	count, err := s.favorites.CountFavorites(ctx, ownerID, fav.Kind)
	if err != nil {
		return core.FavoriteCategory{}, fmt.Errorf("count favorites: %w", err)
	}
	if count >= core.MaxFavoritesPerKind {
		return core.FavoriteCategory{}, core.NewError(core.ErrConflict, favoriteLimitMessage)
	}

	_, err = s.favorites.FindFavorite(ctx, ownerID, fav.Category, fav.Kind)
	switch {
	case err == nil:
		return core.FavoriteCategory{}, core.NewError(core.ErrConflict, "This category is already in your favorites")
	case !errors.Is(err, core.ErrNotFound):
		return core.FavoriteCategory{}, fmt.Errorf("find favorite: %w", err)
	}

	if in.Order == nil {
		top, ok, err := s.favorites.MaxFavoriteOrder(ctx, ownerID, fav.Kind)
		if err != nil {
			return core.FavoriteCategory{}, fmt.Errorf("max favorite order: %w", err)
		}
		if ok {
			fav.Order = top + 1
		}
	}

	if err := s.favorites.CreateFavorite(ctx, fav); err != nil {
		if errors.Is(err, core.ErrConflict) {
			return core.FavoriteCategory{}, core.NewError(core.ErrConflict, "This category is already in your favorites")
		}
		return core.FavoriteCategory{}, fmt.Errorf("create favorite: %w", err)
	}

	slog.InfoContext(ctx, "Favorite category added",
		"favorite_id", fav.ID,
		"owner_id", ownerID,
		"category", fav.Category,
		"type", fav.Kind,
		"order", fav.Order)

	return fav, nil
}

// UpdateFavorite changes the emoji or position of a favorite.
func (s *CategoryService) UpdateFavorite(ctx context.Context, ownerID, id string, in UpdateFavoriteInput) (core.FavoriteCategory, error) {
	fav, err := s.ownedFavorite(ctx, ownerID, id, "Not authorized to update this favorite")
	if err != nil {
		return core.FavoriteCategory{}, err
	}
	if in.Emoji != nil {
		fav.Emoji = strings.TrimSpace(*in.Emoji)
		if fav.Emoji == "" {
			return core.FavoriteCategory{}, core.NewValidationError("emoji", "emoji is required")
		}
	}
	if in.Order != nil {
		fav.Order = *in.Order
	}
	if err := fav.Validate(); err != nil {
		return core.FavoriteCategory{}, err
	}
	if err := s.favorites.UpdateFavorite(ctx, fav); err != nil {
		return core.FavoriteCategory{}, fmt.Errorf("update favorite: %w", err)
	}
	return fav, nil
}

// RemoveFavorite unpins a category.
func (s *CategoryService) RemoveFavorite(ctx context.Context, ownerID, id string) error {
	if _, err := s.ownedFavorite(ctx, ownerID, id, "Not authorized to delete this favorite"); err != nil {
		return err
	}
	if err := s.favorites.DeleteFavorite(ctx, id); err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	slog.InfoContext(ctx, "Favorite category removed", "favorite_id", id, "owner_id", ownerID)
	return nil
}

func (s *CategoryService) ownedFavorite(ctx context.Context, ownerID, id, forbidden string) (core.FavoriteCategory, error) {
	fav, err := s.favorites.GetFavorite(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.FavoriteCategory{}, core.NewError(core.ErrNotFound, "Favorite category not found")
	}
	if err != nil {
		return core.FavoriteCategory{}, fmt.Errorf("get favorite: %w", err)
	}
	if fav.OwnerID != ownerID {
		return core.FavoriteCategory{}, core.NewError(core.ErrForbidden, forbidden)
	}
	return fav, nil
}

// AllCategories lists every category the owner has used, most used first.
func (s *CategoryService) AllCategories(ctx context.Context, ownerID string, kind core.Kind) ([]core.CategoryUsage, error) {
	if kind != "" && !kind.Valid() {
		return nil, &core.ValidationError{Field: "type", Err: core.ErrInvalidKind}
	}
	out, err := s.transactions.CategoryUsage(ctx, ownerID, kind)
	if err != nil {
		return nil, fmt.Errorf("category usage: %w", err)
	}
	return out, nil
}
