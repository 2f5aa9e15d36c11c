package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type addFavoriteRequest struct {
	Category string    `json:"category" validate:"required,notblank,max=100"`
	Emoji    string    `json:"emoji" validate:"required,notblank,max=16"`
	Type     core.Kind `json:"type" validate:"required,oneof=EXPENSE INCOME"`
	Order    *int      `json:"order" validate:"omitempty,min=0"`
}

type updateFavoriteRequest struct {
	Emoji *string `json:"emoji" validate:"omitempty,notblank,max=16"`
	Order *int    `json:"order" validate:"omitempty,min=0"`
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	kind, err := QueryKind(r)
	if err != nil {
		respondError(w, r, "list_favorites", err)
		return
	}
	favorites, err := s.svc.Categories.ListFavorites(r.Context(), callerID(r), kind)
	if err != nil {
		respondError(w, r, "list_favorites", err)
		return
	}
	if favorites == nil {
		favorites = []core.FavoriteCategory{}
	}
	NewResponse().Data(favorites).Write(w)
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	var req addFavoriteRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		respondError(w, r, "add_favorite", err)
		return
	}

	fav, err := s.svc.Categories.AddFavorite(r.Context(), callerID(r), services.AddFavoriteInput{
		Category: sanitizeInput(req.Category),
		Emoji:    sanitizeInput(req.Emoji),
		Kind:     req.Type,
		Order:    req.Order,
	})
	if err != nil {
		respondError(w, r, "add_favorite", err)
		return
	}
	NewResponse().Status(http.StatusCreated).Data(fav).Write(w)
}

func (s *Server) handleUpdateFavorite(w http.ResponseWriter, r *http.Request) {
	var req updateFavoriteRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		respondError(w, r, "update_favorite", err)
		return
	}

	fav, err := s.svc.Categories.UpdateFavorite(r.Context(), callerID(r), r.PathValue("id"), services.UpdateFavoriteInput{
		Emoji: sanitizePtr(req.Emoji),
		Order: req.Order,
	})
	if err != nil {
		respondError(w, r, "update_favorite", err)
		return
	}
	NewResponse().Data(fav).Write(w)
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Categories.RemoveFavorite(r.Context(), callerID(r), r.PathValue("id")); err != nil {
		respondError(w, r, "remove_favorite", err)
		return
	}
	NewResponse().Message("Favorite category removed").Write(w)
}

func (s *Server) handleAllCategories(w http.ResponseWriter, r *http.Request) {
	kind, err := QueryKind(r)
	if err != nil {
		respondError(w, r, "all_categories", err)
		return
	}
	usage, err := s.svc.Categories.AllCategories(r.Context(), callerID(r), kind)
	if err != nil {
		respondError(w, r, "all_categories", err)
		return
	}
	if usage == nil {
		usage = []core.CategoryUsage{}
	}
	NewResponse().Data(usage).Write(w)
}
