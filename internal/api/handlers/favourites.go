package handlers

import (
	"net/http"
	"strings"
)

type FavouritesHandler struct {
	favourites FavouritesProvider
}

func NewFavouritesHandler(favourites FavouritesProvider) *FavouritesHandler {
	return &FavouritesHandler{favourites: favourites}
}

// List returns a user's favourite numbers and the carparks they resolve to
func (h *FavouritesHandler) List(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	numbers, err := h.favourites.List(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	carparks, err := h.favourites.Carparks(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"user":       strings.ToLower(user),
		"favourites": numbers,
		"carparks":   carparks,
	})
}

func (h *FavouritesHandler) Add(w http.ResponseWriter, r *http.Request) {
	if err := h.favourites.Add(r.Context(), r.PathValue("user"), r.PathValue("number")); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeState(w, r, true)
}

func (h *FavouritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.favourites.Remove(r.Context(), r.PathValue("user"), r.PathValue("number")); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeState(w, r, false)
}

func (h *FavouritesHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	favourite, err := h.favourites.Toggle(r.Context(), r.PathValue("user"), r.PathValue("number"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeState(w, r, favourite)
}

func (h *FavouritesHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.favourites.Clear(r.Context(), r.PathValue("user")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"favourites": []string{},
	})
}

func (h *FavouritesHandler) writeState(w http.ResponseWriter, r *http.Request, favourite bool) {
	numbers, err := h.favourites.List(r.Context(), r.PathValue("user"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"carpark":    strings.ToUpper(strings.TrimSpace(r.PathValue("number"))),
		"favourite":  favourite,
		"favourites": numbers,
	})
}
