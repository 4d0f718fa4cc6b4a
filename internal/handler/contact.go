package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/rolodex/internal/auth"
	"github.com/dukerupert/rolodex/internal/model"
	"github.com/dukerupert/rolodex/internal/store"
)

type ContactHandler struct {
	store  *store.ContactStore
	logger *slog.Logger
}

func NewContactHandler(s *store.ContactStore, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{store: s, logger: logger}
}

func validateContactFields(name, email, phone string) string {
	if name == "" || len(name) > 20 {
		return "Name must be between 1 and 20 characters"
	}
	if !emailRegexp.MatchString(email) {
		return "Email must be a valid email address"
	}
	if !phoneRegexp.MatchString(phone) {
		return "Phone number must be in the format (XXX) XXX-XXXX"
	}
	return ""
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.store.ListByOwner(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list contacts", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	if contacts == nil {
		contacts = []model.Contact{}
	}
	writeJSON(w, http.StatusOK, contacts)
}

func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid ID format")
		return
	}

	contact, err := h.store.GetByID(auth.UserID(r.Context()), id)
	if err != nil {
		h.logger.Error("get contact", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	// A contact owned by another account looks exactly like a missing
	// one; existence of other users' records is never revealed.
	if contact == nil {
		writeMessage(w, http.StatusNotFound, "Not found")
		return
	}

	writeJSON(w, http.StatusOK, contact)
}

func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Favorite bool   `json:"favorite"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if msg := validateContactFields(req.Name, req.Email, req.Phone); msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}

	// Owner comes from the authenticated identity, never from the body.
	contact, err := h.store.Create(auth.UserID(r.Context()), req.Name, req.Email, req.Phone, req.Favorite)
	if err != nil {
		h.logger.Error("create contact", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusCreated, contact)
}

func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid ID format")
		return
	}

	var req struct {
		Name     *string `json:"name"`
		Email    *string `json:"email"`
		Phone    *string `json:"phone"`
		Favorite *bool   `json:"favorite"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name == nil && req.Email == nil && req.Phone == nil && req.Favorite == nil {
		writeMessage(w, http.StatusBadRequest, "Body must have at least one field")
		return
	}

	ownerID := auth.UserID(r.Context())
	existing, err := h.store.GetByID(ownerID, id)
	if err != nil {
		h.logger.Error("get contact", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	if existing == nil {
		writeMessage(w, http.StatusNotFound, "Not found")
		return
	}

	name, email, phone, favorite := existing.Name, existing.Email, existing.Phone, existing.Favorite
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		email = *req.Email
	}
	if req.Phone != nil {
		phone = *req.Phone
	}
	if req.Favorite != nil {
		favorite = *req.Favorite
	}

	if msg := validateContactFields(name, email, phone); msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}

	contact, err := h.store.Update(ownerID, id, name, email, phone, favorite)
	if err != nil {
		h.logger.Error("update contact", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	if contact == nil {
		writeMessage(w, http.StatusNotFound, "Not found")
		return
	}

	writeJSON(w, http.StatusOK, contact)
}

func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid ID format")
		return
	}

	contact, err := h.store.Delete(auth.UserID(r.Context()), id)
	if err != nil {
		h.logger.Error("delete contact", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	if contact == nil {
		writeMessage(w, http.StatusNotFound, "Not found")
		return
	}

	writeJSON(w, http.StatusOK, contact)
}

func (h *ContactHandler) UpdateFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid ID format")
		return
	}

	var req struct {
		Favorite *bool `json:"favorite"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Favorite == nil {
		writeMessage(w, http.StatusBadRequest, "Favorite is required")
		return
	}

	contact, err := h.store.UpdateFavorite(auth.UserID(r.Context()), id, *req.Favorite)
	if err != nil {
		h.logger.Error("update favorite", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	if contact == nil {
		writeMessage(w, http.StatusNotFound, "Not found")
		return
	}

	writeJSON(w, http.StatusOK, contact)
}
