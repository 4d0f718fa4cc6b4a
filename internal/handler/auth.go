package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/rolodex/internal/auth"
	"github.com/dukerupert/rolodex/internal/avatar"
	"github.com/dukerupert/rolodex/internal/model"
	"github.com/dukerupert/rolodex/internal/password"
	"github.com/dukerupert/rolodex/internal/store"
	"github.com/dukerupert/rolodex/internal/token"
)

const maxAvatarBytes = 5 << 20

// VerificationMailer delivers verification links. Failures are logged,
// never surfaced to the registering user.
type VerificationMailer interface {
	SendVerification(toEmail, token string) error
}

type AuthHandler struct {
	users      *store.UserStore
	tokens     *token.Service
	mailer     VerificationMailer
	avatars    *avatar.Processor
	uploadsDir string
	logger     *slog.Logger
}

func NewAuthHandler(
	us *store.UserStore,
	ts *token.Service,
	mailer VerificationMailer,
	avatars *avatar.Processor,
	uploadsDir string,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		users:      us,
		tokens:     ts,
		mailer:     mailer,
		avatars:    avatars,
		uploadsDir: uploadsDir,
		logger:     logger,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req *credentialsRequest) validate() string {
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return "Email and password are required"
	}
	if !emailRegexp.MatchString(req.Email) {
		return "Email must be a valid email address"
	}
	if len(req.Password) < 6 {
		return "Password must be at least 6 characters"
	}
	return ""
}

// sessionUser is the projection returned by login and current. It
// deliberately omits the avatar URL to match the documented contract.
type sessionUser struct {
	Email        string `json:"email"`
	Subscription string `json:"subscription"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}

	existing, err := h.users.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("register lookup", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	if existing != nil {
		writeMessage(w, http.StatusConflict, "Email in use")
		return
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	verificationToken := uuid.NewString()
	user, err := h.users.Create(req.Email, hash, avatar.GravatarURL(req.Email), verificationToken)
	if err != nil {
		// Concurrent registration can slip past the pre-check and hit
		// the unique index instead.
		if strings.Contains(err.Error(), "UNIQUE") {
			writeMessage(w, http.StatusConflict, "Email in use")
			return
		}
		h.logger.Error("create user", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	// Registration succeeds even when the email cannot be delivered;
	// the resend endpoint is the recovery path.
	if err := h.mailer.SendVerification(user.Email, verificationToken); err != nil {
		h.logger.Error("send verification email", "email", user.Email, "error", err)
	}

	writeJSON(w, http.StatusCreated, map[string]model.PublicUser{"user": user.Public()})
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	verificationToken := r.PathValue("token")

	user, err := h.users.GetByVerificationToken(verificationToken)
	if err != nil {
		h.logger.Error("verification token lookup", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	if user == nil {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	if user.Verified {
		writeMessage(w, http.StatusBadRequest, "Verification has already been passed")
		return
	}

	if err := h.users.MarkVerified(user.ID); err != nil {
		h.logger.Error("mark verified", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeMessage(w, http.StatusOK, "Verification successful")
}

func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		writeMessage(w, http.StatusBadRequest, "Missing required field email")
		return
	}

	user, err := h.users.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("resend lookup", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	if user == nil {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	if user.Verified || user.VerificationToken == nil {
		writeMessage(w, http.StatusBadRequest, "Verification has already been passed")
		return
	}

	if err := h.mailer.SendVerification(user.Email, *user.VerificationToken); err != nil {
		h.logger.Error("resend verification email", "email", user.Email, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to send email")
		return
	}

	writeMessage(w, http.StatusOK, "Verification email sent")
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}

	user, err := h.users.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	// A missing account and a wrong password produce the same response
	// so callers cannot probe which emails are registered.
	if user == nil || !password.Verify(req.Password, user.PasswordHash) {
		writeMessage(w, http.StatusUnauthorized, "Email or password is wrong")
		return
	}
	if !user.Verified {
		writeMessage(w, http.StatusUnauthorized, "Email is not verified")
		return
	}

	sessionToken, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("issue token", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	// Overwriting the stored token revokes any session issued earlier.
	if err := h.users.SetToken(user.ID, sessionToken); err != nil {
		h.logger.Error("store token", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": sessionToken,
		"user":  sessionUser{Email: user.Email, Subscription: user.Subscription},
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	if err := h.users.ClearToken(user.ID); err != nil {
		h.logger.Error("clear token", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Current(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	writeJSON(w, http.StatusOK, sessionUser{Email: user.Email, Subscription: user.Subscription})
}

func (h *AuthHandler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	var req struct {
		Subscription string `json:"subscription"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !model.ValidSubscription(req.Subscription) {
		writeMessage(w, http.StatusBadRequest, "Subscription must be one of: starter, pro, business")
		return
	}

	updated, err := h.users.UpdateSubscription(user.ID, req.Subscription)
	if err != nil {
		h.logger.Error("update subscription", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	if updated == nil {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, sessionUser{Email: updated.Email, Subscription: updated.Subscription})
}

func (h *AuthHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		writeMessage(w, http.StatusBadRequest, "File not provided")
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "File not provided")
		return
	}
	defer file.Close()

	tempPath, err := h.saveUpload(file)
	if err != nil {
		h.logger.Error("save upload", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	avatarURL, err := h.avatars.Process(tempPath, user.ID, header.Filename)
	if err != nil {
		os.Remove(tempPath)
		h.logger.Error("process avatar", "error", err)
		writeMessage(w, http.StatusBadRequest, "Unsupported image file")
		return
	}

	if err := h.users.UpdateAvatarURL(user.ID, avatarURL); err != nil {
		h.logger.Error("update avatar url", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"avatarURL": avatarURL})
}

func (h *AuthHandler) saveUpload(file io.Reader) (string, error) {
	if err := os.MkdirAll(h.uploadsDir, 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(h.uploadsDir, "avatar-*")
	if err != nil {
		return "", err
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, file); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return filepath.Join(h.uploadsDir, filepath.Base(tmp.Name())), nil
}
