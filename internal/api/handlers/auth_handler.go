package handlers

import (
	"net/http"

	"college-records/internal/domain/user"

	"github.com/gin-gonic/gin"
)

// AuthHandler issues tokens and provisions accounts
type AuthHandler struct {
	credentials user.CredentialService
}

func NewAuthHandler(credentials user.CredentialService) *AuthHandler {
	return &AuthHandler{credentials: credentials}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req user.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	token, err := h.credentials.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Login successful", token)
}

// CreateUser handles POST /admin/users
func (h *AuthHandler) CreateUser(c *gin.Context) {
	create(c, h.credentials.CreateUser, "User created successfully")
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	respond(c, http.StatusOK, "", principal(c))
}
