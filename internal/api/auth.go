package api

import (
	"net/http"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// register creates a password account
func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  apperr.ValidationFailed,
			"error": "full name, email and password are required",
		})
		return
	}

	user, err := h.identity.Register(c.Request.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "user": user})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// login authenticates an email/password pair
func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  apperr.ValidationFailed,
			"error": "email and password are required",
		})
		return
	}

	user, err := h.identity.ResolveByPassword(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

type googleLoginRequest struct {
	Token string `json:"token" binding:"required"`
}

// googleLogin verifies the ID token externally, then resolves or creates
// the account from the verified assertion
func (h *Handler) googleLogin(c *gin.Context) {
	var req googleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  apperr.ValidationFailed,
			"error": "token is required",
		})
		return
	}

	assertion, err := h.verifier.Verify(c.Request.Context(), req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":  apperr.AuthFailed,
			"error": "invalid identity token",
		})
		return
	}

	user, err := h.identity.ResolveOrCreateByFederatedIdentity(c.Request.Context(), *assertion)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// updateProfile partially updates a user's profile
func (h *Handler) updateProfile(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  apperr.ValidationFailed,
			"error": "invalid request body",
		})
		return
	}

	if err := h.identity.UpdateProfile(c.Request.Context(), userID, &req); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type customerStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// setCustomerStatus locks or unlocks an account
func (h *Handler) setCustomerStatus(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req customerStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  apperr.ValidationFailed,
			"error": "status is required",
		})
		return
	}

	if req.Status != models.UserStatusActive && req.Status != models.UserStatusLocked {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  apperr.ValidationFailed,
			"error": "status must be active or locked",
		})
		return
	}

	if err := h.identity.SetUserStatus(c.Request.Context(), userID, req.Status); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
