package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"aplus/internal/auth"
	"aplus/internal/metrics"
)

// login checks credentials and returns a fresh token pair along with the
// role and username the client persists.
func (h *Handler) login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	u, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	tokens, err := auth.Issue(u.ID, u.Username, u.Role, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.store().SaveRefreshToken(c.Request.Context(), tokens.RefreshJTI, u.ID, tokens.RefreshExp); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access":   tokens.AccessToken,
		"refresh":  tokens.RefreshToken,
		"role":     u.Role,
		"username": u.Username,
	})
}

// refreshToken rotates a valid refresh token into a new pair. The old
// token is revoked so it cannot be replayed.
func (h *Handler) refreshToken(c *gin.Context) {
	var req struct {
		Refresh string `json:"refresh" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	claims, err := auth.Parse(req.Refresh, h.cfg.JWTSigningKey, h.cfg.JWTIssuer)
	if err != nil || claims.Type != auth.TypeRefresh {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid or expired refresh token"})
		return
	}
	active, err := h.store().RefreshTokenActive(c.Request.Context(), claims.ID)
	if err != nil {
		fail(c, err)
		return
	}
	if !active {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid or expired refresh token"})
		return
	}

	u, err := h.store().UserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid or expired refresh token"})
		return
	}

	tokens, err := auth.Issue(u.ID, u.Username, u.Role, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.store().RevokeRefreshToken(c.Request.Context(), claims.ID); err != nil {
		fail(c, err)
		return
	}
	if err := h.store().SaveRefreshToken(c.Request.Context(), tokens.RefreshJTI, u.ID, tokens.RefreshExp); err != nil {
		fail(c, err)
		return
	}
	metrics.TokenRefreshes.Inc()

	c.JSON(http.StatusOK, gin.H{
		"access":  tokens.AccessToken,
		"refresh": tokens.RefreshToken,
	})
}

// logout revokes the presented refresh token. Clients wipe their local
// credentials whether or not this call succeeds.
func (h *Handler) logout(c *gin.Context) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Refresh == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Refresh token required"})
		return
	}
	claims, err := auth.Parse(req.Refresh, h.cfg.JWTSigningKey, h.cfg.JWTIssuer)
	if err != nil || claims.Type != auth.TypeRefresh {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid or expired token"})
		return
	}
	if err := h.store().RevokeRefreshToken(c.Request.Context(), claims.ID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusResetContent, gin.H{"detail": "Logout successful"})
}

// resetPassword replaces a user's password. It requires no
// authentication, only a known username.
func (h *Handler) resetPassword(c *gin.Context) {
	var req struct {
		Username    string `json:"username" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if err := h.svc.ResetPassword(c.Request.Context(), req.Username, req.NewPassword); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Password reset successful"})
}
