package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/rota-matcher/pkg/auth"
	"github.com/arnavshah/rota-matcher/pkg/database"
)

type keyURI struct {
	ID uint `uri:"id" binding:"required"`
}

// bindKeyID reads the :id path parameter. It writes the error response itself.
func bindKeyID(c *gin.Context) (uint, bool) {
	var uri keyURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key id"})
		return 0, false
	}
	return uri.ID, true
}

// Login exchanges admin credentials for a JWT.
func (h *Handler) Login(c *gin.Context) {
	var creds struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.Auth.Login(h.DB, creds.Username, creds.Password)
	switch {
	case errors.Is(err, auth.ErrBadCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	case err != nil:
		h.Logger.Error(err, "Login failed", "username", creds.Username)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
	default:
		c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
	}
}

// GenerateKey issues an HMAC key for a named client. The full key is only
// returned here; listings show the preview.
func (h *Handler) GenerateKey(c *gin.Context) {
	var body struct {
		Name      string `json:"name" binding:"required"`
		RateLimit int    `json:"rate_limit" binding:"gte=0"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key, err := h.Auth.NewAPIKey(body.Name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name must not contain '.'"})
		return
	}

	apiKey, err := database.CreateKey(h.DB, key, body.Name, body.RateLimit)
	if err != nil {
		h.Logger.Error(err, "Could not store key", "name", body.Name)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create key record"})
		return
	}

	h.Logger.Info("API key issued", "id", apiKey.ID, "name", apiKey.Name, "limit", apiKey.RateLimit)
	c.JSON(http.StatusOK, gin.H{
		"id":         apiKey.ID,
		"name":       apiKey.Name,
		"key":        key,
		"rate_limit": apiKey.RateLimit,
	})
}

func (h *Handler) ListKeys(c *gin.Context) {
	keys, err := database.ListKeys(h.DB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not list keys"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// RevokeKey deletes a key record with its limit. A key whose signature still
// verifies is registered again on its next use with the default limit.
func (h *Handler) RevokeKey(c *gin.Context) {
	id, ok := bindKeyID(c)
	if !ok {
		return
	}

	err := database.DeleteKey(h.DB, id)
	if errors.Is(err, database.ErrKeyNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Key not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete key"})
		return
	}
	h.Logger.Info("API key revoked", "id", id)
	c.JSON(http.StatusOK, gin.H{"message": "Key revoked"})
}

// UpdateKeyLimit sets a key's daily request limit from a JSON body or the
// rate_limit query parameter.
func (h *Handler) UpdateKeyLimit(c *gin.Context) {
	id, ok := bindKeyID(c)
	if !ok {
		return
	}

	var body struct {
		RateLimit int `json:"rate_limit" form:"rate_limit"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		if err := c.ShouldBindQuery(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "rate_limit is required"})
			return
		}
	}
	if body.RateLimit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rate_limit must be positive"})
		return
	}

	err := database.SetRateLimit(h.DB, id, body.RateLimit)
	if errors.Is(err, database.ErrKeyNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Key not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update key limit"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "rate_limit": body.RateLimit})
}

// GetUsage returns the last 30 days of usage for a key, newest first.
func (h *Handler) GetUsage(c *gin.Context) {
	id, ok := bindKeyID(c)
	if !ok {
		return
	}

	usage, err := database.UsageHistory(h.DB, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch usage details"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key_id": id, "usage": usage})
}
