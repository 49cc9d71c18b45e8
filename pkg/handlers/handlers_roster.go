package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/rota-matcher/pkg/database"
)

// ImportRoster replaces the stored roster with an uploaded roster file.
func (h *Handler) ImportRoster(c *gin.Context) {
	people, warnings, ok := h.readRosterFile(c)
	if !ok {
		return
	}

	if err := database.SaveRoster(h.DB, people); err != nil {
		h.Logger.Error(err, "Could not store roster")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not store roster"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"imported": len(people),
		"people":   people,
		"warnings": warnings,
	})
}
