package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/rota-matcher/pkg/models"
	"github.com/arnavshah/rota-matcher/pkg/scheduler"
)

// ValidateInput checks a scheduling request without running it and reports
// the size of the graph it would produce.
func (h *Handler) ValidateInput(c *gin.Context) {
	var input models.ScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	if len(input.Roster) == 0 {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "At least one person is required"})
		return
	}

	if err := scheduler.CheckRoster(input.Roster); err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	req, warnings := input.Requirements.Resolve()
	if req.TotalSlots() == 0 {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": scheduler.ErrEmptyRequirements.Error(), "warnings": warnings})
		return
	}

	g := scheduler.BuildGraph(req, input.Roster)
	if len(g.People) == 0 {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": scheduler.ErrEmptyRoster.Error(), "warnings": warnings})
		return
	}

	people := make(map[string]int)
	for _, p := range input.Roster {
		people[p.Profession.String()]++
	}
	for _, prof := range models.Professions {
		if req.Count(prof) > 0 && people[prof.String()] == 0 {
			warnings = append(warnings, "no "+prof.String()+" in the roster; those slots will stay empty")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":    true,
		"warnings": warnings,
		"stats": gin.H{
			"person_count":         len(input.Roster),
			"people_by_profession": people,
			"slot_count":           len(g.Slots),
			"edge_count":           g.EdgeCount(),
			"max_shifts_per_week":  req.MaxShiftsPerWeek,
		},
	})
}
