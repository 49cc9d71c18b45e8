package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"github.com/arnavshah/rota-matcher/internal/metrics"
	"github.com/arnavshah/rota-matcher/pkg/database"
	"github.com/arnavshah/rota-matcher/pkg/export"
	"github.com/arnavshah/rota-matcher/pkg/models"
	"github.com/arnavshah/rota-matcher/pkg/roster"
	"github.com/arnavshah/rota-matcher/pkg/scheduler"
)

// ScheduleJSON handles the JSON-based scheduling request
func (h *Handler) ScheduleJSON(c *gin.Context) {
	var input models.ScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sched, err := h.run(c, input.Requirements, input.Roster)
	if err != nil {
		h.runFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, response(sched, input.IncludeGraph))
}

// ScheduleCSV schedules an uploaded roster file. Requirement counts come
// from optional form fields; the result is returned as CSV text.
func (h *Handler) ScheduleCSV(c *gin.Context) {
	people, warnings, ok := h.readRosterFile(c)
	if !ok {
		return
	}

	in := &models.RequirementsInput{}
	fields := map[string]*models.Count{
		"cooks":               &in.Cooks,
		"waiters":             &in.Waiters,
		"cleaners":            &in.Cleaners,
		"admins":              &in.Admins,
		"max_shifts_per_week": &in.MaxShiftsPerWeek,
	}
	for name, dst := range fields {
		if value, exists := c.GetPostForm(name); exists {
			*dst = models.CountFromString(value)
		}
	}

	sched, err := h.run(c, in, people, warnings...)
	if err != nil {
		h.runFailed(c, err)
		return
	}

	var out bytes.Buffer
	if err := export.WriteCSV(&out, sched); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not write CSV"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                sched.ID,
		"csv":               out.String(),
		"filled_count":      sched.FilledCount,
		"total_slots":       sched.TotalSlots,
		"schedule_complete": sched.ScheduleComplete,
		"warnings":          sched.Warnings,
	})
}

// ScheduleBatch schedules independent weeks concurrently. The whole batch
// fails when any period fails.
func (h *Handler) ScheduleBatch(c *gin.Context) {
	var input models.BatchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(input.Periods) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one period is required"})
		return
	}

	periods := make([]scheduler.Period, len(input.Periods))
	warnings := make([][]string, len(input.Periods))
	for i, p := range input.Periods {
		periods[i].Requirements, warnings[i] = p.Requirements.Resolve()
		periods[i].Roster = p.Roster
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.Config.Scheduler.Timeout.Duration)
	defer cancel()

	results, err := h.Scheduler.BuildBatch(ctx, periods)
	if err != nil {
		h.runFailed(c, err)
		return
	}

	out := make([]*models.Schedule, len(results))
	for i, sched := range results {
		sched.Warnings = append(warnings[i], sched.Warnings...)
		h.finish(c, sched)
		out[i] = response(sched, input.Periods[i].IncludeGraph)
	}
	c.JSON(http.StatusOK, gin.H{"schedules": out})
}

// ScheduleStored schedules the roster saved by ImportRoster. The body is
// optional and may carry requirements.
func (h *Handler) ScheduleStored(c *gin.Context) {
	var input struct {
		Requirements *models.RequirementsInput `json:"requirements"`
		IncludeGraph bool                      `json:"include_graph"`
	}
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	people, err := database.LoadRoster(h.DB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load roster"})
		return
	}

	sched, err := h.run(c, input.Requirements, people)
	if err != nil {
		h.runFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, response(sched, input.IncludeGraph))
}

// GetSchedule returns a stored schedule.
func (h *Handler) GetSchedule(c *gin.Context) {
	sched, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, response(sched, c.Query("include_graph") == "true"))
}

// GetScheduleXLSX returns a stored schedule as a spreadsheet.
func (h *Handler) GetScheduleXLSX(c *gin.Context) {
	sched, ok := h.lookup(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, sched); err != nil {
		h.Logger.Error(err, "Could not build workbook", "id", sched.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not build workbook"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="schedule-%s.xlsx"`, sched.ID))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// run schedules one week under the configured time budget and records it.
// Warnings from reading the input are listed first.
func (h *Handler) run(c *gin.Context, in *models.RequirementsInput, people []models.Person, warnings ...string) (*models.Schedule, error) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.Config.Scheduler.Timeout.Duration)
	defer cancel()

	sched, err := h.Scheduler.RunContext(ctx, in, people)
	if err != nil {
		return nil, err
	}
	sched.Warnings = append(warnings, sched.Warnings...)
	h.finish(c, sched)
	return sched, nil
}

// finish assigns an ID to a successful run, then records metrics and usage,
// caches the schedule and stores it.
func (h *Handler) finish(c *gin.Context, sched *models.Schedule) {
	sched.ID = uuid.NewString()

	outcome := metrics.OutcomeIncomplete
	if sched.ScheduleComplete {
		outcome = metrics.OutcomeComplete
	}
	metrics.RecordRun(outcome, sched.FilledCount, sched.TotalSlots, sched.Passes)

	h.Cache.Set(sched.ID, sched, ttlcache.DefaultTTL)

	var keyID uint
	if apiKey, ok := currentKey(c); ok {
		keyID = apiKey.ID
		err := database.RecordUsage(h.DB, keyID, h.nowFunc(), database.UsageDelta{
			TotalSlots:  sched.TotalSlots,
			FilledSlots: sched.FilledCount,
			TotalPeople: len(sched.People),
		})
		if err != nil {
			h.Logger.Error(err, "Could not record usage", "key", keyID)
		}
	}

	if err := database.SaveSchedule(h.DB, keyID, sched); err != nil {
		h.Logger.Error(err, "Could not store schedule", "id", sched.ID)
	}

	h.Logger.V(1).Info("Schedule built",
		"id", sched.ID,
		"filled", sched.FilledCount,
		"total", sched.TotalSlots,
		"passes", sched.Passes)
}

// runFailed maps a scheduling error to a response.
func (h *Handler) runFailed(c *gin.Context, err error) {
	switch {
	case errors.Is(err, scheduler.ErrEmptyRoster), errors.Is(err, scheduler.ErrEmptyRequirements),
		errors.Is(err, scheduler.ErrDuplicatePersonID), errors.Is(err, models.ErrRequirementsOutOfRange):
		metrics.RecordRun(metrics.OutcomeError, 0, 0, 0)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		metrics.RecordRun(metrics.OutcomeTimeout, 0, 0, 0)
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Scheduling did not finish within the time limit"})
	case errors.Is(err, context.Canceled):
		metrics.RecordRun(metrics.OutcomeTimeout, 0, 0, 0)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Request canceled"})
	default:
		metrics.RecordRun(metrics.OutcomeError, 0, 0, 0)
		h.Logger.Error(err, "Scheduling failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Scheduling failed"})
	}
}

// lookup finds a schedule by the :id path parameter in the cache, then in
// the database. It writes the error response itself.
func (h *Handler) lookup(c *gin.Context) (*models.Schedule, bool) {
	id := c.Param("id")
	if item := h.Cache.Get(id); item != nil {
		return item.Value(), true
	}

	sched, err := database.LoadSchedule(h.DB, id)
	if errors.Is(err, database.ErrScheduleNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Schedule not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load schedule"})
		return nil, false
	}
	h.Cache.Set(id, sched, ttlcache.DefaultTTL)
	return sched, true
}

// readRosterFile imports the multipart roster_file field. It writes the
// error response itself.
func (h *Handler) readRosterFile(c *gin.Context) ([]models.Person, []string, bool) {
	header, err := c.FormFile("roster_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roster_file is required"})
		return nil, nil, false
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open roster file"})
		return nil, nil, false
	}
	defer f.Close()

	res, err := roster.Import(f)
	if errors.Is(err, roster.ErrEmptyInput) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, nil, false
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read roster file"})
		return nil, nil, false
	}
	metrics.RecordRowsSkipped(res.Skipped)
	return res.People, res.Warnings, true
}

// response drops the matched-edge audit graph unless it was asked for.
func response(sched *models.Schedule, includeGraph bool) *models.Schedule {
	if includeGraph {
		return sched
	}
	out := *sched
	out.MatchedEdges = nil
	return &out
}
