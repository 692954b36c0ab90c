package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"calbot/internal/config"
	"calbot/internal/models/response_models"
	"calbot/internal/services"
	"calbot/pkg/utils"
)

const maxLogsLimit = 90

type UserController struct {
	tracker   services.TrackerServiceInterface
	minTarget int
	maxTarget int
}

func NewUserController(tracker services.TrackerServiceInterface, cfg *config.Config) *UserController {
	return &UserController{
		tracker:   tracker,
		minTarget: cfg.Tracker.MinTarget,
		maxTarget: cfg.Tracker.MaxTarget,
	}
}

func parseUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid user id")
		return 0, false
	}
	return id, true
}

// GetSummary godoc
// @Summary Day summary for a user
// @Param id path int true "Platform user id"
// @Param date query string false "YYYY-MM-DD in the tracker timezone (default: today)"
// @Success 200 {object} response_models.DaySummaryResponse
// @Router /api/users/{id}/summary [get]
func (uc *UserController) GetSummary(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	day := uc.tracker.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := utils.ParseDay(raw, uc.tracker.Location())
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, "Invalid date (expected YYYY-MM-DD)")
			return
		}
		day = parsed
	}

	summary, err := uc.tracker.DaySummary(c.Request.Context(), userID, day)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	loc := uc.tracker.Location()
	meals := make([]response_models.MealResponse, 0, len(summary.Meals))
	for _, m := range summary.Meals {
		meals = append(meals, response_models.NewMealResponse(m, loc))
	}

	utils.RespondSuccess(c, response_models.DaySummaryResponse{
		UserID:    userID,
		Date:      summary.Date,
		Meals:     meals,
		Total:     summary.Total,
		Target:    summary.Target,
		TargetMet: summary.TargetMet,
	}, "Fetched summary successfully")
}

func (uc *UserController) ListLogs(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "7"))
	if err != nil || limit < 1 || limit > maxLogsLimit {
		utils.RespondError(c, http.StatusBadRequest, fmt.Sprintf("Invalid limit (must be 1-%d)", maxLogsLimit))
		return
	}

	ctx := c.Request.Context()
	user, err := uc.tracker.GetUser(ctx, userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	if user == nil {
		utils.HandleServiceError(c, utils.ErrUserNotFound)
		return
	}

	logs, err := uc.tracker.RecentLogs(ctx, userID, limit)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	loc := uc.tracker.Location()
	resp := make([]response_models.DailyLogResponse, 0, len(logs))
	for _, l := range logs {
		resp = append(resp, response_models.NewDailyLogResponse(l, loc))
	}
	utils.RespondSuccess(c, resp, "Fetched daily logs successfully")
}

// UpdateSettings accepts only daily_target and reminder_enabled; any other
// key is a 400.
func (uc *UserController) UpdateSettings(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	var raw map[string]interface{}
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			utils.RespondError(c, http.StatusBadRequest, "Request body is required")
			return
		}
		utils.RespondError(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	patch, err := services.ParseSettingsPatch(raw)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	if patch.IsEmpty() {
		utils.RespondError(c, http.StatusBadRequest, "No settings to update")
		return
	}
	if patch.DailyTarget != nil && (*patch.DailyTarget < uc.minTarget || *patch.DailyTarget > uc.maxTarget) {
		utils.RespondError(c, http.StatusBadRequest,
			fmt.Sprintf("daily_target must be between %d and %d", uc.minTarget, uc.maxTarget))
		return
	}

	ctx := c.Request.Context()
	if err := uc.tracker.UpdateSettings(ctx, userID, patch); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	user, err := uc.tracker.GetUser(ctx, userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	if user == nil {
		utils.HandleServiceError(c, utils.ErrUserNotFound)
		return
	}
	utils.RespondSuccess(c, response_models.NewUserSettingsResponse(*user), "Settings updated successfully")
}
