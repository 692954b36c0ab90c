package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"calbot/internal/models/response_models"
	"calbot/internal/scheduler"
	"calbot/pkg/utils"
)

type JobsController struct {
	scheduler *scheduler.Scheduler
}

func NewJobsController(s *scheduler.Scheduler) *JobsController {
	return &JobsController{scheduler: s}
}

// RunJob triggers a scheduled job immediately. The idle/running guard still
// applies, so a job that is already running answers 409. The run outlives a
// disconnecting client; only the guard timeout bounds it.
func (j *JobsController) RunJob(c *gin.Context) {
	name := c.Param("name")
	switch name {
	case scheduler.DailySummaryJobName, scheduler.ReminderJobName:
	default:
		utils.RespondError(c, http.StatusNotFound, "Unknown job")
		return
	}

	report, err := j.scheduler.Trigger(context.WithoutCancel(c.Request.Context()), name)
	if err != nil {
		if errors.Is(err, scheduler.ErrJobRunning) {
			utils.RespondError(c, http.StatusConflict, "Job is already running")
			return
		}
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.JobRunResponse{
		Job:       report.Job,
		Processed: report.Processed,
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
		Skipped:   report.Skipped,
		Seconds:   report.Duration.Seconds(),
	}, "Job finished")
}
