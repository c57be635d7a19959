package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/opuslink/opuslink/internal/context"
	"github.com/opuslink/opuslink/internal/errHandler"
	"github.com/opuslink/opuslink/internal/helper"
	"github.com/opuslink/opuslink/internal/models"
	"github.com/opuslink/opuslink/internal/repository"
	"github.com/opuslink/opuslink/internal/request"
	"github.com/opuslink/opuslink/internal/response"
	"github.com/opuslink/opuslink/internal/validator"
)

type JobResponseData struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	Location     string    `json:"location"`
	TermsType    string    `json:"terms_type"`
	Rate         float64   `json:"rate"`
	Status       string    `json:"status"`
	EmployerName string    `json:"employer_name"`
	CreatedAt    time.Time `json:"created_at"`
}

type jobHandler struct {
	db         repository.Database
	errHandler *errHandler.ErrorHandler
	helper     *helper.HelperRepository
}

func NewJobHandler(db repository.Database, errHandler *errHandler.ErrorHandler, helper *helper.HelperRepository) *jobHandler {
	return &jobHandler{
		db:         db,
		errHandler: errHandler,
		helper:     helper,
	}
}

func newJobResponseData(job *models.Job) *JobResponseData {
	return &JobResponseData{
		ID:           job.ID,
		Title:        job.Title,
		Description:  job.Description,
		Category:     job.Category,
		Location:     job.Location,
		TermsType:    job.TermsType,
		Rate:         job.Rate,
		Status:       job.Status,
		EmployerName: job.EmployerFirstName + " " + job.EmployerLastName,
		CreatedAt:    job.CreatedAt,
	}
}

func (h *jobHandler) HandleCreateJob(w http.ResponseWriter, r *http.Request) {
	employer := context.ContextGetAuthenticatedUser(r)

	var input struct {
		Title       string              `json:"title"`
		Description string              `json:"description"`
		Category    string              `json:"category"`
		Location    string              `json:"location"`
		TermsType   string              `json:"terms_type"`
		Rate        float64             `json:"rate"`
		Validator   validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.errHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Title), "Title is required")
	input.Validator.Check(validator.MinRunes(input.Title, 5), "Title is too short")
	input.Validator.Check(validator.NotBlank(input.Description), "Description is required")
	input.Validator.Check(validator.NotBlank(input.Category), "Category is required")
	input.Validator.Check(validator.In(input.TermsType,
		repository.TermsTypeHourly, repository.TermsTypeMonthly,
		repository.TermsTypeFixed, repository.TermsTypeMilestone),
		"Terms type must be one of: hourly, monthly, fixed, milestone")
	input.Validator.Check(input.Rate > 0, "Rate must be greater than zero")

	if input.Validator.HasErrors() {
		h.errHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	jobID, err := h.db.Job().Insert(&models.Job{
		EmployerID:  employer.ID,
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Location:    input.Location,
		TermsType:   input.TermsType,
		Rate:        input.Rate,
	}, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	h.helper.BackgroundTask(r, func() error {
		_, err := h.db.Activity().Insert(&models.ActivityLog{
			UserID:      employer.ID,
			Entity:      repository.ActivityLogJobEntity,
			EntityId:    jobID,
			Description: "Posted a job",
		})

		if err != nil {
			log.Printf("Error logging job creation action: %v", err)
			return err
		}

		return nil
	})

	message := "Job posted successfully"
	data := map[string]string{
		"id": jobID,
	}
	err = response.JSONCreatedResponse(w, data, message)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *jobHandler) HandleListOpenJobs(w http.ResponseWriter, r *http.Request) {
	queryValues := retrieveUrlQueryValues(r)

	jobs, err := h.db.Job().ListOpen(queryValues.Search, queryValues.Page, queryValues.PageSize)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	data := make([]*JobResponseData, len(jobs))
	for i := range jobs {
		data[i] = newJobResponseData(&jobs[i])
	}

	message := "Jobs fetched successfully"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *jobHandler) HandleJobDetails(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	job, found, err := h.db.Job().GetOne(jobID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	if !found {
		h.errHandler.NotFound(w, r)
		return
	}

	message := "Job fetched successfully"
	err = response.JSONOkResponse(w, newJobResponseData(job), message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *jobHandler) HandleEmployerJobs(w http.ResponseWriter, r *http.Request) {
	employer := context.ContextGetAuthenticatedUser(r)

	jobs, err := h.db.Job().ListByEmployer(employer.ID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	data := make([]*JobResponseData, len(jobs))
	for i := range jobs {
		data[i] = newJobResponseData(&jobs[i])
	}

	message := "Jobs fetched successfully"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *jobHandler) HandleCloseJob(w http.ResponseWriter, r *http.Request) {
	employer := context.ContextGetAuthenticatedUser(r)
	jobID := r.PathValue("id")

	job, found, err := h.db.Job().GetOne(jobID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	if !found {
		h.errHandler.NotFound(w, r)
		return
	}

	// only the poster can close their own job
	if job.EmployerID != employer.ID {
		h.errHandler.Forbidden(w, r)
		return
	}

	if job.Status != repository.JobOpenStatus {
		response.JSONErrorResponse(w, nil, "Job is already closed", http.StatusUnprocessableEntity, nil)
		return
	}

	if err := h.db.Job().Close(jobID, nil); err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	message := "Job closed successfully"
	err = response.JSONOkResponse(w, nil, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}
