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
	"github.com/opuslink/opuslink/internal/service"
	"github.com/opuslink/opuslink/internal/validator"
)

type ApplicationResponseData struct {
	ID           string    `json:"id"`
	JobID        string    `json:"job_id"`
	JobTitle     string    `json:"job_title,omitempty"`
	WorkerName   string    `json:"worker_name,omitempty"`
	WorkerRating float64   `json:"worker_rating,omitempty"`
	CoverLetter  string    `json:"cover_letter"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type applicationHandler struct {
	db         repository.Database
	errHandler *errHandler.ErrorHandler
	helper     *helper.HelperRepository
	notifier   service.Notifier
}

func NewApplicationHandler(db repository.Database, errHandler *errHandler.ErrorHandler, helper *helper.HelperRepository, notifier service.Notifier) *applicationHandler {
	return &applicationHandler{
		db:         db,
		errHandler: errHandler,
		helper:     helper,
		notifier:   notifier,
	}
}

func newApplicationResponseData(application *models.Application) *ApplicationResponseData {
	return &ApplicationResponseData{
		ID:           application.ID,
		JobID:        application.JobID,
		JobTitle:     application.JobTitle,
		WorkerName:   application.WorkerFirstName + " " + application.WorkerLastName,
		WorkerRating: application.WorkerRating,
		CoverLetter:  application.CoverLetter,
		Status:       application.Status,
		CreatedAt:    application.CreatedAt,
	}
}

func (h *applicationHandler) HandleApplyForJob(w http.ResponseWriter, r *http.Request) {
	worker := context.ContextGetAuthenticatedUser(r)

	var input struct {
		JobID       string              `json:"job_id"`
		CoverLetter string              `json:"cover_letter"`
		Validator   validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.errHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.JobID), "Job is required")
	input.Validator.Check(validator.NotBlank(input.CoverLetter), "Cover letter is required")

	if input.Validator.HasErrors() {
		h.errHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	job, found, err := h.db.Job().GetOne(input.JobID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	if !found {
		h.errHandler.NotFound(w, r)
		return
	}

	if job.Status != repository.JobOpenStatus {
		response.JSONErrorResponse(w, nil, "Job is no longer accepting applications", http.StatusUnprocessableEntity, nil)
		return
	}

	if job.EmployerID == worker.ID {
		response.JSONErrorResponse(w, nil, "You cannot apply to your own job", http.StatusUnprocessableEntity, nil)
		return
	}

	applied, err := h.db.Application().HasApplied(job.ID, worker.ID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	if applied {
		response.JSONErrorResponse(w, nil, "You have already applied to this job", http.StatusUnprocessableEntity, nil)
		return
	}

	applicationID, err := h.db.Application().Insert(&models.Application{
		JobID:       job.ID,
		WorkerID:    worker.ID,
		CoverLetter: input.CoverLetter,
	}, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	h.helper.BackgroundTask(r, func() error {
		h.notifier.Notify(job.EmployerID, repository.NotificationApplication,
			worker.FirstName+" "+worker.LastName+" applied to \""+job.Title+"\"",
			map[string]string{"job_id": job.ID, "application_id": applicationID})
		return nil
	})

	message := "Application submitted successfully"
	data := map[string]string{
		"id": applicationID,
	}
	err = response.JSONCreatedResponse(w, data, message)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *applicationHandler) HandleJobApplications(w http.ResponseWriter, r *http.Request) {
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

	if job.EmployerID != employer.ID {
		h.errHandler.Forbidden(w, r)
		return
	}

	applications, err := h.db.Application().ListByJob(jobID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	data := make([]*ApplicationResponseData, len(applications))
	for i := range applications {
		data[i] = newApplicationResponseData(&applications[i])
	}

	message := "Applications fetched successfully"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *applicationHandler) HandleMyApplications(w http.ResponseWriter, r *http.Request) {
	worker := context.ContextGetAuthenticatedUser(r)

	applications, err := h.db.Application().ListByWorker(worker.ID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	data := make([]*ApplicationResponseData, len(applications))
	for i := range applications {
		data[i] = newApplicationResponseData(&applications[i])
	}

	message := "Applications fetched successfully"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

// Accepting an application is the step that creates the working relationship:
// in one database transaction the application is accepted, every other pending
// application for the job is rejected, the job is closed, and an active
// agreement is created carrying the job's payment terms.
func (h *applicationHandler) HandleAcceptApplication(w http.ResponseWriter, r *http.Request) {
	employer := context.ContextGetAuthenticatedUser(r)
	applicationID := r.PathValue("id")

	application, found, err := h.db.Application().GetOne(applicationID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	if !found {
		h.errHandler.NotFound(w, r)
		return
	}

	job, found, err := h.db.Job().GetOne(application.JobID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	if !found {
		h.errHandler.NotFound(w, r)
		return
	}

	if job.EmployerID != employer.ID {
		h.errHandler.Forbidden(w, r)
		return
	}

	if application.Status != repository.ApplicationPendingStatus {
		response.JSONErrorResponse(w, nil, "Application has already been decided", http.StatusUnprocessableEntity, nil)
		return
	}

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	defer func() {
		// always make sure it rolls back, if there is an error
		// ...and the transaction is not committed
		if err != nil {
			tx.Rollback()
		}
	}()

	err = h.db.Application().UpdateStatus(application.ID, repository.ApplicationAcceptedStatus, tx)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	err = h.db.Application().RejectOthers(job.ID, application.ID, tx)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	err = h.db.Job().Close(job.ID, tx)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	agreementID, err := h.db.Agreement().Insert(&models.Agreement{
		JobID:      job.ID,
		EmployerID: job.EmployerID,
		WorkerID:   application.WorkerID,
		JobTitle:   job.Title,
		TermsType:  job.TermsType,
		Rate:       job.Rate,
	}, tx)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	if err = tx.Commit(); err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	h.helper.BackgroundTask(r, func() error {
		h.notifier.Notify(application.WorkerID, repository.NotificationAgreement,
			"You were hired for \""+job.Title+"\"",
			map[string]string{"agreement_id": agreementID, "job_id": job.ID})

		_, err := h.db.Activity().Insert(&models.ActivityLog{
			UserID:      employer.ID,
			Entity:      repository.ActivityLogAgreementEntity,
			EntityId:    agreementID,
			Description: "Hired a worker",
		})

		if err != nil {
			log.Printf("Error logging application acceptance: %v", err)
			return err
		}

		return nil
	})

	message := "Application accepted, agreement created"
	data := map[string]string{
		"agreement_id": agreementID,
	}
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *applicationHandler) HandleRejectApplication(w http.ResponseWriter, r *http.Request) {
	employer := context.ContextGetAuthenticatedUser(r)
	applicationID := r.PathValue("id")

	application, found, err := h.db.Application().GetOne(applicationID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	if !found {
		h.errHandler.NotFound(w, r)
		return
	}

	job, found, err := h.db.Job().GetOne(application.JobID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	if !found {
		h.errHandler.NotFound(w, r)
		return
	}

	if job.EmployerID != employer.ID {
		h.errHandler.Forbidden(w, r)
		return
	}

	if application.Status != repository.ApplicationPendingStatus {
		response.JSONErrorResponse(w, nil, "Application has already been decided", http.StatusUnprocessableEntity, nil)
		return
	}

	err = h.db.Application().UpdateStatus(application.ID, repository.ApplicationRejectedStatus, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	message := "Application rejected"
	err = response.JSONOkResponse(w, nil, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}
