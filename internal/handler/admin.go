package handler

import (
	"net/http"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/opuslink/opuslink/internal/config"
	"github.com/opuslink/opuslink/internal/errHandler"
	"github.com/opuslink/opuslink/internal/models"
	"github.com/opuslink/opuslink/internal/repository"
	"github.com/opuslink/opuslink/internal/response"
)

type adminHandler struct {
	db         repository.Database
	errHandler *errHandler.ErrorHandler
	config     *config.Config
}

func NewAdminHandler(db repository.Database, errHandler *errHandler.ErrorHandler, config *config.Config) *adminHandler {
	return &adminHandler{
		db:         db,
		errHandler: errHandler,
		config:     config,
	}
}

func (h *adminHandler) HandleAdminStats(w http.ResponseWriter, r *http.Request) {
	userCount, err := h.db.User().Count()
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	jobCount, err := h.db.Job().Count()
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	totalVolume, err := h.db.Payment().TotalVolume()
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	methods := maps.Keys(h.config.Gateway.Fees)
	slices.Sort(methods)

	feeSchedule := make([]map[string]any, len(methods))
	for i, method := range methods {
		band := h.config.Gateway.Fees[method]
		feeSchedule[i] = map[string]any{
			"method":  method,
			"percent": band.Percent,
			"min":     band.Min,
			"max":     band.Max,
		}
	}

	data := map[string]any{
		"users":          userCount,
		"jobs":           jobCount,
		"settled_volume": totalVolume,
		"fee_schedule":   feeSchedule,
		"policy_version": h.config.Payout.Version,
	}

	message := "Platform stats fetched successfully"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *adminHandler) HandleAdminUsers(w http.ResponseWriter, r *http.Request) {
	queryValues := retrieveUrlQueryValues(r)

	users, err := h.db.User().List(queryValues.Page, queryValues.PageSize)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	data := make([]*UserResponseData, len(users))
	for i, user := range users {
		data[i] = &UserResponseData{
			ID:          user.ID,
			FirstName:   user.FirstName,
			LastName:    user.LastName,
			Email:       user.Email,
			PhoneNumber: user.PhoneNumber,
			Role:        user.Role,
			Headline:    user.Headline.String,
			Rating:      user.Rating,
			RatingCount: user.RatingCount,
			CreatedAt:   user.CreatedAt,
		}
	}

	message := "Users fetched successfully"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

// HandleAdminLockUser locks an account out of logging in. Locked users keep
// their wallet and history; nothing is deleted.
func (h *adminHandler) HandleAdminLockUser(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	user, found, err := h.db.User().GetOne(userID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	if !found {
		h.errHandler.NotFound(w, r)
		return
	}
	if user.Role == repository.UserRoleAdmin {
		h.errHandler.FailedValidation(w, r, []string{"Admin accounts cannot be locked"})
		return
	}

	if err := h.db.User().Lock(user.ID); err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	_, err = h.db.Activity().Insert(&models.ActivityLog{
		UserID:      user.ID,
		Entity:      repository.ActivityLogUserEntity,
		EntityId:    user.ID,
		Description: "Account locked by admin",
	})
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	message := "Account locked"
	err = response.JSONOkResponse(w, nil, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

// HandleLedgerSweep runs the retention sweep on demand, outside the
// background schedule. Useful for ops after lowering the retention window.
func (h *adminHandler) HandleLedgerSweep(w http.ResponseWriter, r *http.Request) {
	cutoff := time.Now().AddDate(0, 0, -h.config.Ledger.RetentionDays)

	moved, err := h.db.Transaction().ArchiveOlderThan(cutoff)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	data := map[string]any{
		"archived": moved,
		"cutoff":   cutoff.Format(time.RFC3339),
	}
	message := "Ledger sweep completed"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}
