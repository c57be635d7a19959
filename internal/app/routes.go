package app

import (
	"net/http"

	"github.com/opuslink/opuslink/internal/handler"
	"github.com/opuslink/opuslink/internal/middleware"
	"github.com/opuslink/opuslink/internal/repository"
)

func (app *Application) routes() http.Handler {
	mux := http.NewServeMux()

	middlewareRepo := middleware.New(app.errorHandler, app.Logger, app.DB.User(), &app.Config)

	healthHandler := handler.NewHealthCheckHandler(app.errorHandler)
	authHandler := handler.NewAuthHandler(app.DB, app.errorHandler, app.helper, app.Mailer, app.Cache, app.Escrow, &app.Config)
	userHandler := handler.NewUserHandler(app.DB, app.errorHandler, app.FileUploader)
	jobHandler := handler.NewJobHandler(app.DB, app.errorHandler, app.helper)
	applicationHandler := handler.NewApplicationHandler(app.DB, app.errorHandler, app.helper, app.Notifications)
	agreementHandler := handler.NewAgreementHandler(app.DB, app.errorHandler)
	workLogHandler := handler.NewWorkLogHandler(app.WorkLedger, app.errorHandler)
	walletHandler := handler.NewWalletHandler(app.Escrow, app.errorHandler)
	paymentHandler := handler.NewPaymentHandler(app.Payments, app.errorHandler)
	notificationHandler := handler.NewNotificationHandler(app.DB, app.errorHandler)
	feedbackHandler := handler.NewFeedbackHandler(app.DB, app.errorHandler)
	adminHandler := handler.NewAdminHandler(app.DB, app.errorHandler, &app.Config)

	mux.HandleFunc("GET /status", healthHandler.HandleHealthCheck)

	mux.HandleFunc("POST /auth/register", authHandler.HandleAuthRegister)
	mux.HandleFunc("POST /auth/verify", authHandler.HandleAuthVerify)
	mux.HandleFunc("POST /auth/resend-verification", authHandler.HandleAuthResendVerification)
	mux.HandleFunc("POST /auth/login", authHandler.HandleAuthLogin)

	requireAuth := middlewareRepo.RequireAuthenticatedUser

	mux.Handle("GET /me", requireAuth(http.HandlerFunc(userHandler.HandleUserProfile)))
	mux.Handle("PATCH /me", requireAuth(http.HandlerFunc(userHandler.HandleUpdateProfile)))
	mux.Handle("POST /me/picture", requireAuth(http.HandlerFunc(userHandler.HandleChangeProfilePicture)))

	mux.HandleFunc("GET /jobs", jobHandler.HandleListOpenJobs)
	mux.HandleFunc("GET /jobs/{id}", jobHandler.HandleJobDetails)
	mux.Handle("POST /jobs", middlewareRepo.RequireRole(repository.UserRoleEmployer, http.HandlerFunc(jobHandler.HandleCreateJob)))
	mux.Handle("GET /my-jobs", middlewareRepo.RequireRole(repository.UserRoleEmployer, http.HandlerFunc(jobHandler.HandleEmployerJobs)))
	mux.Handle("POST /jobs/{id}/close", middlewareRepo.RequireRole(repository.UserRoleEmployer, http.HandlerFunc(jobHandler.HandleCloseJob)))
	mux.Handle("GET /jobs/{id}/applications", middlewareRepo.RequireRole(repository.UserRoleEmployer, http.HandlerFunc(applicationHandler.HandleJobApplications)))

	mux.Handle("POST /applications", middlewareRepo.RequireRole(repository.UserRoleWorker, http.HandlerFunc(applicationHandler.HandleApplyForJob)))
	mux.Handle("GET /my-applications", middlewareRepo.RequireRole(repository.UserRoleWorker, http.HandlerFunc(applicationHandler.HandleMyApplications)))
	mux.Handle("POST /applications/{id}/accept", middlewareRepo.RequireRole(repository.UserRoleEmployer, http.HandlerFunc(applicationHandler.HandleAcceptApplication)))
	mux.Handle("POST /applications/{id}/reject", middlewareRepo.RequireRole(repository.UserRoleEmployer, http.HandlerFunc(applicationHandler.HandleRejectApplication)))

	mux.Handle("GET /agreements", requireAuth(http.HandlerFunc(agreementHandler.HandleMyAgreements)))
	mux.Handle("GET /agreements/{id}", requireAuth(http.HandlerFunc(agreementHandler.HandleAgreementDetails)))
	mux.Handle("POST /agreements/{id}/complete", requireAuth(http.HandlerFunc(agreementHandler.HandleCompleteAgreement)))
	mux.Handle("POST /agreements/{id}/cancel", requireAuth(http.HandlerFunc(agreementHandler.HandleCancelAgreement)))
	mux.Handle("GET /agreements/{id}/work-logs", requireAuth(http.HandlerFunc(workLogHandler.HandleAgreementWorkLogs)))

	mux.Handle("POST /work-logs", middlewareRepo.RequireRole(repository.UserRoleWorker, http.HandlerFunc(workLogHandler.HandleLogWork)))
	mux.Handle("GET /my-work-logs", middlewareRepo.RequireRole(repository.UserRoleWorker, http.HandlerFunc(workLogHandler.HandleMyWorkLogs)))
	mux.Handle("GET /work-logs/pending", middlewareRepo.RequireRole(repository.UserRoleEmployer, http.HandlerFunc(workLogHandler.HandlePendingApprovals)))
	mux.Handle("POST /work-logs/{id}/approve", middlewareRepo.RequireRole(repository.UserRoleEmployer, http.HandlerFunc(workLogHandler.HandleApproveWork)))
	mux.Handle("POST /work-logs/{id}/reject", middlewareRepo.RequireRole(repository.UserRoleEmployer, http.HandlerFunc(workLogHandler.HandleRejectWork)))

	mux.Handle("GET /wallet", requireAuth(http.HandlerFunc(walletHandler.HandleWalletSummary)))
	mux.Handle("GET /wallet/transactions", requireAuth(http.HandlerFunc(walletHandler.HandleWalletHistory)))
	mux.Handle("POST /wallet/deposit", middlewareRepo.RequireRole(repository.UserRoleEmployer, http.HandlerFunc(walletHandler.HandleAddFunds)))
	mux.Handle("POST /wallet/escrow", middlewareRepo.RequireRole(repository.UserRoleEmployer, http.HandlerFunc(walletHandler.HandleFundEscrow)))

	mux.Handle("POST /payments", middlewareRepo.RequireRole(repository.UserRoleEmployer, http.HandlerFunc(paymentHandler.HandleInitiatePayout)))
	mux.Handle("GET /payments", requireAuth(http.HandlerFunc(paymentHandler.HandleMyPayments)))
	mux.Handle("GET /payments/{id}", requireAuth(http.HandlerFunc(paymentHandler.HandlePaymentDetails)))

	mux.Handle("GET /notifications", requireAuth(http.HandlerFunc(notificationHandler.HandleMyNotifications)))
	mux.Handle("GET /notifications/unread-count", requireAuth(http.HandlerFunc(notificationHandler.HandleUnreadCount)))
	mux.Handle("POST /notifications/{id}/read", requireAuth(http.HandlerFunc(notificationHandler.HandleMarkRead)))
	mux.Handle("POST /notifications/read-all", requireAuth(http.HandlerFunc(notificationHandler.HandleMarkAllRead)))

	mux.Handle("POST /feedback", requireAuth(http.HandlerFunc(feedbackHandler.HandleLeaveFeedback)))
	mux.HandleFunc("GET /users/{id}/feedback", feedbackHandler.HandleUserFeedback)

	mux.Handle("GET /admin/stats", middlewareRepo.RequireRole(repository.UserRoleAdmin, http.HandlerFunc(adminHandler.HandleAdminStats)))
	mux.Handle("GET /admin/users", middlewareRepo.RequireRole(repository.UserRoleAdmin, http.HandlerFunc(adminHandler.HandleAdminUsers)))
	mux.Handle("POST /admin/users/{id}/lock", middlewareRepo.RequireRole(repository.UserRoleAdmin, http.HandlerFunc(adminHandler.HandleAdminLockUser)))
	mux.Handle("POST /admin/ledger-sweep", middlewareRepo.RequireRole(repository.UserRoleAdmin, http.HandlerFunc(adminHandler.HandleLedgerSweep)))

	return middlewareRepo.LogAccess(middlewareRepo.RecoverPanic(middlewareRepo.Authenticate(mux)))
}
