package handler

import (
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/opuslink/opuslink/internal/cache"
	"github.com/opuslink/opuslink/internal/config"
	"github.com/opuslink/opuslink/internal/errHandler"
	"github.com/opuslink/opuslink/internal/helper"
	"github.com/opuslink/opuslink/internal/models"
	"github.com/opuslink/opuslink/internal/repository"
	"github.com/opuslink/opuslink/internal/request"
	"github.com/opuslink/opuslink/internal/response"
	"github.com/opuslink/opuslink/internal/service"
	"github.com/opuslink/opuslink/internal/smtp"
	"github.com/opuslink/opuslink/internal/validator"

	"github.com/cradoe/gopass"
	"github.com/pascaldekloe/jwt"
)

const (
	UserActivityLogRegistrationDescription  = "Registered an account"
	UserActivityLogLoginDescription         = "Logged in"
	UserActivityLogFailedLoginDescription   = "Failed login attempt"
	UserActivityLogLockedAccountDescription = "Account locked after failed logins"
	UserActivityLogVerifiedDescription      = "Verified email address"
)

const verificationCodeTTL = 15 * time.Minute

type authHandler struct {
	db         repository.Database
	errHandler *errHandler.ErrorHandler
	helper     *helper.HelperRepository
	mailer     smtp.MailerInterface
	cache      *cache.Cache
	escrow     *service.EscrowService
	config     *config.Config
}

func NewAuthHandler(db repository.Database, errHandler *errHandler.ErrorHandler, helper *helper.HelperRepository, mailer smtp.MailerInterface, c *cache.Cache, escrow *service.EscrowService, config *config.Config) *authHandler {
	return &authHandler{
		db:         db,
		errHandler: errHandler,
		helper:     helper,
		mailer:     mailer,
		cache:      c,
		escrow:     escrow,
		config:     config,
	}
}

// New user registration typically involves:
// Input validations and checking that records have not already existed for the unique fields, such as email
// We then insert the user record and create a zero-balance wallet for the user
// A verification code is cached and mailed so the account can be verified
func (h *authHandler) HandleAuthRegister(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email       string              `json:"email"`
		Password    string              `json:"password"`
		FirstName   string              `json:"first_name"`
		LastName    string              `json:"last_name"`
		PhoneNumber string              `json:"phone_number"`
		Role        string              `json:"role"`
		Headline    string              `json:"headline"`
		Validator   validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.errHandler.BadRequest(w, r, err)
		return
	}

	// we need to validate the password to make sure it meets the minimum requirements
	// the Validate function returns a slice of errors if the password does not meet the requirements
	_, errs := gopass.Validate(input.Password)

	if errs != nil {
		// return any errors found before we check the other fields
		// It's important that users have a strong password
		h.errHandler.FailedValidation(w, r, errs)
		return
	}

	_, found, err := h.db.User().GetByEmail(input.Email)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Email), "Email is required")
	input.Validator.Check(validator.IsEmail(input.Email), "Must be a valid email address")

	// we want to make sure no two users have the same email
	input.Validator.Check(!found, "Email is already in use")

	input.Validator.Check(validator.NotBlank(input.FirstName), "First name is required")
	input.Validator.Check(len(input.FirstName) >= 3, "First name is too short")

	input.Validator.Check(validator.NotBlank(input.LastName), "Last name is required")
	input.Validator.Check(len(input.LastName) >= 3, "Last name is too short")

	input.Validator.Check(validator.In(input.Role, repository.UserRoleEmployer, repository.UserRoleWorker), "Role must be employer or worker")

	input.Validator.Check(validator.NotBlank(input.PhoneNumber), "Phone number is required")
	input.Validator.Check(validator.Matches(input.PhoneNumber, validator.RgxPhoneNumber), "Phone number must be in international format")

	// we want to make sure no two users have the same phone number
	found, err = h.db.User().CheckIfPhoneNumberExist(input.PhoneNumber)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	input.Validator.Check(!found, "Phone number has been registered")

	if input.Validator.HasErrors() {
		h.errHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	hashedPassword, err := gopass.Hash(input.Password)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	createdUser := &models.User{
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Email:          input.Email,
		PhoneNumber:    input.PhoneNumber,
		Role:           input.Role,
		HashedPassword: hashedPassword,
	}

	userID, err := h.db.User().Insert(createdUser, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	// every account gets a wallet straight away; creating it is idempotent
	// so a retried registration can't end up with two
	_, err = h.escrow.InitWallet(userID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	code := newVerificationCode()
	if err := h.cache.Set(verificationCacheKey(userID), code, verificationCodeTTL); err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	h.helper.BackgroundTask(r, func() error {
		_, err := h.db.Activity().Insert(&models.ActivityLog{
			UserID:      userID,
			Entity:      repository.ActivityLogUserEntity,
			EntityId:    userID,
			Description: UserActivityLogRegistrationDescription,
		})

		if err != nil {
			log.Printf("Error logging user registration action: %v", err)
			return err
		}

		return nil
	})

	h.helper.BackgroundTask(r, func() error {
		emailData := h.helper.NewEmailData()
		emailData["FirstName"] = createdUser.FirstName
		emailData["Code"] = code

		err := h.mailer.Send(createdUser.Email, emailData, "welcome.tmpl")
		if err != nil {
			log.Printf("Error sending welcome email: %v", err)
			return err
		}

		return nil
	})

	message := "Account created successfully. Check your email for a verification code"

	data := map[string]string{
		"id": userID,
	}
	err = response.JSONCreatedResponse(w, data, message)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

// A fresh code invalidates the previous one; the response does not reveal
// whether the email belongs to an account.
func (h *authHandler) HandleAuthResendVerification(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email     string              `json:"email"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.errHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Email), "Email is required")
	input.Validator.Check(validator.IsEmail(input.Email), "Must be a valid email address")

	if input.Validator.HasErrors() {
		h.errHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	message := "If the email belongs to an account, a new code has been sent"

	user, found, err := h.db.User().GetByEmail(input.Email)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	if !found || user.VerifiedAt.Valid {
		err = response.JSONOkResponse(w, nil, message, nil)
		if err != nil {
			h.errHandler.ServerError(w, r, err)
		}
		return
	}

	code := newVerificationCode()
	if err := h.cache.Set(verificationCacheKey(user.ID), code, verificationCodeTTL); err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	h.helper.BackgroundTask(r, func() error {
		emailData := h.helper.NewEmailData()
		emailData["FirstName"] = user.FirstName
		emailData["Code"] = code

		err := h.mailer.Send(user.Email, emailData, "verification-code.tmpl")
		if err != nil {
			log.Printf("Error sending verification code email: %v", err)
			return err
		}

		return nil
	})

	err = response.JSONOkResponse(w, nil, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *authHandler) HandleAuthVerify(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email     string              `json:"email"`
		Code      string              `json:"code"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.errHandler.BadRequest(w, r, err)
		return
	}

	user, found, err := h.db.User().GetByEmail(input.Email)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Email), "Email is required")
	input.Validator.Check(validator.NotBlank(input.Code), "Verification code is required")
	input.Validator.Check(found, "Invalid email/code")

	if input.Validator.HasErrors() {
		h.errHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	cached, err := h.cache.Get(verificationCacheKey(user.ID))
	if err != nil || cached == "" || cached != input.Code {
		input.Validator.AddError("Invalid or expired verification code")
		h.errHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	if err := h.db.User().Verify(user.ID); err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	h.helper.BackgroundTask(r, func() error {
		if err := h.cache.Delete(verificationCacheKey(user.ID)); err != nil {
			log.Printf("Error clearing verification code: %v", err)
		}

		_, err := h.db.Activity().Insert(&models.ActivityLog{
			UserID:      user.ID,
			Entity:      repository.ActivityLogUserEntity,
			EntityId:    user.ID,
			Description: UserActivityLogVerifiedDescription,
		})
		return err
	})

	message := "Account verified successfully"
	err = response.JSONOkResponse(w, nil, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *authHandler) HandleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email     string              `json:"email"`
		Password  string              `json:"password"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.errHandler.BadRequest(w, r, err)
		return
	}

	user, found, err := h.db.User().GetByEmail(input.Email)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Email), "Email is required")
	input.Validator.Check(validator.IsEmail(input.Email), "Must be a valid email address")
	input.Validator.Check(found, "Incorrect email/password")

	if found {
		passwordMatches, err := gopass.ComparePasswordAndHash(input.Password, user.HashedPassword)
		if err != nil {
			h.errHandler.ServerError(w, r, err)
			return
		}

		input.Validator.Check(validator.NotBlank(input.Password), "Password is required")
		input.Validator.Check(passwordMatches, "Incorrect email/password")

		if !passwordMatches {
			h.helper.BackgroundTask(r, func() error {
				_, err := h.db.Activity().Insert(&models.ActivityLog{
					UserID:      user.ID,
					Entity:      repository.ActivityLogUserEntity,
					EntityId:    user.ID,
					Description: UserActivityLogFailedLoginDescription,
				})

				if err != nil {
					log.Printf("Error logging failed login action: %v", err)
					return err
				}

				return nil
			})

			// if password is not correct, log that, and lock the account after 3 consecutive failed attempts
			count := h.db.Activity().CountConsecutiveFailedLoginAttempts(user.ID, UserActivityLogFailedLoginDescription)
			// check if we already have 2 failed login attempts before this one.
			if count >= 2 {
				h.helper.BackgroundTask(r, func() error {
					err := h.db.User().Lock(user.ID)

					if err != nil {
						log.Printf("Error locking account due to failed login action: %v", err)
						return err
					}

					return nil
				})

				h.helper.BackgroundTask(r, func() error {
					_, err := h.db.Activity().Insert(&models.ActivityLog{
						UserID:      user.ID,
						Entity:      repository.ActivityLogUserEntity,
						EntityId:    user.ID,
						Description: UserActivityLogLockedAccountDescription,
					})

					if err != nil {
						log.Printf("Error logging account lock action: %v", err)
						return err
					}

					return nil
				})

				h.errHandler.FailedValidation(w, r, []string{"Account has been locked. Please contact support"})
				return
			}
		}
	}

	if input.Validator.HasErrors() {
		h.errHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	// check that account is active
	if user.Status == repository.UserAccountLockedStatus {
		message := "Account has been locked. Please contact support"
		response.JSONErrorResponse(w, nil, message, http.StatusForbidden, nil)
		return
	}

	h.helper.BackgroundTask(r, func() error {
		_, err := h.db.Activity().Insert(&models.ActivityLog{
			UserID:      user.ID,
			Entity:      repository.ActivityLogUserEntity,
			EntityId:    user.ID,
			Description: UserActivityLogLoginDescription,
		})

		if err != nil {
			log.Printf("Error logging successful login action: %v", err)
			return err
		}

		return nil
	})

	var claims jwt.Claims
	claims.Subject = user.ID

	expiry := time.Now().Add(24 * time.Hour)
	claims.Issued = jwt.NewNumericTime(time.Now())
	claims.NotBefore = jwt.NewNumericTime(time.Now())
	claims.Expires = jwt.NewNumericTime(expiry)

	claims.Issuer = h.config.BaseURL
	claims.Audiences = []string{h.config.BaseURL}

	jwtBytes, err := claims.HMACSign(jwt.HS256, []byte(h.config.Jwt.SecretKey))
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	data := map[string]string{
		"auth_token":   string(jwtBytes),
		"token_expiry": expiry.Format(time.RFC3339),
		"role":         user.Role,
	}
	message := "Login succesful"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func verificationCacheKey(userID string) string {
	return "verification:" + userID
}

func newVerificationCode() string {
	return fmt.Sprintf("%06d", rand.Intn(1_000_000))
}
