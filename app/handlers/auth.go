package main

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/avelier/doorkeeper/app/dto"
	appErrors "github.com/avelier/doorkeeper/app/errors"
	authmw "github.com/avelier/doorkeeper/app/middleware"
)

// signUpHandler handles POST /auth/signup
func (app *application) signUpHandler(w http.ResponseWriter, r *http.Request) {
	log := authmw.GetLoggerFromContext(r.Context())

	var req dto.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, appErrors.NewInvalidInput("Invalid request body"))
		return
	}

	req.Email = sanitizeEmail(req.Email)
	req.Name = sanitizeInput(req.Name)

	if appErr := validateRequest(&req); appErr != nil {
		writeErrorResponse(w, appErr)
		return
	}

	resp, appErr := app.authService.SignUp(r.Context(), req)
	if appErr != nil {
		logAppError(log, appErr, "signup failed")
		writeErrorResponse(w, appErr)
		return
	}

	log.Info().Str("user_id", resp.User.ID).Msg("user registered")
	writeJSON(w, http.StatusCreated, resp)
}

// signInHandler handles POST /auth/signin
func (app *application) signInHandler(w http.ResponseWriter, r *http.Request) {
	log := authmw.GetLoggerFromContext(r.Context())

	var req dto.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, appErrors.NewInvalidInput("Invalid request body"))
		return
	}

	req.Email = sanitizeEmail(req.Email)

	if appErr := validateRequest(&req); appErr != nil {
		writeErrorResponse(w, appErr)
		return
	}

	resp, appErr := app.authService.SignIn(r.Context(), req)
	if appErr != nil {
		logAppError(log, appErr, "signin failed")
		writeErrorResponse(w, appErr)
		return
	}

	log.Info().Str("user_id", resp.User.ID).Msg("user signed in")
	writeJSON(w, http.StatusOK, resp)
}

// signOutHandler handles POST /auth/signout. The middleware has already
// validated the token; sign-out itself never fails on a missing session.
func (app *application) signOutHandler(w http.ResponseWriter, r *http.Request) {
	token, ok := authmw.BearerToken(r)
	if !ok {
		writeErrorResponse(w, appErrors.NewUnauthorized("Missing or invalid authorization header"))
		return
	}

	resp, appErr := app.authService.SignOut(r.Context(), token)
	if appErr != nil {
		writeErrorResponse(w, appErr)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// getProfileHandler handles GET /auth/profile
func (app *application) getProfileHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := authmw.UserFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, appErrors.NewUnauthorized("Authentication required"))
		return
	}

	resp, appErr := app.authService.GetProfile(r.Context(), user.ID)
	if appErr != nil {
		writeErrorResponse(w, appErr)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// updateProfileHandler handles PATCH /auth/profile
func (app *application) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := authmw.UserFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, appErrors.NewUnauthorized("Authentication required"))
		return
	}

	var req dto.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, appErrors.NewInvalidInput("Invalid request body"))
		return
	}

	req.Name = sanitizeInput(req.Name)

	if appErr := validateRequest(&req); appErr != nil {
		writeErrorResponse(w, appErr)
		return
	}

	resp, appErr := app.authService.UpdateProfile(r.Context(), user.ID, req)
	if appErr != nil {
		writeErrorResponse(w, appErr)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// meHandler handles GET /auth/me
func (app *application) meHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := authmw.UserFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, appErrors.NewUnauthorized("Authentication required"))
		return
	}

	writeJSON(w, http.StatusOK, dto.MeResponse{
		User:    *user,
		Message: "Token is valid",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorResponse(w http.ResponseWriter, appErr *appErrors.AppError) {
	writeJSON(w, appErr.Status, dto.ErrorResponse{
		Error: appErr.Message,
		Code:  string(appErr.Code),
	})
}

// logAppError keeps internal failures loud and expected ones quiet.
func logAppError(log zerolog.Logger, appErr *appErrors.AppError, msg string) {
	if appErr.Code == appErrors.ErrCodeInternal {
		log.Error().Err(appErr).Msg(msg)
		return
	}
	log.Warn().Str("code", string(appErr.Code)).Msg(msg)
}
