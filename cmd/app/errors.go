package main

import (
	"log/slog"
	"net/http"
	"strconv"
)

const (
	codeValidation   = "VALIDATION_ERROR"
	codeUnauthorized = "UNAUTHORIZED"
	codeForbidden    = "FORBIDDEN"
	codeNotFound     = "NOT_FOUND"
	codeRateLimit    = "RATE_LIMIT_EXCEEDED"
	codeInternal     = "INTERNAL_ERROR"
)

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func (app *application) logError(r *http.Request, err error) {
	var (
		method  = r.Method
		url     = r.URL.RequestURI()
		message = err.Error()
	)

	app.logger.Error(message, slog.String("method", method), slog.String("url", url))
}

func (app *application) writeErrorResponse(w http.ResponseWriter, r *http.Request, status int, body errorBody, headers http.Header) {
	env := envelope{"success": false, "error": body}

	err := app.writeJSON(w, status, env, headers)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (app *application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	app.writeErrorResponse(w, r, http.StatusInternalServerError, errorBody{
		Code:    codeInternal,
		Message: "the server encountered a problem and could not process your request",
	}, nil)
}

func (app *application) badRequestErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.writeErrorResponse(w, r, http.StatusBadRequest, errorBody{
		Code:    codeValidation,
		Message: err.Error(),
	}, nil)
}

func (app *application) failedValidationErrorResponse(w http.ResponseWriter, r *http.Request, errors map[string]string) {
	app.writeErrorResponse(w, r, http.StatusBadRequest, errorBody{
		Code:    codeValidation,
		Message: "the request contains invalid fields",
		Details: errors,
	}, nil)
}

func (app *application) notFoundErrorResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusNotFound, errorBody{
		Code:    codeNotFound,
		Message: "resource not found",
	}, nil)
}

func (app *application) methodNotAllowedErrorResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusMethodNotAllowed, errorBody{
		Code:    codeNotFound,
		Message: "method not allowed",
	}, nil)
}

func (app *application) invalidCredentialsErrorResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusUnauthorized, errorBody{
		Code:    codeUnauthorized,
		Message: "invalid authentication credentials",
	}, nil)
}

func (app *application) invalidAuthenticationTokenResponse(w http.ResponseWriter, r *http.Request) {
	headers := http.Header{}
	headers.Set("WWW-Authenticate", "Bearer")

	app.writeErrorResponse(w, r, http.StatusUnauthorized, errorBody{
		Code:    codeUnauthorized,
		Message: "invalid or missing authentication token",
	}, headers)
}

func (app *application) forbiddenErrorResponse(w http.ResponseWriter, r *http.Request, message string) {
	app.writeErrorResponse(w, r, http.StatusForbidden, errorBody{
		Code:    codeForbidden,
		Message: message,
	}, nil)
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request, retryAfter int) {
	headers := http.Header{}
	headers.Set("Retry-After", strconv.Itoa(retryAfter))

	app.writeErrorResponse(w, r, http.StatusTooManyRequests, errorBody{
		Code:    codeRateLimit,
		Message: "rate limit exceeded, slow down",
	}, headers)
}
