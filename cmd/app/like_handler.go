package main

import (
	"errors"
	"net/http"

	"github.com/microblogcms/microblog/internal/common"
	"github.com/microblogcms/microblog/internal/likeservice"
)

func (app *application) toggleLikeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)

	result, err := app.likeService.Toggle(r.Context(), id, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, likeservice.ErrRecordNotFound):
			app.notFoundErrorResponse(w, r)
		case errors.As(err, &common.ValidationError{}):
			validationErr := err.(common.ValidationError)
			app.failedValidationErrorResponse(w, r, validationErr.Errors)
		case errors.As(err, &common.RateLimitError{}):
			rateLimitErr := err.(common.RateLimitError)
			app.rateLimitExceededResponse(w, r, rateLimitErr.RetryAfter)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.writeData(w, r, http.StatusOK, envelope{"like": result}, nil)
}
