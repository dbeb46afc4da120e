package main

import (
	"errors"
	"net/http"

	"github.com/microblogcms/microblog/internal/commentservice"
	"github.com/microblogcms/microblog/internal/common"
)

func (app *application) submitCommentHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		PostID     int    `json:"post_id"`
		AuthorName string `json:"author_name"`
		Content    string `json:"content"`
	}

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)

	req := &commentservice.SubmitCommentRequest{
		PostID:     input.PostID,
		UserID:     user.ID,
		AuthorName: input.AuthorName,
		Content:    input.Content,
	}

	comment, err := app.commentService.Submit(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, commentservice.ErrRecordNotFound):
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

	app.writeData(w, r, http.StatusCreated, envelope{"comment": comment}, nil)
}

func (app *application) listCommentsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)
	status := commentservice.CommentStatus(r.URL.Query().Get("status"))

	comments, err := app.commentService.ListForPost(r.Context(), id, user.ID, status)
	if err != nil {
		switch {
		case errors.As(err, &common.ValidationError{}):
			validationErr := err.(common.ValidationError)
			app.failedValidationErrorResponse(w, r, validationErr.Errors)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.writeData(w, r, http.StatusOK, envelope{"comments": comments}, nil)
}

func (app *application) moderateCommentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	var input struct {
		Status string `json:"status"`
	}

	err = app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)

	comment, err := app.commentService.Moderate(r.Context(), id, user.ID, commentservice.CommentStatus(input.Status))
	if err != nil {
		switch {
		case errors.Is(err, commentservice.ErrRecordNotFound):
			app.notFoundErrorResponse(w, r)
		case errors.Is(err, commentservice.ErrAlreadyModerated):
			app.forbiddenErrorResponse(w, r, "comment has already been moderated")
		case errors.As(err, &common.ValidationError{}):
			validationErr := err.(common.ValidationError)
			app.failedValidationErrorResponse(w, r, validationErr.Errors)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.writeData(w, r, http.StatusOK, envelope{"comment": comment}, nil)
}

func (app *application) listPendingCommentsHandler(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := app.readPageParams(r)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	comments, meta, err := app.commentService.ListPending(r.Context(), page, perPage)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.writeData(w, r, http.StatusOK, envelope{"comments": comments}, &meta)
}
