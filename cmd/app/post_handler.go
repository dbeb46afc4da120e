package main

import (
	"errors"
	"net/http"

	"github.com/microblogcms/microblog/internal/common"
	"github.com/microblogcms/microblog/internal/postservice"
)

func (app *application) createDraftHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Title   string   `json:"title"`
		Content string   `json:"content"`
		Tags    []string `json:"tags"`
	}

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)

	req := &postservice.CreateDraftRequest{
		Title:   input.Title,
		Content: input.Content,
		Tags:    input.Tags,
		UserID:  user.ID,
	}

	post, err := app.postService.CreateDraft(r.Context(), req)
	if err != nil {
		switch {
		case errors.As(err, &common.ValidationError{}):
			validationErr := err.(common.ValidationError)
			app.failedValidationErrorResponse(w, r, validationErr.Errors)
		case errors.As(err, &common.RateLimitError{}):
			rateLimitErr := err.(common.RateLimitError)
			app.rateLimitExceededResponse(w, r, rateLimitErr.RetryAfter)
		case errors.Is(err, postservice.ErrUserForeignKey):
			app.invalidAuthenticationTokenResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.writeData(w, r, http.StatusCreated, envelope{"post": post}, nil)
}

func (app *application) getPostHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)

	post, err := app.postService.GetPostForViewer(r.Context(), id, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, postservice.ErrRecordNotFound):
			app.notFoundErrorResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.writeData(w, r, http.StatusOK, envelope{"post": post}, nil)
}

func (app *application) updateDraftHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	var input postservice.UpdateDraftRequest

	err = app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)

	post, err := app.postService.UpdateDraft(r.Context(), id, user.ID, &input)
	if err != nil {
		switch {
		case errors.Is(err, postservice.ErrRecordNotFound):
			app.notFoundErrorResponse(w, r)
		case errors.Is(err, postservice.ErrNotPostAuthor):
			app.forbiddenErrorResponse(w, r, "only the author may edit this post")
		case errors.Is(err, postservice.ErrPostNotDraft):
			app.forbiddenErrorResponse(w, r, "cannot edit published posts")
		case errors.Is(err, postservice.ErrEditConflict):
			app.forbiddenErrorResponse(w, r, "the post was modified concurrently, please try again")
		case errors.As(err, &common.ValidationError{}):
			validationErr := err.(common.ValidationError)
			app.failedValidationErrorResponse(w, r, validationErr.Errors)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.writeData(w, r, http.StatusOK, envelope{"post": post}, nil)
}

func (app *application) publishPostHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)

	post, err := app.postService.Publish(r.Context(), id, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, postservice.ErrRecordNotFound):
			app.notFoundErrorResponse(w, r)
		case errors.Is(err, postservice.ErrNotPostAuthor):
			app.forbiddenErrorResponse(w, r, "only the author may publish this post")
		case errors.Is(err, postservice.ErrAlreadyPublished):
			app.forbiddenErrorResponse(w, r, "post is already published")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.writeData(w, r, http.StatusOK, envelope{"post": post}, nil)
}

func (app *application) deleteDraftHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)

	err = app.postService.DeleteDraft(r.Context(), id, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, postservice.ErrRecordNotFound):
			app.notFoundErrorResponse(w, r)
		case errors.Is(err, postservice.ErrNotPostAuthor):
			app.forbiddenErrorResponse(w, r, "only the author may delete this post")
		case errors.Is(err, postservice.ErrPostNotDraft):
			app.forbiddenErrorResponse(w, r, "cannot delete published posts")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.writeData(w, r, http.StatusOK, envelope{"message": "draft deleted"}, nil)
}

func (app *application) listPublishedPostsHandler(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := app.readPageParams(r)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	dateFrom, err := app.readDateParam(r, "date_from")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	dateTo, err := app.readDateParam(r, "date_to")
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	f := postservice.Filters{
		Tag:      r.URL.Query().Get("tag"),
		DateFrom: dateFrom,
		DateTo:   dateTo,
		Page:     page,
		PerPage:  perPage,
	}

	posts, meta, err := app.postService.ListPublished(r.Context(), f)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.writeData(w, r, http.StatusOK, envelope{"posts": posts}, &meta)
}

func (app *application) listOwnPostsHandler(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := app.readPageParams(r)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	status := postservice.PostStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = postservice.StatusDraft
	}

	user := app.getUserContext(r)

	posts, meta, err := app.postService.ListByAuthor(r.Context(), user.ID, status, page, perPage)
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

	app.writeData(w, r, http.StatusOK, envelope{"posts": posts}, &meta)
}

func (app *application) listTagsHandler(w http.ResponseWriter, r *http.Request) {
	tags, err := app.postService.ListTags(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.writeData(w, r, http.StatusOK, envelope{"tags": tags}, nil)
}
