package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/microblogcms/microblog/internal/userservice"
)

func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundErrorResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedErrorResponse)

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthCheckHandler)

	// user service
	router.HandlerFunc(http.MethodPost, "/v1/users/register", app.registerUserHandler)
	router.HandlerFunc(http.MethodPut, "/v1/users/activate", app.activateUserHandler)
	router.HandlerFunc(http.MethodPost, "/v1/users/login", app.loginUserHandler)
	router.HandlerFunc(http.MethodPost, "/v1/users/logout", app.requireAuthUser(app.logoutUserHandler))

	// post service
	router.HandlerFunc(http.MethodGet, "/v1/posts", app.listPublishedPostsHandler)
	router.HandlerFunc(http.MethodGet, "/v1/tags", app.listTagsHandler)
	router.HandlerFunc(http.MethodPost, "/v1/posts", app.requirePermission(app.createDraftHandler, userservice.PermissionWritePost))
	router.HandlerFunc(http.MethodGet, "/v1/me/posts", app.requireAuthUser(app.listOwnPostsHandler))
	router.HandlerFunc(http.MethodGet, "/v1/posts/:id", app.getPostHandler)
	router.HandlerFunc(http.MethodPatch, "/v1/posts/:id", app.requirePermission(app.updateDraftHandler, userservice.PermissionWritePost))
	router.HandlerFunc(http.MethodDelete, "/v1/posts/:id", app.requirePermission(app.deleteDraftHandler, userservice.PermissionWritePost))
	router.HandlerFunc(http.MethodPost, "/v1/posts/:id/publish", app.requirePermission(app.publishPostHandler, userservice.PermissionWritePost))

	// like service
	router.HandlerFunc(http.MethodPost, "/v1/posts/:id/likes", app.requireActivatedUser(http.HandlerFunc(app.toggleLikeHandler)))

	// comment service
	router.HandlerFunc(http.MethodGet, "/v1/posts/:id/comments", app.listCommentsHandler)
	router.HandlerFunc(http.MethodPost, "/v1/comments", app.requireActivatedUser(http.HandlerFunc(app.submitCommentHandler)))
	router.HandlerFunc(http.MethodPatch, "/v1/comments/:id/moderate", app.requirePermission(app.moderateCommentHandler, userservice.PermissionModerateComment))
	router.HandlerFunc(http.MethodGet, "/v1/moderation/comments", app.requirePermission(app.listPendingCommentsHandler, userservice.PermissionModerateComment))

	return app.recoverPanic(app.logRequest(app.authenticate(router)))
}
