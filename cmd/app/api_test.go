package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func doRequest(t *testing.T, app *application, method, path string, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	ts := httptest.NewServer(app.routes())
	t.Cleanup(ts.Close)

	req, err := http.NewRequest(method, ts.URL+path, nil)
	assert.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := ts.Client().Do(req)
	assert.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })

	var body map[string]any
	err = json.NewDecoder(res.Body).Decode(&body)
	assert.NoError(t, err)

	return res, body
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()

	assert.Equal(t, false, body["success"])
	errBody, ok := body["error"].(map[string]any)
	assert.True(t, ok)
	return errBody["code"].(string)
}

func TestHealthCheck(t *testing.T) {
	app := newTestApplication()

	res, body := doRequest(t, app, http.MethodGet, "/v1/healthcheck", nil)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, true, body["success"])

	data := body["data"].(map[string]any)
	assert.Equal(t, "available", data["status"])
}

func TestNotFoundEnvelope(t *testing.T) {
	app := newTestApplication()

	res, body := doRequest(t, app, http.MethodGet, "/v1/nope", nil)

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))
}

func TestMethodNotAllowedEnvelope(t *testing.T) {
	app := newTestApplication()

	res, _ := doRequest(t, app, http.MethodDelete, "/v1/healthcheck", nil)

	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	app := newTestApplication()

	testCases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/v1/posts"},
		{http.MethodGet, "/v1/me/posts"},
		{http.MethodPost, "/v1/posts/1/likes"},
		{http.MethodPost, "/v1/comments"},
		{http.MethodGet, "/v1/moderation/comments"},
		{http.MethodPost, "/v1/users/logout"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			res, body := doRequest(t, app, tc.method, tc.path, nil)

			assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
			assert.Equal(t, "UNAUTHORIZED", errorCode(t, body))
		})
	}
}

func TestMalformedAuthorizationHeader(t *testing.T) {
	app := newTestApplication()

	res, body := doRequest(t, app, http.MethodGet, "/v1/healthcheck", map[string]string{
		"Authorization": "not-a-bearer-token",
	})

	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, body))
	assert.Equal(t, "Bearer", res.Header.Get("WWW-Authenticate"))
}
