package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jborjar/paquetes/internal/interface/middleware"
)

// HTTPRequest describes a request sent to the test router
type HTTPRequest struct {
	Method string
	Path   string
	// Body is encoded as JSON
	Body interface{}
	// Form is sent as application/x-www-form-urlencoded and takes precedence over Body
	Form    url.Values
	Headers map[string]string
	Cookies []*http.Cookie
	// AccessToken is sent as "Authorization: Bearer <token>"
	AccessToken string
	// SessionCookie is sent in the default session cookie
	SessionCookie string
}

// HTTPResponse wraps the recorder with chainable assertions
type HTTPResponse struct {
	*httptest.ResponseRecorder
	t *testing.T
}

// DoRequest serves req through e and records the response
func DoRequest(t *testing.T, e *echo.Echo, req HTTPRequest) *HTTPResponse {
	t.Helper()

	body, contentType := encodeBody(t, req)
	httpReq := httptest.NewRequest(req.Method, req.Path, body)
	if contentType != "" {
		httpReq.Header.Set(echo.HeaderContentType, contentType)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if req.AccessToken != "" {
		httpReq.Header.Set(echo.HeaderAuthorization, "Bearer "+req.AccessToken)
	}
	if req.SessionCookie != "" {
		httpReq.AddCookie(&http.Cookie{Name: middleware.DefaultSessionCookieName, Value: req.SessionCookie})
	}
	for _, cookie := range req.Cookies {
		httpReq.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httpReq)
	return &HTTPResponse{ResponseRecorder: rec, t: t}
}

func encodeBody(t *testing.T, req HTTPRequest) (io.Reader, string) {
	switch {
	case req.Form != nil:
		return strings.NewReader(req.Form.Encode()), echo.MIMEApplicationForm
	case req.Body != nil:
		data, err := json.Marshal(req.Body)
		require.NoError(t, err)
		return bytes.NewReader(data), echo.MIMEApplicationJSON
	default:
		return nil, ""
	}
}

// AssertStatus checks the status code and prints the body on mismatch
func (r *HTTPResponse) AssertStatus(expected int) *HTTPResponse {
	assert.Equal(r.t, expected, r.Code, "unexpected status code, body: %s", r.Body.String())
	return r
}

// AssertJSONPath checks the value at a dot separated path such as "data.username"
func (r *HTTPResponse) AssertJSONPath(path string, expected interface{}) *HTTPResponse {
	assert.Equal(r.t, expected, lookup(r.GetJSON(), path), "JSON path %s mismatch", path)
	return r
}

// AssertJSONPathExists checks that a non-null value exists at path
func (r *HTTPResponse) AssertJSONPathExists(path string) *HTTPResponse {
	assert.NotNil(r.t, lookup(r.GetJSON(), path), "JSON path %s does not exist", path)
	return r
}

// AssertJSONError checks the {"error": {...}} envelope; an empty message is not compared
func (r *HTTPResponse) AssertJSONError(code string, message string) *HTTPResponse {
	errorObj, ok := r.GetJSON()["error"].(map[string]interface{})
	require.True(r.t, ok, "response does not contain error object: %s", r.Body.String())

	assert.Equal(r.t, code, errorObj["code"], "error code mismatch")
	if message != "" {
		assert.Equal(r.t, message, errorObj["message"], "error message mismatch")
	}
	return r
}

// GetJSON decodes the body as a JSON object
func (r *HTTPResponse) GetJSON() map[string]interface{} {
	var result map[string]interface{}
	require.NoError(r.t, json.Unmarshal(r.Body.Bytes(), &result), "body: %s", r.Body.String())
	return result
}

// GetJSONData returns the "data" object, or nil when data is not an object
func (r *HTTPResponse) GetJSONData() map[string]interface{} {
	data, _ := r.GetJSON()["data"].(map[string]interface{})
	return data
}

// GetJSONDataList returns the "data" array of a list response
func (r *HTTPResponse) GetJSONDataList() []map[string]interface{} {
	items, ok := r.GetJSON()["data"].([]interface{})
	if !ok {
		return nil
	}
	result := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			result = append(result, m)
		}
	}
	return result
}

// GetCookie returns the Set-Cookie entry with the given name
func (r *HTTPResponse) GetCookie(name string) *http.Cookie {
	for _, c := range r.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func lookup(data map[string]interface{}, path string) interface{} {
	var current interface{} = data
	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = m[key]
	}
	return current
}
