// Package http builds echo contexts for handler tests.
package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/labstack/echo/v4"
)

type RequestOption func(req *http.Request) *http.Request

func WithContext(ctx context.Context) RequestOption {
	return func(req *http.Request) *http.Request {
		return req.WithContext(ctx)
	}
}

func WithHeader(key string, value string, values ...string) RequestOption {
	return func(req *http.Request) *http.Request {
		req.Header.Add(key, value)
		for _, v := range values {
			req.Header.Add(key, v)
		}
		return req
	}
}

// = WithHeader("Content-Type", ctyp)
func ContentType(ctyp string) RequestOption {
	return WithHeader("Content-Type", ctyp)
}

// = WithHeader("Authorization", "Bearer "+token)
func Bearer(token string) RequestOption {
	return WithHeader("Authorization", "Bearer "+token)
}

func request(e *echo.Echo, method string, target string, body io.Reader, opts []RequestOption) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, body)
	for _, opt := range opts {
		req = opt(req)
	}
	resp := httptest.NewRecorder()
	return e.NewContext(req, resp), resp
}

func Get(e *echo.Echo, target string, opts ...RequestOption) (echo.Context, *httptest.ResponseRecorder) {
	return request(e, http.MethodGet, target, nil, opts)
}

func Post(e *echo.Echo, target string, body io.Reader, opts ...RequestOption) (echo.Context, *httptest.ResponseRecorder) {
	return request(e, http.MethodPost, target, body, opts)
}

func Put(e *echo.Echo, target string, body io.Reader, opts ...RequestOption) (echo.Context, *httptest.ResponseRecorder) {
	return request(e, http.MethodPut, target, body, opts)
}

func Delete(e *echo.Echo, target string, opts ...RequestOption) (echo.Context, *httptest.ResponseRecorder) {
	return request(e, http.MethodDelete, target, nil, opts)
}
