package netsuite

import (
	"context"
	"net/http"
	"net/url"
)

// stubAPI is an in-memory API that records calls
type stubAPI struct {
	queries  []string
	runQuery func(q string) ([]Row, error)

	executed []executedCall
	execute  func(method, path string, body any) (*Response, error)
}

type executedCall struct {
	Method string
	Path   string
	Body   any
}

func (s *stubAPI) RunQuery(_ context.Context, q string) ([]Row, error) {
	s.queries = append(s.queries, q)
	if s.runQuery == nil {
		return nil, nil
	}
	return s.runQuery(q)
}

func (s *stubAPI) Execute(_ context.Context, method, path string, _ url.Values, body any) (*Response, error) {
	s.executed = append(s.executed, executedCall{Method: method, Path: path, Body: body})
	if s.execute == nil {
		return &Response{StatusCode: http.StatusNoContent, Header: http.Header{}}, nil
	}
	return s.execute(method, path, body)
}

func locationResponse(location string) *Response {
	h := http.Header{}
	h.Set("Location", location)
	return &Response{StatusCode: http.StatusNoContent, Header: h}
}
