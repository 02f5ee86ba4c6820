package sources

import (
	"context"
	"testing"

	"github.com/rozgar-hq/rozgar-dispatch/pkg/httpclient"
)

type mockHTTPClient struct {
	t      *testing.T
	expect map[string]string
	pages  map[string]string
	status int
}

type mockResponse struct {
	body       []byte
	statusCode int
}

func (r mockResponse) Body() []byte    { return r.body }
func (r mockResponse) StatusCode() int { return r.statusCode }

func (m mockHTTPClient) Get(ctx context.Context, url string, headers map[string]string) (httpclient.Response, error) {
	for key, want := range m.expect {
		if got := headers[key]; got != want {
			m.t.Fatalf("expected header %s=%q, got %q", key, want, got)
		}
	}
	body, ok := m.pages[url]
	if !ok {
		m.t.Fatalf("unexpected fetch of %q", url)
	}
	status := m.status
	if status == 0 {
		status = 200
	}
	return mockResponse{body: []byte(body), statusCode: status}, nil
}
