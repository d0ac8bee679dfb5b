package backend

import (
	"net/http"
	"net/http/httptest"
	"testing"

	rtest "github.com/marekhanzlik/s3-glacier-restore/internal/test"
)

func TestUserAgentRoundTripper(t *testing.T) {
	var got []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := &http.Client{
		Transport: newUserAgentRoundTripper(http.DefaultTransport, "glacier-restore/0.3.0"),
	}

	for _, ua := range []string{"", "MinIO (linux; amd64) minio-go/v7.0.98", "glacier-restore/0.3.0"} {
		req, err := http.NewRequest(http.MethodPost, server.URL+"/photos/a.jpg?restore", nil)
		rtest.OK(t, err)
		req.Header.Set("User-Agent", ua)

		resp, err := client.Do(req)
		rtest.OK(t, err)
		rtest.OK(t, resp.Body.Close())
		rtest.Equals(t, http.StatusOK, resp.StatusCode)
	}

	rtest.Equals(t, []string{
		"glacier-restore/0.3.0",
		"MinIO (linux; amd64) minio-go/v7.0.98 glacier-restore/0.3.0",
		"glacier-restore/0.3.0",
	}, got)
}
