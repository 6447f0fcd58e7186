package http_request

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/stagechain/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			body, _ := io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(r.Method + " " + string(body)))
		case "/created":
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPRequest(t *testing.T) {
	srv := newServer(t)
	r := registry.New()
	(&Module{Client: srv.Client()}).Register(r)
	factory, ok := r.Lookup("http_request")
	require.True(t, ok)

	run := func(t *testing.T, args registry.Args) (string, error) {
		t.Helper()
		var out bytes.Buffer
		work, err := factory(args, registry.Env{Out: &out})
		require.NoError(t, err)
		err = work(context.Background())
		return out.String(), err
	}

	t.Run("successful request prints body", func(t *testing.T) {
		out, err := run(t, registry.Args{
			"url":        cty.StringVal(srv.URL + "/ok"),
			"method":     cty.StringVal("post"),
			"body":       cty.StringVal("payload"),
			"print_body": cty.True,
		})
		require.NoError(t, err)
		assert.Equal(t, "POST payload\n", out)
	})

	t.Run("expected status", func(t *testing.T) {
		_, err := run(t, registry.Args{
			"url":           cty.StringVal(srv.URL + "/created"),
			"expect_status": cty.NumberIntVal(201),
		})
		require.NoError(t, err)

		_, err = run(t, registry.Args{
			"url":           cty.StringVal(srv.URL + "/ok"),
			"expect_status": cty.NumberIntVal(201),
		})
		assert.ErrorContains(t, err, "unexpected status 200, want 201")
	})

	t.Run("server error fails the stage", func(t *testing.T) {
		_, err := run(t, registry.Args{"url": cty.StringVal(srv.URL + "/broken")})
		assert.ErrorContains(t, err, "unexpected status 500")
	})

	t.Run("url is required", func(t *testing.T) {
		_, err := factory(registry.Args{}, registry.Env{})
		assert.ErrorContains(t, err, "url")
	})
}
