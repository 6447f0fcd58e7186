// Package http_request provides an action that performs an HTTP request and
// fails the stage on an unexpected status code.
package http_request

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vk/stagechain/internal/ctxlog"
	"github.com/vk/stagechain/internal/dag"
	"github.com/vk/stagechain/internal/registry"
)

// Module implements the registry.Module interface for this package. A nil
// Client uses a client with a 30 second timeout.
type Module struct {
	Client *http.Client
}

// Input defines the arguments for the http_request action.
type Input struct {
	URL          string
	Method       string
	Body         string
	ExpectStatus int
	PrintBody    bool
}

func (m *Module) client() *http.Client {
	if m.Client != nil {
		return m.Client
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// factory returns the 'http_request' action factory bound to client.
func factory(client *http.Client) registry.ActionFactory {
	return func(args registry.Args, env registry.Env) (dag.Work, error) {
		if err := args.Allow("url", "method", "body", "expect_status", "print_body"); err != nil {
			return nil, err
		}
		var in Input
		var err error
		if in.URL, err = args.String("url"); err != nil {
			return nil, err
		}
		if in.Method, err = args.OptionalString("method", http.MethodGet); err != nil {
			return nil, err
		}
		in.Method = strings.ToUpper(in.Method)
		if in.Body, err = args.OptionalString("body", ""); err != nil {
			return nil, err
		}
		if in.ExpectStatus, err = args.Int("expect_status", 0); err != nil {
			return nil, err
		}
		if in.PrintBody, err = args.Bool("print_body", false); err != nil {
			return nil, err
		}

		return func(ctx context.Context) error {
			return do(ctx, client, in, env.Out)
		}, nil
	}
}

// do performs the request. Without an expected status any 2xx response is
// accepted.
func do(ctx context.Context, client *http.Client, in Input, out io.Writer) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Making HTTP request", "method", in.Method, "url", in.URL)

	var body io.Reader
	if in.Body != "" {
		body = strings.NewReader(in.Body)
	}
	req, err := http.NewRequestWithContext(ctx, in.Method, in.URL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	logger.Info("Received HTTP response", "status", resp.Status)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case in.ExpectStatus != 0 && resp.StatusCode != in.ExpectStatus:
		return fmt.Errorf("unexpected status %d, want %d", resp.StatusCode, in.ExpectStatus)
	case in.ExpectStatus == 0 && (resp.StatusCode < 200 || resp.StatusCode > 299):
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if in.PrintBody {
		if _, err := fmt.Fprintln(out, string(respBody)); err != nil {
			return err
		}
	}
	return nil
}

// Register registers the action with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("http_request", factory(m.client()))
}
