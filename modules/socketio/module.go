// Package socketio provides an action that connects to a Socket.IO server,
// optionally emits an event and waits for a reply event.
package socketio

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/vk/stagechain/internal/ctxlog"
	"github.com/vk/stagechain/internal/dag"
	"github.com/vk/stagechain/internal/registry"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the socketio action.
type Input struct {
	URL                string
	Namespace          string
	OnEvent            string
	EmitEvent          string
	EmitData           string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// NewSocketIO is the factory for the 'socketio' action.
func NewSocketIO(args registry.Args, _ registry.Env) (dag.Work, error) {
	in, err := decodeInput(args)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		return roundTrip(ctx, in)
	}, nil
}

func decodeInput(args registry.Args) (*Input, error) {
	if err := args.Allow("url", "namespace", "on_event", "emit_event", "emit_data", "timeout", "insecure_skip_verify"); err != nil {
		return nil, err
	}

	var in Input
	var err error
	if in.URL, err = args.String("url"); err != nil {
		return nil, err
	}
	parsed, err := url.Parse(in.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("argument 'url': %q is not an absolute URL", in.URL)
	}
	if in.OnEvent, err = args.String("on_event"); err != nil {
		return nil, err
	}
	if in.Namespace, err = args.OptionalString("namespace", "/"); err != nil {
		return nil, err
	}
	if in.EmitEvent, err = args.OptionalString("emit_event", ""); err != nil {
		return nil, err
	}
	if in.EmitData, err = args.OptionalString("emit_data", ""); err != nil {
		return nil, err
	}
	timeout, err := args.OptionalString("timeout", "10s")
	if err != nil {
		return nil, err
	}
	if in.Timeout, err = time.ParseDuration(timeout); err != nil || in.Timeout <= 0 {
		return nil, fmt.Errorf("argument 'timeout': %q is not a positive duration", timeout)
	}
	if in.InsecureSkipVerify, err = args.Bool("insecure_skip_verify", false); err != nil {
		return nil, err
	}
	return &in, nil
}

// roundTrip connects, emits EmitEvent once connected and returns when
// OnEvent arrives, the connection fails or the timeout expires.
func roundTrip(ctx context.Context, in *Input) error {
	logger := ctxlog.FromContext(ctx).With("url", in.URL, "on_event", in.OnEvent)
	logger.Debug("Connecting to Socket.IO server.")

	var connected atomic.Bool
	done := make(chan error, 1)
	report := func(err error) {
		select {
		case done <- err:
		default:
		}
	}

	opCtx, cancel := context.WithTimeout(ctx, in.Timeout)
	defer cancel()

	parsedURL, _ := url.Parse(in.URL)
	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if in.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host), opts)
	io := manager.Socket(in.Namespace, opts)
	defer io.Disconnect()

	io.On(types.EventName("connect"), func(...any) {
		connected.Store(true)
		logger.Info("Connected to Socket.IO server.", "namespace", in.Namespace, "sid", io.Id())
		if in.EmitEvent != "" {
			logger.Debug("Emitting event.", "event", in.EmitEvent)
			io.Emit(in.EmitEvent, in.EmitData)
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		if len(errs) > 0 {
			if err, ok := errs[0].(error); ok {
				report(fmt.Errorf("socket.io connect: %w", err))
				return
			}
		}
		report(errors.New("socket.io connect failed"))
	})
	io.On(types.EventName(in.OnEvent), func(data ...any) {
		logger.Debug("Reply event received.", "items", len(data))
		report(nil)
	})

	io.Connect()

	select {
	case <-opCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected.Load() {
			return fmt.Errorf("timed out after connecting while waiting for event '%s'", in.OnEvent)
		}
		return errors.New("timed out while waiting for initial connection")
	case err := <-done:
		return err
	}
}

// Register registers the action with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("socketio", NewSocketIO)
}
