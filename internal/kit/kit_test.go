package kit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestChain_Order(t *testing.T) {
	// WHAT: the first middleware wraps the others.
	// WHY: logging must see the final error after every inner layer.
	var order []string

	mw := func(name string) Middleware {
		return func(next Endpoint) Endpoint {
			return func(ctx context.Context, req any) (any, error) {
				order = append(order, name+"_before")
				resp, err := next(ctx, req)
				order = append(order, name+"_after")
				return resp, err
			}
		}
	}

	base := func(_ context.Context, _ any) (any, error) {
		order = append(order, "endpoint")
		return "ok", nil
	}

	resp, err := Chain(mw("a"), mw("b"))(base)(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp != "ok" {
		t.Fatalf("response: got %v", resp)
	}

	want := "a_before,b_before,endpoint,b_after,a_after"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("order: got %s, want %s", got, want)
	}
}

func TestLogging(t *testing.T) {
	// WHAT: failures log at warn with transport and trace id; errors pass through.
	// WHY: MCP tool failures are otherwise invisible on the server side.
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	errFail := errors.New("fail")

	ep := Logging(logger, "notams_get")(func(context.Context, any) (any, error) {
		return nil, errFail
	})
	ctx := WithTraceID(WithTransport(context.Background(), "mcp"), "abcd1234")
	if _, err := ep(ctx, nil); !errors.Is(err, errFail) {
		t.Fatalf("error: got %v", err)
	}

	out := buf.String()
	for _, want := range []string{"kit: endpoint failed", "endpoint=notams_get", "transport=mcp", "trace_id=abcd1234"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q: %s", want, out)
		}
	}
}

func TestContext_Defaults(t *testing.T) {
	// WHAT: transport defaults to http and trace id to empty.
	// WHY: handlers called outside a middleware stack still log sanely.
	ctx := context.Background()
	if v := GetTransport(ctx); v != "http" {
		t.Errorf("transport: got %q, want http", v)
	}
	if v := GetTraceID(ctx); v != "" {
		t.Errorf("trace id: got %q", v)
	}
}

func TestRecover(t *testing.T) {
	// WHAT: a panicking endpoint returns ErrPanic and Logging still sees it.
	// WHY: a bad record must not take down the stdio MCP server.
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ep := Chain(Logging(logger, "notams_list"), Recover())(func(context.Context, any) (any, error) {
		panic("nil record")
	})
	if _, err := ep(context.Background(), nil); !errors.Is(err, ErrPanic) {
		t.Fatalf("got %v, want ErrPanic", err)
	}
	if !strings.Contains(buf.String(), "nil record") {
		t.Errorf("panic value not logged: %s", buf.String())
	}
}
