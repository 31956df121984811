package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/discover/internal/shared"
	"golang.org/x/oauth2"
)

type exchangerFunc func(ctx context.Context, code string) (*oauth2.Token, error)

func (f exchangerFunc) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return f(ctx, code)
}

func okExchanger(ctx context.Context, code string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "access-" + code}, nil
}

func TestOAuthHandler(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		exchange   exchangerFunc
		wantStatus int
		wantErr    error
		wantToken  string
	}{
		{"success", "?state=s1&code=abc", okExchanger, http.StatusOK, nil, "access-abc"},
		{"state mismatch", "?state=other&code=abc", okExchanger, http.StatusBadRequest, shared.ErrStateMismatch, ""},
		{"denied", "?state=s1&error=access_denied", okExchanger, http.StatusBadRequest, shared.ErrAuthFailed, ""},
		{
			"exchange failure", "?state=s1&code=abc",
			func(ctx context.Context, code string) (*oauth2.Token, error) { return nil, errors.New("boom") },
			http.StatusInternalServerError, shared.ErrAuthFailed, "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewOAuthHandler(tt.exchange, "s1", "")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback"+tt.query, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			res := <-h.Result()
			if tt.wantErr != nil {
				if !errors.Is(res.Error(), tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, res.Error())
				}
				return
			}
			if res.Error() != nil || res.Token.AccessToken != tt.wantToken {
				t.Errorf("unexpected result %+v", res)
			}
			if !strings.Contains(rec.Body.String(), "Connected to Spotify") {
				t.Error("expected success page")
			}
		})
	}

	t.Run("second callback rejected", func(t *testing.T) {
		h := NewOAuthHandler(exchangerFunc(okExchanger), "s1", "/cb")
		if h.Routes()[0] != "/cb" {
			t.Errorf("unexpected routes %v", h.Routes())
		}

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/cb?state=s1&code=a", nil))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cb?state=s1&code=b", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if res := <-h.Result(); res.Token.AccessToken != "access-a" {
			t.Errorf("expected first token, got %+v", res.Token)
		}
		if _, open := <-h.Result(); open {
			t.Error("result channel should be closed")
		}
	})
}

func TestCallbackRouter(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	var logs bytes.Buffer
	logger := log.New(&logs)
	logger.SetLevel(log.DebugLevel)

	r := NewCallbackRouter(NewOAuthHandler(exchangerFunc(okExchanger), "s", "/auth/done"), logger)
	r.Use(mw("first"), mw("second"))
	r.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "pong")
	}))

	t.Run("middleware order", func(t *testing.T) {
		order = nil
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Body.String() != "pong" {
			t.Errorf("unexpected body %q", rec.Body.String())
		}
		if fmt.Sprint(order) != "[first second]" {
			t.Errorf("middleware order = %v", order)
		}
	})

	t.Run("callback is GET only", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/done?state=s&code=c", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})

	t.Run("stray paths are logged and get 404", func(t *testing.T) {
		order = nil
		logs.Reset()
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
		if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "Return to your terminal") {
			t.Errorf("unexpected response %d %q", rec.Code, rec.Body.String())
		}
		if len(order) != 2 || !strings.Contains(logs.String(), "/favicon.ico") {
			t.Errorf("stray request skipped middleware: order %v, log %q", order, logs.String())
		}
	})

	t.Run("callback route", func(t *testing.T) {
		logs.Reset()
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/done?state=s&code=c", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
		if !strings.Contains(logs.String(), "status=200") {
			t.Errorf("expected the callback in the request log, got %q", logs.String())
		}
	})
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)
	logger.SetLevel(log.DebugLevel)

	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?code=secret", nil))

	out := buf.String()
	if !strings.Contains(out, "/callback") || !strings.Contains(out, "418") {
		t.Errorf("unexpected log %q", out)
	}
	if strings.Contains(out, "secret") {
		t.Error("query string must not be logged")
	}
}

func TestServer(t *testing.T) {
	logger := shared.NewLogger(io.Discard)
	srv, err := Listen("127.0.0.1:0", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	}), logger)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	resp, err := http.Get("http://" + srv.Addr() + "/")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("unexpected body %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
