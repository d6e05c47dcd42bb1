package moderation

import (
	"context"
	"net/http"
	"testing"

	"github.com/h2non/gock"
)

const censorURL = "http://censor.local:8055"

type ctxKeyTest struct{}

func TestClient_Allowed(t *testing.T) {
	defer gock.Off()

	tests := []struct {
		name    string
		status  int
		want    bool
		wantErr bool
	}{
		{name: "allowed", status: http.StatusOK, want: true},
		{name: "banned", status: http.StatusUnprocessableEntity, want: false},
		{name: "service failure", status: http.StatusInternalServerError, wantErr: true},
	}

	c, err := New(censorURL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	c.RequestID = func(ctx context.Context) string {
		id, _ := ctx.Value(ctxKeyTest{}).(string)
		return id
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gock.New(censorURL).
				Post("/check").
				MatchHeader("X-Request-Id", "req-42").
				JSON(map[string]string{"text": "some comment"}).
				Reply(tt.status)

			ctx := context.WithValue(context.Background(), ctxKeyTest{}, "req-42")
			got, err := c.Allowed(ctx, "some comment")
			if tt.wantErr {
				if err == nil {
					t.Error("want error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("want allowed %v, got %v", tt.want, got)
			}
		})
	}

	if !gock.IsDone() {
		t.Error("want all mocked requests to be consumed")
	}
}

func TestClient_AllowedUnavailable(t *testing.T) {
	defer gock.Off()
	gock.DisableNetworking()
	defer gock.EnableNetworking()

	c, err := New("http://unreachable.local:1")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if _, err := c.Allowed(context.Background(), "text"); err == nil {
		t.Error("want error for unreachable service, got nil")
	}
}
