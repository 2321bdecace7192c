package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type stubAPI struct {
	calls   int
	replies []string
	errs    []error
}

func (s *stubAPI) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return openai.ChatCompletionResponse{}, s.errs[i]
	}
	reply := ""
	if i < len(s.replies) {
		reply = s.replies[i]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: reply}},
		},
	}, nil
}

func fastOpts() Options {
	return Options{Model: "test-model", Timeout: time.Second}
}

func TestCompleteSuccess(t *testing.T) {
	api := &stubAPI{replies: []string{`{"risk_level": "high"}`}}
	c := NewWithAPI(api, fastOpts(), nil)

	text, err := c.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatal(err)
	}
	if text != `{"risk_level": "high"}` {
		t.Errorf("text = %q", text)
	}
	if c.Phase() != PhaseSucceeded {
		t.Errorf("phase = %s", c.Phase())
	}
}

func TestCompleteRetriesOnce(t *testing.T) {
	api := &stubAPI{
		errs:    []error{&openai.APIError{HTTPStatusCode: http.StatusInternalServerError}, nil},
		replies: []string{"", "recovered"},
	}
	c := NewWithAPI(api, fastOpts(), nil)

	text, err := c.Complete(context.Background(), "s", "u")
	if err != nil {
		t.Fatal(err)
	}
	if text != "recovered" {
		t.Errorf("text = %q", text)
	}
	if api.calls != 2 {
		t.Errorf("calls = %d, want exactly one retry", api.calls)
	}
}

func TestCompleteQuotaIsUnavailable(t *testing.T) {
	api := &stubAPI{errs: []error{
		&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests},
		&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests},
	}}
	c := NewWithAPI(api, fastOpts(), nil)

	_, err := c.Complete(context.Background(), "s", "u")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if c.Phase() != PhaseFailed {
		t.Errorf("phase = %s", c.Phase())
	}
	if api.calls != 2 {
		t.Errorf("calls = %d", api.calls)
	}
}

func TestCompleteBadRequestIsNotUnavailable(t *testing.T) {
	api := &stubAPI{errs: []error{
		&openai.APIError{HTTPStatusCode: http.StatusBadRequest},
		&openai.APIError{HTTPStatusCode: http.StatusBadRequest},
	}}
	c := NewWithAPI(api, fastOpts(), nil)

	_, err := c.Complete(context.Background(), "s", "u")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrUnavailable) {
		t.Error("4xx client error must not trigger the fallback path")
	}
}

func TestUnavailableClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"deadline", context.DeadlineExceeded, true},
		{"quota 429", &openai.APIError{HTTPStatusCode: 429}, true},
		{"payment 402", &openai.APIError{HTTPStatusCode: 402}, true},
		{"server 503", &openai.APIError{HTTPStatusCode: 503}, true},
		{"bad request", &openai.APIError{HTTPStatusCode: 400}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := unavailable(tt.err); got != tt.want {
				t.Errorf("unavailable(%v) = %v", tt.err, got)
			}
		})
	}
}

func TestEmptyChoices(t *testing.T) {
	api := &emptyAPI{}
	c := NewWithAPI(api, fastOpts(), nil)
	if _, err := c.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error on empty choices")
	}
}

type emptyAPI struct{}

func (e *emptyAPI) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{}, nil
}
