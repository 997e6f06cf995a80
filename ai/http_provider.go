package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vibelang/vibe-core/value"
	"github.com/vibelang/vibe-core/vm"
)

// HTTPProvider is a vendor-neutral JSON-over-HTTP provider, generalized
// from the teacher's per-vendor adapters (OpenAIAdapter/AnthropicAdapter):
// marshal a request, POST it, decode the response. BuildBody and
// ParseReply carry the one piece that is genuinely vendor-specific; both
// default to a plain {prompt, model} / {text, usage} shape when nil.
type HTTPProvider struct {
	Client     *http.Client
	Endpoint   string
	APIKey     string
	AuthHeader string // header name for APIKey; defaults to "Authorization"

	BuildBody func(Request) (any, error)
	ParseReply func([]byte) (Result, error)

	// MaxToolRounds bounds a Vibe call's tool loop (spec.md §4.4 "vibe
	// keeps issuing tool calls until the model stops or a round limit is
	// hit").
	MaxToolRounds int
}

type plainRequestBody struct {
	Prompt string     `json:"prompt"`
	Model  string     `json:"model"`
	Tools  []ToolSpec `json:"tools,omitempty"`
}

type plainReplyBody struct {
	Text      string           `json:"text"`
	ToolCalls []plainToolCall  `json:"tool_calls,omitempty"`
	Usage     *value.Usage     `json:"usage,omitempty"`
}

type plainToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

func (p *HTTPProvider) client() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return &http.Client{Timeout: 60 * time.Second}
}

func (p *HTTPProvider) buildBody(req Request) (any, error) {
	if p.BuildBody != nil {
		return p.BuildBody(req)
	}
	return plainRequestBody{Prompt: req.Text, Model: req.Model, Tools: req.Tools}, nil
}

func (p *HTTPProvider) parseReply(body []byte) (replyWithCalls, error) {
	if p.ParseReply != nil {
		r, err := p.ParseReply(body)
		return replyWithCalls{result: r}, err
	}
	var reply plainReplyBody
	if err := json.Unmarshal(body, &reply); err != nil {
		return replyWithCalls{}, fmt.Errorf("decode provider reply: %w", err)
	}
	return replyWithCalls{result: Result{Value: reply.Text, Usage: reply.Usage}, calls: reply.ToolCalls}, nil
}

type replyWithCalls struct {
	result Result
	calls  []plainToolCall
}

func (p *HTTPProvider) post(ctx context.Context, req Request) ([]byte, error) {
	payload, err := p.buildBody(req)
	if err != nil {
		return nil, err
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal provider request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		header := p.AuthHeader
		if header == "" {
			header = "Authorization"
		}
		httpReq.Header.Set(header, p.APIKey)
	}
	resp, err := p.client().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read provider reply: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("provider returned %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// Do implements Provider.Do.
func (p *HTTPProvider) Do(ctx context.Context, req Request) (Result, error) {
	body, err := p.post(ctx, req)
	if err != nil {
		return Result{}, err
	}
	reply, err := p.parseReply(body)
	if err != nil {
		return Result{}, err
	}
	return reply.result, nil
}

// Vibe implements Provider.Vibe: it loops, feeding each round's tool
// results back as a follow-up request, until the reply carries no further
// tool calls or MaxToolRounds is reached.
func (p *HTTPProvider) Vibe(ctx context.Context, req Request, invoke ToolInvoker) (Result, []vm.ToolRound, error) {
	maxRounds := p.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = 8
	}
	var rounds []vm.ToolRound
	for i := 0; i < maxRounds; i++ {
		body, err := p.post(ctx, req)
		if err != nil {
			return Result{}, rounds, err
		}
		reply, err := p.parseReply(body)
		if err != nil {
			return Result{}, rounds, err
		}
		if len(reply.calls) == 0 {
			return Result{Value: reply.result.Value, Usage: reply.result.Usage}, rounds, nil
		}
		round := vm.ToolRound{}
		followUp := req.Text
		for _, c := range reply.calls {
			started := time.Now()
			out, callErr := invoke(ctx, c.Name, c.Args)
			tc := value.ToolCall{Name: c.Name, Args: c.Args, Result: out, DurationMs: time.Since(started).Milliseconds()}
			if callErr != nil {
				tc.Err = value.NewErr(value.KindHostBlockError, value.Location{}, "%s", callErr.Error())
			}
			round.Calls = append(round.Calls, tc)
			followUp += fmt.Sprintf("\ntool %s -> %v", c.Name, out)
		}
		rounds = append(rounds, round)
		req.Text = followUp
	}
	return Result{}, rounds, fmt.Errorf("vibe call exceeded %d tool rounds", maxRounds)
}
