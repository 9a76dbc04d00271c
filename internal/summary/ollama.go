package summary

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"actcal/internal/errs"
	appLog "actcal/internal/log"
)

const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "mistral"

	activityPrompt = "Summarize the activity into 3-5 concise bullet points.\n" +
		"- Keep each bullet under 80 chars.\n" +
		"- Focus on main apps and tasks.\n" +
		"- No preamble or closing text.\n\nRaw log:\n%s"

	dayPrompt = "You are a brutally honest productivity coach.\n\n" +
		"Summarize today's logs:\n%s\n\n" +
		"Give:\n1. Reality Check\n2. Brutal Strategy\n3. Fixes (3 action points)."
)

// OllamaOptions configures an Ollama client.
type OllamaOptions struct {
	BaseURL string
	Model   string
	// Stream requests NDJSON chunks; they are drained into one string and
	// each chunk is passed to Observer when set.
	Stream   bool
	Observer Observer
	Timeout  time.Duration
}

// Ollama calls a local Ollama server's /api/generate endpoint.
type Ollama struct {
	client   *http.Client
	baseURL  string
	model    string
	stream   bool
	observer Observer
	prompt   string
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewOllama builds an activity summarizer.
func NewOllama(opts OllamaOptions) *Ollama {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultOllamaURL
	}
	if opts.Model == "" {
		opts.Model = DefaultOllamaModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	return &Ollama{
		client:   &http.Client{Timeout: opts.Timeout},
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		model:    opts.Model,
		stream:   opts.Stream,
		observer: opts.Observer,
		prompt:   activityPrompt,
	}
}

// DayReviewer returns a copy of o that asks for a daily review instead of
// an hourly activity summary.
func (o *Ollama) DayReviewer() *Ollama {
	c := *o
	c.prompt = dayPrompt
	return &c
}

// Summarize implements Adapter.
func (o *Ollama) Summarize(ctx context.Context, detail string) (string, error) {
	payload := generateRequest{
		Model:  o.model,
		Prompt: fmt.Sprintf(o.prompt, detail),
		Stream: o.stream,
	}
	body, err := sonic.Marshal(&payload)
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	appLog.Debug("summarizer request", "model", o.model, "stream", o.stream, "detail_len", len(detail))

	resp, err := o.client.Do(req)
	if err != nil {
		return "", errs.Unavailable(errs.SourceSummarizer, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", errs.Unavailable(errs.SourceSummarizer, resp.StatusCode,
			fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(msg))))
	}

	if o.stream {
		return o.drain(resp.Body)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.Unavailable(errs.SourceSummarizer, resp.StatusCode, err)
	}
	var out generateResponse
	if err := sonic.Unmarshal(data, &out); err != nil {
		return "", errs.Malformed(errs.SourceSummarizer, err)
	}
	if out.Error != "" {
		return "", errs.Unavailable(errs.SourceSummarizer, resp.StatusCode, errors.New(out.Error))
	}
	return out.Response, nil
}

// drain reads an NDJSON stream to completion and flattens it.
func (o *Ollama) drain(r io.Reader) (string, error) {
	var b strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	decoded := 0
	done := false
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk generateResponse
		if err := sonic.Unmarshal(line, &chunk); err != nil {
			appLog.Debug("summarizer: skip undecodable chunk", "err", err)
			continue
		}
		decoded++
		if chunk.Error != "" {
			return "", errs.Unavailable(errs.SourceSummarizer, 0, errors.New(chunk.Error))
		}
		b.WriteString(chunk.Response)
		if o.observer != nil && chunk.Response != "" {
			o.observer.OnToken(chunk.Response)
		}
		if chunk.Done {
			done = true
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", errs.Unavailable(errs.SourceSummarizer, 0, err)
	}
	if decoded == 0 {
		return "", errs.Malformed(errs.SourceSummarizer, errors.New("stream contained no decodable chunks"))
	}
	if !done {
		return "", errs.Malformed(errs.SourceSummarizer, errors.New("stream ended before done"))
	}
	return b.String(), nil
}
