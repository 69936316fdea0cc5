// Package gemini provides an implementation of model.Model backed by the
// Google Gemini API (github.com/google/generative-ai-go). It supports system
// instructions, inline images, function declarations and temperature.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"github.com/hupe1980/bizagent/core"
	"github.com/hupe1980/bizagent/model"
	"google.golang.org/api/option"
)

// DefaultModel is the model id used when none is configured.
const DefaultModel = "gemini-2.5-flash-preview-04-17"

// ErrMissingAPIKey is returned by NewModel when no API key is available.
var ErrMissingAPIKey = errors.New("missing GOOGLE_API_KEY or GEMINI_API_KEY")

// Options configure the Gemini model adapter.
type Options struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	APIKey          string
	ClientOptions   []option.ClientOption
}

// Model wraps a genai.Client behind the generic model.Model interface.
type Model struct {
	client *genai.Client
	opts   Options
}

// NewModel creates a Gemini model. The API key defaults to GOOGLE_API_KEY
// falling back to GEMINI_API_KEY.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.APIKey == "" {
		opts.APIKey = os.Getenv("GOOGLE_API_KEY")
	}
	if opts.APIKey == "" {
		opts.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if opts.APIKey == "" && len(opts.ClientOptions) == 0 {
		return nil, ErrMissingAPIKey
	}

	clientOpts := opts.ClientOptions
	if opts.APIKey != "" {
		clientOpts = append([]option.ClientOption{option.WithAPIKey(opts.APIKey)}, clientOpts...)
	}

	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}

	return &Model{client: client, opts: opts}, nil
}

// NewModelFromClient creates a Gemini model from an existing client.
func NewModelFromClient(client *genai.Client, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:           DefaultModel,
		Temperature:     0.2,
		MaxOutputTokens: 8192,
	}
}

// Close releases the underlying client connection.
func (m *Model) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Close()
}

// Generate sends the conversation as a chat: every content but the last
// becomes history, the last one is the outgoing message. Gemini does not
// stream here; one final response is emitted.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		history, system := toGenaiContents(req.Contents)
		if len(history) == 0 {
			errCh <- fmt.Errorf("gemini: no contents provided")
			return
		}

		gm := m.configure(req, system)

		cs := gm.StartChat()
		cs.History = history[:len(history)-1]

		resp, err := cs.SendMessage(ctx, history[len(history)-1].Parts...)
		if err != nil {
			errCh <- fmt.Errorf("gemini generate: %w", err)
			return
		}

		r, err := fromGenaiResponse(resp)
		if err != nil {
			errCh <- err
			return
		}

		out <- r
	}()

	return out, errCh
}

// configure builds a per-request GenerativeModel; genai models are mutable
// and must not be shared between concurrent requests.
func (m *Model) configure(req model.Request, system string) *genai.GenerativeModel {
	gm := m.client.GenerativeModel(m.opts.Model)

	temperature := m.opts.Temperature
	if req.Temperature != nil {
		temperature = float32(*req.Temperature)
	}
	gm.SetTemperature(temperature)

	if m.opts.MaxOutputTokens > 0 {
		gm.SetMaxOutputTokens(m.opts.MaxOutputTokens)
	}

	instructions := req.Instructions
	if system != "" {
		instructions = system
	}
	if instructions != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(instructions)}}
	}

	if len(req.Tools) > 0 {
		gm.Tools = []*genai.Tool{{FunctionDeclarations: toFunctionDeclarations(req.Tools)}}
	}

	return gm
}

// Info returns metadata describing this Gemini model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:           m.opts.Model,
		Provider:       "gemini",
		SupportsTools:  true,
		SupportsVision: true,
	}
}

// toGenaiContents maps normalized contents to genai chat contents. System
// contents are joined and returned separately. Function responses are sent
// with the user role; consecutive contents of the same role are merged since
// Gemini expects alternating turns.
func toGenaiContents(contents []core.Content) ([]*genai.Content, string) {
	var (
		out    []*genai.Content
		system string
	)

	for _, c := range contents {
		if c.Role == core.RoleSystem {
			if t := c.Text(); t != "" {
				if system != "" {
					system += "\n\n"
				}
				system += t
			}
			continue
		}

		role := "user"
		if c.Role == core.RoleAssistant {
			role = "model"
		}

		parts := toGenaiParts(c.Parts)
		if len(parts) == 0 {
			continue
		}

		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Parts = append(out[n-1].Parts, parts...)
			continue
		}

		out = append(out, &genai.Content{Role: role, Parts: parts})
	}

	return out, system
}

func toGenaiParts(parts []core.Part) []genai.Part {
	out := make([]genai.Part, 0, len(parts))

	for _, p := range parts {
		switch part := p.(type) {
		case core.TextPart:
			if part.Text != "" {
				out = append(out, genai.Text(part.Text))
			}
		case core.FilePart:
			out = append(out, genai.Blob{MIMEType: part.MIMEType, Data: part.Data})
		case core.DataPart:
			out = append(out, genai.Text(model.FunctionResponseText(core.FunctionResponse{Response: part.Data})))
		case core.FunctionCallPart:
			args, err := model.ParseArguments(part.FunctionCall)
			if err != nil {
				args = map[string]any{}
			}
			out = append(out, genai.FunctionCall{Name: part.FunctionCall.Name, Args: args})
		case core.FunctionResponsePart:
			out = append(out, genai.FunctionResponse{
				Name:     part.FunctionResponse.Name,
				Response: model.FunctionResponseObject(part.FunctionResponse),
			})
		}
	}

	return out
}

// fromGenaiResponse converts the first candidate into a final model.Response.
// Gemini does not assign call ids, so each function call gets a fresh one.
func fromGenaiResponse(resp *genai.GenerateContentResponse) (model.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return model.Response{}, errors.New("gemini: empty response")
	}

	cand := resp.Candidates[0]

	parts := make([]core.Part, 0, len(cand.Content.Parts))
	for _, p := range cand.Content.Parts {
		switch part := p.(type) {
		case genai.Text:
			if part != "" {
				parts = append(parts, core.TextPart{Text: string(part)})
			}
		case genai.FunctionCall:
			args := "{}"
			if len(part.Args) > 0 {
				args = model.FunctionResponseText(core.FunctionResponse{Response: part.Args})
			}
			parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
				ID:        core.NewID(),
				Name:      part.Name,
				Arguments: args,
			}})
		}
	}

	r := model.Response{
		Partial:      false,
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: "stop",
	}

	for _, p := range parts {
		if _, ok := p.(core.FunctionCallPart); ok {
			r.FinishReason = "tool_calls"
			break
		}
	}

	if resp.UsageMetadata != nil {
		r.Usage = &model.TokenUsage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return r, nil
}
