package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// EditorModelName is the Genkit model registered by RegisterEditorialProvider.
const EditorModelName = "dal/editor"

const outputFormatJSON = "json"

// RegisterEditorialProvider exposes completer as a Genkit model so flows
// and Genkit tooling can drive the same provider the editor uses.
func RegisterEditorialProvider(ctx context.Context, completer Completer) (*genkit.Genkit, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}

	g := genkit.Init(ctx)

	genkit.DefineModel(
		g,
		EditorModelName,
		&ai.ModelOptions{
			Label: "Editorial model",
			Supports: &ai.ModelSupports{
				Multiturn:  true,
				SystemRole: true,
				Media:      true,
			},
		},
		modelFunc(completer),
	)

	return g, nil
}

func modelFunc(completer Completer) ai.ModelFunc {
	return func(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
		creq := CompletionRequest{Messages: fromGenkitMessages(req.Messages)}
		if req.Output != nil && req.Output.Format == outputFormatJSON {
			creq.JSONMode = true
		}
		if cfg, ok := req.Config.(*ai.GenerationCommonConfig); ok && cfg != nil {
			creq.Model = cfg.Version
			creq.Temperature = float32(cfg.Temperature)
			creq.MaxTokens = cfg.MaxOutputTokens
		}

		text, err := completer.Complete(ctx, creq)
		if err != nil {
			return nil, err
		}

		return &ai.ModelResponse{
			Request:      req,
			FinishReason: ai.FinishReasonStop,
			Message: &ai.Message{
				Role:    ai.RoleModel,
				Content: []*ai.Part{ai.NewTextPart(text)},
			},
		}, nil
	}
}

func fromGenkitMessages(msgs []*ai.Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		msg := Message{Role: RoleUser}
		switch m.Role {
		case ai.RoleSystem:
			msg.Role = RoleSystem
		case ai.RoleModel:
			msg.Role = RoleAssistant
		}
		var text strings.Builder
		for _, p := range m.Content {
			switch {
			case p.IsMedia():
				msg.ImageURL = p.Text
			case p.IsText():
				text.WriteString(p.Text)
			}
		}
		msg.Content = text.String()
		out = append(out, msg)
	}
	return out
}

// GenkitCompleter sends completions through a Genkit model, so every task
// call shows up in Genkit traces.
type GenkitCompleter struct {
	model ai.Model
}

// NewGenkitCompleter registers completer with Genkit and returns a
// completer that calls it through the registered model.
func NewGenkitCompleter(ctx context.Context, completer Completer) (*GenkitCompleter, error) {
	g, err := RegisterEditorialProvider(ctx, completer)
	if err != nil {
		return nil, err
	}
	model := genkit.LookupModel(g, EditorModelName)
	if model == nil {
		return nil, fmt.Errorf("genkit model %s not registered", EditorModelName)
	}
	return &GenkitCompleter{model: model}, nil
}

// Complete implements Completer.
func (c *GenkitCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	mreq := &ai.ModelRequest{
		Messages: toGenkitMessages(req.Messages),
		Config: &ai.GenerationCommonConfig{
			Version:         req.Model,
			Temperature:     float64(req.Temperature),
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if req.JSONMode {
		mreq.Output = &ai.ModelOutputConfig{Format: outputFormatJSON}
	}

	resp, err := c.model.Generate(ctx, mreq, nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func toGenkitMessages(msgs []Message) []*ai.Message {
	out := make([]*ai.Message, 0, len(msgs))
	for _, m := range msgs {
		switch {
		case m.Role == RoleSystem:
			out = append(out, ai.NewSystemTextMessage(m.Content))
		case m.Role == RoleAssistant:
			out = append(out, ai.NewModelTextMessage(m.Content))
		case m.ImageURL != "":
			out = append(out, ai.NewUserMessage(ai.NewTextPart(m.Content), ai.NewMediaPart("", m.ImageURL)))
		default:
			out = append(out, ai.NewUserTextMessage(m.Content))
		}
	}
	return out
}
