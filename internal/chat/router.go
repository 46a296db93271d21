package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/dvloznov/imagexbot/internal/domain"
	"github.com/dvloznov/imagexbot/internal/gcs"
	"github.com/dvloznov/imagexbot/internal/jobs"
	"github.com/dvloznov/imagexbot/internal/llm"
)

// Scheduler arms delayed deletions of transient objects.
type Scheduler interface {
	Schedule(ctx context.Context, objectName string, kind jobs.ArtifactKind, delay time.Duration) string
}

// Models names the provider model used by each mode.
type Models struct {
	Chat   string
	Vision string
	Image  string
}

// RouterConfig configures a Router.
type RouterConfig struct {
	Models               Models
	GeneratedImagePrefix string
	GeneratedImageDelay  time.Duration
	AnalyzedImageDelay   time.Duration
	Now                  func() time.Time
}

// Request is one dispatch to the provider.
type Request struct {
	Mode     Mode
	Text     string
	ImageURL string
	History  []domain.Message
}

// Result is the normalized reply of every mode.
type Result struct {
	Mode             Mode
	Content          string
	ImageURL         *string
	PromptTokens     int64
	CompletionTokens int64
}

// Router builds the provider request for each mode and normalizes the reply.
type Router struct {
	gen     llm.Generator
	objects gcs.ObjectStore
	fetcher gcs.Fetcher
	cleanup Scheduler
	cfg     RouterConfig
	log     zerolog.Logger
}

// NewRouter creates a Router.
func NewRouter(gen llm.Generator, objects gcs.ObjectStore, fetcher gcs.Fetcher, cleanup Scheduler, cfg RouterConfig, log zerolog.Logger) *Router {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.GeneratedImagePrefix == "" {
		cfg.GeneratedImagePrefix = "imageBot_generated_image"
	}
	return &Router{gen: gen, objects: objects, fetcher: fetcher, cleanup: cleanup, cfg: cfg, log: log}
}

// Dispatch sends the request to the provider according to its mode.
func (r *Router) Dispatch(ctx context.Context, req Request) (*Result, error) {
	var (
		res *Result
		err error
	)
	switch req.Mode {
	case ModeImageGeneration:
		res, err = r.generateImage(ctx, req)
	case ModeImageAnalysis:
		res, err = r.analyzeImage(ctx, req)
	case ModeCode:
		res, err = r.converse(ctx, req, &genai.GenerateContentConfig{
			Tools: []*genai.Tool{{CodeExecution: &genai.ToolCodeExecution{}}},
		})
	default:
		res, err = r.converse(ctx, req, nil)
	}
	if err != nil {
		return nil, err
	}
	res.Mode = req.Mode
	return res, nil
}

func (r *Router) generateImage(ctx context.Context, req Request) (*Result, error) {
	resp, err := r.gen.GenerateContent(ctx, r.cfg.Models.Image, []*genai.Content{userContent(req.Text)}, &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return nil, fmt.Errorf("generateImage: generate content: %w", err)
	}

	var (
		text  strings.Builder
		image *genai.Blob
	)
	for _, part := range llm.Parts(resp) {
		if part == nil || part.Thought {
			continue
		}
		if part.InlineData != nil && len(part.InlineData.Data) > 0 && image == nil {
			image = part.InlineData
		}
		text.WriteString(part.Text)
	}
	if image == nil {
		return nil, ErrNoImage
	}

	contentType := image.MIMEType
	if contentType == "" {
		contentType = "image/png"
	}
	objectName := r.cfg.GeneratedImagePrefix + "_" + strconv.FormatInt(r.cfg.Now().UnixMilli(), 10)

	url, err := r.objects.Upload(ctx, objectName, image.Data, contentType)
	if err != nil {
		return nil, fmt.Errorf("generateImage: uploading %s: %w", objectName, err)
	}
	r.cleanup.Schedule(ctx, objectName, jobs.ArtifactGeneratedImage, r.cfg.GeneratedImageDelay)

	prompt, completion := llm.Usage(resp)
	return &Result{
		Content:          text.String(),
		ImageURL:         &url,
		PromptTokens:     prompt,
		CompletionTokens: completion,
	}, nil
}

// analysisSchema constrains the vision reply to {"context": string}.
var analysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"context": {Type: genai.TypeString, Description: "AI generated response"},
	},
	Required: []string{"context"},
}

func (r *Router) analyzeImage(ctx context.Context, req Request) (*Result, error) {
	data, contentType, err := r.fetcher.Fetch(ctx, req.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("analyzeImage: fetching image: %w", err)
	}

	// The attached image is transient once fetched, whatever the model replies.
	defer r.cleanup.Schedule(ctx, r.objects.ObjectName(req.ImageURL), jobs.ArtifactAnalyzedImage, r.cfg.AnalyzedImageDelay)

	contents := []*genai.Content{{
		Role: domain.MessageRoleUser,
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: imageMIMEType(contentType), Data: data}},
			{Text: "prompt: " + req.Text},
		},
	}}

	resp, err := r.gen.GenerateContent(ctx, r.cfg.Models.Vision, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   analysisSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("analyzeImage: generate content: %w", err)
	}

	var out struct {
		Context string `json:"context"`
	}
	if err := json.Unmarshal([]byte(llm.CleanJSON(llm.Text(resp))), &out); err != nil {
		r.log.Warn().Err(err).Msg("Vision reply is not valid JSON")
		return nil, ErrInvalidResponse
	}

	prompt, completion := llm.Usage(resp)
	return &Result{
		Content:          out.Context,
		PromptTokens:     prompt,
		CompletionTokens: completion,
	}, nil
}

// imageMIMEType keeps image/* types and falls back to image/jpeg.
func imageMIMEType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mt, "image/") {
		return "image/jpeg"
	}
	return mt
}

func (r *Router) converse(ctx context.Context, req Request, config *genai.GenerateContentConfig) (*Result, error) {
	contents := append(toContents(TrimHistory(req.History)), userContent(req.Text))

	resp, err := r.gen.GenerateContent(ctx, r.cfg.Models.Chat, contents, config)
	if err != nil {
		return nil, fmt.Errorf("converse: generate content: %w", err)
	}

	prompt, completion := llm.Usage(resp)
	return &Result{
		Content:          renderParts(llm.Parts(resp)),
		PromptTokens:     prompt,
		CompletionTokens: completion,
	}, nil
}

// renderParts joins text parts and renders executed code and its output as
// fenced Markdown blocks, in reply order.
func renderParts(parts []*genai.Part) string {
	var b strings.Builder
	block := func(lang, body string) {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteString("\n")
		}
		b.WriteString("```" + lang + "\n")
		b.WriteString(strings.TrimRight(body, "\n"))
		b.WriteString("\n```\n")
	}

	for _, p := range parts {
		switch {
		case p == nil || p.Thought:
		case p.ExecutableCode != nil:
			block(codeLanguage(p.ExecutableCode.Language), p.ExecutableCode.Code)
		case p.CodeExecutionResult != nil:
			if p.CodeExecutionResult.Output != "" {
				block("", p.CodeExecutionResult.Output)
			}
		default:
			b.WriteString(p.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

func codeLanguage(l genai.Language) string {
	if l == "" || l == genai.LanguageUnspecified {
		return ""
	}
	return strings.ToLower(string(l))
}
