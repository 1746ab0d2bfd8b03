package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/nbox/texturelab/internal/providers"
	"google.golang.org/api/option"
)

// SystemInstruction frames every texture request
const SystemInstruction = "You are an expert AI texture artist for architectural visualization. " +
	"Your primary function is to generate high-fidelity, SEAMLESS, and TILEABLE PBR textures. " +
	"You MUST always output an image part. Do not respond with text alone unless it is absolutely impossible to generate the image. " +
	"If you cannot generate the image due to safety, explain why briefly. " +
	"Otherwise, transform the input into a professional top-down texture."

// Gemini is an image generator backed by Google Gemini
type Gemini struct {
	apiKey string
}

// New returns a new Gemini generator
func New(apiKey string) *Gemini {
	return &Gemini{apiKey: apiKey}
}

// Generate issues a single generateContent call and returns the first image part
func (g *Gemini) Generate(ctx context.Context, req providers.Request) (*providers.Result, error) {
	if g.apiKey == "" {
		return nil, providers.Errorf(providers.KindFailed, "GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, providers.Wrap(providers.KindFailed, "failed to create new gemini client", err)
	}
	defer client.Close()

	model := client.GenerativeModel(string(req.Model))
	model.SystemInstruction = genai.NewUserContent(genai.Text(SystemInstruction))
	model.SafetySettings = safetySettings()

	parts := []genai.Part{}
	if len(req.Source) > 0 {
		mimeType := req.SourceMIME
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		parts = append(parts, genai.Blob{MIMEType: mimeType, Data: req.Source})
	}
	parts = append(parts, genai.Text(withHints(req)))

	slog.Debug("Calling Gemini", "model", req.Model, "source_bytes", len(req.Source), "resolution", req.Resolution)

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return nil, blockedError(blocked)
		}
		return nil, providers.Wrap(providers.KindFailed, "failed to generate content", err)
	}

	return interpret(resp)
}

func safetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHateSpeech,
		genai.HarmCategoryDangerousContent,
		genai.HarmCategoryHarassment,
		genai.HarmCategorySexuallyExplicit,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		settings = append(settings, &genai.SafetySetting{Category: c, Threshold: genai.HarmBlockOnlyHigh})
	}
	return settings
}

// withHints appends the output size and framing to the prompt. The SDK exposes
// no image config, so the model reads them as instructions.
func withHints(req providers.Request) string {
	var b strings.Builder
	b.WriteString(req.Prompt)

	aspect := req.AspectRatio
	if aspect == "" {
		aspect = "1:1"
	}
	fmt.Fprintf(&b, "\nOutput aspect ratio: %s.", aspect)
	if req.Model.SupportsResolution() && req.Resolution != "" {
		fmt.Fprintf(&b, "\nOutput resolution: %s.", req.Resolution)
	}
	return b.String()
}

// blockedError converts the SDK's block signal into a structured failure
func blockedError(err *genai.BlockedError) error {
	if err.Candidate != nil && err.Candidate.FinishReason == genai.FinishReasonRecitation {
		return &providers.Error{
			Kind:    providers.KindDerivative,
			Message: "Image recitation detected. The model found this pattern too close to existing copyrighted material. Please try a different crop or prompt.",
			Err:     err,
		}
	}
	return &providers.Error{
		Kind:    providers.KindBlocked,
		Message: "Generation blocked by Safety filters. Try a different material or simpler crop.",
		Err:     err,
	}
}

// interpret extracts the first image part of the first candidate
func interpret(resp *genai.GenerateContentResponse) (*providers.Result, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, providers.Errorf(providers.KindEmpty, "No response from AI engine.")
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety || candidate.FinishReason == genai.FinishReasonRecitation {
		return nil, blockedError(&genai.BlockedError{Candidate: candidate})
	}

	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			switch p := part.(type) {
			case genai.Blob:
				if len(p.Data) > 0 {
					return &providers.Result{Image: p.Data, MIMEType: blobMIME(p)}, nil
				}
			case genai.Text:
				text.WriteString(string(p))
			}
		}
	}

	if text.Len() > 0 {
		return nil, providers.Errorf(providers.KindFailed, "AI Feedback: %s", text.String())
	}
	return nil, providers.Errorf(providers.KindEmpty,
		"Model failed to generate image data. This often happens with complex patterns. Please try again with a different crop.")
}

func blobMIME(b genai.Blob) string {
	if b.MIMEType != "" {
		return b.MIMEType
	}
	return "image/png"
}

// Compile-time check that Gemini satisfies the Generator interface
var _ providers.Generator = (*Gemini)(nil)
