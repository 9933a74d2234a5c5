package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/omnichat-dev/omnichat/internal/config"
	"github.com/omnichat-dev/omnichat/internal/history"
	"github.com/omnichat-dev/omnichat/internal/markdown"
	"github.com/omnichat-dev/omnichat/internal/provider"
	"github.com/omnichat-dev/omnichat/internal/provider/gemini"
	"github.com/omnichat-dev/omnichat/internal/provider/openai"
	"github.com/omnichat-dev/omnichat/internal/provider/xai"
	"github.com/omnichat-dev/omnichat/internal/sse"
	"github.com/omnichat-dev/omnichat/internal/stream"
	"github.com/omnichat-dev/omnichat/internal/util"
)

// Router dispatches a send to exactly one upstream adapter, builds the
// adapter's payload from the session state, and drives the resulting stream
// into the surface.
type Router struct {
	cfg   *config.Config
	state *State

	openai *openai.Client
	gemini *gemini.Client
	xai    *xai.Client

	// streaming guards against a second route while a stream is active.
	streaming atomic.Bool
}

// NewRouter wires the provider clients with the configured keys and shared
// HTTP client.
func NewRouter(cfg *config.Config, st *State, httpClient *http.Client) *Router {
	return &Router{
		cfg:    cfg,
		state:  st,
		openai: openai.NewClient(cfg.OpenAIAPIKey, httpClient),
		gemini: gemini.NewClient(cfg.GeminiAPIKey, httpClient),
		xai:    xai.NewClient(cfg.XAIAPIKey, httpClient),
	}
}

// Route resolves the effective model and capabilities, builds the payload
// for the matching adapter and streams the response into ui. All failures
// surface as notices; Route never returns an error to its caller.
func (r *Router) Route(ctx context.Context, model string, webSearch bool, ui stream.Surface) {
	if !r.streaming.CompareAndSwap(false, true) {
		ui.Notify(stream.NoticeWarning, "A response is still streaming. Please wait for it to finish.", 0)
		return
	}
	defer r.streaming.Store(false)

	if model == "" {
		model = r.cfg.DefaultModel
	}

	systemPrompt, knowledge := "", ""
	active := r.state.ActiveAssistant()
	if active != nil {
		systemPrompt = active.Instructions
		knowledge = active.KnowledgeText()
		if active.Capabilities.WebSearch != nil {
			webSearch = *active.Capabilities.WebSearch
		}
	}

	turn, ok := r.state.History.LastUserTurn()
	if !ok {
		ui.Notify(stream.NoticeWarning, "Please enter a message first.", 0)
		return
	}

	rt := r.cfg.Routing
	// Substitution only applies when an assistant config drives the request;
	// without one the restricted model keeps its plain chat path and web
	// search is simply dropped below.
	if active != nil && model == rt.RestrictedModel && (turn.ImageData != "" || webSearch || knowledge != "" || systemPrompt != "") {
		log.Debugf("chat: model %s cannot serve this request, substituting %s", model, rt.FallbackModel)
		model = rt.FallbackModel
	}
	// Web search only works on the one model known to support it.
	if model != rt.WebSearchModel {
		webSearch = false
	}

	if turn.Content == "" && turn.ImageData == "" && knowledge == "" && systemPrompt == "" {
		ui.Notify(stream.NoticeWarning, "Cannot send an empty message.", 0)
		return
	}

	_, imageGen, deepResearch := r.state.Modes()
	combined := CombinePrompt(systemPrompt, knowledge, turn.Content)

	switch {
	case imageGen:
		r.generateImage(ctx, turn.Content, ui)
	case deepResearch:
		r.deepResearch(ctx, combined, ui)
	case strings.HasPrefix(model, "grok-"):
		r.routeGrok(ctx, model, combined, ui)
	case strings.HasPrefix(model, "gemini-"):
		r.routeGemini(ctx, model, systemPrompt, knowledge, ui)
	case model == rt.RestrictedModel:
		r.routeChatCompletions(ctx, model, combined, ui)
	case model == rt.ReasoningModel:
		r.routeResponses(ctx, model, combined, turn, webSearch, true, ui)
	case util.InArray(rt.ResponsesModels, model):
		r.routeResponses(ctx, model, combined, turn, webSearch, false, ui)
	default:
		ui.Notify(stream.NoticeWarning, fmt.Sprintf("Model %s is not implemented yet.", model), 0)
	}
}

// chatMessages flattens the history into chat-completions messages, with
// the last user message carrying the combined prompt text.
func (r *Router) chatMessages(combined string) []openai.Message {
	turns := r.state.History.Snapshot()
	msgs := make([]openai.Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, openai.Message{Role: string(t.Role), Content: t.Content})
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == string(history.RoleUser) {
			msgs[i].Content = combined
			break
		}
	}
	return msgs
}

func (r *Router) routeChatCompletions(ctx context.Context, model, combined string, ui stream.Surface) {
	if r.cfg.OpenAIAPIKey == "" {
		ui.Notify(stream.NoticeError, "OpenAI API key is not configured.", 0)
		return
	}
	payload := openai.NewChatRequest(model, r.chatMessages(combined), "high")
	ui.ShowThinking("Thinking...")
	body, err := r.openai.StreamChatCompletions(ctx, payload)
	if err != nil {
		r.failRequest(ui, err)
		return
	}
	sess := stream.NewSession()
	provider.Consume(ctx, body, sse.BlankLine, openai.DecodeChatFrame, sess, ui)
	r.finish(sess, ui, ProtocolChat)
}

func (r *Router) routeResponses(ctx context.Context, model, combined string, turn history.Turn, webSearch, reasoning bool, ui stream.Surface) {
	if r.cfg.OpenAIAPIKey == "" {
		ui.Notify(stream.NoticeError, "OpenAI API key is not configured.", 0)
		return
	}
	if turn.ImageData != "" && !ValidImageData(turn.ImageData) {
		ui.Notify(stream.NoticeError, "Attached image is not a supported inline image format.", 0)
		return
	}

	parts := make([]openai.ContentPart, 0, 3)
	// A freshly generated image rides along exactly once.
	if imageURL := r.state.ConsumeImage(); imageURL != "" {
		parts = append(parts, openai.ContentPart{Type: openai.PartInputImage, ImageURL: imageURL})
	}
	parts = append(parts, openai.ContentPart{Type: openai.PartInputText, Text: combined})
	if turn.ImageData != "" {
		parts = append(parts, openai.ContentPart{Type: openai.PartInputImage, ImageURL: turn.ImageData})
	}

	opts := openai.ResponsesOptions{
		PreviousResponseID: r.state.Continuation(ProtocolResponses),
		WebSearch:          webSearch,
	}
	if reasoning {
		opts.ReasoningEffort = "high"
	} else {
		temperature := 0.8
		opts.Temperature = &temperature
	}
	payload := openai.NewResponsesRequest(model, []openai.InputMessage{openai.NewInputMessage(parts)}, opts)

	ui.ShowThinking("Thinking...")
	body, err := r.openai.StreamResponses(ctx, payload)
	if err != nil {
		r.failRequest(ui, err)
		return
	}
	sess := stream.NewScopedSession()
	provider.Consume(ctx, body, sse.BlankLine, openai.DecodeResponsesFrame, sess, ui)
	r.finish(sess, ui, ProtocolResponses)
}

func (r *Router) routeGemini(ctx context.Context, model, systemPrompt, knowledge string, ui stream.Surface) {
	if r.cfg.GeminiAPIKey == "" {
		ui.Notify(stream.NoticeError, "Gemini API key is not configured.", 0)
		return
	}
	contents := gemini.BuildContents(r.state.History.Snapshot())
	gemini.PrependKnowledge(contents, knowledge)

	ui.ShowThinking("Thinking...")
	body, err := r.gemini.StreamGenerateContent(ctx, model, contents, gemini.NewSystemInstruction(systemPrompt), gemini.DefaultGenerationConfig())
	if err != nil {
		r.failRequest(ui, err)
		return
	}
	sess := stream.NewSession()
	provider.Consume(ctx, body, sse.BlankLine, gemini.DecodeFrame, sess, ui)
	r.finish(sess, ui, ProtocolGemini)
}

func (r *Router) routeGrok(ctx context.Context, model, combined string, ui stream.Surface) {
	if r.cfg.XAIAPIKey == "" {
		ui.Notify(stream.NoticeError, "xAI API key is not configured.", 0)
		return
	}
	payload := xai.NewChatRequest(model, r.chatMessages(combined))
	ui.ShowThinking("Thinking...")
	body, err := r.xai.StreamChatCompletions(ctx, payload)
	if err != nil {
		r.failRequest(ui, err)
		return
	}
	sess := stream.NewSession()
	provider.Consume(ctx, body, sse.SingleLine, xai.DecodeFrame, sess, ui)
	r.finish(sess, ui, ProtocolGrok)
}

func (r *Router) generateImage(ctx context.Context, prompt string, ui stream.Surface) {
	if r.cfg.OpenAIAPIKey == "" {
		ui.Notify(stream.NoticeError, "OpenAI API key is not configured.", 0)
		return
	}
	ui.ShowThinking("Generating image...")
	img, err := r.openai.GenerateImage(ctx, prompt)
	ui.HideThinking()
	if err != nil {
		notifyError(ui, err)
		return
	}
	caption := img.RevisedPrompt
	if caption == "" {
		caption = prompt
	}
	ui.ShowImage(uuid.NewString(), img.URL, caption)
	r.state.History.Append(history.Turn{Role: history.RoleAssistant, Content: caption, ImageURL: img.URL})
	r.state.RememberImage(img.URL)
}

func (r *Router) deepResearch(ctx context.Context, prompt string, ui stream.Surface) {
	if r.cfg.GeminiAPIKey == "" {
		ui.Notify(stream.NoticeError, "Gemini API key is not configured.", 0)
		return
	}
	ui.ShowThinking("Researching... this can take a while.")
	report, err := r.gemini.DeepResearch(ctx, r.cfg.Routing.ResearchModel, prompt)
	ui.HideThinking()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			ui.Notify(stream.NoticeError, "Deep research timed out.", 0)
			return
		}
		notifyError(ui, err)
		return
	}
	md := report.Markdown()
	id := uuid.NewString()
	ui.CreateMessage(id)
	ui.FinalizeMessage(id, markdown.Render(md))
	ui.SetupActions(id, md)
	r.state.History.Append(history.Turn{Role: history.RoleAssistant, Content: md})
}

// GenerateImage runs a standalone image-generation request; it shares the
// streaming guard with Route so a chat stream and a generation never
// interleave on one surface.
func (r *Router) GenerateImage(ctx context.Context, prompt string, ui stream.Surface) {
	if !r.streaming.CompareAndSwap(false, true) {
		ui.Notify(stream.NoticeWarning, "A response is still streaming. Please wait for it to finish.", 0)
		return
	}
	defer r.streaming.Store(false)
	if strings.TrimSpace(prompt) == "" {
		ui.Notify(stream.NoticeWarning, "Please enter an image prompt.", 0)
		return
	}
	r.generateImage(ctx, prompt, ui)
}

// Research runs a standalone deep-research request under the same guard.
func (r *Router) Research(ctx context.Context, prompt string, ui stream.Surface) {
	if !r.streaming.CompareAndSwap(false, true) {
		ui.Notify(stream.NoticeWarning, "A response is still streaming. Please wait for it to finish.", 0)
		return
	}
	defer r.streaming.Store(false)
	if strings.TrimSpace(prompt) == "" {
		ui.Notify(stream.NoticeWarning, "Please enter a research topic.", 0)
		return
	}
	r.deepResearch(ctx, prompt, ui)
}

// Synthesize runs text-to-speech with the configured voice defaults.
func (r *Router) Synthesize(ctx context.Context, text, voice, format, instructions string) ([]byte, error) {
	if r.cfg.OpenAIAPIKey == "" {
		return nil, &provider.StatusError{Code: http.StatusServiceUnavailable, Msg: "OpenAI API key is not configured."}
	}
	if voice == "" {
		voice = r.cfg.Speech.Voice
	}
	if format == "" {
		format = r.cfg.Speech.Format
	}
	if instructions == "" {
		instructions = r.cfg.Speech.Instructions
	}
	return r.openai.Synthesize(ctx, openai.SpeechRequest{Text: text, Voice: voice, Format: format, Instructions: instructions})
}

// finish runs the finalize pass, appends the surviving raw text to history
// and records the continuation token for the next turn.
func (r *Router) finish(sess *stream.Session, ui stream.Surface, p Protocol) {
	raw, ok := sess.Finalize(ui)
	if ok {
		r.state.History.Append(history.Turn{Role: history.RoleAssistant, Content: raw})
	}
	r.state.StoreContinuation(p, sess.ContinuationID)
}

// failRequest settles the UI after a request that never produced a stream.
func (r *Router) failRequest(ui stream.Surface, err error) {
	ui.HideThinking()
	notifyError(ui, err)
}

func notifyError(ui stream.Surface, err error) {
	var statusErr *provider.StatusError
	if errors.As(err, &statusErr) {
		ui.Notify(stream.NoticeError, statusErr.Msg, 0)
		return
	}
	ui.Notify(stream.NoticeError, "Request failed: "+err.Error(), 0)
}
