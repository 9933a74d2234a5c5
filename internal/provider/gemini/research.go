package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kaptinlin/jsonrepair"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/omnichat-dev/omnichat/internal/provider"
)

// Deep research is a single long-running generation; the request is torn
// down if the model has not answered within this ceiling.
const researchTimeout = 30 * time.Minute

// Report is the structured deep-research result. Field order is the
// rendering order.
type Report struct {
	Title             string `json:"Report_Title"`
	Introduction      string `json:"Introduction_Scope"`
	HistoricalContext string `json:"Historical_Context_Background"`
	KeyConcepts       string `json:"Key_Concepts_Definitions"`
	MainAnalysis      string `json:"Main_Analysis_Exploration"`
	CurrentState      string `json:"Current_State_Applications"`
	Challenges        string `json:"Challenges_Perspectives_Criticisms"`
	FutureOutlook     string `json:"Future_Outlook_Trends"`
	Conclusion        string `json:"Conclusion"`
}

// Markdown renders the report sections as one markdown document.
func (r *Report) Markdown() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", r.Title)
	sections := []struct {
		heading, body string
	}{
		{"Introduction & Scope", r.Introduction},
		{"Historical Context & Background", r.HistoricalContext},
		{"Key Concepts & Definitions", r.KeyConcepts},
		{"Main Analysis", r.MainAnalysis},
		{"Current State & Applications", r.CurrentState},
		{"Challenges, Perspectives & Criticisms", r.Challenges},
		{"Future Outlook & Trends", r.FutureOutlook},
		{"Conclusion", r.Conclusion},
	}
	for _, s := range sections {
		if s.body == "" {
			continue
		}
		fmt.Fprintf(&buf, "## %s\n\n%s\n\n", s.heading, s.body)
	}
	return buf.String()
}

// reportSchema constrains the model to emit the report JSON shape.
func reportSchema() map[string]any {
	property := func(desc string) map[string]any {
		return map[string]any{"type": "STRING", "description": desc}
	}
	return map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"Report_Title":                       property("Fitting and descriptive title for the report."),
			"Introduction_Scope":                 property("Comprehensive introduction, scope, objectives, and significance."),
			"Historical_Context_Background":      property("Relevant historical context, background, key developments, or foundational principles."),
			"Key_Concepts_Definitions":           property("Detailed explanation of core concepts, terminology, and principles with examples."),
			"Main_Analysis_Exploration":          property("Central section exploring 3-6 significant sub-themes in depth, including analysis, evidence, perspectives."),
			"Current_State_Applications":         property("Current status, relevance, real-world applications, or manifestations."),
			"Challenges_Perspectives_Criticisms": property("Challenges, limitations, criticisms, controversies, or differing perspectives."),
			"Future_Outlook_Trends":              property("Potential future developments, emerging trends, research directions, or long-term outlook."),
			"Conclusion":                         property("Synthesized key points, reiteration of significance, and final thoughts."),
		},
		"required": []string{
			"Report_Title", "Introduction_Scope", "Historical_Context_Background",
			"Key_Concepts_Definitions", "Main_Analysis_Exploration", "Current_State_Applications",
			"Challenges_Perspectives_Criticisms", "Future_Outlook_Trends", "Conclusion",
		},
	}
}

// DeepResearch runs a non-streaming structured generation for a research
// report. The nested JSON the model emits is repaired before parsing, since
// models routinely produce almost-valid JSON.
func (c *Client) DeepResearch(ctx context.Context, model, prompt string) (*Report, error) {
	ctx, cancel := context.WithTimeout(ctx, researchTimeout)
	defer cancel()

	payload := map[string]any{
		"contents": []map[string]any{{"parts": []map[string]any{{"text": prompt}}}},
		"generationConfig": map[string]any{
			"response_mime_type": "application/json",
			"response_schema":    reportSchema(),
		},
	}
	body, _ := json.Marshal(payload)
	endpoint := c.baseURL + "/" + model + ":generateContent?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	log.Infof("gemini: deep research request sent (model %s)", model)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("deep research request timed out after 30 minutes: %w", context.DeadlineExceeded)
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, provider.ClassifyError("Gemini", resp.StatusCode, respBody)
	}

	nested := gjson.GetBytes(respBody, "candidates.0.content.parts.0.text").String()
	if nested == "" {
		reason := gjson.GetBytes(respBody, "promptFeedback.blockReason").String()
		if reason == "" {
			reason = gjson.GetBytes(respBody, "candidates.0.finishReason").String()
		}
		if reason == "" {
			reason = "unexpected response structure"
		}
		return nil, fmt.Errorf("deep research failed: %s", reason)
	}

	var report Report
	if err = json.Unmarshal([]byte(nested), &report); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(nested)
		if repairErr != nil {
			return nil, fmt.Errorf("deep research returned invalid JSON: %w", err)
		}
		if err = json.Unmarshal([]byte(repaired), &report); err != nil {
			return nil, fmt.Errorf("deep research returned unparseable JSON: %w", err)
		}
		log.Debug("gemini: repaired malformed report JSON")
	}
	return &report, nil
}
