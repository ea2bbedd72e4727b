package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"courseforge/internal/config"
	"courseforge/internal/domain"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// textModel is the slice of the langchaingo client the adapter needs. Both
// the Ollama and OpenAI clients satisfy it.
type textModel interface {
	Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error)
}

// Client implements domain.CourseGenerationService on top of a langchaingo
// model. Every method is one structured call: render the task and inputs
// into a prompt demanding a strict JSON shape, invoke the model, then parse
// and validate the response into the typed result.
type Client struct {
	model       textModel
	temperature float64
	timeout     time.Duration
	logger      *zap.Logger
}

// NewClient wraps an already constructed model client.
func NewClient(model textModel, cfg config.LLMConfig, logger *zap.Logger) (*Client, error) {
	if model == nil {
		return nil, fmt.Errorf("model client cannot be nil")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		model:       model,
		temperature: cfg.Temperature,
		timeout:     timeout,
		logger:      logger,
	}, nil
}

// NewFromConfig builds the configured model backend and wraps it.
func NewFromConfig(cfg config.LLMConfig, logger *zap.Logger) (*Client, error) {
	switch cfg.Source {
	case "ollama":
		if cfg.ServerURL == "" {
			return nil, fmt.Errorf("ollama server URL cannot be empty")
		}
		if cfg.Model == "" {
			return nil, fmt.Errorf("ollama model name cannot be empty")
		}
		httpClient := &http.Client{Timeout: cfg.Timeout}
		model, err := ollama.New(
			ollama.WithServerURL(cfg.ServerURL),
			ollama.WithModel(cfg.Model),
			ollama.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create LangchainGo Ollama client: %w", err)
		}
		logger.Info("Initialized Ollama generation client",
			zap.String("server_url", cfg.ServerURL), zap.String("model", cfg.Model))
		return NewClient(model, cfg, logger)
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai API key cannot be empty")
		}
		model, err := openai.New(
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create LangchainGo OpenAI client: %w", err)
		}
		logger.Info("Initialized OpenAI generation client", zap.String("model", cfg.Model))
		return NewClient(model, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM source: %q", cfg.Source)
	}
}

// inputField is one named input rendered into the prompt.
type inputField struct {
	name  string
	value string
}

// AnalyzeKnowledgeGap implements domain.CourseGenerationService.
func (c *Client) AnalyzeKnowledgeGap(ctx context.Context, startingPoint, finishLine string) ([]domain.SkillItem, error) {
	var parsed struct {
		Skills []domain.SkillItem `json:"skills"`
	}
	err := c.generate(ctx,
		"Analyze the starting point and finish line to identify the knowledge and skills needed to bridge the gap. Each item must be one specific knowledge area or skill the student needs to learn.",
		[]inputField{
			{name: "starting_point_description", value: startingPoint},
			{name: "finish_line_description", value: finishLine},
		},
		`{"skills": ["skill name", "..."]}`,
		&parsed,
	)
	if err != nil {
		return nil, err
	}

	skills := make([]domain.SkillItem, 0, len(parsed.Skills))
	for _, s := range parsed.Skills {
		if trimmed := strings.TrimSpace(string(s)); trimmed != "" {
			skills = append(skills, domain.SkillItem(trimmed))
		}
	}
	c.logger.Info("Knowledge gap analysis complete", zap.Int("num_skills", len(skills)))
	return skills, nil
}

// GroupSkills implements domain.CourseGenerationService.
func (c *Client) GroupSkills(ctx context.Context, skills []domain.SkillItem) ([]domain.Module, error) {
	skillList, err := json.Marshal(skills)
	if err != nil {
		return nil, domain.NewInternalError("failed to encode skill list", err)
	}

	var parsed struct {
		Modules []domain.Module `json:"modules"`
	}
	err = c.generate(ctx,
		"Group the list of knowledge and skills into coherent modules for the course. Use every skill exactly once and do not invent new skills.",
		[]inputField{
			{name: "knowledge_skills_list", value: string(skillList)},
		},
		`{"modules": [{"module_name": "name", "skills": ["skill name", "..."]}]}`,
		&parsed,
	)
	if err != nil {
		return nil, err
	}

	for i := range parsed.Modules {
		if err := parsed.Modules[i].Validate(); err != nil {
			return nil, domain.NewGenerationFormatError("module grouping output failed validation", err)
		}
	}
	c.logger.Info("Module grouping complete", zap.Int("num_modules", len(parsed.Modules)))
	return parsed.Modules, nil
}

// GenerateSkillContent implements domain.CourseGenerationService.
func (c *Client) GenerateSkillContent(ctx context.Context, moduleName string, skill domain.SkillItem) ([]domain.ContentBlock, error) {
	var parsed struct {
		ContentBlocks []domain.ContentBlock `json:"content_blocks"`
	}
	err := c.generate(ctx,
		"Generate educational content for a specific skill within a module. Output multiple content blocks mixing text explanations and multiple-choice quiz questions.",
		[]inputField{
			{name: "module_name", value: moduleName},
			{name: "skill_item", value: string(skill)},
		},
		`{"content_blocks": [`+
			`{"type": "Text", "title": "block title", "body": "explanatory text"}, `+
			`{"type": "Question", "title": "block title", "questionText": "question", "options": ["a", "b"], "correctAnswer": "a"}`+
			`]}`,
		&parsed,
	)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Skill content generated",
		zap.String("module_name", moduleName),
		zap.String("skill", string(skill)),
		zap.Int("num_blocks", len(parsed.ContentBlocks)))
	return parsed.ContentBlocks, nil
}

// generate performs one model call and unmarshals the response into out.
func (c *Client) generate(ctx context.Context, task string, inputs []inputField, outputShape string, out interface{}) error {
	prompt := c.buildPrompt(task, inputs, outputShape)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.model.Call(ctx, prompt, llms.WithTemperature(c.temperature))
	if err != nil {
		c.logger.Error("LLM call failed", zap.Error(err))
		return domain.NewLLMServiceError(err)
	}

	c.logger.Debug("Raw LLM response received", zap.String("raw_response", raw))

	extracted, ok := extractJSONObject(raw)
	if !ok {
		c.logger.Error("No JSON object found in LLM response", zap.String("raw_response", raw))
		return domain.NewGenerationFormatError("no JSON object found in model response", nil)
	}

	if err := json.Unmarshal([]byte(extracted), out); err != nil {
		c.logger.Error("Failed to unmarshal LLM response",
			zap.Error(err), zap.String("extracted_json", extracted))
		return domain.NewGenerationFormatError("model response does not match the requested shape", err)
	}
	return nil
}

func (c *Client) buildPrompt(task string, inputs []inputField, outputShape string) string {
	var b strings.Builder
	b.WriteString(task)
	b.WriteString("\n\n")
	for _, in := range inputs {
		fmt.Fprintf(&b, "%s: %s\n", in.name, in.value)
	}
	b.WriteString("\nRespond with ONLY a JSON object in the following shape, with no extra commentary:\n")
	b.WriteString(outputShape)
	return b.String()
}

// extractJSONObject strips reasoning tags and markdown fencing, then returns
// the outermost JSON object in the response.
func extractJSONObject(raw string) (string, bool) {
	cleaned := strings.TrimSpace(raw)

	if thinkStart := strings.Index(cleaned, "<think>"); thinkStart != -1 {
		if thinkEnd := strings.Index(cleaned, "</think>"); thinkEnd != -1 && thinkEnd > thinkStart {
			cleaned = strings.TrimSpace(cleaned[:thinkStart] + cleaned[thinkEnd+len("</think>"):])
		}
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return cleaned[start : end+1], true
}

// Static assertion that Client implements the generation port.
var _ domain.CourseGenerationService = (*Client)(nil)
