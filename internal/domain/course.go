package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// CoursePrompt is the immutable input describing the course to generate.
type CoursePrompt struct {
	Title         string `json:"course_title"`
	Topics        string `json:"course_topics"`
	Description   string `json:"course_description"`
	StartingPoint string `json:"starting_point_description"`
	FinishLine    string `json:"finish_line_description"`
}

// Validate validates the course prompt
func (p *CoursePrompt) Validate() error {
	if p.StartingPoint == "" {
		return NewInvalidInputError("starting point description is required")
	}
	if p.FinishLine == "" {
		return NewInvalidInputError("finish line description is required")
	}
	return nil
}

// SkillItem names one unit of knowledge or skill identified by gap analysis.
type SkillItem string

// Module is a named group of skills produced by the grouping stage.
// Skill order within a module is not meaningful.
type Module struct {
	Name   string      `json:"module_name"`
	Skills []SkillItem `json:"skills"`
}

// Validate validates the module
func (m *Module) Validate() error {
	if m.Name == "" {
		return NewInvalidInputError("module name is required")
	}
	if len(m.Skills) == 0 {
		return NewInvalidInputError(fmt.Sprintf("module %q has no skills", m.Name))
	}
	return nil
}

// BlockType discriminates the content block union.
type BlockType string

const (
	BlockTypeText     BlockType = "Text"
	BlockTypeQuestion BlockType = "Question"
)

// TextContent is the payload of an explanatory text block.
type TextContent struct {
	Body string `json:"body"`
}

// QuestionContent is the payload of a multiple-choice question block.
type QuestionContent struct {
	QuestionText  string   `json:"questionText"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	UserAnswer    string   `json:"userAnswer,omitempty"`
}

// ContentBlock is one atomic unit of generated course material: either an
// explanatory text or a quiz question, discriminated by Type. Exactly one of
// Text and Question is set, matching Type. The bookkeeping fields (ID,
// IsComplete, ModuleName, timestamps) are stamped by the pipeline after
// parsing; the model is never asked to produce them.
type ContentBlock struct {
	ID         string
	Type       BlockType
	Title      string
	IsComplete bool
	ModuleName string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Text     *TextContent
	Question *QuestionContent
}

// contentBlockJSON is the flat wire form of the union. Field names follow
// the upstream content schema (camelCase).
type contentBlockJSON struct {
	ID         string    `json:"id,omitempty"`
	Type       BlockType `json:"type"`
	Title      string    `json:"title"`
	IsComplete bool      `json:"isComplete,omitempty"`
	ModuleName string    `json:"moduleName,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`

	Body          string   `json:"body,omitempty"`
	QuestionText  string   `json:"questionText,omitempty"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
	UserAnswer    string   `json:"userAnswer,omitempty"`
}

// MarshalJSON flattens the active variant into one object with a type tag.
func (b ContentBlock) MarshalJSON() ([]byte, error) {
	out := contentBlockJSON{
		ID:         b.ID,
		Type:       b.Type,
		Title:      b.Title,
		IsComplete: b.IsComplete,
		ModuleName: b.ModuleName,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
	switch b.Type {
	case BlockTypeText:
		if b.Text != nil {
			out.Body = b.Text.Body
		}
	case BlockTypeQuestion:
		if b.Question != nil {
			out.QuestionText = b.Question.QuestionText
			out.Options = b.Question.Options
			out.CorrectAnswer = b.Question.CorrectAnswer
			out.UserAnswer = b.Question.UserAnswer
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the flat wire form into the tagged union, validating
// the variant-specific shape. A shape violation yields a DomainError rather
// than a half-populated block.
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var raw contentBlockJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Title == "" {
		return NewInvalidInputError("content block title is required")
	}

	*b = ContentBlock{
		ID:         raw.ID,
		Type:       raw.Type,
		Title:      raw.Title,
		IsComplete: raw.IsComplete,
		ModuleName: raw.ModuleName,
		CreatedAt:  raw.CreatedAt,
		UpdatedAt:  raw.UpdatedAt,
	}

	switch raw.Type {
	case BlockTypeText:
		if raw.Body == "" {
			return NewInvalidInputError(fmt.Sprintf("text block %q has no body", raw.Title))
		}
		b.Text = &TextContent{Body: raw.Body}
	case BlockTypeQuestion:
		if raw.QuestionText == "" {
			return NewInvalidInputError(fmt.Sprintf("question block %q has no question text", raw.Title))
		}
		if len(raw.Options) == 0 {
			return NewInvalidInputError(fmt.Sprintf("question block %q has no options", raw.Title))
		}
		if !contains(raw.Options, raw.CorrectAnswer) {
			return NewInvalidInputError(fmt.Sprintf("question block %q: correct answer %q is not one of the options", raw.Title, raw.CorrectAnswer))
		}
		b.Question = &QuestionContent{
			QuestionText:  raw.QuestionText,
			Options:       raw.Options,
			CorrectAnswer: raw.CorrectAnswer,
			UserAnswer:    raw.UserAnswer,
		}
	default:
		return NewInvalidInputError(fmt.Sprintf("unknown content block type %q", raw.Type))
	}
	return nil
}

// Stamp fills the system-owned bookkeeping fields on a freshly parsed block.
// IsComplete defaults to true, matching the upstream content defaults.
func (b *ContentBlock) Stamp(id, moduleName string, now time.Time) {
	b.ID = id
	b.ModuleName = moduleName
	b.IsComplete = true
	b.CreatedAt = now
	b.UpdatedAt = now
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// ModuleContentBundle is one module plus every content block generated for
// its skills. Built once during a pipeline run, never mutated afterwards.
// Block order reflects task completion order, not skill order.
type ModuleContentBundle struct {
	ModuleName    string         `json:"module_name"`
	ContentBlocks []ContentBlock `json:"content_blocks"`
}

// CourseContentResult is the terminal artifact of a pipeline run. Bundle
// order matches the grouping stage's module order.
type CourseContentResult struct {
	Modules []ModuleContentBundle `json:"modules"`
}
