package dto

import "courseforge/internal/domain"

// GapAnalysisRequest is the input for the knowledge gap analysis stage
type GapAnalysisRequest struct {
	StartingPoint string `json:"starting_point"`
	FinishLine    string `json:"finish_line"`
}

// GapAnalysisResponse lists the skills needed to bridge the gap
type GapAnalysisResponse struct {
	Skills []string `json:"skills"`
}

// ModulePayload represents one module in requests and responses
type ModulePayload struct {
	ModuleName string   `json:"module_name"`
	Skills     []string `json:"skills"`
}

// GroupModulesRequest is the input for the module grouping stage
type GroupModulesRequest struct {
	Skills []string `json:"skills"`
}

// GroupModulesResponse is the grouping stage output
type GroupModulesResponse struct {
	Modules []ModulePayload `json:"modules"`
}

// GenerateContentRequest is the input for the content generation stage
type GenerateContentRequest struct {
	Modules []ModulePayload `json:"modules"`
}

// CourseGenerationRequest is the input for a full pipeline run
type CourseGenerationRequest struct {
	CourseTitle       string `json:"course_title"`
	CourseTopics      string `json:"course_topics"`
	CourseDescription string `json:"course_description"`
	StartingPoint     string `json:"starting_point"`
	FinishLine        string `json:"finish_line"`
}

// ModuleContentBundleResponse is one module plus its generated content blocks
type ModuleContentBundleResponse struct {
	ModuleName    string                `json:"module_name"`
	ContentBlocks []domain.ContentBlock `json:"content_blocks"`
}

// CourseContentResponse is the terminal pipeline artifact in the API
type CourseContentResponse struct {
	SessionID string                        `json:"session_id,omitempty"`
	Modules   []ModuleContentBundleResponse `json:"modules"`
}

// ErrorResponse represents an error in the API response
type ErrorResponse struct {
	Error string `json:"error"`
}
