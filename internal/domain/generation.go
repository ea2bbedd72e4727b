package domain

import "context"

// CourseGenerationService is the port to the language-model call adapter.
// Each method is a single structured generation call: the adapter renders the
// inputs into a prompt, invokes the model and parses the response into the
// typed result, failing with a GENERATION_FORMAT_ERROR when the output does
// not conform. No method retries; errors surface to the caller unchanged.
type CourseGenerationService interface {
	// AnalyzeKnowledgeGap identifies the skills needed to bridge the gap
	// between a student's starting point and the course finish line.
	AnalyzeKnowledgeGap(ctx context.Context, startingPoint, finishLine string) ([]SkillItem, error)

	// GroupSkills groups the skill list into coherent course modules.
	// Callers validate the coverage invariant; the adapter only parses.
	GroupSkills(ctx context.Context, skills []SkillItem) ([]Module, error)

	// GenerateSkillContent generates the content blocks for one skill
	// within a module. Blocks come back without bookkeeping metadata.
	GenerateSkillContent(ctx context.Context, moduleName string, skill SkillItem) ([]ContentBlock, error)
}
