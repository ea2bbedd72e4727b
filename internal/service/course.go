package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courseforge/internal/config"
	"courseforge/internal/domain"
	"courseforge/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CourseService exposes the three pipeline stages plus a combined run. Each
// stage is independently invokable and synchronous; the stages hold no state
// between calls, so a caller chains them by passing one stage's output to
// the next.
type CourseService interface {
	// AnalyzeGap identifies the skills bridging the starting point and
	// finish line.
	AnalyzeGap(ctx context.Context, startingPoint, finishLine string) ([]domain.SkillItem, error)

	// GroupModules groups the skills into modules and validates that every
	// input skill is assigned to exactly one module.
	GroupModules(ctx context.Context, skills []domain.SkillItem) ([]domain.Module, error)

	// GenerateContent generates content for every module, fanning out the
	// per-skill generation calls within each module.
	GenerateContent(ctx context.Context, modules []domain.Module) (*domain.CourseContentResult, error)

	// GenerateCourse runs all three stages in order.
	GenerateCourse(ctx context.Context, prompt *domain.CoursePrompt) (*domain.CourseContentResult, error)
}

type courseService struct {
	genSvc   domain.CourseGenerationService
	poolSize int
	logger   *zap.Logger
}

// NewCourseService creates a new instance of courseService.
func NewCourseService(genSvc domain.CourseGenerationService, cfg *config.Config, logger *zap.Logger) CourseService {
	poolSize := cfg.Pipeline.WorkerPoolSize
	if poolSize < 1 {
		poolSize = 1
	}
	return &courseService{
		genSvc:   genSvc,
		poolSize: poolSize,
		logger:   logger,
	}
}

func (s *courseService) AnalyzeGap(ctx context.Context, startingPoint, finishLine string) ([]domain.SkillItem, error) {
	if startingPoint == "" {
		return nil, domain.NewInvalidInputError("starting point description is required")
	}
	if finishLine == "" {
		return nil, domain.NewInvalidInputError("finish line description is required")
	}

	skills, err := s.genSvc.AnalyzeKnowledgeGap(ctx, startingPoint, finishLine)
	if err != nil {
		return nil, err
	}
	if len(skills) == 0 {
		return nil, domain.NewGenerationFormatError("gap analysis produced no skills", nil)
	}
	return skills, nil
}

func (s *courseService) GroupModules(ctx context.Context, skills []domain.SkillItem) ([]domain.Module, error) {
	if len(skills) == 0 {
		return nil, domain.NewInvalidInputError("skill list is empty")
	}

	modules, err := s.genSvc.GroupSkills(ctx, skills)
	if err != nil {
		return nil, err
	}
	if err := validateGroupingCoverage(skills, modules); err != nil {
		return nil, err
	}
	return modules, nil
}

// validateGroupingCoverage enforces the grouping invariant: the union of all
// modules' skills equals the input skill list as a set, with no skill
// assigned twice and no skill invented.
func validateGroupingCoverage(skills []domain.SkillItem, modules []domain.Module) error {
	input := make(map[domain.SkillItem]bool, len(skills))
	for _, skill := range skills {
		input[skill] = true
	}

	var issues []string
	assigned := make(map[domain.SkillItem]string, len(skills))
	for _, module := range modules {
		for _, skill := range module.Skills {
			if !input[skill] {
				issues = append(issues, fmt.Sprintf("module %q contains unknown skill %q", module.Name, skill))
				continue
			}
			if prev, ok := assigned[skill]; ok {
				issues = append(issues, fmt.Sprintf("skill %q assigned to both %q and %q", skill, prev, module.Name))
				continue
			}
			assigned[skill] = module.Name
		}
	}
	for _, skill := range skills {
		if _, ok := assigned[skill]; !ok {
			issues = append(issues, fmt.Sprintf("skill %q not assigned to any module", skill))
		}
	}

	if len(issues) > 0 {
		return domain.NewInvalidGroupingError(issues)
	}
	return nil
}

func (s *courseService) GenerateContent(ctx context.Context, modules []domain.Module) (*domain.CourseContentResult, error) {
	if len(modules) == 0 {
		return nil, domain.NewInvalidInputError("module list is empty")
	}
	for i := range modules {
		if err := modules[i].Validate(); err != nil {
			return nil, err
		}
	}

	// Modules are processed one at a time; only the per-skill calls within
	// a module run concurrently. Bundle order therefore matches module order.
	result := &domain.CourseContentResult{
		Modules: make([]domain.ModuleContentBundle, 0, len(modules)),
	}
	for _, module := range modules {
		bundle, err := s.generateModuleBundle(ctx, module)
		if err != nil {
			return nil, err
		}
		result.Modules = append(result.Modules, *bundle)
	}
	return result, nil
}

// skillOutcome is one completed generation task's result.
type skillOutcome struct {
	skill  domain.SkillItem
	blocks []domain.ContentBlock
	err    error
}

// generateModuleBundle fans one generation task per skill out to a bounded
// pool and joins on all of them before returning. Every task runs to
// completion even when a sibling fails; failures are aggregated into one
// error naming each failed skill, and no partial bundle is kept. Blocks are
// concatenated first-completed-first-collected, so bundle order is not tied
// to skill order.
func (s *courseService) generateModuleBundle(ctx context.Context, module domain.Module) (*domain.ModuleContentBundle, error) {
	start := time.Now()
	s.logger.Info("Generating module content",
		zap.String("module_name", module.Name),
		zap.Int("num_skills", len(module.Skills)),
		zap.Int("pool_size", s.poolSize),
	)

	outcomes := make(chan skillOutcome, len(module.Skills))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.poolSize)

	for _, skill := range module.Skills {
		skill := skill
		g.Go(func() error {
			blocks, err := s.genSvc.GenerateSkillContent(gctx, module.Name, skill)
			if err == nil && len(blocks) == 0 {
				err = domain.NewGenerationFormatError(
					fmt.Sprintf("no content blocks generated for skill %q", skill), nil)
			}
			outcomes <- skillOutcome{skill: skill, blocks: blocks, err: err}
			// Always nil: sibling tasks must run to completion so the
			// aggregated error can name every failed skill.
			return nil
		})
	}
	_ = g.Wait()
	close(outcomes)

	var blocks []domain.ContentBlock
	var failedSkills []string
	var taskErrs []error
	for outcome := range outcomes {
		if outcome.err != nil {
			s.logger.Error("Skill content generation failed",
				zap.String("module_name", module.Name),
				zap.String("skill", string(outcome.skill)),
				zap.Error(outcome.err),
			)
			failedSkills = append(failedSkills, string(outcome.skill))
			taskErrs = append(taskErrs, outcome.err)
			continue
		}
		blocks = append(blocks, outcome.blocks...)
	}

	if len(failedSkills) > 0 {
		return nil, domain.NewContentGenerationError(module.Name, failedSkills, errors.Join(taskErrs...))
	}

	now := time.Now()
	for i := range blocks {
		blocks[i].Stamp(util.NewULID(), module.Name, now)
	}

	s.logger.Info("Module content generated",
		zap.String("module_name", module.Name),
		zap.Int("num_blocks", len(blocks)),
		zap.Duration("duration", time.Since(start)),
	)
	return &domain.ModuleContentBundle{
		ModuleName:    module.Name,
		ContentBlocks: blocks,
	}, nil
}

func (s *courseService) GenerateCourse(ctx context.Context, prompt *domain.CoursePrompt) (*domain.CourseContentResult, error) {
	if prompt == nil {
		return nil, domain.NewInvalidInputError("course prompt is required")
	}
	if err := prompt.Validate(); err != nil {
		return nil, err
	}

	s.logger.Info("Starting course generation pipeline", zap.String("course_title", prompt.Title))

	skills, err := s.AnalyzeGap(ctx, prompt.StartingPoint, prompt.FinishLine)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Pipeline stage complete: gap analysis", zap.Int("num_skills", len(skills)))

	modules, err := s.GroupModules(ctx, skills)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Pipeline stage complete: module grouping", zap.Int("num_modules", len(modules)))

	result, err := s.GenerateContent(ctx, modules)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Pipeline stage complete: content generation", zap.Int("num_bundles", len(result.Modules)))
	return result, nil
}
