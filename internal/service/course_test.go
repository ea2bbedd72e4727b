package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"courseforge/internal/config"
	"courseforge/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubGenerationService implements domain.CourseGenerationService with
// function fields so each test controls exactly the calls it cares about.
type stubGenerationService struct {
	analyzeFunc func(ctx context.Context, startingPoint, finishLine string) ([]domain.SkillItem, error)
	groupFunc   func(ctx context.Context, skills []domain.SkillItem) ([]domain.Module, error)
	contentFunc func(ctx context.Context, moduleName string, skill domain.SkillItem) ([]domain.ContentBlock, error)
}

func (s *stubGenerationService) AnalyzeKnowledgeGap(ctx context.Context, startingPoint, finishLine string) ([]domain.SkillItem, error) {
	if s.analyzeFunc != nil {
		return s.analyzeFunc(ctx, startingPoint, finishLine)
	}
	panic("stubGenerationService.analyzeFunc not set")
}

func (s *stubGenerationService) GroupSkills(ctx context.Context, skills []domain.SkillItem) ([]domain.Module, error) {
	if s.groupFunc != nil {
		return s.groupFunc(ctx, skills)
	}
	panic("stubGenerationService.groupFunc not set")
}

func (s *stubGenerationService) GenerateSkillContent(ctx context.Context, moduleName string, skill domain.SkillItem) ([]domain.ContentBlock, error) {
	if s.contentFunc != nil {
		return s.contentFunc(ctx, moduleName, skill)
	}
	panic("stubGenerationService.contentFunc not set")
}

func newTestService(gen domain.CourseGenerationService, poolSize int) CourseService {
	cfg := &config.Config{Pipeline: config.PipelineConfig{WorkerPoolSize: poolSize}}
	return NewCourseService(gen, cfg, zap.NewNop())
}

// textBlocksFor builds n text blocks titled after the skill, the shape the
// stub adapter hands back before metadata stamping.
func textBlocksFor(skill domain.SkillItem, n int) []domain.ContentBlock {
	blocks := make([]domain.ContentBlock, n)
	for i := range blocks {
		blocks[i] = domain.ContentBlock{
			Type:  domain.BlockTypeText,
			Title: fmt.Sprintf("%s #%d", skill, i+1),
			Text:  &domain.TextContent{Body: "explanation of " + string(skill)},
		}
	}
	return blocks
}

func TestAnalyzeGap(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		gen := &stubGenerationService{
			analyzeFunc: func(ctx context.Context, sp, fl string) ([]domain.SkillItem, error) {
				assert.Equal(t, "start", sp)
				assert.Equal(t, "finish", fl)
				return []domain.SkillItem{"HTML basics", "CSS basics"}, nil
			},
		}
		svc := newTestService(gen, 5)

		skills, err := svc.AnalyzeGap(context.Background(), "start", "finish")
		require.NoError(t, err)
		assert.Equal(t, []domain.SkillItem{"HTML basics", "CSS basics"}, skills)
	})

	t.Run("MissingInput", func(t *testing.T) {
		svc := newTestService(&stubGenerationService{}, 5)
		_, err := svc.AnalyzeGap(context.Background(), "", "finish")
		require.Error(t, err)

		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.CodeInvalidInput, domainErr.Code)
	})

	t.Run("EmptySkillList", func(t *testing.T) {
		gen := &stubGenerationService{
			analyzeFunc: func(ctx context.Context, sp, fl string) ([]domain.SkillItem, error) {
				return nil, nil
			},
		}
		svc := newTestService(gen, 5)

		_, err := svc.AnalyzeGap(context.Background(), "start", "finish")
		require.Error(t, err)

		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.CodeGenerationFormat, domainErr.Code)
	})
}

func TestGroupModules_CoverageInvariant(t *testing.T) {
	skills := []domain.SkillItem{"HTML basics", "CSS basics", "JS basics"}

	tests := []struct {
		name    string
		modules []domain.Module
		wantErr string
	}{
		{
			name: "valid grouping",
			modules: []domain.Module{
				{Name: "Markup", Skills: []domain.SkillItem{"HTML basics", "CSS basics"}},
				{Name: "Scripting", Skills: []domain.SkillItem{"JS basics"}},
			},
		},
		{
			name: "unassigned skill",
			modules: []domain.Module{
				{Name: "Markup", Skills: []domain.SkillItem{"HTML basics", "CSS basics"}},
			},
			wantErr: `skill "JS basics" not assigned`,
		},
		{
			name: "skill in two modules",
			modules: []domain.Module{
				{Name: "Markup", Skills: []domain.SkillItem{"HTML basics", "CSS basics"}},
				{Name: "Scripting", Skills: []domain.SkillItem{"JS basics", "CSS basics"}},
			},
			wantErr: `skill "CSS basics" assigned to both`,
		},
		{
			name: "invented skill",
			modules: []domain.Module{
				{Name: "Markup", Skills: []domain.SkillItem{"HTML basics", "CSS basics", "XML basics"}},
				{Name: "Scripting", Skills: []domain.SkillItem{"JS basics"}},
			},
			wantErr: `unknown skill "XML basics"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &stubGenerationService{
				groupFunc: func(ctx context.Context, in []domain.SkillItem) ([]domain.Module, error) {
					return tt.modules, nil
				},
			}
			svc := newTestService(gen, 5)

			modules, err := svc.GroupModules(context.Background(), skills)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.modules, modules)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			var domainErr *domain.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, domain.CodeInvalidGrouping, domainErr.Code)
		})
	}
}

func TestGenerateContent_BlockAccounting(t *testing.T) {
	// Each of the k skills yields a fixed 2 blocks: the bundle must contain
	// exactly 2k blocks, one generation task per skill, nothing dropped or
	// duplicated.
	module := domain.Module{
		Name:   "Web Basics",
		Skills: []domain.SkillItem{"HTML basics", "CSS basics", "JS basics"},
	}

	var calls int32
	gen := &stubGenerationService{
		contentFunc: func(ctx context.Context, moduleName string, skill domain.SkillItem) ([]domain.ContentBlock, error) {
			atomic.AddInt32(&calls, 1)
			assert.Equal(t, "Web Basics", moduleName)
			return textBlocksFor(skill, 2), nil
		},
	}
	svc := newTestService(gen, 5)

	result, err := svc.GenerateContent(context.Background(), []domain.Module{module})
	require.NoError(t, err)
	require.Len(t, result.Modules, 1)

	bundle := result.Modules[0]
	assert.Equal(t, "Web Basics", bundle.ModuleName)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Len(t, bundle.ContentBlocks, 6)

	titles := make(map[string]bool)
	for _, block := range bundle.ContentBlocks {
		assert.NotEmpty(t, block.ID)
		assert.Equal(t, "Web Basics", block.ModuleName)
		assert.True(t, block.IsComplete)
		assert.False(t, block.CreatedAt.IsZero())
		titles[block.Title] = true
	}
	assert.Len(t, titles, 6, "no block duplicated")
}

func TestGenerateContent_ConcurrencyBound(t *testing.T) {
	const poolSize = 2
	skills := make([]domain.SkillItem, 8)
	for i := range skills {
		skills[i] = domain.SkillItem(fmt.Sprintf("skill %d", i))
	}
	module := domain.Module{Name: "Big Module", Skills: skills}

	var inFlight, maxInFlight int32
	gen := &stubGenerationService{
		contentFunc: func(ctx context.Context, moduleName string, skill domain.SkillItem) ([]domain.ContentBlock, error) {
			current := atomic.AddInt32(&inFlight, 1)
			for {
				observed := atomic.LoadInt32(&maxInFlight)
				if current <= observed || atomic.CompareAndSwapInt32(&maxInFlight, observed, current) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return textBlocksFor(skill, 1), nil
		},
	}
	svc := newTestService(gen, poolSize)

	_, err := svc.GenerateContent(context.Background(), []domain.Module{module})
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(poolSize),
		"never more than pool-size generation calls in flight")
}

func TestGenerateContent_Idempotence(t *testing.T) {
	modules := []domain.Module{
		{Name: "Markup", Skills: []domain.SkillItem{"HTML basics", "CSS basics"}},
		{Name: "Scripting", Skills: []domain.SkillItem{"JS basics"}},
	}
	gen := &stubGenerationService{
		contentFunc: func(ctx context.Context, moduleName string, skill domain.SkillItem) ([]domain.ContentBlock, error) {
			return textBlocksFor(skill, 2), nil
		},
	}
	svc := newTestService(gen, 3)

	first, err := svc.GenerateContent(context.Background(), modules)
	require.NoError(t, err)
	second, err := svc.GenerateContent(context.Background(), modules)
	require.NoError(t, err)

	require.Len(t, first.Modules, len(second.Modules))
	for i := range first.Modules {
		// Module order is stable; block order within a bundle is not.
		assert.Equal(t, first.Modules[i].ModuleName, second.Modules[i].ModuleName)
		assert.ElementsMatch(t,
			blockTitles(first.Modules[i].ContentBlocks),
			blockTitles(second.Modules[i].ContentBlocks),
		)
	}
}

func blockTitles(blocks []domain.ContentBlock) []string {
	titles := make([]string, len(blocks))
	for i, b := range blocks {
		titles[i] = b.Title
	}
	sort.Strings(titles)
	return titles
}

func TestGenerateContent_ModuleOrderPreserved(t *testing.T) {
	modules := []domain.Module{
		{Name: "First", Skills: []domain.SkillItem{"a"}},
		{Name: "Second", Skills: []domain.SkillItem{"b"}},
		{Name: "Third", Skills: []domain.SkillItem{"c"}},
	}
	gen := &stubGenerationService{
		contentFunc: func(ctx context.Context, moduleName string, skill domain.SkillItem) ([]domain.ContentBlock, error) {
			return textBlocksFor(skill, 1), nil
		},
	}
	svc := newTestService(gen, 2)

	result, err := svc.GenerateContent(context.Background(), modules)
	require.NoError(t, err)
	require.Len(t, result.Modules, 3)
	assert.Equal(t, "First", result.Modules[0].ModuleName)
	assert.Equal(t, "Second", result.Modules[1].ModuleName)
	assert.Equal(t, "Third", result.Modules[2].ModuleName)
}

func TestGenerateContent_CollectsFailures(t *testing.T) {
	module := domain.Module{
		Name:   "Web Basics",
		Skills: []domain.SkillItem{"HTML basics", "CSS basics", "JS basics"},
	}

	var mu sync.Mutex
	called := make(map[domain.SkillItem]bool)
	gen := &stubGenerationService{
		contentFunc: func(ctx context.Context, moduleName string, skill domain.SkillItem) ([]domain.ContentBlock, error) {
			mu.Lock()
			called[skill] = true
			mu.Unlock()
			if skill == "CSS basics" {
				return nil, domain.NewGenerationFormatError("model response does not match the requested shape", nil)
			}
			return textBlocksFor(skill, 1), nil
		},
	}
	svc := newTestService(gen, 5)

	_, err := svc.GenerateContent(context.Background(), []domain.Module{module})
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.CodeGenerationFormat, domainErr.Code)
	assert.Equal(t, []string{"CSS basics"}, domainErr.Context["failed_skills"])

	// Every sibling task still ran to completion.
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, called, 3)
}

func TestGenerateContent_ZeroBlocksIsFailure(t *testing.T) {
	module := domain.Module{Name: "Web Basics", Skills: []domain.SkillItem{"HTML basics"}}
	gen := &stubGenerationService{
		contentFunc: func(ctx context.Context, moduleName string, skill domain.SkillItem) ([]domain.ContentBlock, error) {
			return nil, nil
		},
	}
	svc := newTestService(gen, 5)

	_, err := svc.GenerateContent(context.Background(), []domain.Module{module})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Web Basics")

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, []string{"HTML basics"}, domainErr.Context["failed_skills"])
}

func TestGenerateContent_EndToEndWebBasics(t *testing.T) {
	// The canonical scenario: two skills grouped into "Web Basics", the
	// adapter returns one text block per skill.
	module := domain.Module{
		Name:   "Web Basics",
		Skills: []domain.SkillItem{"HTML basics", "CSS basics"},
	}
	gen := &stubGenerationService{
		contentFunc: func(ctx context.Context, moduleName string, skill domain.SkillItem) ([]domain.ContentBlock, error) {
			return textBlocksFor(skill, 1), nil
		},
	}
	svc := newTestService(gen, 5)

	result, err := svc.GenerateContent(context.Background(), []domain.Module{module})
	require.NoError(t, err)
	require.Len(t, result.Modules, 1)

	bundle := result.Modules[0]
	assert.Equal(t, "Web Basics", bundle.ModuleName)
	require.Len(t, bundle.ContentBlocks, 2)
	for _, block := range bundle.ContentBlocks {
		assert.Equal(t, domain.BlockTypeText, block.Type)
	}
}

func TestGenerateCourse_FullPipeline(t *testing.T) {
	prompt := &domain.CoursePrompt{
		Title:         "Web Development for Beginners",
		StartingPoint: "No prior programming experience",
		FinishLine:    "Can build and deploy a simple website",
	}

	gen := &stubGenerationService{
		analyzeFunc: func(ctx context.Context, sp, fl string) ([]domain.SkillItem, error) {
			return []domain.SkillItem{"HTML basics", "CSS basics"}, nil
		},
		groupFunc: func(ctx context.Context, skills []domain.SkillItem) ([]domain.Module, error) {
			return []domain.Module{{Name: "Web Basics", Skills: skills}}, nil
		},
		contentFunc: func(ctx context.Context, moduleName string, skill domain.SkillItem) ([]domain.ContentBlock, error) {
			return textBlocksFor(skill, 1), nil
		},
	}
	svc := newTestService(gen, 5)

	result, err := svc.GenerateCourse(context.Background(), prompt)
	require.NoError(t, err)
	require.Len(t, result.Modules, 1)
	assert.Equal(t, "Web Basics", result.Modules[0].ModuleName)
	assert.Len(t, result.Modules[0].ContentBlocks, 2)
}

func TestGenerateCourse_StageFailureAborts(t *testing.T) {
	prompt := &domain.CoursePrompt{StartingPoint: "start", FinishLine: "finish"}

	transportErr := domain.NewLLMServiceError(errors.New("connection refused"))
	gen := &stubGenerationService{
		analyzeFunc: func(ctx context.Context, sp, fl string) ([]domain.SkillItem, error) {
			return []domain.SkillItem{"HTML basics"}, nil
		},
		groupFunc: func(ctx context.Context, skills []domain.SkillItem) ([]domain.Module, error) {
			return nil, transportErr
		},
	}
	svc := newTestService(gen, 5)

	_, err := svc.GenerateCourse(context.Background(), prompt)
	require.Error(t, err)
	assert.ErrorIs(t, err, transportErr)
}
