package handler

import (
	"errors"

	"courseforge/internal/domain"
	"courseforge/internal/dto"
	"courseforge/internal/logger"
	"courseforge/internal/service"
	"courseforge/internal/util"
	"courseforge/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SessionIDHeader carries the caller's session identifier. When absent on a
// full pipeline run, a fresh ULID is assigned and echoed in the response.
const SessionIDHeader = "X-Session-ID"

// CourseHandler handles course generation HTTP requests
type CourseHandler struct {
	service     service.CourseService
	resultCache service.CourseResultCacheService
	validator   *validation.Validator
}

// NewCourseHandler creates a new CourseHandler instance
func NewCourseHandler(svc service.CourseService, resultCache service.CourseResultCacheService) *CourseHandler {
	return &CourseHandler{
		service:     svc,
		resultCache: resultCache,
		validator:   validation.NewValidator(),
	}
}

// AnalyzeGap godoc
// @Summary Analyze the knowledge gap
// @Description Identifies the skills bridging the starting point and finish line
// @Tags course
// @Accept json
// @Produce json
// @Param request body dto.GapAnalysisRequest true "Gap analysis input"
// @Success 200 {object} dto.GapAnalysisResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Router /course/gap-analysis [post]
func (h *CourseHandler) AnalyzeGap(c *fiber.Ctx) error {
	var req dto.GapAnalysisRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("invalid request body")
	}
	if errs := h.validator.ValidateGapAnalysisRequest(&req); len(errs) > 0 {
		return errs
	}

	skills, err := h.service.AnalyzeGap(c.Context(), req.StartingPoint, req.FinishLine)
	if err != nil {
		return err
	}
	return c.JSON(dto.GapAnalysisResponse{Skills: skillsToStrings(skills)})
}

// GroupModules godoc
// @Summary Group skills into modules
// @Description Groups a skill list into coherent course modules
// @Tags course
// @Accept json
// @Produce json
// @Param request body dto.GroupModulesRequest true "Skill list"
// @Success 200 {object} dto.GroupModulesResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Router /course/modules [post]
func (h *CourseHandler) GroupModules(c *fiber.Ctx) error {
	var req dto.GroupModulesRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("invalid request body")
	}
	if errs := h.validator.ValidateGroupModulesRequest(&req); len(errs) > 0 {
		return errs
	}

	modules, err := h.service.GroupModules(c.Context(), stringsToSkills(req.Skills))
	if err != nil {
		return err
	}
	return c.JSON(dto.GroupModulesResponse{Modules: modulesToPayload(modules)})
}

// GenerateContent godoc
// @Summary Generate module content
// @Description Generates content blocks for every skill in every module
// @Tags course
// @Accept json
// @Produce json
// @Param request body dto.GenerateContentRequest true "Module list"
// @Success 200 {object} dto.CourseContentResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 502 {object} middleware.ErrorResponse
// @Router /course/content [post]
func (h *CourseHandler) GenerateContent(c *fiber.Ctx) error {
	var req dto.GenerateContentRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("invalid request body")
	}
	if errs := h.validator.ValidateGenerateContentRequest(&req); len(errs) > 0 {
		return errs
	}

	result, err := h.service.GenerateContent(c.Context(), payloadToModules(req.Modules))
	if err != nil {
		return err
	}
	return c.JSON(resultToResponse(result, ""))
}

// GenerateCourse godoc
// @Summary Run the full generation pipeline
// @Description Runs gap analysis, module grouping and content generation in order
// @Tags course
// @Accept json
// @Produce json
// @Param request body dto.CourseGenerationRequest true "Course prompt"
// @Success 200 {object} dto.CourseContentResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 502 {object} middleware.ErrorResponse
// @Router /course/generate [post]
func (h *CourseHandler) GenerateCourse(c *fiber.Ctx) error {
	var req dto.CourseGenerationRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("invalid request body")
	}
	if errs := h.validator.ValidateCourseGenerationRequest(&req); len(errs) > 0 {
		return errs
	}

	sessionID := c.Get(SessionIDHeader)
	if sessionID == "" {
		sessionID = util.NewULID()
	}

	prompt := &domain.CoursePrompt{
		Title:         req.CourseTitle,
		Topics:        req.CourseTopics,
		Description:   req.CourseDescription,
		StartingPoint: req.StartingPoint,
		FinishLine:    req.FinishLine,
	}
	result, err := h.service.GenerateCourse(c.Context(), prompt)
	if err != nil {
		return err
	}

	response := resultToResponse(result, sessionID)
	if err := h.resultCache.Put(c.Context(), sessionID, response); err != nil {
		// Caching is best effort; the generated result is still returned.
		logger.Get().Warn("Failed to cache course result",
			zap.String("session_id", sessionID), zap.Error(err))
	}
	return c.JSON(response)
}

// GetCachedResult godoc
// @Summary Fetch a session's cached result
// @Description Returns the most recent generated course for a session
// @Tags course
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} dto.CourseContentResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /course/result/{session_id} [get]
func (h *CourseHandler) GetCachedResult(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")
	if sessionID == "" {
		return domain.NewInvalidInputError("session_id is required")
	}

	result, err := h.resultCache.Get(c.Context(), sessionID)
	if err != nil {
		if errors.Is(err, service.ErrCourseResultNotFound) {
			return domain.NewNotFoundError("no generated course for this session")
		}
		return err
	}
	return c.JSON(result)
}

func skillsToStrings(skills []domain.SkillItem) []string {
	out := make([]string, len(skills))
	for i, s := range skills {
		out[i] = string(s)
	}
	return out
}

func stringsToSkills(skills []string) []domain.SkillItem {
	out := make([]domain.SkillItem, len(skills))
	for i, s := range skills {
		out[i] = domain.SkillItem(s)
	}
	return out
}

func modulesToPayload(modules []domain.Module) []dto.ModulePayload {
	out := make([]dto.ModulePayload, len(modules))
	for i, m := range modules {
		out[i] = dto.ModulePayload{
			ModuleName: m.Name,
			Skills:     skillsToStrings(m.Skills),
		}
	}
	return out
}

func payloadToModules(payload []dto.ModulePayload) []domain.Module {
	out := make([]domain.Module, len(payload))
	for i, p := range payload {
		out[i] = domain.Module{
			Name:   p.ModuleName,
			Skills: stringsToSkills(p.Skills),
		}
	}
	return out
}

func resultToResponse(result *domain.CourseContentResult, sessionID string) *dto.CourseContentResponse {
	bundles := make([]dto.ModuleContentBundleResponse, len(result.Modules))
	for i, bundle := range result.Modules {
		bundles[i] = dto.ModuleContentBundleResponse{
			ModuleName:    bundle.ModuleName,
			ContentBlocks: bundle.ContentBlocks,
		}
	}
	return &dto.CourseContentResponse{
		SessionID: sessionID,
		Modules:   bundles,
	}
}
