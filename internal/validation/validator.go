package validation

import (
	"strings"

	"courseforge/internal/domain"
	"courseforge/internal/dto"
)

const (
	maxDescriptionLength = 4000
	maxSkillLength       = 500
)

// Validator provides request validation functionality
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateGapAnalysisRequest validates the gap analysis request
func (v *Validator) ValidateGapAnalysisRequest(req *dto.GapAnalysisRequest) domain.ValidationErrors {
	var errs domain.ValidationErrors

	errs = append(errs, validateDescription("starting_point", req.StartingPoint)...)
	errs = append(errs, validateDescription("finish_line", req.FinishLine)...)

	return errs
}

// ValidateGroupModulesRequest validates the module grouping request
func (v *Validator) ValidateGroupModulesRequest(req *dto.GroupModulesRequest) domain.ValidationErrors {
	var errs domain.ValidationErrors

	if len(req.Skills) == 0 {
		errs = append(errs, domain.NewMissingFieldError("skills"))
		return errs
	}
	for _, skill := range req.Skills {
		if strings.TrimSpace(skill) == "" {
			errs = append(errs, domain.NewInvalidFieldError("skills", "must not contain blank entries"))
			break
		}
		if len(skill) > maxSkillLength {
			errs = append(errs, domain.NewInvalidFieldError("skills", "entry exceeds maximum length"))
			break
		}
	}

	return errs
}

// ValidateGenerateContentRequest validates the content generation request
func (v *Validator) ValidateGenerateContentRequest(req *dto.GenerateContentRequest) domain.ValidationErrors {
	var errs domain.ValidationErrors

	if len(req.Modules) == 0 {
		errs = append(errs, domain.NewMissingFieldError("modules"))
		return errs
	}
	for _, module := range req.Modules {
		if strings.TrimSpace(module.ModuleName) == "" {
			errs = append(errs, domain.NewInvalidFieldError("modules", "module_name is required for every module"))
			break
		}
		if len(module.Skills) == 0 {
			errs = append(errs, domain.NewInvalidFieldError("modules", "every module needs at least one skill"))
			break
		}
	}

	return errs
}

// ValidateCourseGenerationRequest validates a full pipeline run request
func (v *Validator) ValidateCourseGenerationRequest(req *dto.CourseGenerationRequest) domain.ValidationErrors {
	var errs domain.ValidationErrors

	errs = append(errs, validateDescription("starting_point", req.StartingPoint)...)
	errs = append(errs, validateDescription("finish_line", req.FinishLine)...)

	return errs
}

func validateDescription(field, value string) domain.ValidationErrors {
	var errs domain.ValidationErrors
	if strings.TrimSpace(value) == "" {
		errs = append(errs, domain.NewMissingFieldError(field))
	} else if len(value) > maxDescriptionLength {
		errs = append(errs, domain.NewInvalidFieldError(field, "exceeds maximum length"))
	}
	return errs
}
