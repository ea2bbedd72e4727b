package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"courseforge/internal/adapter/llm"
	"courseforge/internal/config"
	"courseforge/internal/domain"
	"courseforge/internal/logger"
	"courseforge/internal/service"

	"go.uber.org/zap"
)

// One-shot pipeline run: gap analysis, module grouping, content generation.
// The result is printed as JSON so it can be piped into other tooling.
func main() {
	title := flag.String("title", "Web Development for Beginners", "course title")
	topics := flag.String("topics", "HTML structure, CSS styling, basic JavaScript, responsive design, web hosting basics", "course topics")
	description := flag.String("description", "A comprehensive introduction to web development for complete beginners.", "course description")
	startingPoint := flag.String("starting-point", "No prior programming experience required. Students should have basic computer literacy and be comfortable using a text editor.", "student starting point description")
	finishLine := flag.String("finish-line", "Students will be able to create a simple website using HTML, CSS, and basic JavaScript, deploy their website, and be prepared to learn more advanced topics.", "course finish line description")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Course generation starting up...")

	genClient, err := llm.NewFromConfig(cfg.LLM, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create generation client", zap.Error(err))
	}

	courseService := service.NewCourseService(genClient, cfg, appLogger)

	prompt := &domain.CoursePrompt{
		Title:         *title,
		Topics:        *topics,
		Description:   *description,
		StartingPoint: *startingPoint,
		FinishLine:    *finishLine,
	}

	result, err := courseService.GenerateCourse(context.Background(), prompt)
	if err != nil {
		appLogger.Fatal("Course generation failed", zap.Error(err))
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		appLogger.Fatal("Failed to encode result", zap.Error(err))
	}
	fmt.Println(string(out))

	totalBlocks := 0
	for _, bundle := range result.Modules {
		totalBlocks += len(bundle.ContentBlocks)
	}
	appLogger.Info("Course generation complete",
		zap.Int("num_modules", len(result.Modules)),
		zap.Int("num_blocks", totalBlocks),
	)
}
