// quizscan is a command-line tool for grading scanned quiz answer sheets
// with Google Document AI.
//
// It walks a batch directory with one subdirectory per student, each
// holding the scanned page PDFs of that student's answer sheet. Every
// page is sent through Document AI, the answer table is extracted, OCR
// errors are repaired against the answer key, and the graded result is
// written out as JSON, a printable PDF summary, and an editable HTML
// review sheet.
//
// Configuration:
//
// The tool requires a YAML configuration file with Google Document AI
// settings:
//
//	project_id: "your-gcp-project-id"
//	location: "eu"
//	processor_id: "your-processor-id"
//	cache_dir: ".docai-cache"
//	gemini_model: "gemini-1.5-flash"
//
// Usage:
//
//	quizscan -config config.yml -input scans/ -key key.json -out results/
//
// Required flags:
//
//	-config string  Path to the YAML configuration file
//	-input string   Batch directory with one subdirectory per student
//	-out string     Directory to write results into
//
// Options:
//
//	-key string        Path to the answer key JSON (enables correction and grading)
//	-max-question int  Highest question number to accept (default 50)
//	-offline           Serve every page from the response cache, never call the API
//	-grade             Ask Gemini to judge near-miss answers (needs GEMINI_API_KEY)
//	-concurrency int   Number of students processed in parallel (default 4)
//	-apply-review string  Directory of edited review sheets to fold back in
//
// Authentication:
//
// The tool uses the GOOGLE_APPLICATION_CREDENTIALS environment variable
// for authentication with Google Cloud, and GEMINI_API_KEY for -grade.
//
// Example:
//
//	export GOOGLE_APPLICATION_CREDENTIALS=/path/to/credentials.json
//	quizscan -config config.yml -input scans/ -key key.json -out results/ -grade

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/quizscan/quizscan/pkg/blockgraph"
	"github.com/quizscan/quizscan/pkg/docai"
	"github.com/quizscan/quizscan/pkg/grading"
	"github.com/quizscan/quizscan/pkg/quizsheet"
	"github.com/quizscan/quizscan/pkg/report"
)

type yamlConfig struct {
	ProjectID   string `yaml:"project_id"`
	Location    string `yaml:"location"`
	ProcessorID string `yaml:"processor_id"`
	CacheDir    string `yaml:"cache_dir"`
	GeminiModel string `yaml:"gemini_model"`

	Thresholds struct {
		DirectMatch     float64 `yaml:"direct_match"`
		AmbiguousLow    float64 `yaml:"ambiguous_low"`
		MergeRemainder  float64 `yaml:"merge_remainder"`
		Shift           float64 `yaml:"shift"`
		MisplacedWindow int     `yaml:"misplaced_window"`
	} `yaml:"thresholds"`
}

// loadConfig reads a YAML file and converts it to the processor config
// plus the correction thresholds.
func loadConfig(path string) (*docai.Config, quizsheet.Thresholds, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, quizsheet.Thresholds{}, "", err
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, quizsheet.Thresholds{}, "", err
	}
	cfg := &docai.Config{
		ProjectID:   yc.ProjectID,
		Location:    yc.Location,
		ProcessorID: yc.ProcessorID,
		CacheDir:    yc.CacheDir,
	}
	th := quizsheet.Thresholds{
		DirectMatch:     yc.Thresholds.DirectMatch,
		AmbiguousLow:    yc.Thresholds.AmbiguousLow,
		MergeRemainder:  yc.Thresholds.MergeRemainder,
		Shift:           yc.Thresholds.Shift,
		MisplacedWindow: yc.Thresholds.MisplacedWindow,
	}
	return cfg, th, yc.GeminiModel, nil
}

func main() {
	configPath := flag.String("config", "", "Path to the config YAML file (required)")
	inputDir := flag.String("input", "", "Batch directory with one subdirectory per student (required)")
	outDir := flag.String("out", "", "Directory to write results into (required)")
	keyPath := flag.String("key", "", "Path to the answer key JSON")
	maxQuestion := flag.Int("max-question", 50, "Highest question number to accept")
	offline := flag.Bool("offline", false, "Serve every page from the response cache, never call the API")
	grade := flag.Bool("grade", false, "Ask Gemini to judge near-miss answers (needs GEMINI_API_KEY)")
	concurrency := flag.Int("concurrency", 4, "Number of students processed in parallel")
	reviewDir := flag.String("apply-review", "", "Directory of edited review sheets to fold back in")

	flag.Parse()

	if *configPath == "" || *inputDir == "" || *outDir == "" {
		fmt.Fprintln(os.Stderr, "Error: -config, -input and -out flags are required")
		fmt.Fprintln(os.Stderr, "Usage:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, thresholds, geminiModel, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.Offline = *offline

	var key quizsheet.AnswerKey
	if *keyPath != "" {
		key, err = quizsheet.LoadAnswerKey(*keyPath)
		if err != nil {
			log.Fatalf("Failed to load answer key: %v", err)
		}
		fmt.Printf("Loaded answer key with %d questions\n", len(key))
	}

	var grader grading.Grader
	if *grade {
		if key == nil {
			log.Fatalf("-grade requires -key")
		}
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			log.Fatalf("-grade requires the GEMINI_API_KEY environment variable")
		}
		if geminiModel == "" {
			geminiModel = "gemini-1.5-flash"
		}
		grader = grading.NewGeminiGrader(apiKey, geminiModel)
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	students, err := studentDirs(*inputDir)
	if err != nil {
		log.Fatalf("Failed to list input directory: %v", err)
	}
	if len(students) == 0 {
		log.Fatalf("No student directories found in %s", *inputDir)
	}
	fmt.Printf("Processing %d students\n", len(students))

	ctx := context.Background()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(*concurrency)

	for _, student := range students {
		student := student // go.mod targets go 1.21; copy for per-iteration capture
		g.Go(func() error {
			result, err := processStudent(ctx, student, *inputDir, cfg, key, thresholds, *maxQuestion, grader)
			if err != nil {
				return fmt.Errorf("student %s: %w", student, err)
			}
			if *reviewDir != "" {
				if err := applyReview(result, *reviewDir, key); err != nil {
					return fmt.Errorf("student %s: %w", student, err)
				}
			}
			if err := writeOutputs(result, *outDir); err != nil {
				return fmt.Errorf("student %s: %w", student, err)
			}
			fmt.Printf("%s: %d/%d\n", result.Student, result.Correct, result.Total)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("Batch failed: %v", err)
	}
	fmt.Println("Results saved to:", *outDir)
}

// studentDirs lists the student subdirectories of the batch directory.
func studentDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var students []string
	for _, e := range entries {
		if e.IsDir() {
			students = append(students, e.Name())
		}
	}
	sort.Strings(students)
	return students, nil
}

// pagePaths lists a student's page PDFs in page order. Scanners name
// pages with increasing suffixes, so lexical filename order is page order.
func pagePaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var pages []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			pages = append(pages, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(pages)
	return pages, nil
}

// processStudent runs the full pipeline for one student: OCR every page,
// merge the per-page extractions, repair against the key and score.
//
// Pages are merged with different policies for answers and metadata:
// a later page overwrites an earlier answer for the same question (the
// later scan is the corrected resubmission), while metadata keeps the
// first non-empty value (the cover page states it authoritatively).
func processStudent(
	ctx context.Context,
	student, inputDir string,
	cfg *docai.Config,
	key quizsheet.AnswerKey,
	thresholds quizsheet.Thresholds,
	maxQuestion int,
	grader grading.Grader,
) (*report.Result, error) {
	pages, err := pagePaths(filepath.Join(inputDir, student))
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no PDF pages found")
	}

	answers := make(quizsheet.AnswerMap)
	metadata := make(map[string]string)
	var extractStats quizsheet.ExtractStats

	for _, page := range pages {
		pdfBytes, err := os.ReadFile(page)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %s: %w", page, err)
		}
		blocks, err := docai.ProcessSheet(ctx, pdfBytes, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to process page %s: %w", page, err)
		}
		graph := blockgraph.NewGraph(blocks)

		pageAnswers, stats := quizsheet.ExtractAnswers(graph, quizsheet.ExtractOptions{MaxQuestion: maxQuestion})
		extractStats.Tables += stats.Tables
		extractStats.RowsParsed += stats.RowsParsed
		extractStats.RowsSkipped += stats.RowsSkipped

		fields := quizsheet.ExtractKeyValues(graph)
		if len(pageAnswers) == 0 {
			// No table structure on this page; fall back to form fields
			// keyed by question number.
			pageAnswers = quizsheet.AnswersFromKeyValues(fields, maxQuestion)
		}
		for q, a := range pageAnswers {
			answers[q] = a
		}

		for k, v := range fields {
			if _, seen := metadata[k]; !seen && v != "" {
				metadata[k] = v
			}
		}
	}

	result := &report.Result{
		Student:    student,
		Metadata:   metadata,
		Answers:    answers,
		Extraction: extractStats,
	}

	if key != nil {
		result.Answers, result.Correction = quizsheet.Correct(answers, key, thresholds)
		result.Verdicts, result.Correct = grading.Score(result.Answers, key)
		result.Total = len(key)

		if grader != nil {
			th := thresholds
			if th == (quizsheet.Thresholds{}) {
				th = quizsheet.DefaultThresholds()
			}
			unsettled := grading.Unsettled(result.Verdicts, th.AmbiguousLow, th.DirectMatch)
			if len(unsettled) > 0 {
				judged, err := grader.Grade(ctx, unsettled)
				if err != nil {
					return nil, fmt.Errorf("grading failed: %w", err)
				}
				result.Verdicts, result.Correct = grading.Merge(result.Verdicts, judged)
			}
		}
	}

	return result, nil
}

// applyReview folds a reviewer's edited HTML sheet back into the result
// and re-scores against the key.
func applyReview(result *report.Result, reviewDir string, key quizsheet.AnswerKey) error {
	path := filepath.Join(reviewDir, result.Student+".html")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read review sheet: %w", err)
	}

	metadata, answers, err := report.ParseReview(data)
	if err != nil {
		return fmt.Errorf("failed to parse review sheet %s: %w", path, err)
	}

	for k, v := range metadata {
		result.Metadata[k] = v
	}
	for q, a := range answers {
		result.Answers[q] = a
	}
	if key != nil {
		result.Verdicts, result.Correct = grading.Score(result.Answers, key)
		result.Total = len(key)
	}
	return nil
}

// writeOutputs stores the JSON result, the PDF summary and the HTML
// review sheet for one student.
func writeOutputs(result *report.Result, outDir string) error {
	base := filepath.Join(outDir, result.Student)

	if err := result.WriteJSON(base + ".json"); err != nil {
		return err
	}

	pdfBytes, err := report.WritePDF(result, report.DefaultFontConfig())
	if err != nil {
		return fmt.Errorf("failed to render PDF report: %w", err)
	}
	if err := os.WriteFile(base+".pdf", pdfBytes, 0644); err != nil {
		return fmt.Errorf("failed to write PDF report: %w", err)
	}

	reviewHTML, err := report.GenerateReview(result)
	if err != nil {
		return fmt.Errorf("failed to render review sheet: %w", err)
	}
	if err := os.WriteFile(base+".html", []byte(reviewHTML), 0644); err != nil {
		return fmt.Errorf("failed to write review sheet: %w", err)
	}
	return nil
}
