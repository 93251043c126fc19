package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/domain"
)

// Local collaborators back the pipeline when no external integrations are
// configured: a static job catalog, a keyword-overlap scorer and template
// document generators. They keep the whole loop runnable end to end.

// LocalSearcher serves jobs from a fixed catalog filtered by query terms.
type LocalSearcher struct {
	Catalog []domain.Job
}

// DefaultCatalog is a small built-in posting set.
func DefaultCatalog() []domain.Job {
	return []domain.Job{
		{JobID: "job_go_backend", Title: "Backend Engineer (Go)", Company: "Northbeam", Location: "Remote",
			Description: "Go microservices, PostgreSQL, Kubernetes, event-driven systems", SalaryFloor: 140000},
		{JobID: "job_platform", Title: "Platform Engineer", Company: "Helix Labs", Location: "Berlin",
			Description: "Go, Terraform, AWS, CI/CD pipelines, observability", SalaryFloor: 120000},
		{JobID: "job_data_eng", Title: "Data Engineer", Company: "Quanta", Location: "Remote",
			Description: "Python, Spark, Airflow, data warehousing", SalaryFloor: 130000},
		{JobID: "job_sre", Title: "Site Reliability Engineer", Company: "Ferrite", Location: "London",
			Description: "Go, Prometheus, incident response, Linux internals", SalaryFloor: 125000},
	}
}

func (l *LocalSearcher) Search(ctx context.Context, query, location string, limit int) ([]domain.Job, error) {
	catalog := l.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	terms := strings.Fields(strings.ToLower(query))

	var out []domain.Job
	for _, job := range catalog {
		if location != "" && !strings.EqualFold(job.Location, location) {
			continue
		}
		haystack := strings.ToLower(job.Title + " " + job.Description)
		matched := len(terms) == 0
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				matched = true
				break
			}
		}
		if matched {
			out = append(out, job)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// FileProfileLoader reads the candidate profile from a JSON file; with no
// path configured it falls back to a built-in default.
type FileProfileLoader struct {
	Path string
}

func (l *FileProfileLoader) Load(ctx context.Context) (*domain.Profile, error) {
	if l.Path == "" {
		return &domain.Profile{
			Name:      "Default Candidate",
			Email:     "candidate@example.com",
			Headline:  "Backend engineer",
			Skills:    []string{"go", "postgresql", "kubernetes", "prometheus"},
			MinSalary: 120000,
		}, nil
	}
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	var p domain.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	return &p, nil
}

// KeywordScorer rates fit by skill-keyword overlap with the job description.
type KeywordScorer struct{}

func (KeywordScorer) Score(ctx context.Context, profile *domain.Profile, job domain.Job) (int, string, error) {
	if profile == nil {
		return 0, "", fmt.Errorf("no profile loaded")
	}
	if len(profile.Skills) == 0 {
		return 0, "profile lists no skills", nil
	}
	haystack := strings.ToLower(job.Title + " " + job.Description)
	matched := make([]string, 0, len(profile.Skills))
	for _, skill := range profile.Skills {
		if strings.Contains(haystack, strings.ToLower(skill)) {
			matched = append(matched, skill)
		}
	}
	pct := len(matched) * 100 / len(profile.Skills)
	reason := fmt.Sprintf("matched %d of %d skills: %s", len(matched), len(profile.Skills), strings.Join(matched, ", "))
	return pct, reason, nil
}

// TemplateResearcher produces a short company brief from the posting itself.
type TemplateResearcher struct{}

func (TemplateResearcher) Research(ctx context.Context, job domain.Job) (string, error) {
	return fmt.Sprintf("%s is hiring a %s in %s. Stack highlights: %s.",
		job.Company, job.Title, job.Location, job.Description), nil
}

// TemplateTailor writes a job-specific resume variant under OutDir.
type TemplateTailor struct {
	OutDir string
}

func (t *TemplateTailor) TailorResume(ctx context.Context, profile *domain.Profile, job domain.Job, notes string) (string, error) {
	if profile == nil {
		return "", fmt.Errorf("no profile loaded")
	}
	dir := t.OutDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("resume_%s.md", job.JobID))
	content := fmt.Sprintf("# %s\n\n%s\n\nTailored for %s at %s.\nRelevant skills: %s\n",
		profile.Name, profile.Headline, job.Title, job.Company, strings.Join(profile.Skills, ", "))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write resume: %w", err)
	}
	return path, nil
}

// TemplateOutreach composes a short outreach message.
type TemplateOutreach struct{}

func (TemplateOutreach) Compose(ctx context.Context, profile *domain.Profile, job domain.Job, notes string) (string, error) {
	if profile == nil {
		return "", fmt.Errorf("no profile loaded")
	}
	return fmt.Sprintf("Hi %s team, I'm %s, %s. The %s role looks like a strong match for my background. I'd love to talk.",
		job.Company, profile.Name, profile.Headline, job.Title), nil
}

// LocalSubmitter pretends to drive the application form and returns a
// receipt id.
type LocalSubmitter struct {
	Delay time.Duration
}

func (l *LocalSubmitter) Submit(ctx context.Context, profile *domain.Profile, job domain.Job, resumePath string) (string, error) {
	if l.Delay > 0 {
		select {
		case <-time.After(l.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "app_" + uuid.New().String()[:8], nil
}
