package cv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/khoahotran/career-path/internal/application/service"
	profileuc "github.com/khoahotran/career-path/internal/application/usecase/profile"
	"github.com/khoahotran/career-path/internal/domain/profile"
	"github.com/khoahotran/career-path/pkg/apperror"
	"github.com/khoahotran/career-path/pkg/logger"
)

var tracer = otel.Tracer("cv_usecase")

const minTextLen = 50

// ProfileUpdater is the write path of the profile reconciler.
type ProfileUpdater interface {
	UpdateProfile(ctx context.Context, patch profile.Patch) (*profileuc.UpdateResult, error)
}

type AnalyzeCVInput struct {
	Text string
}

type AnalyzeCVOutput struct {
	Fields *service.CVFields       `json:"parsed"`
	Update *profileuc.UpdateResult `json:"profile_update"`
}

type AnalyzeCVUseCase struct {
	parser  service.CVParser
	logger  logger.Logger
	timeout time.Duration
}

func NewAnalyzeCVUseCase(parser service.CVParser, log logger.Logger, timeout time.Duration) *AnalyzeCVUseCase {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &AnalyzeCVUseCase{parser: parser, logger: log, timeout: timeout}
}

// Execute parses the CV under a hard deadline and merges the result into the
// profile of the caller's reconciler.
func (uc *AnalyzeCVUseCase) Execute(ctx context.Context, profiles ProfileUpdater, input AnalyzeCVInput) (*AnalyzeCVOutput, error) {
	ctx, span := tracer.Start(ctx, "AnalyzeCV")
	defer span.End()

	text := strings.TrimSpace(input.Text)
	if len([]rune(text)) < minTextLen {
		return nil, apperror.NewInvalidInput(fmt.Sprintf("CV text must be at least %d characters", minTextLen), nil)
	}

	parseCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	start := time.Now()
	fields, err := uc.parser.Parse(parseCtx, text)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(parseCtx.Err(), context.DeadlineExceeded) {
			uc.logger.Warn("CV parsing timed out", zap.Duration("budget", uc.timeout))
			return nil, apperror.NewTimeout(fmt.Sprintf("CV parsing exceeded %s", uc.timeout), err)
		}
		uc.logger.Error("CV parsing failed", err)
		return nil, apperror.NewRemoteUnavailable("CV parser", "parse request failed", err)
	}
	uc.logger.Info("CV parsed",
		zap.Duration("took", time.Since(start)),
		zap.Int("skills", len(fields.Skills)),
	)

	res, err := profiles.UpdateProfile(ctx, PatchFromCV(fields))
	if err != nil {
		return nil, err
	}
	return &AnalyzeCVOutput{Fields: fields, Update: res}, nil
}

// PatchFromCV turns parsed CV fields into a profile patch. Fields the parser
// left empty do not touch the profile.
func PatchFromCV(f *service.CVFields) profile.Patch {
	var p profile.Patch
	str := func(v string) *string {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil
		}
		return &v
	}

	p.Name = str(f.Name)
	p.CareerGoal = str(f.CareerGoal)

	skills := profile.NormalizeSkills(f.Skills)
	if len(skills) > 0 {
		p.Skills = &skills
	}

	edu := make([]string, 0, len(f.Education))
	for _, e := range f.Education {
		if e.Field == "" && e.Degree == "" {
			continue
		}
		edu = append(edu, strings.TrimSpace(fmt.Sprintf("%s in %s from %s", e.Degree, e.Field, e.Institution)))
	}
	p.Education = str(strings.Join(edu, ", "))

	exp := make([]string, 0, len(f.Experience))
	for _, e := range f.Experience {
		if e.Title == "" {
			continue
		}
		exp = append(exp, fmt.Sprintf("%s at %s", e.Title, e.Company))
	}
	p.Experience = str(strings.Join(exp, ", "))

	p.Projects = str(strings.Join(f.Projects, ", "))
	p.Interests = str(strings.Join(f.Interests, ", "))
	return p
}
