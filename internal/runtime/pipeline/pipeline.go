// Package pipeline turns decoded profile events into normalized records and
// renders them through the configured template.
package pipeline

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	errspkg "github.com/drblury/avroflow/internal/runtime/errors"
	"github.com/drblury/avroflow/internal/runtime/jsoncodec"
	"github.com/drblury/avroflow/internal/runtime/logging"
	"github.com/drblury/avroflow/internal/runtime/normalize"
	"github.com/drblury/avroflow/internal/runtime/record"
	"github.com/drblury/avroflow/internal/runtime/render"
)

const tracerName = "github.com/drblury/avroflow/pipeline"

// Options wires the collaborators of a Pipeline.
type Options struct {
	Timestamps   *normalize.Timestamps
	Renderer     render.Renderer
	TemplateDir  string
	TemplateFile string
	Logger       logging.ServiceLogger
	Tracer       trace.Tracer
}

// Result is the outcome of processing one record.
type Result struct {
	// Normalized is nil when the record was passed through untouched.
	Normalized *record.NormalizedProfile
	// Document is the rendered template, empty when rendering failed or was
	// skipped.
	Document string
	// RenderErr is the render failure, if any. It never aborts the record.
	RenderErr error
}

// Skipped reports whether the record was passed through without
// normalization.
func (r Result) Skipped() bool {
	return r.Normalized == nil
}

// Pipeline applies the field normalizers to a profile and renders the result.
// It holds no mutable state and is safe for concurrent use when its
// collaborators are.
type Pipeline struct {
	ts           *normalize.Timestamps
	renderer     render.Renderer
	templateDir  string
	templateFile string
	logger       logging.ServiceLogger
	tracer       trace.Tracer
}

// New validates opts and builds a Pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Renderer == nil {
		return nil, errspkg.ErrRendererRequired
	}
	if opts.Logger == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if opts.TemplateFile == "" {
		return nil, fmt.Errorf("template file is required")
	}

	ts := opts.Timestamps
	if ts == nil {
		var err error
		ts, err = normalize.NewTimestampsFromName(normalize.DefaultTimezone)
		if err != nil {
			return nil, err
		}
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	return &Pipeline{
		ts:           ts,
		renderer:     opts.Renderer,
		templateDir:  opts.TemplateDir,
		templateFile: opts.TemplateFile,
		logger:       opts.Logger,
		tracer:       tracer,
	}, nil
}

// Process normalizes profile and renders it. It returns nil and no error when
// the profile has no history or no last login.
func (p *Pipeline) Process(ctx context.Context, profile record.Profile) (*record.NormalizedProfile, error) {
	res, err := p.ProcessResult(ctx, profile)
	if err != nil {
		return nil, err
	}
	return res.Normalized, nil
}

// ProcessResult is Process returning the rendered document as well.
func (p *Pipeline) ProcessResult(ctx context.Context, profile record.Profile) (Result, error) {
	_, span := p.tracer.Start(ctx, "pipeline.Process",
		trace.WithAttributes(attribute.Int("profile.id", int(profile.ID))))
	defer span.End()

	p.logger.Info("Received message", logging.LogFields{"record": payload(profile)})

	if !profile.HasLastLogin() {
		p.logger.Info("Skipping normalization: no last login", logging.LogFields{"profile_id": profile.ID})
		span.SetAttributes(attribute.Bool("pipeline.skipped", true))
		return Result{}, nil
	}

	normalized, err := p.Normalize(profile)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	p.logger.Info("Processed message", logging.LogFields{"record": payload(normalized)})

	res := Result{Normalized: normalized}
	doc, err := p.renderer.Render(p.templateDir, p.templateFile, normalized.Fields())
	if err != nil {
		p.logger.Error("Failed to fill template", err, logging.LogFields{
			"profile_id": profile.ID,
			"template":   p.templateFile,
		})
		span.RecordError(err)
		res.RenderErr = err
		return res, nil
	}

	p.logger.Info("Filled template", logging.LogFields{"document": doc})
	res.Document = doc
	return res, nil
}

// Normalize builds the normalized record without rendering it. The profile
// must carry a history; profile itself is never modified.
func (p *Pipeline) Normalize(profile record.Profile) (*record.NormalizedProfile, error) {
	if profile.History == nil {
		return nil, fmt.Errorf("history: %w", errspkg.NewInvalidInput("history", nil, nil))
	}
	h := profile.History

	var lastLogin string
	if h.LastLogin != nil {
		var err error
		lastLogin, err = p.ts.Normalize(*h.LastLogin)
		if err != nil {
			return nil, fmt.Errorf("history.last_login: %w", err)
		}
	}

	purchases := make([]record.NormalizedPurchase, len(h.PurchaseHistory))
	for i, item := range h.PurchaseHistory {
		date, err := p.ts.Normalize(item.PurchaseDate)
		if err != nil {
			return nil, fmt.Errorf("history.purchase_history[%d].purchase_date: %w", i, err)
		}
		purchases[i] = record.NormalizedPurchase{
			ItemID:       item.ItemID,
			ItemName:     normalize.LowerString(item.ItemName),
			PurchaseDate: date,
			Amount:       normalize.FormatMoney(item.Amount),
		}
	}

	return &record.NormalizedProfile{
		ID:       profile.ID,
		Name:     profile.Name,
		Email:    profile.Email,
		Age:      profile.Age,
		Gender:   profile.Gender,
		IsActive: profile.IsActive,
		Address:  profile.Address,
		History: record.NormalizedHistory{
			LastLogin:       lastLogin,
			PurchaseHistory: purchases,
		},
	}, nil
}

// payload renders v as a JSON string for log lines, falling back to the Go
// representation.
func payload(v any) string {
	raw, err := jsoncodec.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(raw)
}
