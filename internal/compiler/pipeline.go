package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/flatc/internal/diag"
	"github.com/roach88/flatc/internal/ir"
	"github.com/roach88/flatc/internal/lower"
	"github.com/roach88/flatc/internal/mangle"
)

// Stage names as they appear in logs and wrapped errors.
const (
	StageValidate       = "validate"
	StageMangle         = "mangle"
	StageAggregates     = "aggregates"
	StageSpecialMembers = "special_members"
	StageVariadics      = "variadics"
	StageOrder          = "order"
)

// Result is the output of one unit's pipeline.
type Result struct {
	Unit      string
	Hash      string // content hash of the input unit
	Emissions []Emission
	Names     *mangle.Table
	Macros    []ir.Macro
	Stats     Stats
}

// Stats summarizes what the pipeline did to a unit.
type Stats struct {
	InputDecls  int `json:"input_decls"`
	OutputDecls int `json:"output_decls"`
	Forward     int `json:"forward"`
	Defined     int `json:"defined"`
	Temporaries int `json:"temporaries"`
}

// Option configures Compile and CompileAll.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for stage boundaries.
//
// Default: slog.Default()
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func newOptions(opts []Option) *options {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type stage struct {
	name string
	run  func([]ir.Decl) ([]ir.Decl, error)
}

// loweringStages run in this order; each assumes the invariants its
// predecessors establish.
var loweringStages = []stage{
	{StageAggregates, lower.Aggregates},
	{StageSpecialMembers, lower.SpecialMembers},
	{StageVariadics, lower.Variadics},
}

// Compile lowers one unit. The unit is not modified. On any fatal error the
// remaining stages are skipped and no partial result is returned.
func Compile(ctx context.Context, u *ir.Unit, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	log := o.logger.With("unit", u.Name)

	if errs := Validate(u); len(errs) > 0 {
		causes := make([]error, len(errs))
		for i, e := range errs {
			causes[i] = e
		}
		log.Debug("validation failed", "stage", StageValidate, "errors", len(errs))
		return nil, diag.NewInvalidInput(u.Name, causes)
	}

	hash, err := ir.UnitHash(u)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", u.Name, err)
	}

	decls, _, err := mangle.Assign(u.Decls)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageMangle, err)
	}
	log.Debug("stage complete", "stage", StageMangle, "decls", len(decls))

	for _, st := range loweringStages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		decls, err = st.run(decls)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", st.name, err)
		}
		log.Debug("stage complete", "stage", st.name, "decls", len(decls))
	}

	emissions, err := Order(decls)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageOrder, err)
	}

	// Lowering adds parameters but never renames, so the final table
	// describes the emitted declarations.
	names, err := mangle.NewTable(decls)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageOrder, err)
	}

	res := &Result{
		Unit:      u.Name,
		Hash:      hash,
		Emissions: emissions,
		Names:     names,
		Macros:    u.Macros,
		Stats:     collectStats(u, decls, emissions),
	}
	log.Info("unit lowered",
		"decls", res.Stats.OutputDecls,
		"forward", res.Stats.Forward,
		"defined", res.Stats.Defined,
	)
	return res, nil
}

func collectStats(u *ir.Unit, decls []ir.Decl, emissions []Emission) Stats {
	s := Stats{InputDecls: len(u.Decls), OutputDecls: len(decls)}
	for _, e := range emissions {
		if e.Phase == PhaseForward {
			s.Forward++
		} else {
			s.Defined++
		}
	}
	for _, f := range ir.Functions(decls) {
		if f.Body == nil {
			continue
		}
		ir.InspectLocals(f.Body, func(l *ir.Local) {
			if strings.HasPrefix(l.Name, lower.TempPrefix) {
				s.Temporaries++
			}
		})
	}
	return s
}
