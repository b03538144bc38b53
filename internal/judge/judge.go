// Package judge defines the LLM evaluation hook for reminder decisions.
// The judge itself is an external collaborator; this package carries the
// interface, the verdict type, and the environment toggles that decide
// whether evaluation runs at all.
package judge

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	// EnvLLMJudge enables LLM evaluation when set to a truthy value.
	EnvLLMJudge = "EMAIL_ASSISTANT_LLM_JUDGE"

	// EnvForceDecision overrides the judge with a fixed verdict
	// ("approve" or "reject"), primarily for deterministic test runs.
	EnvForceDecision = "REMINDER_JUDGE_FORCE_DECISION"
)

// ErrJudgeUnavailable is returned when evaluation is requested but no
// judge backend is configured.
var ErrJudgeUnavailable = errors.New("judge backend unavailable")

// Verdict is the judge's assessment of a proposed reminder decision.
type Verdict struct {
	// Pass reports whether the decision was approved.
	Pass bool

	// Score is the judge's confidence in [0, 1].
	Score float64

	// Reasoning is the judge's free-form explanation.
	Reasoning string
}

// Judge evaluates a proposed reminder decision against the email context
// it was made in.
type Judge interface {
	Evaluate(ctx context.Context, emailContext,
		decision string) (Verdict, error)
}

// truthy reports whether an env value means "enabled".
func truthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

// Disabled reports whether judge evaluation should be skipped. A forced
// decision always enables the judge path; otherwise evaluation runs only
// when EnvLLMJudge is set to a truthy value.
func Disabled() bool {
	if os.Getenv(EnvForceDecision) != "" {
		return false
	}

	return !truthy(os.Getenv(EnvLLMJudge))
}

// ForcedDecision returns the verdict pinned by EnvForceDecision, if any.
// Unrecognized values are ignored.
func ForcedDecision() fn.Option[Verdict] {
	switch strings.ToLower(strings.TrimSpace(
		os.Getenv(EnvForceDecision))) {

	case "approve":
		return fn.Some(Verdict{
			Pass:      true,
			Score:     1,
			Reasoning: "forced approval",
		})

	case "reject":
		return fn.Some(Verdict{
			Pass:      false,
			Score:     0,
			Reasoning: "forced rejection",
		})
	}

	return fn.None[Verdict]()
}

// Evaluate runs the configured judge over a proposed decision, honoring
// the environment toggles: a forced decision short-circuits the backend,
// and a nil backend yields ErrJudgeUnavailable.
func Evaluate(ctx context.Context, j Judge, emailContext,
	decision string) (Verdict, error) {

	if forced := ForcedDecision(); forced.IsSome() {
		return forced.UnwrapOr(Verdict{}), nil
	}

	if j == nil {
		return Verdict{}, ErrJudgeUnavailable
	}

	return j.Evaluate(ctx, emailContext, decision)
}
