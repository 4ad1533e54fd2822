// Package mock provides a test double for the judge.Judge interface.
package mock

import (
	"context"

	"github.com/MrWong99/valisia/internal/judge"
)

// JudgeCall records the arguments of one Judge invocation.
type JudgeCall struct {
	Ctx          context.Context
	UserText     string
	CurrentItems []string
}

// Judge is a configurable mock implementation of [judge.Judge]. Set the
// exported fields to control behavior; invocations are recorded for
// assertions.
type Judge struct {
	// Verdict is returned by Judge when Err is nil.
	Verdict *judge.Verdict

	// Err, when non-nil, is returned by Judge.
	Err error

	// JudgeCalls records every Judge invocation in order.
	JudgeCalls []JudgeCall
}

// Judge implements [judge.Judge].
func (m *Judge) Judge(ctx context.Context, userText string, currentItems []string) (*judge.Verdict, error) {
	m.JudgeCalls = append(m.JudgeCalls, JudgeCall{Ctx: ctx, UserText: userText, CurrentItems: currentItems})
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Verdict, nil
}
