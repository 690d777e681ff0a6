package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/cohort/pkg/domain"
	"github.com/aretw0/cohort/pkg/registry"
)

// Built-in action names usable in definitions files.
const (
	ActionPrint = "print"
	ActionNoop  = "noop"
)

// NewActionRegistry returns a registry holding the built-in actions.
// "print" writes its arguments to out, one line per call.
func NewActionRegistry(out io.Writer) *registry.Registry {
	r := registry.NewRegistry()
	r.Register(ActionPrint, func(ctx context.Context, args ...any) error {
		_, err := fmt.Fprintln(out, args...)
		return err
	})
	r.Register(ActionNoop, func(context.Context, ...any) error { return nil })
	return r
}

// withPayload binds a definition payload as the first argument of an action.
func withPayload(action domain.Action, payload string) domain.Action {
	if action == nil || payload == "" {
		return action
	}
	return func(ctx context.Context, args ...any) error {
		return action(ctx, append([]any{payload}, args...)...)
	}
}
