// Package cli provides the command-line interface for weeklyad.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/law-makers/weeklyad/internal/app"
)

type ctxKey struct{}

// skipApp marks commands that run without an Application.
const skipApp = "skip-app"

// SetApp stores the Application in the command's context.
func SetApp(cmd *cobra.Command, a *app.Application) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, ctxKey{}, a))
}

// GetApp retrieves the Application stored by SetApp, or nil.
func GetApp(cmd *cobra.Command) *app.Application {
	if cmd == nil || cmd.Context() == nil {
		return nil
	}
	a, _ := cmd.Context().Value(ctxKey{}).(*app.Application)
	return a
}

func needsApp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipApp] == "true" {
			return false
		}
	}
	return true
}
