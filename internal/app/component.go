// Package app assembles the bot: it builds every collaborator from
// configuration and runs them as an explicit, ordered component list.
package app

import "context"

// Component is one startable unit of the application. Start must not block;
// long-running work belongs on goroutines owned by the component. Components
// are started in list order and stopped in reverse, so later components may
// depend on earlier ones. A nil Start or Stop is skipped.
//
// The component list is the single source of truth for what runs and in which
// order; there is no registry and no scanning.
type Component struct {
	Name  string
	Start func(ctx context.Context) error
	Stop  func(ctx context.Context) error
}
