package commands

import (
	"context"

	"github.com/avilab/fscmd/internal/command"
)

// NewCommandLog returns the command_log command: the most recent
// dispatch audit entries, newest first.
func NewCommandLog() *command.Command {
	return &command.Command{
		Name:        "command_log",
		Description: "Return the most recent command dispatches with their outcome and duration.",
		Schema: command.Schema{Fields: []command.Field{
			{
				Name:        "limit",
				Type:        command.TypeInt,
				Description: "Maximum number of entries to return (default 20)",
			},
		}},
		Validate: func(args command.Args) []command.FieldError {
			if args.Int("limit", 1) < 0 {
				return []command.FieldError{{Field: "limit", Message: "must not be negative"}}
			}
			return nil
		},
		Execute: func(_ context.Context, cc *command.Context) (any, error) {
			store, err := historyService(cc)
			if err != nil {
				return nil, err
			}
			entries, err := store.Recent(cc.Args.Int("limit", 20))
			if err != nil {
				return nil, err
			}
			total, err := store.Count()
			if err != nil {
				return nil, err
			}
			return map[string]any{"entries": entries, "total": total}, nil
		},
	}
}
