package commands

import (
	"context"

	"github.com/avilab/fscmd/internal/command"
)

// NewMoveFile returns the move_file command: relocate a file as one
// atomic unit. A failure on either side restores the original layout.
func NewMoveFile() *command.Command {
	return &command.Command{
		Name:        "move_file",
		Description: "Move a file to a new location atomically. On failure the original file is untouched.",
		Schema: command.Schema{Fields: []command.Field{
			{
				Name:        "source",
				Type:        command.TypeString,
				Description: "File to move, relative to the served root",
				Required:    true,
			},
			{
				Name:        "destination",
				Type:        command.TypeString,
				Description: "Target path, relative to the served root",
				Required:    true,
			},
		}},
		Execute: func(_ context.Context, cc *command.Context) (any, error) {
			files, err := filesService(cc)
			if err != nil {
				return nil, err
			}
			src := cc.Args.String("source", "")
			dst := cc.Args.String("destination", "")
			if err := files.MoveFile(src, dst); err != nil {
				return nil, err
			}
			return map[string]any{"source": src, "destination": dst}, nil
		},
	}
}
