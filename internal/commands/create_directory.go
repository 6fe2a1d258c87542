package commands

import (
	"context"

	"github.com/avilab/fscmd/internal/command"
)

// NewCreateDirectory returns the create_directory command. Creating a
// directory that already exists is not an error.
func NewCreateDirectory() *command.Command {
	return &command.Command{
		Name:        "create_directory",
		Description: "Create a directory, including any missing parents. Idempotent.",
		Schema: command.Schema{Fields: []command.Field{
			pathField("Directory to create, relative to the served root"),
		}},
		Execute: func(_ context.Context, cc *command.Context) (any, error) {
			files, err := filesService(cc)
			if err != nil {
				return nil, err
			}
			path := cc.Args.String("path", "")
			if err := files.CreateDir(path); err != nil {
				return nil, err
			}
			return map[string]any{"path": path, "created": true}, nil
		},
	}
}
