package commands

import (
	"context"

	"github.com/avilab/fscmd/internal/command"
)

// NewListDirectory returns the list_directory command.
func NewListDirectory() *command.Command {
	return &command.Command{
		Name:        "list_directory",
		Description: "List the entries of a directory, sorted by name.",
		Schema: command.Schema{Fields: []command.Field{
			{
				Name:        "path",
				Type:        command.TypeString,
				Description: "Directory to list, relative to the served root. Defaults to the root itself.",
			},
		}},
		Execute: func(_ context.Context, cc *command.Context) (any, error) {
			files, err := filesService(cc)
			if err != nil {
				return nil, err
			}
			path := cc.Args.String("path", ".")
			entries, err := files.ListDir(path)
			if err != nil {
				return nil, err
			}
			return map[string]any{"path": path, "entries": entries}, nil
		},
	}
}
