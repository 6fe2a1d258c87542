package commands

import (
	"context"

	"github.com/avilab/fscmd/internal/command"
)

// NewDeleteFile returns the delete_file command.
func NewDeleteFile() *command.Command {
	return &command.Command{
		Name:        "delete_file",
		Description: "Delete a file. Fails if the file does not exist.",
		Schema: command.Schema{Fields: []command.Field{
			pathField("File to delete, relative to the served root"),
		}},
		Execute: func(_ context.Context, cc *command.Context) (any, error) {
			files, err := filesService(cc)
			if err != nil {
				return nil, err
			}
			path := cc.Args.String("path", "")
			if err := files.DeleteFile(path); err != nil {
				return nil, err
			}
			return map[string]any{"path": path, "deleted": true}, nil
		},
	}
}
