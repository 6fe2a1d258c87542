package commands

import (
	"context"

	"github.com/avilab/fscmd/internal/command"
)

// NewGetFileInfo returns the get_file_info command: size, mode,
// timestamps, and kind for a path. Results are briefly cached.
func NewGetFileInfo() *command.Command {
	return &command.Command{
		Name:        "get_file_info",
		Description: "Return metadata (size, mode, modification time) for a file or directory.",
		Schema: command.Schema{Fields: []command.Field{
			pathField("Path to inspect, relative to the served root"),
		}},
		Execute: func(_ context.Context, cc *command.Context) (any, error) {
			files, err := filesService(cc)
			if err != nil {
				return nil, err
			}
			info, err := files.Stat(cc.Args.String("path", ""))
			if err != nil {
				return nil, err
			}
			return info, nil
		},
	}
}
