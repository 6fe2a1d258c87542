package commands

import (
	"context"

	"github.com/avilab/fscmd/internal/command"
)

// NewWriteFile returns the write_file command: create or overwrite a
// file transactionally.
func NewWriteFile() *command.Command {
	return &command.Command{
		Name:        "write_file",
		Description: "Create or overwrite a file with the given content. Parent directories are created as needed.",
		Schema: command.Schema{Fields: []command.Field{
			pathField("File to write, relative to the served root"),
			{
				Name:        "content",
				Type:        command.TypeString,
				Description: "Full content to write",
				Required:    true,
			},
		}},
		Execute: func(_ context.Context, cc *command.Context) (any, error) {
			files, err := filesService(cc)
			if err != nil {
				return nil, err
			}
			path := cc.Args.String("path", "")
			content := cc.Args.String("content", "")
			if err := files.WriteFile(path, []byte(content)); err != nil {
				return nil, err
			}
			return map[string]any{"path": path, "bytes_written": len(content)}, nil
		},
	}
}
