package commands

import (
	"context"

	"github.com/avilab/fscmd/internal/command"
)

// NewReadFile returns the read_file command: fetch a file's content,
// served from the cache on repeated reads.
func NewReadFile() *command.Command {
	return &command.Command{
		Name:        "read_file",
		Description: "Read the content of a file under the served root.",
		Schema: command.Schema{Fields: []command.Field{
			pathField("File to read, relative to the served root"),
		}},
		Execute: func(_ context.Context, cc *command.Context) (any, error) {
			files, err := filesService(cc)
			if err != nil {
				return nil, err
			}
			data, err := files.ReadFile(cc.Args.String("path", ""))
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"path":    cc.Args.String("path", ""),
				"content": string(data),
			}, nil
		},
	}
}
