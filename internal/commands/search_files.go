package commands

import (
	"context"
	"strings"

	"github.com/avilab/fscmd/internal/command"
)

// NewSearchFiles returns the search_files command: glob-match file
// names under a subtree. Hidden directories are skipped.
func NewSearchFiles() *command.Command {
	return &command.Command{
		Name:        "search_files",
		Description: "Find files whose name matches a glob pattern, searching recursively under a directory.",
		Schema: command.Schema{Fields: []command.Field{
			{
				Name:        "pattern",
				Type:        command.TypeString,
				Description: "Glob pattern matched against file names, e.g. *.go",
				Required:    true,
			},
			{
				Name:        "path",
				Type:        command.TypeString,
				Description: "Directory to search under. Defaults to the served root.",
			},
		}},
		Validate: func(args command.Args) []command.FieldError {
			if strings.TrimSpace(args.String("pattern", "")) == "" {
				return []command.FieldError{{Field: "pattern", Message: "must not be blank"}}
			}
			return nil
		},
		Execute: func(_ context.Context, cc *command.Context) (any, error) {
			files, err := filesService(cc)
			if err != nil {
				return nil, err
			}
			pattern := cc.Args.String("pattern", "")
			dir := cc.Args.String("path", ".")
			matches, err := files.Search(dir, pattern)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"pattern": pattern,
				"matches": matches,
				"count":   len(matches),
			}, nil
		},
	}
}
