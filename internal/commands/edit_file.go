package commands

import (
	"context"
	"fmt"

	"github.com/avilab/fscmd/internal/command"
	"github.com/avilab/fscmd/internal/txn"
)

// NewEditFile returns the edit_file command: apply an ordered list of
// literal text replacements to an existing file as one transaction.
// If any edit's old_text is absent, the file is left untouched.
func NewEditFile() *command.Command {
	return &command.Command{
		Name: "edit_file",
		Description: "Apply ordered literal text replacements to a file. " +
			"Each edit replaces the first occurrence of old_text with new_text; " +
			"a non-matching edit fails the whole operation without modifying the file.",
		Schema: command.Schema{Fields: []command.Field{
			pathField("File to edit, relative to the served root"),
			{
				Name:        "edits",
				Type:        command.TypeArray,
				Description: "Ordered list of {old_text, new_text} objects",
				Required:    true,
			},
		}},
		Validate: validateEdits,
		Execute: func(_ context.Context, cc *command.Context) (any, error) {
			files, err := filesService(cc)
			if err != nil {
				return nil, err
			}
			path := cc.Args.String("path", "")
			edits, _ := parseEdits(cc.Args["edits"])
			if err := files.EditFile(path, edits); err != nil {
				return nil, err
			}
			return map[string]any{"path": path, "edits_applied": len(edits)}, nil
		},
	}
}

func validateEdits(args command.Args) []command.FieldError {
	_, errs := parseEdits(args["edits"])
	return errs
}

func parseEdits(raw any) ([]txn.Edit, []command.FieldError) {
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return nil, []command.FieldError{{Field: "edits", Message: "must be a non-empty array"}}
	}

	edits := make([]txn.Edit, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, []command.FieldError{{
				Field:   "edits",
				Message: fmt.Sprintf("edit %d must be an object with old_text and new_text", i+1),
			}}
		}
		oldText, ok := obj["old_text"].(string)
		if !ok || oldText == "" {
			return nil, []command.FieldError{{
				Field:   "edits",
				Message: fmt.Sprintf("edit %d needs a non-empty old_text string", i+1),
			}}
		}
		newText, _ := obj["new_text"].(string)
		edits = append(edits, txn.Edit{OldText: oldText, NewText: newText})
	}
	return edits, nil
}
