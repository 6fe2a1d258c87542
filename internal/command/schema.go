package command

import (
	"fmt"

	"github.com/spf13/cast"
)

// FieldType enumerates the argument types a schema can declare.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeInt    FieldType = "int"
	TypeNumber FieldType = "number"
	TypeBool   FieldType = "bool"
	TypeArray  FieldType = "array"
	TypeObject FieldType = "object"
)

// Field declares one argument: its type, whether the caller must
// supply it, and an optional closed set of accepted values.
type Field struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
}

// Schema is the declarative constraint set a command publishes for
// its arguments. It is data, not code, so it doubles as the
// introspection payload returned by List.
type Schema struct {
	Fields []Field `json:"fields"`
}

// FieldError is a single validation failure, reported as data so
// validators stay independently testable.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks raw against the schema and returns the coerced
// argument bag plus any field errors. Arguments not declared in the
// schema pass through untouched; a command that cares rejects them in
// its Validate hook.
func (s Schema) Validate(raw map[string]any) (Args, []FieldError) {
	args := make(Args, len(raw))
	for k, v := range raw {
		args[k] = v
	}

	var errs []FieldError
	for _, f := range s.Fields {
		v, present := raw[f.Name]
		if !present || v == nil {
			if f.Required {
				errs = append(errs, FieldError{Field: f.Name, Message: "required argument is missing"})
			}
			continue
		}

		coerced, err := coerce(f.Type, v)
		if err != nil {
			errs = append(errs, FieldError{
				Field:   f.Name,
				Message: fmt.Sprintf("expected %s, got %T", f.Type, v),
			})
			continue
		}

		if len(f.Enum) > 0 {
			if err := checkEnum(f.Enum, cast.ToString(coerced)); err != nil {
				errs = append(errs, FieldError{Field: f.Name, Message: err.Error()})
				continue
			}
		}

		args[f.Name] = coerced
	}
	return args, errs
}

func coerce(t FieldType, v any) (any, error) {
	switch t {
	case TypeString:
		// Reject silent stringification of composites; a map or
		// slice sent where a string is declared is a caller bug.
		switch v.(type) {
		case string:
			return v, nil
		default:
			return nil, fmt.Errorf("not a string")
		}
	case TypeInt:
		return cast.ToIntE(v)
	case TypeNumber:
		return cast.ToFloat64E(v)
	case TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("not a bool")
		}
		return b, nil
	case TypeArray:
		if _, ok := v.([]any); !ok {
			return nil, fmt.Errorf("not an array")
		}
		return v, nil
	case TypeObject:
		if _, ok := v.(map[string]any); !ok {
			return nil, fmt.Errorf("not an object")
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown field type %q", t)
	}
}

func checkEnum(allowed []string, got string) error {
	for _, a := range allowed {
		if a == got {
			return nil
		}
	}
	return fmt.Errorf("must be one of %v", allowed)
}
