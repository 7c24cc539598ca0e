package store

import (
	"fmt"
	"strconv"
	"strings"
)

const imagineCommand = "/imagine"

// ValidationError marks bad user input. It is surfaced inline in the
// chat and never triggers an upstream request.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// ImageCommand is a parsed /imagine directive. Nil numeric fields were
// not supplied.
type ImageCommand struct {
	Prompt         string
	Seed           *int64
	GuidanceScale  *float64
	InferenceSteps *int
	Model          string
	Width          *int
	Height         *int
}

// imagineFlags maps flag-name synonyms to semantic fields. Unknown flags
// are ignored.
var imagineFlags = map[string]string{
	"seed":          "seed",
	"gs":            "guidance",
	"guidance":      "guidance",
	"guidancescale": "guidance",
	"steps":         "steps",
	"nis":           "steps",
	"model":         "model",
	"width":         "width",
	"height":        "height",
}

// IsImagineCommand reports whether the input invokes image generation.
// The command token is matched case-insensitively after trimming.
func IsImagineCommand(input string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	return trimmed == imagineCommand || strings.HasPrefix(trimmed, imagineCommand+" ")
}

// ParseImagineCommand parses `/imagine <prompt> [--flag value]...` into a
// structured request. The prompt is everything before the first flag
// marker; flag values may be double-quoted to include whitespace.
func ParseImagineCommand(input string) (*ImageCommand, error) {
	trimmed := strings.TrimSpace(input)
	if !IsImagineCommand(trimmed) {
		return nil, validationErrorf("not an %s command", imagineCommand)
	}

	rest := strings.TrimSpace(trimmed[len(imagineCommand):])
	tokens := tokenize(rest)

	var promptParts []string
	i := 0
	for ; i < len(tokens); i++ {
		if strings.HasPrefix(tokens[i], "--") {
			break
		}
		promptParts = append(promptParts, tokens[i])
	}

	cmd := &ImageCommand{Prompt: strings.Join(promptParts, " ")}
	if strings.TrimSpace(cmd.Prompt) == "" {
		return nil, validationErrorf("image prompt is required before any flags, e.g. %s a cat --seed 7", imagineCommand)
	}

	for i < len(tokens) {
		name := strings.ToLower(strings.TrimPrefix(tokens[i], "--"))
		i++
		var value string
		if i < len(tokens) && !strings.HasPrefix(tokens[i], "--") {
			value = tokens[i]
			i++
		}

		field, known := imagineFlags[name]
		if !known {
			continue
		}
		if err := cmd.assign(field, name, value); err != nil {
			return nil, err
		}
	}

	return cmd, nil
}

func (c *ImageCommand) assign(field, flag, value string) error {
	switch field {
	case "model":
		c.Model = value
		return nil
	case "seed":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return validationErrorf("invalid value %q for --%s: expected a number", value, flag)
		}
		c.Seed = &n
		return nil
	case "guidance":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return validationErrorf("invalid value %q for --%s: expected a number", value, flag)
		}
		c.GuidanceScale = &f
		return nil
	case "steps", "width", "height":
		n, err := strconv.Atoi(value)
		if err != nil {
			return validationErrorf("invalid value %q for --%s: expected a number", value, flag)
		}
		switch field {
		case "steps":
			c.InferenceSteps = &n
		case "width":
			c.Width = &n
		case "height":
			c.Height = &n
		}
		return nil
	}
	return nil
}

// tokenize splits on whitespace while keeping double-quoted spans as a
// single token (without the quotes).
func tokenize(s string) []string {
	var tokens []string
	var current strings.Builder
	inQuotes := false

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case !inQuotes && (r == ' ' || r == '\t' || r == '\n'):
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return tokens
}
