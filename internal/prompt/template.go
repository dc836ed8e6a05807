package prompt

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var variablePattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// TextVar is the placeholder that receives the transcript.
const TextVar = "text"

// Template is a prompt with {{variable}} placeholders.
type Template struct {
	raw  string
	vars []string
}

// Parse checks that raw is non-empty and references {{text}}.
func Parse(raw string) (*Template, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("prompt template is empty")
	}
	t := &Template{raw: raw, vars: ExtractVariables(raw)}
	for _, v := range t.vars {
		if v == TextVar {
			return t, nil
		}
	}
	return nil, fmt.Errorf("prompt template must reference {{%s}}", TextVar)
}

// MustParse is like Parse but panics on error.
func MustParse(raw string) *Template {
	t, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// Variables returns the placeholder names in order of first appearance.
func (t *Template) Variables() []string { return t.vars }

// String returns the template source.
func (t *Template) String() string { return t.raw }

// Text renders the template for a transcript.
func (t *Template) Text(text string) (string, error) {
	return Render(t.raw, map[string]string{TextVar: text})
}

// Render replaces {{variable}} placeholders in the template with values from vars.
func Render(template string, vars map[string]string) (string, error) {
	missing := findMissingVars(template, vars)
	if len(missing) > 0 {
		return "", fmt.Errorf("missing template variables: %s", strings.Join(missing, ", "))
	}

	result := variablePattern.ReplaceAllStringFunc(template, func(match string) string {
		return vars[match[2:len(match)-2]]
	})

	return result, nil
}

// ExtractVariables returns a list of variable names found in the template.
func ExtractVariables(template string) []string {
	matches := variablePattern.FindAllStringSubmatch(template, -1)
	seen := make(map[string]bool)
	var vars []string
	for _, m := range matches {
		if len(m) > 1 && !seen[m[1]] {
			vars = append(vars, m[1])
			seen[m[1]] = true
		}
	}
	return vars
}

func findMissingVars(template string, vars map[string]string) []string {
	var missing []string
	for _, v := range ExtractVariables(template) {
		if _, ok := vars[v]; !ok {
			missing = append(missing, v)
		}
	}
	return missing
}
