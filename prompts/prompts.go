// Package prompts externalizes every LLM prompt as a Go text/template file
// embedded into the binary, so prompt wording changes without touching the
// packages that render them.
package prompts

import (
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

//go:embed *.tmpl
var files embed.FS

var (
	mu    sync.Mutex
	cache = map[string]*template.Template{}
)

// Data carries every placeholder any template may reference; callers only
// set the fields their template uses.
type Data struct {
	Series        string
	ChunkID       string
	ChunkText     string
	Query         string
	Summary       string
	PartialsBlock string
	PathsBlock    string
	MembersBlock  string
	Mention       string
	CandidatesBlock string
}

// Render executes the named template (its filename without the .tmpl
// suffix) against data and returns the rendered prompt.
func Render(name string, data Data) (string, error) {
	tmpl, err := load(name)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return sb.String(), nil
}

func load(name string) (*template.Template, error) {
	mu.Lock()
	defer mu.Unlock()

	if t, ok := cache[name]; ok {
		return t, nil
	}

	t, err := template.ParseFS(files, name+".tmpl")
	if err != nil {
		return nil, fmt.Errorf("load prompt %s: %w", name, err)
	}
	cache[name] = t
	return t, nil
}
