// Package apidocs loads and checks the OpenAPI document served under /docs/api.
package apidocs

import (
	"context"
	"fmt"
	"os"

	"github.com/getkin/kin-openapi/openapi3"
)

// SpecFile is the document location relative to the project root.
const SpecFile = "public/docs/v1/openapi.yml"

// Find returns the first existing document path, searching from the working
// directory and from cmd/<name>.
func Find() string {
	for _, base := range []string{"./", "../../", "../../../"} {
		p := base + SpecFile
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load parses and validates the document at path.
func Load(ctx context.Context, path string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return doc, nil
}

// Operations lists "METHOD /path" for every documented operation, with path
// parameters written in fiber's ":name" form.
func Operations(doc *openapi3.T) []string {
	var out []string
	for path, item := range doc.Paths.Map() {
		for method := range item.Operations() {
			out = append(out, method+" "+fiberPath(path))
		}
	}
	return out
}

func fiberPath(p string) string {
	b := make([]byte, 0, len(p))
	for i := 0; i < len(p); i++ {
		switch p[i] {
		case '{':
			b = append(b, ':')
		case '}':
		default:
			b = append(b, p[i])
		}
	}
	return string(b)
}
