// Package api embeds the OpenAPI document served by the bio REST adapter.
package api

import (
	_ "embed"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi-bio.yaml
var bioSpec []byte

var (
	specOnce sync.Once
	specDoc  *openapi3.T
	specErr  error
)

// BioSpec parses the embedded document once and returns the shared copy.
func BioSpec() (*openapi3.T, error) {
	specOnce.Do(func() {
		loader := openapi3.NewLoader()
		specDoc, specErr = loader.LoadFromData(bioSpec)
	})
	return specDoc, specErr
}
