package api

import _ "embed"

// OpenAPISpec is the OpenAPI 3.1 document served at /api/openapi.yaml.
//
//go:embed openapi.yaml
var OpenAPISpec []byte
