package handlers

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxnote/docs"
)

func TestSwaggerPathsMatchRoutes(t *testing.T) {
	var doc struct {
		BasePath string                                `json:"basePath"`
		Paths    map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(docs.SwaggerInfo.ReadDoc()), &doc))
	require.Equal(t, "/api/v1", doc.BasePath)

	var documented []string
	for path, ops := range doc.Paths {
		assert.False(t, strings.HasPrefix(path, doc.BasePath), "%s repeats the base path", path)
		for method := range ops {
			documented = append(documented, strings.ToUpper(method)+" "+path)
		}
	}

	var routed []string
	for _, r := range newTestEnv().app.GetRoutes(true) {
		if r.Method == "HEAD" || !strings.HasPrefix(r.Path, doc.BasePath+"/") {
			continue
		}
		path := strings.TrimPrefix(r.Path, doc.BasePath)
		path = strings.ReplaceAll(path, ":id", "{id}")
		routed = append(routed, r.Method+" "+path)
	}

	assert.ElementsMatch(t, routed, documented)
	assert.Contains(t, documented, "GET /status")
}
