package publish

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/progreswwa/ekipa-strategow-back/internal/domain"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}}</title>
  <meta name="description" content="{{.Description}}">
  <style>
{{.CSS}}
  </style>
</head>
<body>
{{.Body}}
{{- if .Script}}
<script>{{.Script}}</script>
{{- end}}
</body>
</html>
`))

type indexData struct {
	Title       string
	Description string
	CSS         template.CSS
	Body        template.HTML
	Script      template.JS
}

// BuildIndexHTML returns markup that already is a full document unchanged;
// fragments are wrapped with head metadata, styles and scripts.
func BuildIndexHTML(website domain.Website) (string, error) {
	lower := strings.ToLower(website.HTML)
	if strings.Contains(lower, "<!doctype") || strings.Contains(lower, "<html") {
		return website.HTML, nil
	}

	title := metadataString(website.Metadata, "title")
	if title == "" {
		title = "Website"
	}

	buffer := bytes.NewBuffer(nil)
	err := indexTemplate.Execute(buffer, indexData{
		Title:       title,
		Description: metadataString(website.Metadata, "description"),
		CSS:         template.CSS(website.CSS),
		Body:        template.HTML(website.HTML),
		Script:      template.JS(website.JS),
	})
	if err != nil {
		return "", fmt.Errorf("render index document: %w", err)
	}
	return buffer.String(), nil
}

func metadataString(metadata map[string]any, key string) string {
	value, _ := metadata[key].(string)
	return strings.TrimSpace(value)
}
