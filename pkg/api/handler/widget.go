package handler

import (
	"bytes"
	_ "embed"
	"fmt"
	"net/http"
	"text/template"
)

//go:embed widget-loader.js
var widgetLoaderJS string

// widget serves the embeddable loader script with the chatbot URL injected
// from configuration. The script floats a toggle bubble and an iframe
// pointed at the widget UI; it carries no data contract beyond show/hide.
type widget struct {
	script []byte
}

func NewWidget(chatbotURL string) (*widget, error) {
	tmpl, err := template.New("widget-loader").Parse(widgetLoaderJS)
	if err != nil {
		return nil, fmt.Errorf("parsing widget loader template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ ChatbotURL string }{ChatbotURL: chatbotURL}); err != nil {
		return nil, fmt.Errorf("rendering widget loader: %w", err)
	}

	return &widget{script: buf.Bytes()}, nil
}

func (h *widget) ServeLoader(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(h.script)
}
