package grants

import (
	"embed"
	"encoding/xml"
	"strings"
	"text/template"

	"permissions-manager/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// PubSubEntry is one publish or subscribe block of the permission document:
// a set of canonical topic names, an optional ordered partition list and the
// block's own validity window.
type PubSubEntry struct {
	Topics     []string
	Partitions []string
	ValidStart string
	ValidEnd   string
}

// CompileInput carries everything the document template substitutes.
type CompileInput struct {
	ApplicationID int64
	Subject       string
	DomainID      int64
	ValidStart    string
	ValidEnd      string
	Publishes     []PubSubEntry
	Subscribes    []PubSubEntry
}

var permissionsTemplate = template.Must(template.New("permissions.xml.tmpl").
	Funcs(template.FuncMap{"esc": escapeXML}).
	ParseFS(templateFS, "templates/permissions.xml.tmpl"))

// Compile renders the DDS permission document for one application. It is
// pure and deterministic: publish blocks render in input order, subscribe
// blocks after them, and a block's partitions element is omitted entirely
// when the list is empty. Missing required fields surface as CompileError
// naming the field.
func Compile(in CompileInput) (string, error) {
	if in.ApplicationID <= 0 {
		return "", domain.ErrCompile("applicationId", "grant document requires an application id")
	}
	if in.Subject == "" {
		return "", domain.ErrCompile("subject", "grant document requires a subject name")
	}
	if in.DomainID <= 0 {
		return "", domain.ErrCompile("domain", "grant document requires a domain id")
	}
	if in.ValidStart == "" || in.ValidEnd == "" {
		return "", domain.ErrCompile("validity", "grant document requires validity bounds")
	}

	var b strings.Builder
	if err := permissionsTemplate.Execute(&b, in); err != nil {
		return "", domain.ErrCompile("template", "permission document render: %v", err)
	}
	return b.String(), nil
}

func escapeXML(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return s
	}
	return b.String()
}
