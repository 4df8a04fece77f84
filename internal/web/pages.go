// Package web serves the HTML pages: the landing page and the county risk
// dashboard with its server-side "Learn More" flow.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"verdant/internal/dashboard"
)

//go:embed templates/*.html
var templateFS embed.FS

// page is the data every template receives; Data is page specific.
type page struct {
	Title          string
	Theme          dashboard.Theme
	RefreshSeconds int
	Data           any
}

// Pages holds one parsed template set per page, each combined with the
// shared layout.
type Pages struct {
	sets map[string]*template.Template
}

var pageNames = []string{"landing", "dashboard", "error"}

// NewPages parses the embedded templates.
func NewPages() (*Pages, error) {
	p := &Pages{sets: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New(name).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("web: failed to parse %s.html: %w", name, err)
		}
		p.sets[name] = t
	}
	return p, nil
}

// Render executes page name into a buffer first so a template error never
// produces a half-written response.
func (p *Pages) Render(w http.ResponseWriter, status int, name string, data page) error {
	t, ok := p.sets[name]
	if !ok {
		return fmt.Errorf("web: unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("web: failed to render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

type card struct {
	Title       string
	Description string
}

type landingData struct {
	Features     []card
	Reasons      []card
	Facts        []string
	ExploreURL   string
	ExploreLabel string
}

var landingContent = landingData{
	Features: []card{
		{"Biodiversity Index", "Discover the richness of plant and animal species in the area."},
		{"Natural Disaster Risk", "Assess potential risks from earthquakes, floods, and other natural events."},
		{"Endangered Species", "Learn about threatened flora and fauna in the region."},
	},
	Reasons: []card{
		{"Comprehensive Data", "Access a wide range of environmental indicators in one place."},
		{"Reliable Information", "Get the most accurate information from your most trusted sources"},
		{"Easy to Understand", "Complex data presented in clear, visual formats for easy interpretation."},
		{"Actionable Insights", "Gain knowledge that can inform decision-making and conservation efforts."},
	},
	Facts: []string{
		"Data for every county apart of the U.S",
		"Most update to date consensus and information",
		"Risk assessments for 20 different environmental factors",
	},
	ExploreURL:   "/dashboard/TX/Harris",
	ExploreLabel: "Start Exploring for Free",
}

type hazardRowState struct {
	dashboard.HazardRow
	Info dashboard.HazardInfoResult
}

type dashboardData struct {
	ViewID      string
	View        dashboard.View
	Rows        []hazardRowState
	LoadingText string
}

type errorData struct {
	Heading string
	Message string
}
