package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"

	"verdant/internal/types"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

// VerifySubject is both the subject line and the inbox preview text.
const VerifySubject = "Verdant Assistant: Verify your email address"

// defaultGreetingName is used when the user has no display name.
const defaultGreetingName = "Friend"

// User is the account the verification email is addressed to.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"required,email"`
}

// VerifyParams are the inputs of the verification email. URL is the link the
// user follows; Token is carried for providers that build their own link.
type VerifyParams struct {
	User  User   `json:"user" validate:"required"`
	URL   string `json:"url" validate:"required,url"`
	Token string `json:"token"`
}

// RenderedEmail holds the pre-rendered email content ready for transmission.
type RenderedEmail struct {
	Subject  string
	BodyHTML string
	BodyText string
}

type templateData struct {
	Subject string
	Name    string
	URL     string
	Token   string
}

// Renderer renders the verification email from embedded templates.
type Renderer struct {
	html     *template.Template
	text     *texttemplate.Template
	fromAddr string
	fromName string
}

// RendererConfig holds the parameters needed to construct a Renderer.
type RendererConfig struct {
	FromAddress string
	FromName    string
}

// NewRenderer parses the embedded templates.
func NewRenderer(cfg RendererConfig) (*Renderer, error) {
	htmlTmpl, err := template.ParseFS(templateFS, "templates/verify_email.html")
	if err != nil {
		return nil, fmt.Errorf("renderer: failed to parse verify_email.html: %w", err)
	}
	textTmpl, err := texttemplate.ParseFS(templateFS, "templates/verify_email.txt")
	if err != nil {
		return nil, fmt.Errorf("renderer: failed to parse verify_email.txt: %w", err)
	}
	return &Renderer{
		html:     htmlTmpl,
		text:     textTmpl,
		fromAddr: cfg.FromAddress,
		fromName: cfg.FromName,
	}, nil
}

// Render produces the verification email and the sender to use for it.
func (r *Renderer) Render(p VerifyParams) (*RenderedEmail, types.SenderIdentity, error) {
	data := templateData{
		Subject: VerifySubject,
		Name:    greetingName(p.User.Name),
		URL:     p.URL,
		Token:   p.Token,
	}

	var htmlBuf bytes.Buffer
	if err := r.html.Execute(&htmlBuf, data); err != nil {
		return nil, types.SenderIdentity{}, fmt.Errorf("renderer: failed to render HTML: %w", err)
	}
	var textBuf bytes.Buffer
	if err := r.text.Execute(&textBuf, data); err != nil {
		return nil, types.SenderIdentity{}, fmt.Errorf("renderer: failed to render text: %w", err)
	}

	return &RenderedEmail{
			Subject:  data.Subject,
			BodyHTML: htmlBuf.String(),
			BodyText: textBuf.String(),
		}, types.SenderIdentity{
			Name:    r.fromName,
			Address: r.fromAddr,
		}, nil
}

func greetingName(name string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return defaultGreetingName
}

// maskAddress hides all but the first character of the local part, for logs.
func maskAddress(addr string) string {
	local, domain, ok := strings.Cut(addr, "@")
	switch {
	case addr == "":
		return ""
	case !ok:
		return "***"
	case local == "":
		return "***@" + domain
	default:
		return local[:1] + "***@" + domain
	}
}
