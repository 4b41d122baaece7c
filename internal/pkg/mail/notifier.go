package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"

	"github.com/nexochat/nexo/internal/pkg/billing"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	welcomeSubject = "Seu acesso ao Nexo"
	renewalSubject = "Seu plano Nexo foi renovado"
)

// Notifier renders account emails and hands them to a Mailer.
type Notifier struct {
	mailer   Mailer
	loginURL string
}

func NewNotifier(m Mailer, loginURL string) *Notifier {
	return &Notifier{mailer: m, loginURL: loginURL}
}

type welcomeView struct {
	Name       string
	Email      string
	Password   string
	Plan       string
	DailyLimit int
	Price      string
	LoginURL   string
}

type renewalView struct {
	Name       string
	Plan       string
	DailyLimit int
	Price      string
	ExpiresAt  string
	LoginURL   string
}

func (n *Notifier) SendWelcome(ctx context.Context, w billing.WelcomeNotice) error {
	html, err := render("welcome.html", welcomeView{
		Name:       displayName(w.Name),
		Email:      w.Email,
		Password:   w.Password,
		Plan:       w.Plan,
		DailyLimit: w.DailyLimit,
		Price:      FormatBRL(w.PriceCents),
		LoginURL:   n.loginURL,
	})
	if err != nil {
		return err
	}
	return n.send(ctx, Message{To: w.Email, ToName: w.Name, Subject: welcomeSubject, HTML: html})
}

func (n *Notifier) SendRenewal(ctx context.Context, r billing.RenewalNotice) error {
	html, err := render("renewal.html", renewalView{
		Name:       displayName(r.Name),
		Plan:       r.Plan,
		DailyLimit: r.DailyLimit,
		Price:      FormatBRL(r.PriceCents),
		ExpiresAt:  r.ExpiresAt.Format("02/01/2006"),
		LoginURL:   n.loginURL,
	})
	if err != nil {
		return err
	}
	return n.send(ctx, Message{To: r.Email, ToName: r.Name, Subject: renewalSubject, HTML: html})
}

func (n *Notifier) send(ctx context.Context, msg Message) error {
	id, err := n.mailer.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("send %q to %s: %w", msg.Subject, msg.To, err)
	}
	log.Infof("[Mail] sent %q to %s (message id %s)", msg.Subject, msg.To, id)
	return nil
}

func render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func displayName(name string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return "cliente"
}

// FormatBRL renders minor units as "R$ 1.234,56".
func FormatBRL(cents int64) string {
	s := decimal.New(cents, -2).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var grouped strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}

	out := "R$ " + grouped.String() + "," + frac
	if neg {
		out = "-" + out
	}
	return out
}
