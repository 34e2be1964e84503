// internal/service/template_service.go
package service

import (
	"context"
	"log"
	"strings"

	appErrors "github.com/unclebandit/coachline-backend/internal/errors"
	"github.com/unclebandit/coachline-backend/internal/fallback"
	"github.com/unclebandit/coachline-backend/internal/model"
)

type TemplateService struct {
	Store TemplateStore
}

// Templates returns the coach's templates for kind. A failing store or a coach
// without templates gets the built-in set; only a failure is reported.
func (s *TemplateService) Templates(ctx context.Context, coachID string, kind model.MessageKind) ([]model.Template, error) {
	if s.Store == nil {
		return fallback.Templates(coachID, kind), nil
	}
	templates, err := s.Store.ListTemplates(ctx, coachID, kind)
	if err != nil {
		log.Println("⚠️ Template store unavailable, using built-in templates:", err)
		return fallback.Templates(coachID, kind), appErrors.NewRegistryUnavailable("list templates", err)
	}
	if len(templates) == 0 {
		return fallback.Templates(coachID, kind), nil
	}
	return templates, nil
}

func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}

// Personalize fills the {name} and {first_name} placeholders for client.
func Personalize(content string, client model.Client) string {
	return RenderTemplate(content, map[string]string{
		"name":       client.Name,
		"first_name": client.FirstName(),
	})
}

var goalPrompts = []struct {
	category string
	prompt   string
}{
	{"Health", "How did your health goals go today? Any wins to share?"},
	{"Finance", "How are you progressing with your financial goals this week?"},
	{"Business", "What business action did you take today toward your goals?"},
}

// SuggestAccountability proposes a check-in based on the client's categories.
func SuggestAccountability(client model.Client) string {
	var parts []string
	for _, g := range goalPrompts {
		if client.HasCategory(g.category) {
			parts = append(parts, g.prompt)
		}
	}
	if len(parts) == 0 {
		return "How are you progressing toward your goals today?"
	}
	return strings.Join(parts, " ")
}
