// Package fallback holds the built-in demo roster, categories and templates
// used whenever the registry or template store cannot be reached.
package fallback

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/unclebandit/coachline-backend/internal/model"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type document struct {
	Coach struct {
		ID           string `yaml:"id"`
		Name         string `yaml:"name"`
		ChannelToken string `yaml:"channel_token"`
		Timezone     string `yaml:"timezone"`
	} `yaml:"coach"`
	Clients []struct {
		ID         string   `yaml:"id"`
		Name       string   `yaml:"name"`
		Phone      string   `yaml:"phone_number"`
		Categories []string `yaml:"categories"`
		Timezone   string   `yaml:"timezone"`
	} `yaml:"clients"`
	Categories []string                       `yaml:"categories"`
	Templates  map[model.MessageKind][]string `yaml:"templates"`
}

var defaults = mustParse(defaultsYAML)

func mustParse(raw []byte) document {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		panic(fmt.Sprintf("fallback: parse defaults.yaml: %v", err))
	}
	return doc
}

// Coach returns the demo coach used when registration fails.
func Coach() model.CoachSession {
	return model.CoachSession{
		CoachID:      defaults.Coach.ID,
		Name:         defaults.Coach.Name,
		ChannelToken: defaults.Coach.ChannelToken,
		Timezone:     defaults.Coach.Timezone,
		Demo:         true,
	}
}

// Clients returns a fresh copy of the demo roster for coachID.
func Clients(coachID string) []model.Client {
	out := make([]model.Client, 0, len(defaults.Clients))
	for _, c := range defaults.Clients {
		out = append(out, model.Client{
			ID:         c.ID,
			CoachID:    coachID,
			Name:       c.Name,
			Phone:      c.Phone,
			Categories: append([]string(nil), c.Categories...),
			Timezone:   c.Timezone,
			IsActive:   true,
		})
	}
	return out
}

func Categories(coachID string) []model.Category {
	out := make([]model.Category, 0, len(defaults.Categories))
	for i, name := range defaults.Categories {
		out = append(out, model.Category{ID: i + 1, CoachID: coachID, Name: name})
	}
	return out
}

func Templates(coachID string, kind model.MessageKind) []model.Template {
	bodies := defaults.Templates[kind]
	out := make([]model.Template, 0, len(bodies))
	for i, body := range bodies {
		out = append(out, model.Template{ID: i + 1, CoachID: coachID, Kind: kind, Content: body})
	}
	return out
}
