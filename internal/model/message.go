// internal/model/message.go
package model

import "fmt"

type MessageKind string

const (
	KindCelebration    MessageKind = "celebration"
	KindAccountability MessageKind = "accountability"
)

// AllKinds lists the kinds in the order the workflow authors them.
var AllKinds = []MessageKind{KindCelebration, KindAccountability}

func ParseMessageKind(s string) (MessageKind, error) {
	switch MessageKind(s) {
	case KindCelebration, KindAccountability:
		return MessageKind(s), nil
	}
	return "", fmt.Errorf("unknown message kind %q", s)
}

type Template struct {
	ID      int         `db:"id" json:"id"`
	CoachID string      `db:"coach_id" json:"coach_id"`
	Kind    MessageKind `db:"kind" json:"type"`
	Content string      `db:"content" json:"content"`
}

// TemplateContents returns the bodies of templates, preserving order.
func TemplateContents(templates []Template) []string {
	out := make([]string, 0, len(templates))
	for _, t := range templates {
		out = append(out, t.Content)
	}
	return out
}
