package campaign

import (
	"sort"
	"strings"

	appErrors "github.com/unclebandit/coachline-backend/internal/errors"
	"github.com/unclebandit/coachline-backend/internal/model"
)

// DraftKey identifies one draft (and one scheduling choice).
type DraftKey struct {
	ClientID string
	Kind     model.MessageKind
}

type Draft struct {
	Content    string `json:"content"`
	IsTemplate bool   `json:"is_template"`
}

// Empty reports whether the draft has nothing to send.
func (d Draft) Empty() bool {
	return strings.TrimSpace(d.Content) == ""
}

// DraftStore holds at most one draft per (client, kind).
type DraftStore struct {
	drafts map[DraftKey]Draft
}

func NewDraftStore() DraftStore {
	return DraftStore{drafts: make(map[DraftKey]Draft)}
}

// Set stores content after an eligibility check. Rejected content leaves
// the store untouched and returns a FreeformBlockedError.
func (s *DraftStore) Set(clientID string, kind model.MessageKind, content string, templates []string, cache EligibilityCache) error {
	if strings.TrimSpace(content) != "" {
		if Evaluate(clientID, content, templates, cache) == RejectFreeform {
			return appErrors.NewFreeformBlocked(clientID, string(kind), templates)
		}
	}
	s.SetRaw(clientID, kind, content, templates)
	return nil
}

// SetRaw stores content without checking eligibility.
func (s *DraftStore) SetRaw(clientID string, kind model.MessageKind, content string, templates []string) {
	if s.drafts == nil {
		s.drafts = make(map[DraftKey]Draft)
	}
	s.drafts[DraftKey{ClientID: clientID, Kind: kind}] = Draft{
		Content:    content,
		IsTemplate: IsTemplate(content, templates),
	}
}

func (s DraftStore) Get(clientID string, kind model.MessageKind) (Draft, bool) {
	d, ok := s.drafts[DraftKey{ClientID: clientID, Kind: kind}]
	return d, ok
}

func (s *DraftStore) Delete(key DraftKey) {
	delete(s.drafts, key)
}

func (s *DraftStore) ClearAll() {
	s.drafts = make(map[DraftKey]Draft)
}

func (s *DraftStore) ClearKind(kind model.MessageKind) {
	for k := range s.drafts {
		if k.Kind == kind {
			delete(s.drafts, k)
		}
	}
}

// HasContent reports whether any draft of the given kinds (all kinds when
// none are given) is non-blank.
func (s DraftStore) HasContent(kinds ...model.MessageKind) bool {
	for k, d := range s.drafts {
		if len(kinds) > 0 && !containsKind(kinds, k.Kind) {
			continue
		}
		if !d.Empty() {
			return true
		}
	}
	return false
}

// Len counts stored drafts, blank ones included.
func (s DraftStore) Len() int { return len(s.drafts) }

// Keys returns every key in a stable order (client id, then kind).
func (s DraftStore) Keys() []DraftKey {
	keys := make([]DraftKey, 0, len(s.drafts))
	for k := range s.drafts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ClientID != keys[j].ClientID {
			return keys[i].ClientID < keys[j].ClientID
		}
		return keys[i].Kind < keys[j].Kind
	})
	return keys
}

func (s DraftStore) clone() DraftStore {
	out := DraftStore{drafts: make(map[DraftKey]Draft, len(s.drafts))}
	for k, v := range s.drafts {
		out.drafts[k] = v
	}
	return out
}

func containsKind(kinds []model.MessageKind, k model.MessageKind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}
