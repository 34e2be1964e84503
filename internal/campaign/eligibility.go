package campaign

// Decision is the outcome of an eligibility check.
type Decision int

const (
	Accept Decision = iota
	RejectFreeform
)

func (d Decision) String() string {
	if d == Accept {
		return "accept"
	}
	return "reject_freeform"
}

// EligibilityCache maps client id to "may receive free-form messages".
// A missing entry means unknown, which is treated as false.
type EligibilityCache map[string]bool

func (c EligibilityCache) CanSendFree(clientID string) bool {
	return c[clientID]
}

func (c EligibilityCache) clone() EligibilityCache {
	out := make(EligibilityCache, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// IsTemplate reports whether content is byte-equal to one of templates.
func IsTemplate(content string, templates []string) bool {
	for _, t := range templates {
		if content == t {
			return true
		}
	}
	return false
}

// Evaluate decides whether content may be sent to clientID. Templates are
// always accepted; anything else needs an open messaging window.
func Evaluate(clientID, content string, templates []string, cache EligibilityCache) Decision {
	if IsTemplate(content, templates) {
		return Accept
	}
	if cache.CanSendFree(clientID) {
		return Accept
	}
	return RejectFreeform
}
