// Package featureflags evaluates rollout flags from a key=value configuration string.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// Known flags.
const (
	// ViewerReactionOnDetail keys user_reaction on the post detail endpoint to the
	// caller instead of the post author.
	ViewerReactionOnDetail = "viewer_reaction_on_detail"
	// CommentSubtreeDelete makes comment deletion remove the whole reply subtree
	// instead of only direct replies.
	CommentSubtreeDelete = "comment_subtree_delete"
)

// Defaults holds the value of every known flag when the configuration omits it.
var Defaults = map[string]string{
	ViewerReactionOnDetail: "off",
	CommentSubtreeDelete:   "off",
}

// rule is a parsed flag value. percent is 0..100; on and off map to 100 and 0.
// Unparseable values evaluate as off but are still reported by Raw.
type rule struct {
	raw     string
	percent int
}

func parseRule(value string) rule {
	r := rule{raw: value}
	switch value {
	case "on", "true", "1":
		r.percent = 100
		return r
	case "off", "false", "0":
		return r
	}
	if n, ok := strings.CutSuffix(value, "%"); ok {
		if pct, err := strconv.Atoi(n); err == nil {
			r.percent = min(max(pct, 0), 100)
		}
	}
	return r
}

// Manager evaluates flags configured as "name=value" pairs separated by commas,
// e.g. "viewer_reaction_on_detail=on,comment_subtree_delete=25%".
// Values are on/true/1, off/false/0 or a percentage rolled out per user.
type Manager struct {
	rules map[string]rule
}

// NewManager parses raw. Malformed pairs are skipped and known flags missing
// from raw take their Defaults value. Names and values are case-insensitive.
func NewManager(raw string) *Manager {
	m := &Manager{rules: make(map[string]rule, len(Defaults))}
	for name, value := range Defaults {
		m.rules[name] = parseRule(value)
	}
	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(pair, "=")
		name, value = normalize(name), normalize(value)
		if !ok || name == "" || value == "" {
			continue
		}
		m.rules[name] = parseRule(value)
	}
	return m
}

// Enabled reports whether name is on for userID. Partial rollouts need a user
// id and always give the same answer for the same user.
func (m *Manager) Enabled(name, userID string) bool {
	if m == nil {
		return false
	}
	r, ok := m.rules[normalize(name)]
	switch {
	case !ok || r.percent == 0:
		return false
	case r.percent == 100:
		return true
	case userID == "":
		return false
	}
	return rolloutBucket(name, userID) < r.percent
}

// Raw returns the configured value of every flag.
func (m *Manager) Raw() map[string]string {
	out := map[string]string{}
	if m == nil {
		return out
	}
	for name, r := range m.rules {
		out[name] = r.raw
	}
	return out
}

// Snapshot evaluates every flag for userID.
func (m *Manager) Snapshot(userID string) map[string]bool {
	out := map[string]bool{}
	if m == nil {
		return out
	}
	for name := range m.rules {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name, userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + userID))
	return int(h.Sum32() % 100)
}
