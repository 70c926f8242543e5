// Package featureflags evaluates the FEATURE_FLAGS setting.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// OpenRegistration allows anyone to create an account through the API.
// With it off, accounts are created with `blogctl create-user`.
const OpenRegistration = "open_registration"

// rule is one parsed flag value. percent is 0 for off and 100 for on;
// anything between rolls out to that share of signed-in users.
type rule struct {
	percent int
}

// Manager holds flags parsed from a comma-separated key=value list, e.g.
// "open_registration=on,wide_editor=25%". Values are on/true/1, off/false/0
// or N%. Unparseable values turn the flag off.
type Manager struct {
	rules map[string]rule
}

func NewManager(raw string) *Manager {
	rules := make(map[string]rule)
	for _, pair := range strings.Split(raw, ",") {
		key, value, found := strings.Cut(pair, "=")
		key, value = normalize(key), normalize(value)
		if !found || key == "" || value == "" {
			continue
		}
		rules[key] = parseRule(value)
	}
	return &Manager{rules: rules}
}

func parseRule(value string) rule {
	switch value {
	case "on", "true", "1":
		return rule{percent: 100}
	case "off", "false", "0":
		return rule{}
	}
	pct, err := strconv.Atoi(strings.TrimSuffix(value, "%"))
	if !strings.HasSuffix(value, "%") || err != nil || pct <= 0 {
		return rule{}
	}
	return rule{percent: min(pct, 100)}
}

// Enabled reports whether name is on for userID. userID 0 is an anonymous
// caller, who only sees flags that are fully on.
func (m *Manager) Enabled(name string, userID int64) bool {
	if m == nil {
		return false
	}
	key := normalize(name)
	r, ok := m.rules[key]
	if !ok {
		return false
	}
	switch {
	case r.percent >= 100:
		return true
	case r.percent == 0 || userID == 0:
		return false
	}
	return bucket(key, userID) < r.percent
}

// Snapshot evaluates every configured flag for userID.
func (m *Manager) Snapshot(userID int64) map[string]bool {
	if m == nil {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(m.rules))
	for name := range m.rules {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// bucket places a user in [0, 100) for one flag; the same user lands in
// different buckets for different flags.
func bucket(key string, userID int64) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key + ":" + strconv.FormatInt(userID, 10)))
	return int(h.Sum32() % 100)
}
