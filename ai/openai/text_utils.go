package openai

import (
	"slices"
	"strings"
	"time"

	"github.com/poiesic/yqlguard/ai"
)

// stripCodeFence removes markdown code fences models wrap JSON in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// normalizeApps lowercases app names and keeps the known ones, once each.
func normalizeApps(apps []string) []string {
	out := make([]string, 0, len(apps))
	for _, app := range apps {
		app = strings.ToLower(strings.TrimSpace(app))
		if !ai.IsKnownApp(app) || slices.Contains(out, app) {
			continue
		}
		out = append(out, app)
	}
	return out
}

// normalizeEntities trims entity names, drops case-insensitive duplicates
// and keeps at most limit of them.
func normalizeEntities(entities []string, limit int) []string {
	out := make([]string, 0, min(len(entities), limit))
	seen := make(map[string]bool, len(entities))
	for _, entity := range entities {
		entity = strings.Join(strings.Fields(entity), " ")
		key := strings.ToLower(entity)
		if entity == "" || seen[key] {
			continue
		}
		if len(out) == limit {
			break
		}
		seen[key] = true
		out = append(out, entity)
	}
	return out
}

// parseBound parses a date or timestamp in loc. Date-only upper bounds
// extend to the last millisecond of the day so they stay inclusive.
func parseBound(s string, upper bool, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, loc); err == nil {
		return t, true
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, false
	}
	if upper {
		t = t.AddDate(0, 0, 1).Add(-time.Millisecond)
	}
	return t, true
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isKeyByte(b byte) bool {
	return isLetter(rune(b)) || b == '_' || (b >= '0' && b <= '9')
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}
