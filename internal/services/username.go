package services

import (
	"context"
	"strconv"
	"strings"
	"unicode"
)

// BaseUsername derives first initial + "." + last name, lowercased with
// whitespace removed.
func BaseUsername(firstName, lastName string) string {
	strip := func(s string) string {
		return strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return unicode.ToLower(r)
		}, s)
	}
	first := []rune(strip(firstName))
	initial := ""
	if len(first) > 0 {
		initial = string(first[0])
	}
	return initial + "." + strip(lastName)
}

// maxUsernameProbes bounds the suffix search.
const maxUsernameProbes = 100000

// freeUsername returns base, or base followed by the smallest integer
// suffix starting at 1 that exists returns false for.
func freeUsername(ctx context.Context, base string, exists func(context.Context, string) (bool, error)) (string, error) {
	candidate := base
	for i := 1; i <= maxUsernameProbes; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(i)
	}
	return "", policyErr("no free username for %s", base)
}
