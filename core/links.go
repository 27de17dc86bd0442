package core

import (
	"fmt"
	"strconv"
	"strings"
)

// TimestampSeconds converts an HH:MM:SS or MM:SS timestamp to seconds.
// Unparseable timestamps yield 0.
func TimestampSeconds(timestamp string) int {
	parts := strings.Split(strings.TrimSpace(timestamp), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return total
}

// DeepLink builds a timestamped link from an episode's link base.
// An existing t parameter on the base is replaced; other parameters are kept.
func DeepLink(base, timestamp string) string {
	if base == "" {
		return ""
	}
	t := fmt.Sprintf("t=%ds", TimestampSeconds(timestamp))
	path, query, _ := strings.Cut(base, "?")
	var params []string
	for _, p := range strings.Split(query, "&") {
		if p == "" || p == "t" || strings.HasPrefix(p, "t=") {
			continue
		}
		params = append(params, p)
	}
	return path + "?" + strings.Join(append(params, t), "&")
}
