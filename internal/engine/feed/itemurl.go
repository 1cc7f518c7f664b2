package feed

import (
	"fmt"
	"strconv"
	"strings"
)

func feedItemURL(feedURL string, index int) string {
	return fmt.Sprintf("%s#item-%d", feedURL, index)
}

func parseFeedItemURL(raw string) (feedURL string, index int, ok bool) {
	const marker = "#item-"
	i := strings.LastIndex(raw, marker)
	if i == -1 {
		return "", 0, false
	}
	idx, err := strconv.Atoi(raw[i+len(marker):])
	if err != nil {
		return "", 0, false
	}
	return raw[:i], idx, true
}
