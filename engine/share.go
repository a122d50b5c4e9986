/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package engine

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const shareText = "Can you tell which image is AI-generated? Take the AI or not AI challenge! #AIart #ArtChallenge"

var sharePath = regexp.MustCompile(`/image(\d+)_(\d+)`)

// EncodeShareLink builds the canonical challenge URL for one pair.
func EncodeShareLink(base string, pair SharedPair) string {
	q := url.Values{}
	q.Set("ai", strconv.Itoa(pair.AIIndex))
	q.Set("real", strconv.Itoa(pair.RealIndex))

	return strings.TrimSuffix(base, "/") + "/?" + q.Encode()
}

// DecodeShareLink reads a shared pair from the ai/real query parameters,
// falling back to the /image<ai>_<real> path form.
func DecodeShareLink(u *url.URL) (SharedPair, bool) {
	if u == nil {
		return SharedPair{}, false
	}

	q := u.Query()
	if q.Get("ai") != "" && q.Get("real") != "" {
		return parseSharedPair(q.Get("ai"), q.Get("real"))
	}

	m := sharePath.FindStringSubmatch(u.Path)
	if len(m) != 3 {
		return SharedPair{}, false
	}

	return parseSharedPair(m[1], m[2])
}

func parseSharedPair(ai, real string) (SharedPair, bool) {
	a, err := strconv.Atoi(ai)
	if err != nil || a < 1 {
		return SharedPair{}, false
	}

	r, err := strconv.Atoi(real)
	if err != nil || r < 1 {
		return SharedPair{}, false
	}

	return SharedPair{AIIndex: a, RealIndex: r}, true
}

// TweetURL wraps a share link in a twitter intent.
func TweetURL(shareURL string) string {
	q := url.Values{}
	q.Set("text", shareText)
	q.Set("url", shareURL)

	return "https://twitter.com/intent/tweet?" + q.Encode()
}
