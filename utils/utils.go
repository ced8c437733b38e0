package utils

import (
	"math"
	rndm "math/rand"
	"regexp"
	"strconv"
	"strings"
)

var letterRunes = []rune("abcdefghijklmnopqrstuvwxyz0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ")

// GenerateRandomString creates a random alphanumeric string of length n.
func GenerateRandomString(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letterRunes[rndm.Intn(len(letterRunes))]
	}
	return string(b)
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases and hyphenates a name for use in URLs.
func Slugify(name string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

// ParseLatLng splits a "lat,lng" pair. ok is false when either half is
// missing or not a number.
func ParseLatLng(latlng string) (lat, lng float64, ok bool) {
	parts := strings.Split(latlng, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLat != nil || errLng != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

// Round1 rounds to one decimal place, the precision kept for tour ratings.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
