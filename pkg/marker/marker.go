// Package marker splits a narrative on [FOTOn] markers so photos can be placed inline.
package marker

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/matiasinsaurralde/relatorio/pkg/types"
)

// pattern matches [FOTO3], [foto 3] and [ FOTO 12 ]:
var pattern = regexp.MustCompile(`(?i)\[\s*FOTO\s*(\d+)\s*\]`)

// Kind tells text and image segments apart:
type Kind int

const (
	KindText Kind = iota
	KindImage
	// KindMissing is an image marker that points past the uploaded photos:
	KindMissing
)

// Segment is one piece of the resolved narrative:
type Segment struct {
	Kind Kind
	// Text holds the paragraph for KindText and the error message for KindMissing:
	Text string
	// Index is the zero based photo position for KindImage and KindMissing:
	Index int
}

// MissingText is the inline message emitted for an out of range marker under MarkerPolicyMark:
func MissingText(n int) string {
	return fmt.Sprintf("[FOTO%d não encontrada]", n)
}

// Split resolves the markers of narrative against photoCount uploaded photos.
// Text between markers is split into non-blank paragraphs, in order.
func Split(narrative string, photoCount int, policy types.MarkerPolicy) []Segment {
	if !policy.Valid() {
		policy = types.MarkerPolicyMark
	}
	segments := make([]Segment, 0)
	// pending accumulates text so an ignored marker stays in its paragraph:
	var pending strings.Builder
	flush := func() {
		segments = append(segments, paragraphs(pending.String())...)
		pending.Reset()
	}

	last := 0
	for _, loc := range pattern.FindAllStringSubmatchIndex(narrative, -1) {
		token := narrative[loc[0]:loc[1]]
		n, err := strconv.Atoi(narrative[loc[2]:loc[3]])
		if err != nil || n < 1 {
			// [FOTO0] and overflowing numbers are plain text:
			continue
		}
		pending.WriteString(narrative[last:loc[0]])
		last = loc[1]

		if n <= photoCount {
			flush()
			segments = append(segments, Segment{Kind: KindImage, Index: n - 1})
			continue
		}
		switch policy {
		case types.MarkerPolicyIgnore:
			pending.WriteString(token)
		case types.MarkerPolicyMark:
			flush()
			segments = append(segments, Segment{Kind: KindMissing, Index: n - 1, Text: MissingText(n)})
		case types.MarkerPolicyDrop:
		}
	}
	pending.WriteString(narrative[last:])
	flush()
	return segments
}

// paragraphs splits text on line breaks, dropping blank lines:
func paragraphs(text string) []Segment {
	out := make([]Segment, 0)
	for _, p := range strings.Split(text, "\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, Segment{Kind: KindText, Text: p})
	}
	return out
}

// Referenced returns the photo indexes placed inline by segments:
func Referenced(segments []Segment) map[int]bool {
	refs := make(map[int]bool)
	for _, s := range segments {
		if s.Kind == KindImage {
			refs[s.Index] = true
		}
	}
	return refs
}

// Markers returns the marker numbers found in text, in order of appearance.
// It is used to check that a rewritten narrative kept every marker.
func Markers(text string) []int {
	found := make([]int, 0)
	for _, m := range pattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			continue
		}
		found = append(found, n)
	}
	return found
}
