package script

import "strings"

// Composition names a renderer layout.
type Composition string

const (
	Portrait        Composition = "Portrait"
	Landscape       Composition = "Landscape"
	DebatePortrait  Composition = "DebatePortrait"
	DebateLandscape Composition = "DebateLandscape"
	TinderRoast     Composition = "TinderRoast"
)

// Orientation is the aspect class of a composition.
type Orientation string

const (
	OrientationPortrait  Orientation = "Portrait"
	OrientationLandscape Orientation = "Landscape"
)

type compositionProfile struct {
	orientation Orientation
	lipSync     bool
}

var compositionProfiles = map[Composition]compositionProfile{
	Portrait:        {orientation: OrientationPortrait, lipSync: true},
	Landscape:       {orientation: OrientationLandscape, lipSync: true},
	DebatePortrait:  {orientation: OrientationPortrait},
	DebateLandscape: {orientation: OrientationLandscape},
	TinderRoast:     {orientation: OrientationPortrait},
}

// ParseComposition matches name case-insensitively against known compositions.
func ParseComposition(name string) (Composition, bool) {
	name = strings.TrimSpace(name)
	for c := range compositionProfiles {
		if strings.EqualFold(string(c), name) {
			return c, true
		}
	}
	return "", false
}

// Orientation returns the composition's aspect class. Unknown compositions
// fall back to a suffix match so custom layouts named "*Portrait" still retime.
func (c Composition) Orientation() Orientation {
	if profile, ok := compositionProfiles[c]; ok {
		return profile.orientation
	}
	if strings.HasSuffix(strings.ToLower(string(c)), "portrait") {
		return OrientationPortrait
	}
	return OrientationLandscape
}

// NeedsLipSync reports whether the composition animates speaker mouths.
func (c Composition) NeedsLipSync() bool {
	return compositionProfiles[c].lipSync
}
