package identity

import (
	"regexp"
	"strings"
)

const (
	UnknownSampleID   = "UNKNOWN"
	defaultImageIndex = "00"
)

var imageIndexPattern = regexp.MustCompile(`(?i)image(\d+)`)

// Identity is the (sample, serial) pair derived from an uploaded filename.
// It is recomputed on every request; the filename itself stays the business key.
type Identity struct {
	SampleID     string
	SerialNumber string
}

// Resolve derives an identity from a slide filename like
// "S-3602-10X_Image001_ch00.tif" -> {SampleID: "S-3602", SerialNumber: "S-3602-01"}.
// It is total over all strings: anything unparseable degrades to "UNKNOWN-00".
//
// Only the last two digits of the image number are kept, so "Image001" and
// "Image101" share the suffix "01". That truncation is intentional and matches
// the lab's established serials; changing it would re-key existing slides.
func Resolve(filename string) Identity {
	sampleID := UnknownSampleID
	if parts := strings.Split(filename, "-"); len(parts) >= 2 {
		sampleID = parts[0] + "-" + parts[1]
	}

	imageIndex := defaultImageIndex
	if m := imageIndexPattern.FindStringSubmatch(filename); m != nil {
		digits := m[1]
		if len(digits) >= 2 {
			imageIndex = digits[len(digits)-2:]
		} else {
			imageIndex = "0" + digits
		}
	}

	return Identity{
		SampleID:     sampleID,
		SerialNumber: sampleID + "-" + imageIndex,
	}
}
