package formatter

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/kbukum/scribegate/transcription"
)

var speakerPattern = regexp.MustCompile(`^SPEAKER_(\d+)$`)

// NormalizeSpeaker maps a speaker label to an integer id. The boolean is
// false when no speaker is asserted (absent or null). Labels that cannot be
// parsed map to speaker 0.
func NormalizeSpeaker(label transcription.SpeakerLabel) (int, bool) {
	if label.IsNull() {
		return 0, false
	}
	return speakerID(label.Value()), true
}

func speakerID(v any) int {
	switch s := v.(type) {
	case string:
		if m := speakerPattern.FindStringSubmatch(s); m != nil {
			return atoiOrZero(m[1])
		}
		return atoiOrZero(strings.TrimSpace(s))
	case json.Number:
		f, err := s.Float64()
		if err != nil {
			return 0
		}
		return floatToID(f)
	case float64:
		return floatToID(s)
	case float32:
		return floatToID(float64(s))
	default:
		n, err := cast.ToIntE(v)
		if err != nil {
			return 0
		}
		return n
	}
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func floatToID(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0
	}
	return int(f)
}

// speakerRef returns a pointer to the normalized id, or nil.
func speakerRef(label transcription.SpeakerLabel) *int {
	id, ok := NormalizeSpeaker(label)
	if !ok {
		return nil
	}
	return &id
}
