// Package cookmode turns meal instructions into steps with suggested timers.
package cookmode

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Step is one instruction line.
type Step struct {
	Number         int           `json:"number"`
	Text           string        `json:"text"`
	SuggestedTimer time.Duration `json:"-"`
	TimerSeconds   int           `json:"timer_seconds,omitempty"`
}

var lineBreak = regexp.MustCompile(`\r?\n`)

// Steps splits instructions into non-blank, trimmed lines.
func Steps(instructions string) []Step {
	steps := []Step{}
	for _, line := range lineBreak.Split(instructions, -1) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s := Step{Number: len(steps) + 1, Text: line}
		if d, ok := ParseDuration(line); ok {
			s.SuggestedTimer = d
			s.TimerSeconds = int(d / time.Second)
		}
		steps = append(steps, s)
	}
	return steps
}

const amount = `(\d+(?:\s+\d+/\d+)?|\d+[¼½¾]?)`

var (
	secondsRange = regexp.MustCompile(`(\d+)\s*(?:-|to|–|—)\s*(\d+)\s*(seconds?|secs?|s)\b`)
	hoursRe      = regexp.MustCompile(amount + `\s*(hours?|hrs?|h)\b`)
	minutesRe    = regexp.MustCompile(amount + `\s*(minutes?|mins?|m)\b`)
	secondsRe    = regexp.MustCompile(`(\d+)\s*(seconds?|secs?|s)\b`)

	mixedNumber = regexp.MustCompile(`^(\d+)(?:\s+(\d+)/(\d+))?$`)
	leadingNum  = regexp.MustCompile(`^\d*\.?\d+`)
)

// ParseDuration finds the first cooking time mentioned in text. Second
// ranges ("30 to 45 seconds") are averaged; otherwise hours, then minutes,
// then seconds are tried in turn.
func ParseDuration(text string) (time.Duration, bool) {
	if text == "" {
		return 0, false
	}
	t := strings.ToLower(text)

	if m := secondsRange.FindStringSubmatch(t); m != nil {
		a, errA := strconv.Atoi(m[1])
		b, errB := strconv.Atoi(m[2])
		if errA == nil && errB == nil {
			if d, ok := seconds((float64(a) + float64(b)) / 2); ok {
				return d, true
			}
		}
	}
	if m := hoursRe.FindStringSubmatch(t); m != nil {
		if n, ok := ParseFractional(m[1]); ok {
			if d, ok := seconds(n * 3600); ok {
				return d, true
			}
		}
	}
	if m := minutesRe.FindStringSubmatch(t); m != nil {
		if n, ok := ParseFractional(m[1]); ok {
			if d, ok := seconds(n * 60); ok {
				return d, true
			}
		}
	}
	if m := secondsRe.FindStringSubmatch(t); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return seconds(float64(n))
		}
	}
	return 0, false
}

// Longest timer a step can suggest, in seconds.
const maxTimerSeconds = float64(math.MaxInt64 / int64(time.Second))

// seconds rounds f to whole seconds, rejecting zero and out-of-range values.
func seconds(f float64) (time.Duration, bool) {
	r := math.Round(f)
	if r <= 0 || r > maxTimerSeconds {
		return 0, false
	}
	return time.Duration(r) * time.Second, true
}

// ParseFractional reads amounts like "2", "1 1/2", "1½" or "¾".
func ParseFractional(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if m := mixedNumber.FindStringSubmatch(s); m != nil {
		whole, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		if m[2] == "" {
			return float64(whole), true
		}
		num, errNum := strconv.Atoi(m[2])
		den, errDen := strconv.Atoi(m[3])
		if errNum != nil || errDen != nil || den == 0 {
			return 0, false
		}
		return float64(whole) + float64(num)/float64(den), true
	}

	s = strings.Replace(s, "½", ".5", 1)
	s = strings.Replace(s, "¼", ".25", 1)
	s = strings.Replace(s, "¾", ".75", 1)
	num := leadingNum.FindString(s)
	if num == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
