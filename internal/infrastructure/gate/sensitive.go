package gate

import (
	"regexp"
	"strings"
	"unicode"
)

// Kind of detected sensitive information.
type Kind string

// Detected kinds.
const (
	KindPhoneNumber      Kind = "PHONE_NUMBER"
	KindCreditCardNumber Kind = "CREDIT_CARD_NUMBER"
)

// Finding is one match in the inspected text.
type Finding struct {
	Kind  Kind
	Start int
	End   int
}

var (
	// Digit runs that may be separated by spaces, dots or dashes, optionally led by +.
	digitGroups = regexp.MustCompile(`\+?\(?\d[\d\s().-]{6,}\d`)
)

const (
	minPhoneDigits = 9
	maxPhoneDigits = 15
	minCardDigits  = 13
	maxCardDigits  = 19
)

// Detector finds phone numbers and payment card numbers in free text.
type Detector struct {
	deny map[Kind]bool
}

// NewDetector creates a detector for the given kinds. No kinds means all kinds.
func NewDetector(kinds ...Kind) *Detector {
	if len(kinds) == 0 {
		kinds = []Kind{KindPhoneNumber, KindCreditCardNumber}
	}
	deny := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		deny[k] = true
	}
	return &Detector{deny: deny}
}

// Detect returns findings in order of appearance.
func (d *Detector) Detect(text string) []Finding {
	var findings []Finding
	for _, loc := range digitGroups.FindAllStringIndex(text, -1) {
		candidate := text[loc[0]:loc[1]]
		digits := onlyDigits(candidate)

		switch {
		case d.deny[KindCreditCardNumber] && isCardNumber(digits):
			findings = append(findings, Finding{Kind: KindCreditCardNumber, Start: loc[0], End: loc[1]})
		case d.deny[KindPhoneNumber] && isPhoneNumber(candidate, digits):
			findings = append(findings, Finding{Kind: KindPhoneNumber, Start: loc[0], End: loc[1]})
		}
	}
	return findings
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isCardNumber(digits string) bool {
	if len(digits) < minCardDigits || len(digits) > maxCardDigits {
		return false
	}
	return luhnValid(digits)
}

// isPhoneNumber accepts international numbers and separated local numbers.
// Bare digit runs without a leading + are too ambiguous (ids, amounts) to flag.
func isPhoneNumber(candidate, digits string) bool {
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return false
	}
	if strings.HasPrefix(candidate, "+") {
		return true
	}
	return strings.ContainsAny(candidate, " -.()")
}

func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		n := int(digits[i] - '0')
		if double {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
	}
	return sum%10 == 0
}
