package processor

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// defaultPhoneRegion is the region used to interpret national-format numbers
const defaultPhoneRegion = "ID"

// NormalizePhone canonicalizes a phone number to E.164 so that the same
// visitor always maps to the same lead thread regardless of how their number
// was written ("0812...", "+62812...", "62 812 ..."). Unparseable input is
// returned trimmed rather than rejected: a lead with an odd number is still
// a lead.
func NormalizePhone(phone string) string {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return trimmed
	}

	parsed, err := phonenumbers.Parse(trimmed, defaultPhoneRegion)
	if err != nil {
		return trimmed
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}
