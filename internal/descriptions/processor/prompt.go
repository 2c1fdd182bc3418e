package processor

import (
	"fmt"
	"strings"

	"holanu-server/internal/store"
)

// Prompt options. Each axis is independent; the prompt is assembled from one
// fragment per axis rather than one template per combination.
const (
	ToneFormal     = "formal"
	ToneCasual     = "casual"
	TonePersuasive = "persuasive"

	LengthShort  = "short"
	LengthMedium = "medium"
	LengthLong   = "long"

	FocusSEO            = "seo"
	FocusSellingPoints  = "selling_points"
	FocusFamilyFriendly = "family_friendly"
	FocusInvestment     = "investment"
)

var toneInstructions = map[string]string{
	ToneFormal:     "Use a formal, professional tone suitable for a real estate listing.",
	ToneCasual:     "Use a warm, conversational tone as if recommending the property to a friend.",
	TonePersuasive: "Use a persuasive tone that creates urgency and highlights why this property is a rare opportunity.",
}

var lengthInstructions = map[string]string{
	LengthShort:  "Keep the description between 50 and 100 words.",
	LengthMedium: "Keep the description between 100 and 200 words.",
	LengthLong:   "Keep the description between 200 and 350 words.",
}

var focusInstructions = map[string]string{
	FocusSEO:            "Optimize the text for search engines, naturally working in the property type and location as keywords.",
	FocusSellingPoints:  "Emphasize the property's strongest selling points and unique features.",
	FocusFamilyFriendly: "Emphasize aspects that matter to families, such as space, safety, and nearby schools.",
	FocusInvestment:     "Emphasize investment potential, rental yield, and long-term value appreciation.",
}

// PromptOptions selects one fragment per axis. Zero values fall back to
// casual/medium/selling_points.
type PromptOptions struct {
	Tone   string
	Length string
	Focus  string
}

func (o PromptOptions) normalized() PromptOptions {
	if _, ok := toneInstructions[o.Tone]; !ok {
		o.Tone = ToneCasual
	}
	if _, ok := lengthInstructions[o.Length]; !ok {
		o.Length = LengthMedium
	}
	if _, ok := focusInstructions[o.Focus]; !ok {
		o.Focus = FocusSellingPoints
	}
	return o
}

// BuildPrompt assembles the generation prompt from the property's attributes
// and one instruction per option axis.
func BuildPrompt(property store.Property, opts PromptOptions) string {
	opts = opts.normalized()

	var b strings.Builder
	b.WriteString("Write a property listing description in Indonesian for the following property.\n\n")
	fmt.Fprintf(&b, "Property type: %s\n", property.PropertyType)
	fmt.Fprintf(&b, "Address: %s, %s, %s\n", property.Address, property.City, property.Province)
	fmt.Fprintf(&b, "Price: %s\n", FormatIDR(property.Price))
	if property.Description != "" {
		fmt.Fprintf(&b, "Details: %s\n", property.Description)
	}
	b.WriteString("\n")
	b.WriteString(toneInstructions[opts.Tone])
	b.WriteString(" ")
	b.WriteString(lengthInstructions[opts.Length])
	b.WriteString(" ")
	b.WriteString(focusInstructions[opts.Focus])
	return b.String()
}

// FormatIDR renders a rupiah amount with dot thousand separators,
// e.g. 1500000000 -> "Rp 1.500.000.000".
func FormatIDR(amount int64) string {
	digits := fmt.Sprintf("%d", amount)
	if amount < 0 {
		digits = digits[1:]
	}

	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)

	formatted := strings.Join(groups, ".")
	if amount < 0 {
		return "Rp -" + formatted
	}
	return "Rp " + formatted
}
