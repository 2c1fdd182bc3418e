package processor

import "holanu-server/internal/store"

// CalculateCost returns the cost of one event under a campaign's billing
// model. The second return value reports whether the event is billable at
// all; non-billable events are discarded by the tracker rather than recorded
// at zero cost.
//
//   - flat_fee: every event costs 0. The budget is consumed by time-based
//     billing, so events are recorded for analytics only.
//   - cpc: clicks and whatsapp clicks cost the bid amount; plain impressions
//     are not billable.
//   - cpm: impressions cost bid_amount / 1000 ("per mille"); click events are
//     not billable.
func CalculateCost(bidType string, bidAmount int64, eventType string) (int64, bool) {
	switch bidType {
	case store.BidTypeFlatFee:
		return 0, true
	case store.BidTypeCPC:
		if eventType == store.EventTypeClick || eventType == store.EventTypeWhatsAppClick {
			return bidAmount, true
		}
		return 0, false
	case store.BidTypeCPM:
		if eventType == store.EventTypeImpression {
			return bidAmount / 1000, true
		}
		return 0, false
	}
	return 0, false
}
