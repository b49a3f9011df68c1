package decision

import (
	"github.com/Revoa-ux/revoa-app-sub007/services/warranty"
)

// Resolution categories.
const (
	ResolutionFreeReplacement = "free_replacement"
	ResolutionFactoryReview   = "factory_review"
	ResolutionNotCovered      = "not_covered"
	ResolutionManualReview    = "manual_review"
)

// Urgency tiers.
const (
	UrgencyImmediate   = "immediate"
	UrgencyWithin24h   = "within_24h"
	UrgencyWithin48h   = "within_48h"
	UrgencyLowPriority = "low_priority"
)

// Guidance is presentation help for the agent. It never drives navigation.
type Guidance struct {
	Resolution          string   `json:"resolution"`
	Urgency             string   `json:"urgency"`
	NextSteps           []string `json:"nextSteps"`
	TemplateSuggestions []string `json:"templateSuggestions"`
}

// GetResolutionGuidance is total: inputs outside the table fall back to manual review.
func (e *Engine) GetResolutionGuidance(damageType string, wc *warranty.Context) Guidance {
	switch damageType {
	case DamageShipping:
		return Guidance{
			Resolution: ResolutionFreeReplacement,
			Urgency:    UrgencyWithin24h,
			NextSteps: []string{
				"Ask the customer for photos of the damaged item and packaging",
				"File a claim with the carrier using the tracking number",
				"Ship a replacement without waiting for the carrier decision",
			},
			TemplateSuggestions: []string{"shipping_damage_apology", "replacement_confirmation"},
		}
	case DamageCustomer:
		return Guidance{
			Resolution: ResolutionNotCovered,
			Urgency:    UrgencyLowPriority,
			NextSteps: []string{
				"Explain that accidental damage is not covered",
				"Offer a discounted replacement if appropriate",
			},
			TemplateSuggestions: []string{"damage_not_covered", "discount_offer"},
		}
	case DamageUnclear:
		return Guidance{
			Resolution: ResolutionFactoryReview,
			Urgency:    UrgencyWithin48h,
			NextSteps: []string{
				"Collect photos and a description of how the damage occurred",
				"Submit the case to the factory for assessment",
				"Let the customer know the expected review time",
			},
			TemplateSuggestions: []string{"factory_review_pending"},
		}
	case DamageManufacturing:
		return manufacturingGuidance(wc)
	}
	return manualReview()
}

func manufacturingGuidance(wc *warranty.Context) Guidance {
	if wc == nil || !wc.HasOrder {
		return Guidance{
			Resolution: ResolutionManualReview,
			Urgency:    UrgencyWithin48h,
			NextSteps: []string{
				"Ask the customer for their order number",
				"Link the order to this conversation and re-check warranty coverage",
			},
			TemplateSuggestions: []string{"request_order_number"},
		}
	}
	if !wc.ProductCoverages.Damaged {
		return Guidance{
			Resolution: ResolutionFactoryReview,
			Urgency:    UrgencyWithin48h,
			NextSteps: []string{
				"Collect photos of the defect",
				"Submit to the factory; the product warranty excludes damaged items",
			},
			TemplateSuggestions: []string{"factory_review_pending"},
		}
	}

	switch wc.OrderWarrantyStatus {
	case warranty.OrderActive:
		return Guidance{
			Resolution: ResolutionFreeReplacement,
			Urgency:    UrgencyImmediate,
			NextSteps: []string{
				"Confirm the defect with a photo",
				"Ship a free replacement under warranty",
				"Send the replacement confirmation with the new tracking number",
			},
			TemplateSuggestions: []string{"warranty_replacement", "replacement_confirmation"},
		}
	case warranty.OrderExpired:
		return Guidance{
			Resolution: ResolutionFactoryReview,
			Urgency:    UrgencyWithin48h,
			NextSteps: []string{
				"Let the customer know the warranty has expired",
				"Submit to the factory for a goodwill review",
			},
			TemplateSuggestions: []string{"warranty_expired_goodwill"},
		}
	}

	return Guidance{
		Resolution: ResolutionFactoryReview,
		Urgency:    UrgencyWithin48h,
		NextSteps: []string{
			"Identify which item is defective",
			"Check that item's warranty before offering a replacement",
			"Submit to the factory if the item is out of warranty",
		},
		TemplateSuggestions: []string{"factory_review_pending"},
	}
}

func manualReview() Guidance {
	return Guidance{
		Resolution:          ResolutionManualReview,
		Urgency:             UrgencyLowPriority,
		NextSteps:           []string{"Review the conversation and choose a resolution manually"},
		TemplateSuggestions: []string{},
	}
}
