// Package decision maps a damage classification and the order's warranty context to an
// auto-routing recommendation and resolution guidance for the agent.
package decision

import (
	"github.com/Revoa-ux/revoa-app-sub007/services/warranty"
)

// Damage classifications produced by the damage-assessment step of a flow.
const (
	DamageShipping      = "shipping_damage"
	DamageManufacturing = "manufacturing_defect"
	DamageCustomer      = "customer_caused"
	DamageUnclear       = "unclear"
)

// Route targets. Flows map these keys to concrete node ids via node metadata.
const (
	TargetShippingResolution = "shipping_resolution"
	TargetNotCovered         = "not_covered"
	TargetFactoryReview      = "factory_review"
	TargetWarrantyActive     = "warranty_active_resolution"
)

// Confidence of an auto-routing decision.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Decision is the routing recommendation for a damage classification.
type Decision struct {
	ShouldAutoRoute bool       `json:"shouldAutoRoute"`
	Target          string     `json:"target,omitempty"`
	Confidence      Confidence `json:"confidence"`
	Reason          string     `json:"reason"`
}

// Engine evaluates the routing table. It holds no state.
type Engine struct{}

// NewEngine returns a decision Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Decide returns the routing recommendation. A nil context means the thread has no
// order to reason about.
func (e *Engine) Decide(damageType string, wc *warranty.Context) Decision {
	switch damageType {
	case DamageShipping:
		return Decision{
			ShouldAutoRoute: true,
			Target:          TargetShippingResolution,
			Confidence:      ConfidenceHigh,
			Reason:          "Shipping damage is covered by the carrier claim process",
		}
	case DamageCustomer:
		return Decision{
			ShouldAutoRoute: true,
			Target:          TargetNotCovered,
			Confidence:      ConfidenceHigh,
			Reason:          "Customer-caused damage is not covered",
		}
	case DamageUnclear:
		return Decision{
			ShouldAutoRoute: true,
			Target:          TargetFactoryReview,
			Confidence:      ConfidenceHigh,
			Reason:          "Unclear damage needs factory review",
		}
	case DamageManufacturing:
		return decideManufacturing(wc)
	}

	return Decision{
		ShouldAutoRoute: false,
		Confidence:      ConfidenceLow,
		Reason:          "Unknown damage type",
	}
}

func decideManufacturing(wc *warranty.Context) Decision {
	if wc == nil || !wc.HasOrder {
		return Decision{
			ShouldAutoRoute: false,
			Confidence:      ConfidenceLow,
			Reason:          "No order context to check warranty coverage",
		}
	}
	if !wc.ProductCoverages.Damaged {
		return Decision{
			ShouldAutoRoute: true,
			Target:          TargetFactoryReview,
			Confidence:      ConfidenceMedium,
			Reason:          "Warranty does not cover damaged items",
		}
	}

	switch wc.OrderWarrantyStatus {
	case warranty.OrderActive:
		return Decision{
			ShouldAutoRoute: true,
			Target:          TargetWarrantyActive,
			Confidence:      ConfidenceHigh,
			Reason:          "Manufacturing defect within active warranty",
		}
	case warranty.OrderExpired:
		return Decision{
			ShouldAutoRoute: true,
			Target:          TargetFactoryReview,
			Confidence:      ConfidenceHigh,
			Reason:          "Warranty expired; factory review for goodwill",
		}
	}

	return Decision{
		ShouldAutoRoute: true,
		Target:          TargetFactoryReview,
		Confidence:      ConfidenceMedium,
		Reason:          "Warranty status is " + string(wc.OrderWarrantyStatus) + "; needs factory review",
	}
}
