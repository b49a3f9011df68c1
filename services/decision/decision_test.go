package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Revoa-ux/revoa-app-sub007/services/warranty"
)

func orderContext(status warranty.OrderStatus, damaged bool) *warranty.Context {
	return &warranty.Context{
		HasOrder:            true,
		OrderWarrantyStatus: status,
		ProductCoverages:    warranty.Coverages{Damaged: damaged},
	}
}

func TestDecide_Table(t *testing.T) {
	noOrder := warranty.NoOrder()

	tests := []struct {
		name       string
		damageType string
		wc         *warranty.Context
		autoRoute  bool
		target     string
		confidence Confidence
	}{
		{"shipping with no context", DamageShipping, nil, true, TargetShippingResolution, ConfidenceHigh},
		{"shipping with expired warranty", DamageShipping, orderContext(warranty.OrderExpired, false), true, TargetShippingResolution, ConfidenceHigh},
		{"customer caused", DamageCustomer, orderContext(warranty.OrderActive, true), true, TargetNotCovered, ConfidenceHigh},
		{"unclear", DamageUnclear, nil, true, TargetFactoryReview, ConfidenceHigh},
		{"manufacturing nil context", DamageManufacturing, nil, false, "", ConfidenceLow},
		{"manufacturing no order", DamageManufacturing, &noOrder, false, "", ConfidenceLow},
		{"manufacturing damaged not covered", DamageManufacturing, orderContext(warranty.OrderActive, false), true, TargetFactoryReview, ConfidenceMedium},
		{"manufacturing active", DamageManufacturing, orderContext(warranty.OrderActive, true), true, TargetWarrantyActive, ConfidenceHigh},
		{"manufacturing expired", DamageManufacturing, orderContext(warranty.OrderExpired, true), true, TargetFactoryReview, ConfidenceHigh},
		{"manufacturing mixed", DamageManufacturing, orderContext(warranty.OrderMixed, true), true, TargetFactoryReview, ConfidenceMedium},
		{"manufacturing none", DamageManufacturing, orderContext(warranty.OrderNone, true), true, TargetFactoryReview, ConfidenceMedium},
		{"unknown damage type", "water_damage", orderContext(warranty.OrderActive, true), false, "", ConfidenceLow},
		{"empty damage type", "", nil, false, "", ConfidenceLow},
	}

	engine := NewEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := engine.Decide(tt.damageType, tt.wc)
			assert.Equal(t, tt.autoRoute, d.ShouldAutoRoute)
			assert.Equal(t, tt.target, d.Target)
			assert.Equal(t, tt.confidence, d.Confidence)
			assert.NotEmpty(t, d.Reason)
		})
	}
}

func TestGetResolutionGuidance(t *testing.T) {
	tests := []struct {
		name       string
		damageType string
		wc         *warranty.Context
		resolution string
		urgency    string
	}{
		{"shipping", DamageShipping, nil, ResolutionFreeReplacement, UrgencyWithin24h},
		{"customer", DamageCustomer, nil, ResolutionNotCovered, UrgencyLowPriority},
		{"unclear", DamageUnclear, nil, ResolutionFactoryReview, UrgencyWithin48h},
		{"manufacturing no order", DamageManufacturing, nil, ResolutionManualReview, UrgencyWithin48h},
		{"manufacturing not covered", DamageManufacturing, orderContext(warranty.OrderActive, false), ResolutionFactoryReview, UrgencyWithin48h},
		{"manufacturing active", DamageManufacturing, orderContext(warranty.OrderActive, true), ResolutionFreeReplacement, UrgencyImmediate},
		{"manufacturing expired", DamageManufacturing, orderContext(warranty.OrderExpired, true), ResolutionFactoryReview, UrgencyWithin48h},
		{"manufacturing mixed", DamageManufacturing, orderContext(warranty.OrderMixed, true), ResolutionFactoryReview, UrgencyWithin48h},
		{"unknown", "something_else", nil, ResolutionManualReview, UrgencyLowPriority},
	}

	engine := NewEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := engine.GetResolutionGuidance(tt.damageType, tt.wc)
			assert.Equal(t, tt.resolution, g.Resolution)
			assert.Equal(t, tt.urgency, g.Urgency)
			assert.NotEmpty(t, g.NextSteps)
			assert.NotNil(t, g.TemplateSuggestions)
		})
	}
}
