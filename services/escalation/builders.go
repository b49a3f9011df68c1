package escalation

// ContextBuilder extracts the fields an agent needs for one escalation type from the
// accumulated flow state.
type ContextBuilder func(state map[string]any) map[string]any

// Registry maps escalation types to their context builder.
type Registry map[string]ContextBuilder

// NewRegistry creates a registry populated with all built-in escalation types.
func NewRegistry() Registry {
	return Registry{
		TypeCarrierIssue: fields(
			field{"trackingNumber", []string{"tracking_number", "trackingNumber"}},
			field{"delayDays", []string{"delay_days", "days_delayed", "delayDays"}},
			field{"carrier", []string{"carrier", "shipping_carrier"}},
		),
		TypeFactoryIssue: fields(
			field{"product", []string{"select_product", "product_name", "product"}},
			field{"damageType", []string{"damage_type", "damageType"}},
			field{"defectDescription", []string{"defect_description", "damage_description", "description"}},
			field{"photos", []string{"damage_photos", "photos"}},
			field{"warrantyStatus", []string{"warranty_status", "warrantyStatus"}},
		),
		TypeAddressRedirect: fields(
			field{"addressLine1", []string{"new_address", "address_line1", "corrected_address"}},
			field{"addressLine2", []string{"address_line2"}},
			field{"city", []string{"city"}},
			field{"postalCode", []string{"postal_code", "zip"}},
			field{"country", []string{"country"}},
		),
		TypeHighValueApproval: fields(
			field{"orderValue", []string{"order_value", "order_total"}},
			field{"requestedAmount", []string{"refund_amount", "requested_amount", "replacement_value"}},
			field{"currency", []string{"currency"}},
		),
	}
}

// Build returns the typed context for escalationType. Unknown types get no typed fields.
func (r Registry) Build(escalationType string, state map[string]any) map[string]any {
	builder, ok := r[escalationType]
	if !ok {
		return map[string]any{}
	}
	return builder(state)
}

type field struct {
	name string
	keys []string // flow-state keys, first present wins
}

func fields(fs ...field) ContextBuilder {
	return func(state map[string]any) map[string]any {
		out := make(map[string]any, len(fs))
		for _, f := range fs {
			for _, key := range f.keys {
				if v, ok := state[key]; ok && v != nil {
					out[f.name] = v
					break
				}
			}
		}
		return out
	}
}
