// Package flowcontext assembles order and warranty facts for a support thread and renders
// the dynamic text blocks that flow nodes embed.
package flowcontext

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Revoa-ux/revoa-app-sub007/services/warranty"
)

// NoOrderMessage replaces dynamic blocks when no order data is available.
const NoOrderMessage = "We couldn't find order details for this conversation."

// Kind tells why a load did or did not produce order data.
type Kind string

const (
	Found      Kind = "found"
	NotLinked  Kind = "not_linked"
	LoadFailed Kind = "load_failed"
)

// Result is the outcome of loading order facts for a thread.
type Result struct {
	Kind  Kind
	Order *Order
	Items []LineItem
	Err   error
}

// ItemContext is a line item with its evaluated warranty.
type ItemContext struct {
	LineItem
	WarrantyInfo warranty.Info `json:"warrantyInfo"`
}

// DynamicContent holds the rendered text blocks.
type DynamicContent struct {
	WarrantySummary string `json:"warrantySummary"`
	OrderSummary    string `json:"orderSummary"`
}

// FlowContext is everything a flow needs to know about the thread's order.
type FlowContext struct {
	HasOrder       bool             `json:"hasOrder"`
	Order          *Order           `json:"order,omitempty"`
	Items          []ItemContext    `json:"items,omitempty"`
	SelectedItem   *ItemContext     `json:"selectedItem,omitempty"`
	Warranty       warranty.Context `json:"warranty"`
	DynamicContent DynamicContent   `json:"dynamicContent"`
}

// Empty is the context returned when there is nothing to personalize with.
func Empty() *FlowContext {
	return &FlowContext{HasOrder: false, Warranty: warranty.NoOrder()}
}

// Builder loads order facts and renders dynamic content.
type Builder struct {
	orders    OrderStore
	evaluator *warranty.Evaluator
}

// NewBuilder creates a Builder over the given order store.
func NewBuilder(orders OrderStore, evaluator *warranty.Evaluator) *Builder {
	if evaluator == nil {
		evaluator = warranty.NewEvaluator()
	}
	return &Builder{orders: orders, evaluator: evaluator}
}

// Load fetches the order linked to a thread, reporting why nothing was found.
func (b *Builder) Load(ctx context.Context, threadID string) Result {
	orderID, err := b.orders.OrderIDForThread(ctx, threadID)
	if err != nil {
		return Result{Kind: LoadFailed, Err: fmt.Errorf("lookup thread order: %w", err)}
	}
	if orderID == "" {
		return Result{Kind: NotLinked}
	}

	order, err := b.orders.GetOrder(ctx, orderID)
	if err != nil {
		return Result{Kind: LoadFailed, Err: fmt.Errorf("get order: %w", err)}
	}
	if order == nil {
		return Result{Kind: NotLinked}
	}

	items, err := b.orders.GetLineItems(ctx, orderID)
	if err != nil {
		return Result{Kind: LoadFailed, Err: fmt.Errorf("get line items: %w", err)}
	}
	return Result{Kind: Found, Order: order, Items: items}
}

// Build returns the flow context for a thread. A missing link, a missing order and a
// failed load all produce the same empty context; the cause is only logged.
// selectedItemID narrows the dynamic content to one line item when it matches.
func (b *Builder) Build(ctx context.Context, threadID, selectedItemID string) *FlowContext {
	res := b.Load(ctx, threadID)
	switch res.Kind {
	case NotLinked:
		slog.Debug("No order linked to thread", "threadId", threadID)
		return Empty()
	case LoadFailed:
		slog.Warn("Failed to load order context", "threadId", threadID, "error", res.Err)
		return Empty()
	}
	return b.assemble(res.Order, res.Items, selectedItemID)
}

func (b *Builder) assemble(order *Order, items []LineItem, selectedItemID string) *FlowContext {
	fc := &FlowContext{HasOrder: true, Order: order}

	terms := make([]warranty.Terms, 0, len(items))
	for _, item := range items {
		w := item.Warranty
		ic := ItemContext{
			LineItem:     item,
			WarrantyInfo: b.evaluator.Info(order.CreatedAt, w.WarrantyDays, w.CoversDamagedItems, w.CoversLostItems, w.CoversLateShipment),
		}
		fc.Items = append(fc.Items, ic)
		terms = append(terms, w)
	}
	for i := range fc.Items {
		if selectedItemID != "" && fc.Items[i].ID == selectedItemID {
			fc.SelectedItem = &fc.Items[i]
			break
		}
	}

	fc.Warranty = b.evaluator.Aggregate(order.CreatedAt, terms)
	fc.DynamicContent = DynamicContent{
		WarrantySummary: warrantySummary(fc),
		OrderSummary:    orderSummary(fc),
	}
	return fc
}

// Render substitutes dynamic placeholders in node text. Without an order the
// summaries fall back to NoOrderMessage and personal fields to generic wording.
func Render(text string, fc *FlowContext) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	if fc == nil || !fc.HasOrder {
		return strings.NewReplacer(
			"{{warranty_summary}}", NoOrderMessage,
			"{{order_summary}}", NoOrderMessage,
			"{{order_number}}", "your order",
			"{{customer_name}}", "there",
		).Replace(text)
	}

	customer := fc.Order.CustomerName
	if customer == "" {
		customer = "there"
	}
	return strings.NewReplacer(
		"{{warranty_summary}}", fc.DynamicContent.WarrantySummary,
		"{{order_summary}}", fc.DynamicContent.OrderSummary,
		"{{order_number}}", "#"+fc.Order.OrderNumber,
		"{{customer_name}}", customer,
	).Replace(text)
}

const dateLayout = "Jan 2, 2006"

func warrantySummary(fc *FlowContext) string {
	if fc.SelectedItem != nil {
		return itemWarrantyLine(*fc.SelectedItem)
	}
	if len(fc.Items) == 0 {
		return "This order has no items with warranty information."
	}
	lines := make([]string, 0, len(fc.Items))
	for _, item := range fc.Items {
		lines = append(lines, "- "+itemWarrantyLine(item))
	}
	return strings.Join(lines, "\n")
}

func itemWarrantyLine(item ItemContext) string {
	info := item.WarrantyInfo
	name := itemName(item.LineItem)
	expiry := info.ExpiryDate.Format(dateLayout)

	var line string
	switch info.Status {
	case warranty.StatusNone:
		return name + ": No warranty."
	case warranty.StatusExpired:
		line = fmt.Sprintf("%s: Warranty expired on %s.", name, expiry)
	case warranty.StatusExpiringSoon:
		line = fmt.Sprintf("%s: Warranty expiring soon, %s remaining (expires %s).", name, pluralDays(info.DaysRemaining), expiry)
	default:
		line = fmt.Sprintf("%s: Warranty active, %s remaining (expires %s).", name, pluralDays(info.DaysRemaining), expiry)
	}

	var covers []string
	if info.CoversDamagedItems {
		covers = append(covers, "damaged items")
	}
	if info.CoversLostItems {
		covers = append(covers, "lost items")
	}
	if info.CoversLateShipment {
		covers = append(covers, "late shipment")
	}
	if len(covers) > 0 {
		line += " Covers " + strings.Join(covers, ", ") + "."
	}
	return line
}

func orderSummary(fc *FlowContext) string {
	o := fc.Order
	header := fmt.Sprintf("Order #%s placed %s (%s ago)", o.OrderNumber, o.CreatedAt.Format(dateLayout), pluralDays(fc.Warranty.OrderAgeDays))
	if o.TrackingNumber != "" {
		header += ", tracking " + o.TrackingNumber
	}

	if fc.SelectedItem != nil {
		return header + "\nItem: " + itemLine(fc.SelectedItem.LineItem)
	}
	if len(fc.Items) == 0 {
		return header
	}
	lines := []string{header, "Items:"}
	for _, item := range fc.Items {
		lines = append(lines, "- "+itemLine(item.LineItem))
	}
	return strings.Join(lines, "\n")
}

func itemName(item LineItem) string {
	if item.VariantTitle != "" {
		return fmt.Sprintf("%s (%s)", item.ProductName, item.VariantTitle)
	}
	return item.ProductName
}

func itemLine(item LineItem) string {
	return fmt.Sprintf("%d × %s", item.Quantity, itemName(item))
}

func pluralDays(n int) string {
	if n == 1 || n == -1 {
		return fmt.Sprintf("%d day", n)
	}
	return fmt.Sprintf("%d days", n)
}
