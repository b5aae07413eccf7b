package payment

import (
	"encoding/xml"
	"fmt"
	"strings"

	"nochex-be/internal/order"
)

// Item is one entry of the structured item collection.
type Item struct {
	XMLName     xml.Name `xml:"item" json:"-"`
	ID          string   `xml:"id" json:"id"`
	Name        string   `xml:"name" json:"name"`
	Description string   `xml:"description" json:"description"`
	Quantity    int      `xml:"quantity" json:"quantity"`
	Price       string   `xml:"price" json:"price"`
}

type itemCollection struct {
	XMLName xml.Name `xml:"items"`
	Items   []Item
}

func BuildItems(lines []order.LineItem) []Item {
	items := make([]Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, Item{
			Name:        l.ProductName,
			Description: l.ProductName,
			Quantity:    l.Quantity,
			Price:       FormatAmount(l.UnitPrice),
		})
	}
	return items
}

// EncodeItemCollection renders items as <items><item>...</item></items>.
func EncodeItemCollection(items []Item) (string, error) {
	out, err := xml.Marshal(itemCollection{Items: items})
	if err != nil {
		return "", fmt.Errorf("failed to encode item collection: %w", err)
	}
	return string(out), nil
}

// FlattenDescription is the item summary used when itemized details are off.
func FlattenDescription(lines []order.LineItem) string {
	var b strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&b, "%s, (%d x %s)", l.ProductName, l.Quantity, FormatAmount(l.UnitPrice))
	}
	return b.String()
}
