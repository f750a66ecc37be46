package cart

import (
	"encoding/json"
	"errors"

	"github.com/fjod/go_cart/fakestore/internal/domain"
)

// record is the stored shape of a line: the flat product fields plus quantity.
// ID is a pointer so that a missing id can be told apart from id 0.
type record struct {
	ID          *int64  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Quantity    int     `json:"quantity"`
}

var errMissingID = errors.New("cart line without id")

func encode(c domain.Cart) (string, error) {
	records := make([]record, 0, len(c.Lines))
	for _, l := range c.Lines {
		id := l.Product.ID
		records = append(records, record{
			ID:          &id,
			Title:       l.Product.Title,
			Description: l.Product.Description,
			Category:    l.Product.Category,
			Price:       l.Product.Price,
			Image:       l.Product.Image,
			Quantity:    l.Quantity,
		})
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decode parses a stored cart. Lines with a non-positive quantity are dropped
// and repeated ids are merged so the result always satisfies the cart
// invariants.
func decode(raw string) (domain.Cart, error) {
	var records []*record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return domain.Cart{}, err
	}

	var c domain.Cart
	for _, r := range records {
		if r == nil || r.ID == nil {
			return domain.Cart{}, errMissingID
		}
		if r.Quantity < 1 {
			continue
		}
		if i := c.Find(*r.ID); i >= 0 {
			c.Lines[i].Quantity += r.Quantity
			continue
		}
		c.Lines = append(c.Lines, domain.CartLine{
			Product: domain.Product{
				ID:          *r.ID,
				Title:       r.Title,
				Description: r.Description,
				Category:    r.Category,
				Price:       r.Price,
				Image:       r.Image,
			},
			Quantity: r.Quantity,
		})
	}
	return c, nil
}
