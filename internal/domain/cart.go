package domain

import "github.com/shopspring/decimal"

// CartLine is a product snapshot taken when it was added, plus the quantity.
// Quantity is always >= 1.
type CartLine struct {
	Product  Product
	Quantity int
}

// Total is price x quantity, unrounded. Callers round when they render.
func (l CartLine) Total() decimal.Decimal {
	return decimal.NewFromFloat(l.Product.Price).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is an ordered collection of lines, unique by product id.
type Cart struct {
	Lines []CartLine
}

func (c Cart) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Total())
	}
	return total
}

func (c Cart) TotalItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Find returns the index of the line holding productID, or -1.
func (c Cart) Find(productID int64) int {
	for i, l := range c.Lines {
		if l.Product.ID == productID {
			return i
		}
	}
	return -1
}

// Clone returns a copy whose lines can be mutated without touching c.
func (c Cart) Clone() Cart {
	if len(c.Lines) == 0 {
		return Cart{}
	}
	lines := make([]CartLine, len(c.Lines))
	copy(lines, c.Lines)
	return Cart{Lines: lines}
}
