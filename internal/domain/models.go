package domain

import "time"

// User is a populated participant descriptor as the backend returns it when
// it expands the sender reference.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Avatar string `json:"avatar,omitempty"`
}

// Message is a single unit of communication within a conversation. IDs are
// server-assigned and opaque; the client never generates one.
type Message struct {
	ID     string `json:"id"`
	Sender Author `json:"sender"`
	Text   string `json:"text"`
	Read   bool   `json:"read"`
	SentAt string `json:"sentAt"` // display ordering only; server order is authoritative
}

// Conversation is one chat thread between a buyer and a farm. The message
// sequence is ordered oldest first and only ever grows or is edited in place.
type Conversation struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	FarmID    string    `json:"farmId"`
	UserID    string    `json:"userId"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LastMessage returns the most recent message for inbox previews.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// CartLine is one product line in the cart. LineTotal is derived.
type CartLine struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	LineTotal float64 `json:"lineTotal"`
}

// Cart mirrors the server's cart state. Amounts are plain float64 matching
// the server representation; formatting is a view concern.
type Cart struct {
	Lines []CartLine `json:"items"`
	Total float64    `json:"total"`
}

// Clone returns a field-for-field copy, used as the rollback snapshot for
// optimistic mutations.
func (c *Cart) Clone() *Cart {
	cp := &Cart{Total: c.Total}
	if c.Lines != nil {
		cp.Lines = make([]CartLine, len(c.Lines))
		copy(cp.Lines, c.Lines)
	}
	return cp
}

// Recalculate rebuilds line totals and the grand total from quantities and
// unit prices.
func (c *Cart) Recalculate() {
	total := 0.0
	for i := range c.Lines {
		c.Lines[i].LineTotal = float64(c.Lines[i].Quantity) * c.Lines[i].UnitPrice
		total += c.Lines[i].LineTotal
	}
	c.Total = total
}

// Line returns the cart line for the given product, or nil.
func (c *Cart) Line(productID string) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i]
		}
	}
	return nil
}

// Product is a marketplace listing, used by the stub backend and the
// terminal client's cart commands.
type Product struct {
	ID     string  `json:"id"`
	FarmID string  `json:"farmId"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Unit   string  `json:"unit"`
	Stock  int     `json:"stock"`
}
