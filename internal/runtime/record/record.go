// Package record defines the typed profile events flowing through the
// pipeline: the decoded Profile as it arrives on the wire and the
// NormalizedProfile produced from it.
package record

// Address is the postal address attached to a profile.
type Address struct {
	Street  string `avro:"street" json:"street"`
	City    string `avro:"city" json:"city"`
	State   string `avro:"state" json:"state"`
	Zip     string `avro:"zip" json:"zip"`
	Country string `avro:"country" json:"country"`
}

// Purchase is one entry of a profile's purchase history as decoded.
type Purchase struct {
	ItemID       int32  `avro:"item_id" json:"item_id"`
	ItemName     string `avro:"item_name" json:"item_name"`
	PurchaseDate string `avro:"purchase_date" json:"purchase_date"`
	Amount       int64  `avro:"amount" json:"amount"`
}

// History carries login and purchase activity. LastLogin is nil when the
// producer did not send one.
type History struct {
	LastLogin       *string    `avro:"last_login" json:"last_login"`
	PurchaseHistory []Purchase `avro:"purchase_history" json:"purchase_history"`
}

// Profile is a decoded profile event. History is nil when absent.
type Profile struct {
	ID       int32    `avro:"id" json:"id"`
	Name     string   `avro:"name" json:"name"`
	Email    string   `avro:"email" json:"email"`
	Age      int32    `avro:"age" json:"age"`
	Gender   string   `avro:"gender" json:"gender"`
	IsActive bool     `avro:"is_active" json:"is_active"`
	Address  Address  `avro:"address" json:"address"`
	History  *History `avro:"history" json:"history"`
}

// HasLastLogin reports whether the profile carries a non-empty last login,
// the condition under which it gets normalized.
func (p Profile) HasLastLogin() bool {
	return p.History != nil && p.History.LastLogin != nil && *p.History.LastLogin != ""
}

// Clone returns a deep copy so callers can hand the profile around without
// sharing nested slices or pointers.
func (p Profile) Clone() Profile {
	if p.History == nil {
		return p
	}
	h := &History{}
	if p.History.LastLogin != nil {
		v := *p.History.LastLogin
		h.LastLogin = &v
	}
	if p.History.PurchaseHistory != nil {
		h.PurchaseHistory = make([]Purchase, len(p.History.PurchaseHistory))
		copy(h.PurchaseHistory, p.History.PurchaseHistory)
	}
	p.History = h
	return p
}

// NormalizedPurchase is a purchase entry after normalization. Amount is the
// rendered dollar string.
type NormalizedPurchase struct {
	ItemID       int32  `json:"item_id"`
	ItemName     string `json:"item_name"`
	PurchaseDate string `json:"purchase_date"`
	Amount       string `json:"amount"`
}

// NormalizedHistory is the normalized history block.
type NormalizedHistory struct {
	LastLogin       string               `json:"last_login"`
	PurchaseHistory []NormalizedPurchase `json:"purchase_history"`
}

// NormalizedProfile is built fresh from a Profile; it never aliases the
// decoded input.
type NormalizedProfile struct {
	ID       int32             `json:"id"`
	Name     string            `json:"name"`
	Email    string            `json:"email"`
	Age      int32             `json:"age"`
	Gender   string            `json:"gender"`
	IsActive bool              `json:"is_active"`
	Address  Address           `json:"address"`
	History  NormalizedHistory `json:"history"`
}

// Fields returns the schema-shaped mapping handed to template renderers.
// Keys match the Avro field names.
func (n NormalizedProfile) Fields() map[string]any {
	purchases := make([]any, len(n.History.PurchaseHistory))
	for i, p := range n.History.PurchaseHistory {
		purchases[i] = map[string]any{
			"item_id":       p.ItemID,
			"item_name":     p.ItemName,
			"purchase_date": p.PurchaseDate,
			"amount":        p.Amount,
		}
	}

	return map[string]any{
		"id":        n.ID,
		"name":      n.Name,
		"email":     n.Email,
		"age":       n.Age,
		"gender":    n.Gender,
		"is_active": n.IsActive,
		"address": map[string]any{
			"street":  n.Address.Street,
			"city":    n.Address.City,
			"state":   n.Address.State,
			"zip":     n.Address.Zip,
			"country": n.Address.Country,
		},
		"history": map[string]any{
			"last_login":       n.History.LastLogin,
			"purchase_history": purchases,
		},
	}
}
