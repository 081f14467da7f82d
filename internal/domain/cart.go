package domain

// Money is a decimal amount paired with its ISO currency code, as the commerce API
// returns it. Amount stays a string so no precision is lost before arithmetic.
type Money struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currency_code"`
}

type SelectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ProductRef is the display snapshot taken when a variant is put in the cart.
// It is never refreshed from the catalog afterwards.
type ProductRef struct {
	ProductID       string           `json:"product_id"`
	Title           string           `json:"title"`
	Handle          string           `json:"handle,omitempty"`
	VariantTitle    string           `json:"variant_title,omitempty"`
	ImageURL        string           `json:"image_url,omitempty"`
	SelectedOptions []SelectedOption `json:"selected_options,omitempty"`
}

type LineItem struct {
	VariantID string     `json:"variant_id"`
	Product   ProductRef `json:"product"`
	UnitPrice Money      `json:"unit_price"`
	Quantity  int        `json:"quantity"`
}

// Cart is a point-in-time copy of the store state handed to readers.
type Cart struct {
	Items       []LineItem `json:"items"`
	CheckoutURL string     `json:"checkout_url,omitempty"`
	IsLoading   bool       `json:"is_loading"`
	TotalItems  int        `json:"total_items"`
	TotalPrice  Money      `json:"total_price"`
}
