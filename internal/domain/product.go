package domain

type Image struct {
	URL     string `json:"url"`
	AltText string `json:"alt_text,omitempty"`
}

type Variant struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Price            Money            `json:"price"`
	AvailableForSale bool             `json:"available_for_sale"`
	SelectedOptions  []SelectedOption `json:"selected_options,omitempty"`
}

type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Handle      string    `json:"handle"`
	Description string    `json:"description,omitempty"`
	Images      []Image   `json:"images"`
	Variants    []Variant `json:"variants"`
}

// RefFor builds the cart snapshot for one of the product's variants.
func (p Product) RefFor(v Variant) ProductRef {
	ref := ProductRef{
		ProductID:       p.ID,
		Title:           p.Title,
		Handle:          p.Handle,
		VariantTitle:    v.Title,
		SelectedOptions: v.SelectedOptions,
	}
	if len(p.Images) > 0 {
		ref.ImageURL = p.Images[0].URL
	}
	return ref
}

// LineItemFor returns a quantity-less candidate for Store.AddItem.
func (p Product) LineItemFor(v Variant) LineItem {
	return LineItem{
		VariantID: v.ID,
		Product:   p.RefFor(v),
		UnitPrice: v.Price,
	}
}
