package catalog

import "github.com/ranchopanda/spice-trail-boutique-sub000/internal/domain"

type productsResponse struct {
	Products struct {
		Edges []struct {
			Node productNode `json:"node"`
		} `json:"edges"`
	} `json:"products"`
}

type productNode struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Handle      string `json:"handle"`
	Description string `json:"description"`
	Images      struct {
		Edges []struct {
			Node struct {
				URL     string `json:"url"`
				AltText string `json:"altText"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"images"`
	Variants struct {
		Edges []struct {
			Node variantNode `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
}

type variantNode struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	AvailableForSale bool   `json:"availableForSale"`
	Price            struct {
		Amount       string `json:"amount"`
		CurrencyCode string `json:"currencyCode"`
	} `json:"price"`
	SelectedOptions []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"selectedOptions"`
}

func (r productsResponse) toDomain() []domain.Product {
	products := make([]domain.Product, 0, len(r.Products.Edges))
	for _, edge := range r.Products.Edges {
		p := edge.Node.toDomain()
		if len(p.Variants) == 0 {
			continue
		}
		products = append(products, p)
	}
	return products
}

func (n productNode) toDomain() domain.Product {
	p := domain.Product{
		ID:          n.ID,
		Title:       n.Title,
		Handle:      n.Handle,
		Description: n.Description,
		Images:      make([]domain.Image, 0, len(n.Images.Edges)),
		Variants:    make([]domain.Variant, 0, len(n.Variants.Edges)),
	}
	for _, img := range n.Images.Edges {
		if img.Node.URL == "" {
			continue
		}
		p.Images = append(p.Images, domain.Image{URL: img.Node.URL, AltText: img.Node.AltText})
	}
	for _, edge := range n.Variants.Edges {
		v := edge.Node
		if v.ID == "" {
			continue
		}
		variant := domain.Variant{
			ID:               v.ID,
			Title:            v.Title,
			AvailableForSale: v.AvailableForSale,
			Price:            domain.Money{Amount: v.Price.Amount, CurrencyCode: v.Price.CurrencyCode},
		}
		for _, o := range v.SelectedOptions {
			variant.SelectedOptions = append(variant.SelectedOptions, domain.SelectedOption{Name: o.Name, Value: o.Value})
		}
		p.Variants = append(p.Variants, variant)
	}
	return p
}
