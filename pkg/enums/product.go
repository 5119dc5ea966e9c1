package enums

import "strings"

type ProductCategory string

const (
	ProductCategoryCake       ProductCategory = "cake"
	ProductCategoryDecoration ProductCategory = "decoration"
	ProductCategoryGift       ProductCategory = "gift"
)

var productCategories = []ProductCategory{
	ProductCategoryCake,
	ProductCategoryDecoration,
	ProductCategoryGift,
}

func (c ProductCategory) String() string { return string(c) }

func (c ProductCategory) IsValid() bool { return oneOf(c, productCategories) }

// ParseProductCategory ignores case and surrounding spaces.
func ParseProductCategory(raw string) (ProductCategory, error) {
	category, err := parseOneOf(strings.ToLower(strings.TrimSpace(raw)), productCategories, "product category")
	if err != nil {
		return "", err
	}
	return category, nil
}
