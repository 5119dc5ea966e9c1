package product

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
	pkgerrors "github.com/occasionbuddy/occasionbuddy-backend/pkg/errors"
)

const maxPriceScale = 2

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	return title, nil
}

// parsePrice accepts a non-negative decimal string with at most two fraction digits.
func parsePrice(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "price is required")
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "price must be a decimal number")
	}
	if price.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than or equal to 0")
	}
	if !price.Equal(price.Round(maxPriceScale)) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "price supports at most 2 decimal places")
	}
	return price.Round(maxPriceScale), nil
}

// validateImageURL requires an absolute http(s) URL with a host.
func validateImageURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "imageUrl is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "imageUrl must be a valid URL")
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "imageUrl must use http or https")
	}
	if parsed.Host == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "imageUrl must include a host")
	}
	return raw, nil
}

func parseCategory(raw string) (enums.ProductCategory, error) {
	category, err := enums.ParseProductCategory(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "category must be one of cake, decoration, gift")
	}
	return category, nil
}
