package util

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// ValidationGate: every draft coming from the UI passes through one of
// the Validate* functions before it may touch storage. Each returns a
// sanitized copy plus a list of human-readable errors; a non-empty
// error list means hard rejection, nothing is persisted.

var (
	htmlTagRe      = regexp.MustCompile(`<[^>]*>`)
	customerNameRe = regexp.MustCompile(`^[a-zA-Z\s\-.]+$`)
	serviceNameRe  = regexp.MustCompile(`^[a-zA-Z0-9\s\-.]+$`)
	emailRe        = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe        = regexp.MustCompile(`^[+]?[1-9]\d{0,15}$`)
	phoneSepRe     = regexp.MustCompile(`[\s\-()]`)

	htmlEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#x27;",
	)
)

// supportedCurrencyCodes is the fixed allow-list; rates for anything
// else are never configured so conversion would silently fail open.
var supportedCurrencyCodes = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "AED": true, "INR": true,
	"CAD": true, "AUD": true, "JPY": true, "CHF": true, "CNY": true,
}

// SanitizeHTML strips tags, escapes the remaining dangerous characters
// and trims whitespace.
func SanitizeHTML(input string) string {
	out := htmlTagRe.ReplaceAllString(input, "")
	return strings.TrimSpace(htmlEscaper.Replace(out))
}

func ValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// ValidPhone checks the normalized form after stripping separators.
func ValidPhone(phone string) bool {
	return phoneRe.MatchString(phoneSepRe.ReplaceAllString(phone, ""))
}

func ValidCurrencyCode(code string) bool {
	return supportedCurrencyCodes[strings.ToUpper(code)]
}

// ValidPrice allows zero; prices are selling prices with a hard ceiling.
func ValidPrice(price float64) bool {
	return price >= 0 && price <= 999999.99 && !math.IsNaN(price) && !math.IsInf(price, 0)
}

// ---------- drafts ----------

type CustomerInput struct {
	Name    string
	Phone   string
	Email   string
	Address string
}

type InvoiceItemInput struct {
	ServiceName        string
	ServiceDescription string
	PurchasePrice      float64
	Price              float64
}

type InvoiceInput struct {
	CustomerName    string
	CustomerAddress string
	Phone           string
	Currency        string
	RefNo           string
	Discount        float64
	Items           []InvoiceItemInput
}

type ServiceInput struct {
	Name        string
	Description string
}

type CurrencyInput struct {
	Code         string
	Name         string
	Symbol       string
	ExchangeRate float64
}

// ---------- gates ----------

// ValidateCustomer checks and sanitizes a customer draft. Phone, email
// and address are optional; name is not.
func ValidateCustomer(in CustomerInput) (CustomerInput, []string) {
	var errs []string

	name := strings.TrimSpace(in.Name)
	if name == "" {
		errs = append(errs, "Customer name is required")
	} else if len(name) < 2 || len(name) > 100 {
		errs = append(errs, "Customer name must be between 2 and 100 characters")
	} else if !customerNameRe.MatchString(name) {
		errs = append(errs, "Customer name contains invalid characters")
	}

	if in.Email != "" && !ValidEmail(in.Email) {
		errs = append(errs, "Invalid email format")
	}
	if in.Phone != "" && !ValidPhone(in.Phone) {
		errs = append(errs, "Invalid phone number format")
	}
	if len(in.Address) > 500 {
		errs = append(errs, "Address must be less than 500 characters")
	}

	if len(errs) > 0 {
		return CustomerInput{}, errs
	}

	return CustomerInput{
		Name:    SanitizeHTML(name),
		Phone:   SanitizeHTML(in.Phone),
		Email:   SanitizeHTML(in.Email),
		Address: SanitizeHTML(in.Address),
	}, nil
}

// ValidateInvoice checks the customer sub-fields via the customer rule,
// the currency against the allow-list, and every line item. Discount
// has no upper bound: a discount above the subtotal is accepted and
// produces a negative grand total.
func ValidateInvoice(in InvoiceInput) (InvoiceInput, []string) {
	var errs []string

	customer, customerErrs := ValidateCustomer(CustomerInput{
		Name:    in.CustomerName,
		Phone:   in.Phone,
		Address: in.CustomerAddress,
	})
	errs = append(errs, customerErrs...)

	if !ValidCurrencyCode(in.Currency) {
		errs = append(errs, "Invalid currency code")
	}

	if len(in.Items) == 0 {
		errs = append(errs, "Invoice must have at least one item")
	}
	for i, item := range in.Items {
		if strings.TrimSpace(item.ServiceName) == "" {
			errs = append(errs, fmt.Sprintf("Item %d: Service name is required", i+1))
		} else if len(item.ServiceName) > 100 {
			errs = append(errs, fmt.Sprintf("Item %d: Service name too long", i+1))
		}
		if !ValidPrice(item.Price) {
			errs = append(errs, fmt.Sprintf("Item %d: Invalid price", i+1))
		}
		if len(item.ServiceDescription) > 500 {
			errs = append(errs, fmt.Sprintf("Item %d: Description too long", i+1))
		}
	}

	if in.Discount < 0 || math.IsNaN(in.Discount) || math.IsInf(in.Discount, 0) {
		errs = append(errs, "Discount must be a non-negative number")
	}

	if len(errs) > 0 {
		return InvoiceInput{}, errs
	}

	out := InvoiceInput{
		CustomerName:    customer.Name,
		CustomerAddress: customer.Address,
		Phone:           customer.Phone,
		Currency:        strings.ToUpper(in.Currency),
		RefNo:           SanitizeHTML(in.RefNo),
		Discount:        in.Discount,
		Items:           make([]InvoiceItemInput, 0, len(in.Items)),
	}
	for _, item := range in.Items {
		out.Items = append(out.Items, InvoiceItemInput{
			ServiceName:        SanitizeHTML(item.ServiceName),
			ServiceDescription: SanitizeHTML(item.ServiceDescription),
			PurchasePrice:      item.PurchasePrice,
			Price:              item.Price,
		})
	}
	return out, nil
}

// ValidateService checks a catalog entry draft.
func ValidateService(in ServiceInput) (ServiceInput, []string) {
	var errs []string

	name := strings.TrimSpace(in.Name)
	if name == "" {
		errs = append(errs, "Service name is required")
	} else if len(name) < 2 || len(name) > 100 {
		errs = append(errs, "Service name must be between 2 and 100 characters")
	} else if !serviceNameRe.MatchString(name) {
		errs = append(errs, "Service name contains invalid characters")
	}

	if len(in.Description) > 500 {
		errs = append(errs, "Description must be less than 500 characters")
	}

	if len(errs) > 0 {
		return ServiceInput{}, errs
	}

	return ServiceInput{
		Name:        SanitizeHTML(name),
		Description: SanitizeHTML(in.Description),
	}, nil
}

// ValidateCurrency checks a currency draft; the code must be in the
// supported set and the rate positive and finite.
func ValidateCurrency(in CurrencyInput) (CurrencyInput, []string) {
	var errs []string

	if !ValidCurrencyCode(in.Code) {
		errs = append(errs, "Invalid currency code")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		errs = append(errs, "Currency name is required")
	} else if len(name) > 50 {
		errs = append(errs, "Currency name too long")
	}
	symbol := strings.TrimSpace(in.Symbol)
	if symbol == "" {
		errs = append(errs, "Currency symbol is required")
	} else if len(symbol) > 10 {
		errs = append(errs, "Currency symbol too long")
	}
	if in.ExchangeRate <= 0 || math.IsNaN(in.ExchangeRate) || math.IsInf(in.ExchangeRate, 0) {
		errs = append(errs, "Exchange rate must be a positive number")
	}

	if len(errs) > 0 {
		return CurrencyInput{}, errs
	}

	return CurrencyInput{
		Code:         strings.ToUpper(in.Code),
		Name:         SanitizeHTML(name),
		Symbol:       SanitizeHTML(symbol),
		ExchangeRate: in.ExchangeRate,
	}, nil
}
