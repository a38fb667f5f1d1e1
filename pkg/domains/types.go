package domains

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidDomain     = errors.New("invalid domain name")
	ErrDomainUnavailable = errors.New("domain is not available")
	ErrReseller          = errors.New("domain reseller error")
)

// Availability is the reseller's answer for one domain
type Availability struct {
	Domain    string          `json:"domain"`
	Available bool            `json:"available"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	Premium   bool            `json:"premium,omitempty"`
}

// Contact is the registrant contact sent to the reseller
type Contact struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone,omitempty"`
	Country string `json:"country" validate:"required,iso3166_1_alpha2"`
}

// RegisterRequest asks the reseller to register a domain for a merchant
type RegisterRequest struct {
	Domain     string  `json:"domain" validate:"required"`
	Years      int     `json:"years" validate:"min=1,max=10"`
	MerchantID string  `json:"-"`
	Contact    Contact `json:"contact" validate:"required"`
}

// Registration is a completed registration order
type Registration struct {
	Domain    string    `json:"domain"`
	OrderID   string    `json:"orderId"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
}

var validate = validator.New()

// Normalize lowercases and trims a domain name, dropping a trailing dot
func Normalize(domain string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
}

// ValidateDomain checks domain syntax; it never touches the network
func ValidateDomain(domain string) error {
	d := Normalize(domain)
	if d == "" || len(d) > 253 || !strings.Contains(d, ".") {
		return ErrInvalidDomain
	}
	if err := validate.Var(d, "fqdn"); err != nil {
		return ErrInvalidDomain
	}
	return nil
}
