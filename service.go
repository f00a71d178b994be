package recharge

import "regexp"

// ServiceType is the category of recharge or payment being performed.
// It governs which identifier format is accepted and whether a catalog plan
// must be selected.
type ServiceType string

const (
	// ServiceMobile is a prepaid mobile recharge (plan required).
	ServiceMobile ServiceType = "MOBILE"
	// ServiceDTH is a DTH subscription top-up (free amount).
	ServiceDTH ServiceType = "DTH"
	// ServiceBill is a utility bill payment (free amount).
	ServiceBill ServiceType = "BILL"
	// ServiceData is a mobile data pack purchase (plan required).
	ServiceData ServiceType = "DATA"
)

// ServiceDefinition describes the validation rules for one service type.
type ServiceDefinition struct {
	// ID is the service type this definition applies to.
	ID ServiceType

	// Name is the human-readable service name.
	Name string

	// IdentifierLabel names the subscriber identifier for this service
	// (mobile number, subscriber ID, consumer number).
	IdentifierLabel string

	// IdentifierPattern is the pattern the identifier must match.
	IdentifierPattern *regexp.Regexp

	// PlanRequired reports whether a catalog plan must be selected and the
	// amount must equal the plan amount.
	PlanRequired bool
}

// serviceCatalog is the fixed set of supported services.
var serviceCatalog = []*ServiceDefinition{
	{
		ID:                ServiceMobile,
		Name:              "Mobile Recharge",
		IdentifierLabel:   "Mobile Number",
		IdentifierPattern: regexp.MustCompile(`^[6-9]\d{9}$`),
		PlanRequired:      true,
	},
	{
		ID:                ServiceDTH,
		Name:              "DTH Recharge",
		IdentifierLabel:   "Subscriber ID",
		IdentifierPattern: regexp.MustCompile(`^\d{6,12}$`),
		PlanRequired:      false,
	},
	{
		ID:                ServiceBill,
		Name:              "Bill Payments",
		IdentifierLabel:   "Account / Consumer Number",
		IdentifierPattern: regexp.MustCompile(`(?i)^[A-Z0-9]{6,18}$`),
		PlanRequired:      false,
	},
	{
		ID:                ServiceData,
		Name:              "Data Packs",
		IdentifierLabel:   "Mobile Number",
		IdentifierPattern: regexp.MustCompile(`^[6-9]\d{9}$`),
		PlanRequired:      true,
	},
}

// ServiceFor returns the definition for a service type, or false if the
// service type is not supported.
func ServiceFor(id ServiceType) (*ServiceDefinition, bool) {
	for _, svc := range serviceCatalog {
		if svc.ID == id {
			return svc, true
		}
	}
	return nil, false
}

// ServiceTypes returns the supported service types in catalog order.
func ServiceTypes() []ServiceType {
	types := make([]ServiceType, len(serviceCatalog))
	for i, svc := range serviceCatalog {
		types[i] = svc.ID
	}
	return types
}

// MatchIdentifier reports whether the identifier satisfies this service's
// pattern. Empty identifiers never match.
func (d *ServiceDefinition) MatchIdentifier(identifier string) bool {
	if identifier == "" {
		return false
	}
	return d.IdentifierPattern.MatchString(identifier)
}

// PaymentMethod is the payment instrument used to fund a transaction.
type PaymentMethod string

const (
	// PaymentUPI pays via a UPI handle.
	PaymentUPI PaymentMethod = "UPI"
	// PaymentCard pays via a debit or credit card.
	PaymentCard PaymentMethod = "Card"
	// PaymentWallet pays from the platform wallet balance.
	PaymentWallet PaymentMethod = "Wallet"
)

// KnownPaymentMethod reports whether the payment method is supported.
func KnownPaymentMethod(pm PaymentMethod) bool {
	switch pm {
	case PaymentUPI, PaymentCard, PaymentWallet:
		return true
	default:
		return false
	}
}
