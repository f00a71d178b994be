package recharge

import "context"

// Plan is one recharge plan offered by an operator.
type Plan struct {
	ID          string   `json:"id"`
	Name        string   `json:"name,omitempty"`
	Amount      float64  `json:"amount"`
	Validity    string   `json:"validity,omitempty"`
	Data        string   `json:"data,omitempty"`
	PlanType    string   `json:"type,omitempty"`
	Description string   `json:"description,omitempty"`
	Benefits    []string `json:"benefits,omitempty"`
}

// Operator is a recharge operator with its plan catalog.
type Operator struct {
	Name        string      `json:"name"`
	Code        string      `json:"code"`
	ServiceType ServiceType `json:"serviceType"`
	Logo        string      `json:"logo,omitempty"`
	Plans       []Plan      `json:"plans"`
}

// PlanByID returns the operator's plan with the given id, or false if the
// operator does not offer it.
func (o *Operator) PlanByID(id string) (*Plan, bool) {
	if id == "" {
		return nil, false
	}
	for i := range o.Plans {
		if o.Plans[i].ID == id {
			return &o.Plans[i], true
		}
	}
	return nil, false
}

// Catalog is the operator/plan lookup consumed by the lifecycle engine.
// Implemented by catalog/memory and catalog/mysql.
type Catalog interface {
	// FindOperator resolves an operator by its code.
	// Returns ErrOperatorNotFound when the code is unknown.
	FindOperator(ctx context.Context, code string) (*Operator, error)

	// ListOperators lists operators, optionally filtered by service type
	// (empty serviceType lists all).
	ListOperators(ctx context.Context, serviceType ServiceType) ([]*Operator, error)
}
