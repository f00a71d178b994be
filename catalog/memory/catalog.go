// Package memory provides an in-memory operator catalog pre-seeded with the
// standard Indian operator set.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	recharge "github.com/Tarunvoff/mobile-backend"
)

// Catalog implements recharge.Catalog with a fixed in-process operator set.
type Catalog struct {
	mu     sync.RWMutex
	byCode map[string]*recharge.Operator
}

var _ recharge.Catalog = (*Catalog)(nil)

// New creates a Catalog pre-seeded with the default operators.
func New() *Catalog {
	return NewWithOperators(SeedOperators())
}

// NewWithOperators creates a Catalog holding the given operators.
func NewWithOperators(operators []*recharge.Operator) *Catalog {
	c := &Catalog{byCode: make(map[string]*recharge.Operator, len(operators))}
	for _, op := range operators {
		c.byCode[strings.ToUpper(op.Code)] = op
	}
	return c
}

// FindOperator returns the operator with the given code.
func (c *Catalog) FindOperator(_ context.Context, code string) (*recharge.Operator, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	op, ok := c.byCode[strings.ToUpper(code)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", recharge.ErrOperatorNotFound, code)
	}
	return op, nil
}

// ListOperators returns the operators serving the given service type, or all
// operators when serviceType is empty.
func (c *Catalog) ListOperators(_ context.Context, serviceType recharge.ServiceType) ([]*recharge.Operator, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var operators []*recharge.Operator
	for _, op := range c.byCode {
		if serviceType != "" && op.ServiceType != serviceType {
			continue
		}
		operators = append(operators, op)
	}
	return operators, nil
}

// SeedOperators returns the default operator set: four mobile operators with
// plan catalogs, DTH and bill payees without plans, and two data boosters.
func SeedOperators() []*recharge.Operator {
	return []*recharge.Operator{
		{
			Name:        "Airtel",
			Code:        "AIR",
			ServiceType: recharge.ServiceMobile,
			Logo:        "https://upload.wikimedia.org/wikipedia/commons/thumb/2/28/Airtel_logo.svg/512px-Airtel_logo.svg.png",
			Plans: []recharge.Plan{
				{
					ID: "plan_air_199", Name: "Airtel 199", Amount: 199, Validity: "28 days", Data: "1GB/day",
					PlanType:    "Prepaid",
					Description: "Truly unlimited calls with 100 SMS/day and 1GB daily data.",
					Benefits:    []string{"Unlimited Calls", "100 SMS/day", "Apollo 24x7"},
				},
				{
					ID: "plan_air_299", Name: "Airtel 299", Amount: 299, Validity: "28 days", Data: "1.5GB/day",
					PlanType:    "Prepaid",
					Description: "Daily 1.5GB high-speed data with unlimited calls and 100 SMS/day.",
					Benefits:    []string{"Unlimited Calls", "100 SMS/day", "Airtel Xstream"},
				},
				{
					ID: "plan_air_499", Name: "Airtel 499", Amount: 499, Validity: "56 days", Data: "1.5GB/day",
					PlanType:    "Prepaid",
					Description: "Long validity pack with 1.5GB daily data and unlimited calls.",
					Benefits:    []string{"Unlimited Calls", "100 SMS/day"},
				},
				{
					ID: "plan_air_719", Name: "Airtel 719", Amount: 719, Validity: "84 days", Data: "1.5GB/day",
					PlanType:    "Prepaid",
					Description: "Extended pack with 1.5GB/day data and unlimited calls.",
					Benefits:    []string{"Unlimited Calls", "Hello Tunes"},
				},
			},
		},
		{
			Name:        "Jio",
			Code:        "JIO",
			ServiceType: recharge.ServiceMobile,
			Logo:        "https://upload.wikimedia.org/wikipedia/commons/thumb/e/e4/Reliance_Jio_Logo_%282015%29.svg/512px-Reliance_Jio_Logo_%282015%29.svg.png",
			Plans: []recharge.Plan{
				{
					ID: "plan_jio_209", Name: "Jio 209", Amount: 209, Validity: "28 days", Data: "1GB/day",
					PlanType:    "Prepaid",
					Description: "Unlimited calls with 1GB/day high-speed data.",
					Benefits:    []string{"Unlimited Calls", "100 SMS/day", "JioTV"},
				},
				{
					ID: "plan_jio_299", Name: "Jio 299", Amount: 299, Validity: "28 days", Data: "2GB/day",
					PlanType:    "Prepaid",
					Description: "Double data pack with 2GB/day and unlimited voice.",
					Benefits:    []string{"Unlimited Calls", "100 SMS/day", "JioCinema"},
				},
				{
					ID: "plan_jio_555", Name: "Jio 555", Amount: 555, Validity: "56 days", Data: "1.5GB/day",
					PlanType:    "Prepaid",
					Description: "Long validity with 1.5GB/day and unlimited voice.",
					Benefits:    []string{"Unlimited Calls", "100 SMS/day"},
				},
				{
					ID: "plan_jio_666", Name: "Jio 666", Amount: 666, Validity: "84 days", Data: "1.5GB/day",
					PlanType:    "Prepaid",
					Description: "Extended pack with 1.5GB/day plus Jio apps subscription.",
					Benefits:    []string{"Unlimited Calls", "100 SMS/day", "JioCloud"},
				},
			},
		},
		{
			Name:        "Vi",
			Code:        "VI",
			ServiceType: recharge.ServiceMobile,
			Logo:        "https://upload.wikimedia.org/wikipedia/commons/thumb/d/d1/Vodafone_Idea_logo_white.svg/512px-Vodafone_Idea_logo_white.svg.png",
			Plans: []recharge.Plan{
				{
					ID: "plan_vi_219", Name: "Vi 219", Amount: 219, Validity: "28 days", Data: "1GB/day",
					PlanType:    "Prepaid",
					Description: "Unlimited calls with 1GB/day and Binge All Night benefit.",
					Benefits:    []string{"Unlimited Calls", "100 SMS/day", "Binge All Night"},
				},
				{
					ID: "plan_vi_319", Name: "Vi 319", Amount: 319, Validity: "28 days", Data: "1.5GB/day",
					PlanType:    "Prepaid",
					Description: "Extra data with 1.5GB/day and weekend data rollover.",
					Benefits:    []string{"Unlimited Calls", "Weekend Rollover"},
				},
				{
					ID: "plan_vi_539", Name: "Vi 539", Amount: 539, Validity: "56 days", Data: "1.5GB/day",
					PlanType:    "Prepaid",
					Description: "Long validity with 1.5GB/day and Vi Movies & TV access.",
					Benefits:    []string{"Unlimited Calls", "Vi Movies & TV"},
				},
				{
					ID: "plan_vi_699", Name: "Vi 699", Amount: 699, Validity: "84 days", Data: "1.5GB/day",
					PlanType:    "Prepaid",
					Description: "Extended validity with 1.5GB/day and weekend rollover.",
					Benefits:    []string{"Unlimited Calls", "Weekend Rollover"},
				},
			},
		},
		{
			Name:        "BSNL",
			Code:        "BSN",
			ServiceType: recharge.ServiceMobile,
			Logo:        "https://upload.wikimedia.org/wikipedia/commons/thumb/9/96/BSNL_Logo.svg/512px-BSNL_Logo.svg.png",
			Plans: []recharge.Plan{
				{
					ID: "plan_bsn_187", Name: "BSNL 187", Amount: 187, Validity: "28 days", Data: "2GB/day",
					PlanType:    "Prepaid",
					Description: "Value pack with 2GB/day and 100 SMS/day.",
					Benefits:    []string{"Unlimited Calls", "100 SMS/day"},
				},
				{
					ID: "plan_bsn_297", Name: "BSNL 297", Amount: 297, Validity: "54 days", Data: "1GB/day",
					PlanType:    "Prepaid",
					Description: "54-day pack with 1GB/day and PRBT service.",
					Benefits:    []string{"Unlimited Calls", "PRBT"},
				},
				{
					ID: "plan_bsn_397", Name: "BSNL 397", Amount: 397, Validity: "70 days", Data: "1GB/day",
					PlanType:    "Prepaid",
					Description: "Longer validity with 1GB daily data and 100 SMS/day.",
					Benefits:    []string{"Unlimited Calls", "100 SMS/day"},
				},
				{
					ID: "plan_bsn_485", Name: "BSNL 485", Amount: 485, Validity: "90 days", Data: "1GB/day",
					PlanType:    "Prepaid",
					Description: "90-day pack with 1GB/day and unlimited calls.",
					Benefits:    []string{"Unlimited Calls", "100 SMS/day"},
				},
			},
		},
		{
			Name:        "Tata Play DTH",
			Code:        "TPD",
			ServiceType: recharge.ServiceDTH,
			Logo:        "https://upload.wikimedia.org/wikipedia/commons/thumb/0/0f/Tata_Play_Logo.svg/512px-Tata_Play_Logo.svg.png",
		},
		{
			Name:        "Dish TV",
			Code:        "DST",
			ServiceType: recharge.ServiceDTH,
			Logo:        "https://upload.wikimedia.org/wikipedia/commons/thumb/7/7c/Dish_TV_logo.svg/512px-Dish_TV_logo.svg.png",
		},
		{
			Name:        "Sun Direct",
			Code:        "SND",
			ServiceType: recharge.ServiceDTH,
			Logo:        "https://upload.wikimedia.org/wikipedia/commons/thumb/2/2e/Sun_Direct_logo.svg/512px-Sun_Direct_logo.svg.png",
		},
		{
			Name:        "BESCOM Electricity",
			Code:        "BES",
			ServiceType: recharge.ServiceBill,
			Logo:        "https://upload.wikimedia.org/wikipedia/commons/thumb/5/57/Lightning_icon.svg/512px-Lightning_icon.svg.png",
		},
		{
			Name:        "Bangalore Water Board",
			Code:        "BWSSB",
			ServiceType: recharge.ServiceBill,
			Logo:        "https://upload.wikimedia.org/wikipedia/commons/thumb/6/6d/Water_drop_icon.svg/512px-Water_drop_icon.svg.png",
		},
		{
			Name:        "ACT Fibernet",
			Code:        "ACTF",
			ServiceType: recharge.ServiceBill,
			Logo:        "https://upload.wikimedia.org/wikipedia/commons/thumb/d/d1/ACT_Fibernet_logo.svg/512px-ACT_Fibernet_logo.svg.png",
		},
		{
			Name:        "Jio Data Booster",
			Code:        "JIOD",
			ServiceType: recharge.ServiceData,
			Logo:        "https://upload.wikimedia.org/wikipedia/commons/thumb/e/e4/Reliance_Jio_Logo_%282015%29.svg/512px-Reliance_Jio_Logo_%282015%29.svg.png",
			Plans: []recharge.Plan{
				{
					ID: "plan_jiod_61", Name: "Jio Booster 61", Amount: 61, Validity: "30 days", Data: "6GB total",
					PlanType:    "Prepaid",
					Description: "Add-on data booster for high-speed usage.",
					Benefits:    []string{"High-speed data"},
				},
				{
					ID: "plan_jiod_121", Name: "Jio Booster 121", Amount: 121, Validity: "30 days", Data: "12GB total",
					PlanType:    "Prepaid",
					Description: "Double the data with 12GB add-on pack.",
					Benefits:    []string{"High-speed data"},
				},
				{
					ID: "plan_jiod_222", Name: "Jio Booster 222", Amount: 222, Validity: "30 days", Data: "50GB total",
					PlanType:    "Prepaid",
					Description: "Heavy usage data booster for streaming and gaming.",
					Benefits:    []string{"High-speed data"},
				},
			},
		},
		{
			Name:        "Airtel Data Booster",
			Code:        "AIRD",
			ServiceType: recharge.ServiceData,
			Logo:        "https://upload.wikimedia.org/wikipedia/commons/thumb/2/28/Airtel_logo.svg/512px-Airtel_logo.svg.png",
			Plans: []recharge.Plan{
				{
					ID: "plan_aird_58", Name: "Airtel Booster 58", Amount: 58, Validity: "28 days", Data: "3GB total",
					PlanType:    "Prepaid",
					Description: "Quick top-up for extra browsing data.",
					Benefits:    []string{"High-speed data"},
				},
				{
					ID: "plan_aird_98", Name: "Airtel Booster 98", Amount: 98, Validity: "28 days", Data: "12GB total",
					PlanType:    "Prepaid",
					Description: "Extended data for social media and streaming.",
					Benefits:    []string{"High-speed data"},
				},
				{
					ID: "plan_aird_301", Name: "Airtel Booster 301", Amount: 301, Validity: "90 days", Data: "50GB total",
					PlanType:    "Prepaid",
					Description: "Bulk data pack for remote work and learning.",
					Benefits:    []string{"High-speed data"},
				},
			},
		},
	}
}
