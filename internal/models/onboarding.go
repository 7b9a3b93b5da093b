package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/boilerbudget/internal/common"
	"github.com/dmitrijs2005/boilerbudget/internal/timex"
)

type MealPlanType string

const (
	MealPlan8Track    MealPlanType = "8-track"
	MealPlan13Track   MealPlanType = "13-track"
	MealPlan18Track   MealPlanType = "18-track"
	MealPlan21Track   MealPlanType = "21-track"
	MealPlanUnlimited MealPlanType = "unlimited"

	DefaultMealPlan = MealPlan13Track
)

// MealPlan describes one catalogue entry.
type MealPlan struct {
	Type         MealPlanType
	Label        string
	WeeklySwipes int
	Unlimited    bool
}

// DefaultSwipes is the swipe count used when the student leaves the field
// blank. Unlimited plans default to zero.
func (p MealPlan) DefaultSwipes() int {
	if p.Unlimited {
		return 0
	}
	return p.WeeklySwipes
}

var MealPlans = []MealPlan{
	{Type: MealPlan8Track, Label: "8-Track", WeeklySwipes: 8},
	{Type: MealPlan13Track, Label: "13-Track", WeeklySwipes: 13},
	{Type: MealPlan18Track, Label: "18-Track", WeeklySwipes: 18},
	{Type: MealPlan21Track, Label: "21-Track", WeeklySwipes: 21},
	{Type: MealPlanUnlimited, Label: "Unlimited", Unlimited: true},
}

// LookupMealPlan returns the catalogue entry for t.
func LookupMealPlan(t MealPlanType) (MealPlan, bool) {
	for _, p := range MealPlans {
		if p.Type == t {
			return p, true
		}
	}
	return MealPlan{}, false
}

type BudgetCategory string

const (
	CategorySelfCareSafety          BudgetCategory = "self-care-safety"
	CategoryHealthWellness          BudgetCategory = "health-wellness"
	CategoryProfessionalDevelopment BudgetCategory = "professional-development"
)

type BudgetCategoryInfo struct {
	Category    BudgetCategory
	Label       string
	Description string
}

var BudgetCategories = []BudgetCategoryInfo{
	{
		Category:    CategorySelfCareSafety,
		Label:       "Self-Care & Safety",
		Description: "Period products, wellness, rideshares, personal security",
	},
	{
		Category:    CategoryHealthWellness,
		Label:       "Health & Wellness",
		Description: "Co-pays, prescriptions, mental health, gym",
	},
	{
		Category:    CategoryProfessionalDevelopment,
		Label:       "Professional Development",
		Description: "Interview clothes, conferences, networking, resume printing",
	},
}

func LookupBudgetCategory(c BudgetCategory) (BudgetCategoryInfo, bool) {
	for _, info := range BudgetCategories {
		if info.Category == c {
			return info, true
		}
	}
	return BudgetCategoryInfo{}, false
}

// OnboardingData is the record captured by the onboarding survey.
type OnboardingData struct {
	MealPlanType           MealPlanType     `json:"mealPlanType"`
	DiningDollarBalance    float64          `json:"diningDollarBalance"`
	MealSwipesRemaining    int              `json:"mealSwipesRemaining"`
	EstimatedMonthlyIncome float64          `json:"estimatedMonthlyIncome"`
	SemesterStartDate      timex.Date       `json:"semesterStartDate"`
	SemesterEndDate        timex.Date       `json:"semesterEndDate"`
	BudgetPreferences      []BudgetCategory `json:"budgetPreferences"`
	CompletedAt            time.Time        `json:"completedAt"`
}

// MarshalJSON always encodes budgetPreferences as an array.
func (d OnboardingData) MarshalJSON() ([]byte, error) {
	type alias OnboardingData
	a := alias(d)
	if a.BudgetPreferences == nil {
		a.BudgetPreferences = []BudgetCategory{}
	}
	return json.Marshal(a)
}

// Validate checks every invariant of the record. Errors wrap
// common.ErrorValidation.
func (d OnboardingData) Validate() error {
	if _, ok := LookupMealPlan(d.MealPlanType); !ok {
		return fmt.Errorf("%w: unknown meal plan %q", common.ErrorValidation, d.MealPlanType)
	}
	if !nonNegative(d.DiningDollarBalance) {
		return fmt.Errorf("%w: dining dollar balance must be >= 0", common.ErrorValidation)
	}
	if d.MealSwipesRemaining < 0 {
		return fmt.Errorf("%w: meal swipes remaining must be >= 0", common.ErrorValidation)
	}
	if !nonNegative(d.EstimatedMonthlyIncome) {
		return fmt.Errorf("%w: estimated monthly income must be >= 0", common.ErrorValidation)
	}
	if d.SemesterStartDate.IsZero() || d.SemesterEndDate.IsZero() {
		return fmt.Errorf("%w: semester dates are required", common.ErrorValidation)
	}
	if d.SemesterEndDate.Before(d.SemesterStartDate) {
		return fmt.Errorf("%w: semester ends before it starts", common.ErrorValidation)
	}

	seen := make(map[BudgetCategory]struct{}, len(d.BudgetPreferences))
	for _, c := range d.BudgetPreferences {
		if _, ok := LookupBudgetCategory(c); !ok {
			return fmt.Errorf("%w: unknown budget category %q", common.ErrorValidation, c)
		}
		if _, dup := seen[c]; dup {
			return fmt.Errorf("%w: duplicate budget category %q", common.ErrorValidation, c)
		}
		seen[c] = struct{}{}
	}

	if d.CompletedAt.IsZero() {
		return fmt.Errorf("%w: completedAt is required", common.ErrorValidation)
	}
	return nil
}

func nonNegative(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
}
