package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/boilerbudget/internal/client/onboarding"
	"github.com/dmitrijs2005/boilerbudget/internal/client/session"
	"github.com/dmitrijs2005/boilerbudget/internal/models"
	"github.com/dmitrijs2005/boilerbudget/internal/timex"
)

func TestGreetingName(t *testing.T) {
	assert.Equal(t, "Boilermaker", greetingName(nil))
	assert.Equal(t, "Boilermaker", greetingName(&models.Identity{ID: "u1"}))
	assert.Equal(t, "Boilermaker", greetingName(&models.Identity{ID: "u1", DisplayName: "   "}))
	assert.Equal(t, "Purdue", greetingName(&models.Identity{ID: "u1", DisplayName: "Purdue Pete"}))
}

func TestRenderOnboarding_Steps(t *testing.T) {
	id := &models.Identity{ID: "u1"}

	s1 := renderOnboarding(id, 1, onboarding.Draft{MealPlan: models.MealPlan13Track}, false)
	assert.Contains(t, s1, "Welcome, Boilermaker!")
	assert.Contains(t, s1, "Step 1/4")
	assert.Contains(t, s1, "[x] 2. 13-Track")
	assert.Contains(t, s1, "(8 swipes/week)")
	assert.Contains(t, s1, "(unlimited swipes)")
	assert.NotContains(t, s1, "could not load")

	s2 := renderOnboarding(id, 2, onboarding.Draft{DiningDollarBalance: "100"}, true)
	assert.Contains(t, s2, "Step 2/4")
	assert.Contains(t, s2, "$100")
	assert.Contains(t, s2, "We could not load your profile.")

	s4 := renderOnboarding(id, 4, onboarding.Draft{BudgetPreferences: []models.BudgetCategory{models.CategorySelfCareSafety}}, false)
	assert.Contains(t, s4, "[x] 1. Self-Care & Safety")
	assert.Contains(t, s4, "[ ] 3. Professional Development")
	assert.Contains(t, s4, "Co-pays, prescriptions, mental health, gym")
}

func TestRenderDashboard(t *testing.T) {
	start, _ := timex.ParseDate("2024-08-19")
	st := session.State{
		Identity: &models.Identity{ID: "u1", DisplayName: "Purdue Pete"},
		Profile: &models.UserProfile{UID: "u1", OnboardingData: &models.OnboardingData{
			MealPlanType:           models.MealPlan18Track,
			DiningDollarBalance:    99.5,
			MealSwipesRemaining:    18,
			EstimatedMonthlyIncome: 1200,
			SemesterStartDate:      start,
			SemesterEndDate:        start.AddDays(120),
			BudgetPreferences:      []models.BudgetCategory{models.CategoryHealthWellness, models.CategoryProfessionalDevelopment},
		}},
		ProfileStatus: session.ProfileFound,
	}

	s := renderDashboard(st, false)
	assert.Contains(t, s, "Hi, Purdue!")
	assert.Contains(t, s, "$99.50")
	assert.Contains(t, s, "$1200.00")
	assert.Contains(t, s, "18-Track")
	assert.Contains(t, s, "2024-08-19 to 2024-12-17")
	assert.Contains(t, s, "Health & Wellness, Professional Development")

	st.Profile.OnboardingData.BudgetPreferences = nil
	assert.Contains(t, renderDashboard(st, false), "none selected")

	assert.Contains(t, renderDashboard(session.State{}, false), "No budget data yet.")
}

func TestArgs(t *testing.T) {
	assert.Equal(t, models.MealPlan8Track, mealPlanArg("1"))
	assert.Equal(t, models.MealPlanUnlimited, mealPlanArg("5"))
	assert.Equal(t, models.MealPlanUnlimited, mealPlanArg("Unlimited"))
	assert.Equal(t, models.MealPlanType("6"), mealPlanArg("6"))

	assert.Equal(t, models.CategoryHealthWellness, categoryArg("2"))
	assert.Equal(t, models.CategorySelfCareSafety, categoryArg("self-care-safety"))
}
