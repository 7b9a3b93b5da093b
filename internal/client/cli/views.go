package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dmitrijs2005/boilerbudget/internal/client/gate"
	"github.com/dmitrijs2005/boilerbudget/internal/client/onboarding"
	"github.com/dmitrijs2005/boilerbudget/internal/client/session"
	"github.com/dmitrijs2005/boilerbudget/internal/models"
)

const greetingFallback = "Boilermaker"

var (
	gold = lipgloss.Color("#CFB991")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(gold)
	labelStyle = lipgloss.NewStyle().Faint(true)
	valueStyle = lipgloss.NewStyle().Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	hintStyle  = lipgloss.NewStyle().Faint(true).Italic(true)
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(gold).
			Padding(0, 1)
)

func greetingName(id *models.Identity) string {
	if id == nil {
		return greetingFallback
	}
	return models.FirstName(&id.DisplayName, greetingFallback)
}

func renderLoading() string {
	return labelStyle.Render("Loading your session...")
}

func renderLogin(from gate.Route) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("BoilerBudget") + "\n")
	b.WriteString("Budgeting for Purdue students. Sign in to continue.\n")
	if from != "" && from != gate.RouteLogin {
		b.WriteString(labelStyle.Render(fmt.Sprintf("You will be taken to %s after signing in.", from)) + "\n")
	}
	b.WriteString(hintStyle.Render("Commands: signin, register, quit"))
	return panelStyle.Render(b.String())
}

func degradedBanner() string {
	return warnStyle.Render("We could not load your profile. Type 'retry' to try again.")
}

func renderOnboarding(id *models.Identity, step int, d onboarding.Draft, degraded bool) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Welcome, %s!", greetingName(id))) + "\n")
	b.WriteString(labelStyle.Render(fmt.Sprintf("Step %d/%d", step, onboarding.LastStep)) + "\n")
	if degraded {
		b.WriteString(degradedBanner() + "\n")
	}
	b.WriteString("\n")

	switch step {
	case 1:
		b.WriteString(valueStyle.Render("Which meal plan do you have?") + "\n")
		for i, p := range models.MealPlans {
			b.WriteString(fmt.Sprintf("  %s %d. %s %s\n", checkbox(p.Type == d.MealPlan), i+1, p.Label, labelStyle.Render(swipesLabel(p))))
		}
		b.WriteString(hintStyle.Render("Commands: plan <number>, next"))
	case 2:
		b.WriteString(valueStyle.Render("Your balances") + "\n")
		b.WriteString(field("Dining dollar balance", money(d.DiningDollarBalance)))
		b.WriteString(field("Meal swipes remaining", orDash(d.MealSwipesRemaining)))
		b.WriteString(field("Estimated monthly income", money(d.EstimatedMonthlyIncome)))
		b.WriteString(hintStyle.Render("Commands: set, next, back"))
	case 3:
		b.WriteString(valueStyle.Render("Your semester") + "\n")
		b.WriteString(field("Start date", orDash(d.SemesterStartDate)))
		b.WriteString(field("End date", orDash(d.SemesterEndDate)))
		b.WriteString(hintStyle.Render("Commands: set, next, back (dates as YYYY-MM-DD)"))
	default:
		b.WriteString(valueStyle.Render("What would you like to budget for?") + "\n")
		for i, c := range models.BudgetCategories {
			selected := false
			for _, p := range d.BudgetPreferences {
				if p == c.Category {
					selected = true
				}
			}
			b.WriteString(fmt.Sprintf("  %s %d. %s\n", checkbox(selected), i+1, c.Label))
			b.WriteString("        " + labelStyle.Render(c.Description) + "\n")
		}
		b.WriteString(hintStyle.Render("Commands: toggle <number>, back, submit"))
	}
	return panelStyle.Render(b.String())
}

func renderDashboard(st session.State, degraded bool) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Hi, %s!", greetingName(st.Identity))) + "\n")
	if degraded {
		b.WriteString(degradedBanner() + "\n")
	}

	if st.Profile == nil || st.Profile.OnboardingData == nil {
		b.WriteString(labelStyle.Render("No budget data yet.") + "\n")
	} else {
		d := st.Profile.OnboardingData
		b.WriteString("\n")
		b.WriteString(field("Dining dollars", fmt.Sprintf("$%.2f", d.DiningDollarBalance)))
		b.WriteString(field("Meal swipes remaining", fmt.Sprintf("%d", d.MealSwipesRemaining)))
		b.WriteString(field("Monthly income", fmt.Sprintf("$%.2f", d.EstimatedMonthlyIncome)))
		b.WriteString(field("Meal plan", mealPlanLabel(d.MealPlanType)))
		b.WriteString(field("Semester", fmt.Sprintf("%s to %s", d.SemesterStartDate, d.SemesterEndDate)))
		b.WriteString(field("Budgeting for", categoriesLabel(d.BudgetPreferences)))
	}
	b.WriteString(hintStyle.Render("Commands: refresh, name <new name>, avatar <file>, signout, quit"))
	return panelStyle.Render(b.String())
}

func field(label, value string) string {
	return fmt.Sprintf("  %s %s\n", labelStyle.Render(label+":"), valueStyle.Render(value))
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func swipesLabel(p models.MealPlan) string {
	if p.Unlimited {
		return "(unlimited swipes)"
	}
	return fmt.Sprintf("(%d swipes/week)", p.WeeklySwipes)
}

func mealPlanLabel(t models.MealPlanType) string {
	if p, ok := models.LookupMealPlan(t); ok {
		return p.Label
	}
	return string(t)
}

func categoriesLabel(cs []models.BudgetCategory) string {
	if len(cs) == 0 {
		return "none selected"
	}
	labels := make([]string, 0, len(cs))
	for _, c := range cs {
		if info, ok := models.LookupBudgetCategory(c); ok {
			labels = append(labels, info.Label)
			continue
		}
		labels = append(labels, string(c))
	}
	return strings.Join(labels, ", ")
}

func money(s string) string {
	if s == "" {
		return "-"
	}
	return "$" + s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func renderError(msg string, err error) string {
	return errorStyle.Render(fmt.Sprintf("%s: %v", msg, err))
}
