// Package onboarding implements the four-step onboarding survey as a small
// state machine. Numeric and date answers are kept as typed text until
// submission, where blanks and junk fall back to defaults.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/boilerbudget/internal/client/session"
	"github.com/dmitrijs2005/boilerbudget/internal/logging"
	"github.com/dmitrijs2005/boilerbudget/internal/models"
	"github.com/dmitrijs2005/boilerbudget/internal/timex"
)

const (
	FirstStep = 1
	LastStep  = 4

	// DefaultSemesterDays is the default semester length when no end date
	// is given.
	DefaultSemesterDays = 120
)

var (
	ErrSubmitInProgress = errors.New("onboarding: submission already in progress")
	ErrNotTerminalStep  = errors.New("onboarding: submit is only allowed on the last step")
	ErrNotAuthenticated = errors.New("onboarding: not signed in")
	ErrSemesterOrder    = errors.New("onboarding: semester end date is before start date")
	ErrStepIncomplete   = errors.New("onboarding: step is incomplete")
	ErrLastStep         = errors.New("onboarding: already on the last step")
	ErrUnknownMealPlan  = errors.New("onboarding: unknown meal plan")
	ErrUnknownCategory  = errors.New("onboarding: unknown budget category")
)

// Writer persists the finished record.
type Writer interface {
	UpsertOnboarding(ctx context.Context, id *models.Identity, data models.OnboardingData) error
}

// Session provides the signed-in identity and reloads the profile once the
// record is stored.
type Session interface {
	State() session.State
	RefreshProfile(ctx context.Context) error
}

// Draft holds the answers as entered.
type Draft struct {
	MealPlan               models.MealPlanType
	DiningDollarBalance    string
	MealSwipesRemaining    string
	EstimatedMonthlyIncome string
	SemesterStartDate      string
	SemesterEndDate        string
	BudgetPreferences      []models.BudgetCategory
}

type Wizard struct {
	writer  Writer
	session Session
	logger  logging.Logger
	now     func() time.Time

	mu         sync.Mutex
	step       int
	draft      Draft
	submitting bool
}

func New(w Writer, s Session, l logging.Logger) *Wizard {
	return &Wizard{
		writer:  w,
		session: s,
		logger:  l.With("module", "onboarding"),
		now:     time.Now,
		step:    FirstStep,
		draft:   Draft{MealPlan: models.DefaultMealPlan},
	}
}

// WithClock replaces the time source used for date defaults and
// completedAt.
func (w *Wizard) WithClock(now func() time.Time) *Wizard {
	w.now = now
	return w
}

func (w *Wizard) Step() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Draft returns a copy of the current answers.
func (w *Wizard) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	d := w.draft
	d.BudgetPreferences = slices.Clone(w.draft.BudgetPreferences)
	return d
}

func (w *Wizard) Submitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting
}

// CanProceed reports whether the current step has what it needs.
func (w *Wizard) CanProceed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canProceed()
}

func (w *Wizard) canProceed() bool {
	switch w.step {
	case 2:
		return w.draft.DiningDollarBalance != "" && w.draft.MealSwipesRemaining != "" && w.draft.EstimatedMonthlyIncome != ""
	case 3:
		return w.draft.SemesterStartDate != "" && w.draft.SemesterEndDate != ""
	default:
		return true
	}
}

// Next advances one step. It refuses on the last step or when the current
// step is incomplete.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step >= LastStep {
		return fmt.Errorf("%w: step %d", ErrLastStep, w.step)
	}
	if !w.canProceed() {
		return fmt.Errorf("%w: step %d", ErrStepIncomplete, w.step)
	}
	w.step++
	return nil
}

// Back goes one step back, never below the first.
func (w *Wizard) Back() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step > FirstStep {
		w.step--
	}
}

func (w *Wizard) SelectMealPlan(t models.MealPlanType) error {
	if _, ok := models.LookupMealPlan(t); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMealPlan, t)
	}
	w.mu.Lock()
	w.draft.MealPlan = t
	w.mu.Unlock()
	return nil
}

// SetBalances stores the raw text of the three numeric answers.
func (w *Wizard) SetBalances(dining, swipes, income string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.DiningDollarBalance = strings.TrimSpace(dining)
	w.draft.MealSwipesRemaining = strings.TrimSpace(swipes)
	w.draft.EstimatedMonthlyIncome = strings.TrimSpace(income)
}

// SetSemester stores the raw text of the two dates (YYYY-MM-DD).
func (w *Wizard) SetSemester(start, end string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.SemesterStartDate = strings.TrimSpace(start)
	w.draft.SemesterEndDate = strings.TrimSpace(end)
}

// TogglePreference adds c to the selection, or removes it if present.
func (w *Wizard) TogglePreference(c models.BudgetCategory) error {
	if _, ok := models.LookupBudgetCategory(c); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if i := slices.Index(w.draft.BudgetPreferences, c); i >= 0 {
		w.draft.BudgetPreferences = slices.Delete(w.draft.BudgetPreferences, i, i+1)
		return nil
	}
	w.draft.BudgetPreferences = append(w.draft.BudgetPreferences, c)
	return nil
}

// Submit builds the record, stores it and reloads the session profile.
// While a submission is pending further calls fail with
// ErrSubmitInProgress. On failure the step and draft stay as they were.
func (w *Wizard) Submit(ctx context.Context) (models.OnboardingData, error) {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return models.OnboardingData{}, ErrSubmitInProgress
	}
	if w.step != LastStep {
		w.mu.Unlock()
		return models.OnboardingData{}, ErrNotTerminalStep
	}
	w.submitting = true
	draft := w.draft
	draft.BudgetPreferences = slices.Clone(w.draft.BudgetPreferences)
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.submitting = false
		w.mu.Unlock()
	}()

	data, err := w.submit(ctx, draft)
	if err != nil {
		w.logger.Error(ctx, "onboarding submit failed", "error", err)
		return models.OnboardingData{}, err
	}
	return data, nil
}

func (w *Wizard) submit(ctx context.Context, draft Draft) (models.OnboardingData, error) {
	id := w.session.State().Identity
	if id == nil {
		return models.OnboardingData{}, ErrNotAuthenticated
	}

	data, err := Build(draft, w.now())
	if err != nil {
		return models.OnboardingData{}, err
	}

	if err := w.writer.UpsertOnboarding(ctx, id, data); err != nil {
		return models.OnboardingData{}, err
	}
	if err := w.session.RefreshProfile(ctx); err != nil {
		// the record is stored; the next refresh will show it
		w.logger.Warn(ctx, "profile refresh after onboarding failed", "error", err)
	}
	return data, nil
}

// Build turns a draft into a record, substituting defaults:
// balances and income fall back to 0, swipes to the plan's weekly
// allowance (0 for unlimited), the start date to today and the end date to
// today plus DefaultSemesterDays.
func Build(d Draft, now time.Time) (models.OnboardingData, error) {
	plan, ok := models.LookupMealPlan(d.MealPlan)
	if !ok {
		return models.OnboardingData{}, fmt.Errorf("%w: %q", ErrUnknownMealPlan, d.MealPlan)
	}

	now = now.UTC()
	today := timex.DateOf(now)
	data := models.OnboardingData{
		MealPlanType:           plan.Type,
		DiningDollarBalance:    parseAmount(d.DiningDollarBalance),
		MealSwipesRemaining:    parseCount(d.MealSwipesRemaining, plan.DefaultSwipes()),
		EstimatedMonthlyIncome: parseAmount(d.EstimatedMonthlyIncome),
		SemesterStartDate:      parseDate(d.SemesterStartDate, today),
		SemesterEndDate:        parseDate(d.SemesterEndDate, today.AddDays(DefaultSemesterDays)),
		BudgetPreferences:      dedupe(d.BudgetPreferences),
		CompletedAt:            now,
	}

	if data.SemesterEndDate.Before(data.SemesterStartDate) {
		return models.OnboardingData{}, fmt.Errorf("%w: %s < %s", ErrSemesterOrder, data.SemesterEndDate, data.SemesterStartDate)
	}
	if err := data.Validate(); err != nil {
		return models.OnboardingData{}, err
	}
	return data, nil
}

// parseAmount reads the leading decimal of s, so "12abc" is 12. Anything
// without a leading number, or a negative one, is 0.
func parseAmount(s string) float64 {
	num, ok := leadingNumber(s, true)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// parseCount reads the leading integer of s, so "8.5" is 8. Without one, or
// when it is negative, def is returned. An explicit 0 is kept.
func parseCount(s string, def int) int {
	num, ok := leadingNumber(s, false)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// leadingNumber returns the longest numeric prefix of s after leading
// whitespace: an optional sign and digits, plus a fraction and exponent
// when fraction is set. ok is false when there are no mantissa digits.
func leadingNumber(s string, fraction bool) (string, bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if !fraction {
		return s[:i], digits > 0
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		for j < len(s) && isDigit(s[j]) {
			j++
			digits++
		}
		if digits > 0 {
			i = j
		}
	}
	if digits == 0 {
		return "", false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			i = k
		}
	}
	return s[:i], true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func parseDate(s string, def timex.Date) timex.Date {
	d, err := timex.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return d
}

func dedupe(in []models.BudgetCategory) []models.BudgetCategory {
	out := make([]models.BudgetCategory, 0, len(in))
	for _, c := range in {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}
