package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/boilerbudget/internal/client/client"
	"github.com/dmitrijs2005/boilerbudget/internal/client/gate"
	"github.com/dmitrijs2005/boilerbudget/internal/client/identity"
	"github.com/dmitrijs2005/boilerbudget/internal/client/onboarding"
	"github.com/dmitrijs2005/boilerbudget/internal/filex"
	"github.com/dmitrijs2005/boilerbudget/internal/models"
	"github.com/dmitrijs2005/boilerbudget/internal/netx"
)

// settlePoll is how often a loading view is re-checked.
const settlePoll = 25 * time.Millisecond

// repl is a read–eval–print loop over the current screen.
//
// Every iteration waits for the router to settle, redraws the screen when
// it changed, then reads one command. Commands depend on the screen:
//
//	login:       signin, register
//	onboarding:  plan <n>, set, toggle <n>, next, back, submit, retry, signout
//	dashboard:   refresh, name <new name>, avatar <file>, signout
//	everywhere:  help, go <route>, quit | exit
//
// Command errors are reported to the user and logged; none of them ends
// the loop.
func (a *App) repl(ctx context.Context) error {
	for {
		v := a.settle(ctx)
		a.syncWizard(v)
		a.show(a.render(v))

		a.console.Print(a.prompt(v))
		line, err := a.console.Line()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		if quit := a.dispatch(ctx, v, parts[0], parts[1:]); quit {
			a.console.Println("Bye!")
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// settle returns the current view once the session has resolved, or the
// loading view if it does not resolve within the request timeout.
func (a *App) settle(ctx context.Context) gate.View {
	v := a.router.Refresh()
	if v.Decision.Action != gate.ActionLoading {
		return v
	}
	a.show(renderLoading())

	views, stop := a.router.Views()
	defer stop()
	ticker := time.NewTicker(settlePoll)
	defer ticker.Stop()
	timeout := time.NewTimer(a.requestTimeout)
	defer timeout.Stop()

	for {
		select {
		case v = <-views:
		case <-ticker.C:
			v = a.router.Refresh()
		case <-timeout.C:
			return v
		case <-ctx.Done():
			return v
		}
		if v.Decision.Action != gate.ActionLoading {
			return v
		}
	}
}

// syncWizard starts a fresh survey on entering onboarding and drops it on
// leaving.
func (a *App) syncWizard(v gate.View) {
	if v.Location == gate.RouteOnboarding && v.Decision.Action == gate.ActionAllow {
		if a.wizard == nil {
			a.wizard = onboarding.New(a.writer, a.session, a.logger).WithClock(a.now)
		}
		return
	}
	a.wizard = nil
}

func (a *App) render(v gate.View) string {
	if v.Decision.Action == gate.ActionLoading {
		return renderLoading()
	}
	switch v.Location {
	case gate.RouteLogin:
		return renderLogin(v.From)
	case gate.RouteOnboarding:
		if a.wizard == nil {
			return renderLoading()
		}
		return renderOnboarding(v.State.Identity, a.wizard.Step(), a.wizard.Draft(), v.Decision.Degraded)
	default:
		return renderDashboard(v.State, v.Decision.Degraded)
	}
}

// show prints a screen unless it is the one already on display.
func (a *App) show(screen string) {
	if screen == a.lastRender {
		return
	}
	a.lastRender = screen
	a.console.Println(screen)
}

func (a *App) prompt(v gate.View) string {
	status := string(v.Location)
	if m := a.Mode(); m != ModeUnknown {
		status = fmt.Sprintf("%s %s", m, status)
	}
	return fmt.Sprintf("bb (%s)> ", status)
}

func (a *App) dispatch(ctx context.Context, v gate.View, cmd string, args []string) bool {
	switch cmd {
	case "exit", "quit":
		return true
	case "help":
		a.help(v)
		return false
	case "go":
		if len(args) != 1 {
			a.console.Println("Usage: go <route>")
			return false
		}
		a.router.Navigate(gate.Route(args[0]))
		return false
	}

	if v.Decision.Action == gate.ActionLoading {
		a.console.Println("Still loading, try again in a moment.")
		return false
	}

	var handled bool
	switch v.Location {
	case gate.RouteLogin:
		handled = a.loginCommand(ctx, cmd)
	case gate.RouteOnboarding:
		handled = a.onboardingCommand(ctx, cmd, args)
	case gate.RouteDashboard:
		handled = a.dashboardCommand(ctx, cmd, args)
	}
	if !handled {
		a.console.Println("Unknown command:", cmd)
	}
	return false
}

func (a *App) help(v gate.View) {
	switch {
	case v.Decision.Action == gate.ActionLoading:
		a.console.Println("Available commands: quit")
	case v.Location == gate.RouteLogin:
		a.console.Println("Available commands: signin, register, go <route>, quit")
	case v.Location == gate.RouteOnboarding:
		a.console.Println("Available commands: plan <n>, set, toggle <n>, next, back, submit, retry, signout, quit")
	default:
		a.console.Println("Available commands: refresh, name <new name>, avatar <file>, signout, go <route>, quit")
	}
}

func (a *App) loginCommand(ctx context.Context, cmd string) bool {
	switch cmd {
	case "signin", "login":
		if err := a.session.SignIn(ctx); err != nil {
			a.reportAuth(ctx, "Sign-in failed", err)
		}
	case "register":
		if err := a.accounts.Register(ctx); err != nil {
			a.reportAuth(ctx, "Registration failed", err)
		}
	default:
		return false
	}
	return true
}

func (a *App) reportAuth(ctx context.Context, msg string, err error) {
	if errors.Is(err, identity.ErrCancelled) {
		a.console.Println("Cancelled.")
		return
	}
	a.logger.Warn(ctx, strings.ToLower(msg), "error", err)
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		a.console.Println(errorStyle.Render(msg + ": wrong email or password."))
	default:
		a.report(msg, err)
	}
}

func (a *App) report(msg string, err error) {
	if errors.Is(err, client.ErrUnavailable) {
		a.console.Println(errorStyle.Render(msg + ": the server is unreachable."))
		return
	}
	a.console.Println(renderError(msg, err))
}

func (a *App) onboardingCommand(ctx context.Context, cmd string, args []string) bool {
	w := a.wizard
	if w == nil {
		return false
	}

	switch cmd {
	case "plan":
		if len(args) != 1 {
			a.console.Println("Usage: plan <number>")
			break
		}
		if err := w.SelectMealPlan(mealPlanArg(args[0])); err != nil {
			a.console.Println(renderError("Unknown meal plan", err))
		}
	case "toggle":
		if len(args) != 1 {
			a.console.Println("Usage: toggle <number>")
			break
		}
		if err := w.TogglePreference(categoryArg(args[0])); err != nil {
			a.console.Println(renderError("Unknown category", err))
		}
	case "set":
		if err := a.fillStep(w); err != nil {
			a.report("Input failed", err)
		}
	case "next":
		switch err := w.Next(); {
		case errors.Is(err, onboarding.ErrLastStep):
			a.console.Println(warnStyle.Render("This is the last step. Type 'submit' to save."))
		case err != nil:
			a.console.Println(warnStyle.Render("Please fill in every field first."))
		}
	case "back":
		w.Back()
	case "submit":
		a.submit(ctx, w)
	case "retry":
		if err := a.session.RefreshProfile(ctx); err != nil {
			a.report("Retry failed", err)
		}
	case "signout", "logout":
		_ = a.session.SignOut(ctx)
	default:
		return false
	}
	return true
}

// fillStep prompts for the fields of the current step.
func (a *App) fillStep(w *onboarding.Wizard) error {
	d := w.Draft()
	switch w.Step() {
	case 2:
		dining, err := a.console.AskDefault("Dining dollar balance", d.DiningDollarBalance)
		if err != nil {
			return err
		}
		swipes, err := a.console.AskDefault("Meal swipes remaining", d.MealSwipesRemaining)
		if err != nil {
			return err
		}
		income, err := a.console.AskDefault("Estimated monthly income", d.EstimatedMonthlyIncome)
		if err != nil {
			return err
		}
		w.SetBalances(dining, swipes, income)
	case 3:
		start, err := a.console.AskDefault("Semester start date (YYYY-MM-DD)", d.SemesterStartDate)
		if err != nil {
			return err
		}
		end, err := a.console.AskDefault("Semester end date (YYYY-MM-DD)", d.SemesterEndDate)
		if err != nil {
			return err
		}
		w.SetSemester(start, end)
	default:
		a.console.Println("Nothing to set on this step.")
	}
	return nil
}

func (a *App) submit(ctx context.Context, w *onboarding.Wizard) {
	ctx, cancel := context.WithTimeout(ctx, a.requestTimeout)
	defer cancel()

	_, err := w.Submit(ctx)
	switch {
	case err == nil:
		a.console.Println(titleStyle.Render("Saved! Taking you to your dashboard."))
	case errors.Is(err, onboarding.ErrNotTerminalStep):
		a.console.Println("Finish every step before submitting.")
	case errors.Is(err, onboarding.ErrSemesterOrder):
		a.console.Println(warnStyle.Render("The semester end date is before the start date. Go back and fix it."))
	default:
		a.report("Could not save your answers", err)
	}
}

func (a *App) dashboardCommand(ctx context.Context, cmd string, args []string) bool {
	switch cmd {
	case "refresh":
		if err := a.session.RefreshProfile(ctx); err != nil {
			a.report("Refresh failed", err)
		}
	case "name":
		if len(args) == 0 {
			a.console.Println("Usage: name <new name>")
			break
		}
		a.rename(ctx, strings.Join(args, " "))
	case "avatar":
		if len(args) != 1 {
			a.console.Println("Usage: avatar <file>")
			break
		}
		if err := a.changeAvatar(ctx, args[0]); err != nil {
			a.report("Avatar upload failed", err)
		}
	case "signout", "logout":
		_ = a.session.SignOut(ctx)
	default:
		return false
	}
	return true
}

func (a *App) rename(ctx context.Context, name string) {
	id := a.session.State().Identity
	if err := a.writer.UpdateProfile(ctx, id, models.ProfileUpdate{DisplayName: &name}); err != nil {
		a.report("Rename failed", err)
		return
	}
	if err := a.session.RefreshProfile(ctx); err != nil {
		a.report("Refresh failed", err)
	}
}

// changeAvatar uploads the image at path and points the profile photo at
// it.
func (a *App) changeAvatar(ctx context.Context, path string) error {
	img, contentType, err := filex.ReadImage(path, filex.MaxAvatarSize)
	if err != nil {
		return err
	}

	_, url, err := a.backend.AvatarUploadURL(ctx)
	if err != nil {
		return err
	}
	if err := netx.PutPresigned(ctx, a.http, url, contentType, img); err != nil {
		return err
	}

	// the provider now reports the new avatar URL
	if err := a.accounts.Reload(ctx); err != nil {
		return err
	}
	id := a.session.State().Identity
	if id == nil || id.Avatar == "" {
		return nil
	}
	if err := a.writer.UpdateProfile(ctx, id, models.ProfileUpdate{PhotoURL: &id.Avatar}); err != nil {
		return err
	}
	a.console.Println("Avatar updated.")
	return nil
}

// mealPlanArg accepts a list number or a plan name.
func mealPlanArg(s string) models.MealPlanType {
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= len(models.MealPlans) {
		return models.MealPlans[n-1].Type
	}
	return models.MealPlanType(strings.ToLower(s))
}

// categoryArg accepts a list number or a category name.
func categoryArg(s string) models.BudgetCategory {
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= len(models.BudgetCategories) {
		return models.BudgetCategories[n-1].Category
	}
	return models.BudgetCategory(strings.ToLower(s))
}
