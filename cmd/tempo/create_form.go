package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/steveyegge/tempo/internal/timeparsing"
	"github.com/steveyegge/tempo/internal/types"
)

// runCreateForm asks for a new item interactively. It returns nil, nil when
// the user cancels.
func runCreateForm() (*createInput, error) {
	var (
		name        string
		period      = string(types.PeriodOneTime)
		priorityStr = strconv.Itoa(types.DefaultPriority)
		due         string
		monitors    []string
		confirm     = true
	)

	periodOptions := make([]huh.Option[string], 0, len(types.AllPeriodKinds))
	for _, k := range types.AllPeriodKinds {
		periodOptions = append(periodOptions, huh.NewOption(string(k), string(k)))
	}

	priorityOptions := []huh.Option[string]{
		huh.NewOption("P1 - Urgent", "1"),
		huh.NewOption("P2 - High", "2"),
		huh.NewOption("P3 - Focus band", "3"),
		huh.NewOption("P5 - Normal", "5"),
		huh.NewOption("P10 - Backlog (default)", "10"),
	}

	monitorOptions := make([]huh.Option[string], 0, len(types.CalendarKinds))
	for _, k := range types.CalendarKinds {
		monitorOptions = append(monitorOptions, huh.NewOption(string(k), string(k)))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Description("What needs doing (required)").
				Placeholder("e.g., Review quarterly budget").
				Value(&name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("name is required")
					}
					if len(s) > 500 {
						return fmt.Errorf("name must be 500 characters or less")
					}
					return nil
				}),

			huh.NewSelect[string]().
				Title("Home period").
				Description("The window the item is tracked in").
				Options(periodOptions...).
				Value(&period),

			huh.NewSelect[string]().
				Title("Priority").
				Description("1-3 compete for the focus queue").
				Options(priorityOptions...).
				Value(&priorityStr),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("Due date").
				Description("Optional: 2025-07-01, +3d, tomorrow, next friday").
				Value(&due).
				Validate(func(s string) error {
					_, err := timeparsing.ParseDueDate(s, localNow())
					return err
				}),

			huh.NewMultiSelect[string]().
				Title("Also track in").
				Description("Calendar views that count this item (optional)").
				Options(monitorOptions...).
				Value(&monitors),

			huh.NewConfirm().
				Title("Create this item?").
				Affirmative("Create").
				Negative("Cancel").
				Value(&confirm),
		),
	).WithTheme(huh.ThemeDracula())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil, nil
		}
		return nil, fmt.Errorf("form error: %w", err)
	}
	if !confirm {
		return nil, nil
	}

	priority, err := strconv.Atoi(priorityStr)
	if err != nil {
		priority = types.DefaultPriority
	}
	return &createInput{
		Name:     name,
		Period:   period,
		Priority: priority,
		Due:      due,
		Monitor:  strings.Join(monitors, ","),
	}, nil
}
