package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/tempo/internal/timeparsing"
	"github.com/steveyegge/tempo/internal/types"
	"github.com/steveyegge/tempo/internal/utils"
)

// localNow returns the engine clock in the calendar's location, so
// relative expressions like "tomorrow" mean the configured day.
func localNow() time.Time {
	now := eng.Now()
	if loc := eng.Calendar().Location; loc != nil {
		return now.In(loc)
	}
	return now
}

// parsePeriodKind accepts a kind name, its common abbreviation, or the
// underscore spelling.
func parsePeriodKind(s string) (types.PeriodKind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	switch norm {
	case "day", "d":
		norm = string(types.PeriodDaily)
	case "week", "w":
		norm = string(types.PeriodWeekly)
	case "month", "m":
		norm = string(types.PeriodMonthly)
	case "year", "y":
		norm = string(types.PeriodYearly)
	case "once", "onetime":
		norm = string(types.PeriodOneTime)
	}
	kind := types.PeriodKind(norm)
	if !kind.IsValid() {
		names := make([]string, len(types.AllPeriodKinds))
		for i, k := range types.AllPeriodKinds {
			names[i] = string(k)
		}
		return "", fmt.Errorf("unknown period %q (valid: %s)", s, strings.Join(names, ", "))
	}
	return kind, nil
}

// parseInstant parses a --date or --as-of value. Empty means now.
func parseInstant(s string) (time.Time, error) {
	now := localNow()
	if strings.TrimSpace(s) == "" || strings.EqualFold(s, "now") {
		return now, nil
	}
	return timeparsing.ParseRelativeTime(s, now)
}

// resolveID expands an abbreviated item ID.
func resolveID(cmd *cobra.Command, input string) (string, error) {
	return utils.ResolvePartialID(cmd.Context(), store, input)
}

// targetKind returns the --period flag, or the item's home period when the
// flag is unset.
func targetKind(cmd *cobra.Command, itemID string) (types.PeriodKind, error) {
	if s, _ := cmd.Flags().GetString("period"); s != "" {
		return parsePeriodKind(s)
	}
	item, err := eng.GetItem(cmd.Context(), itemID)
	if err != nil {
		return "", err
	}
	return item.HomePeriod, nil
}

// addWindowFlags registers the flags that pick one window of one kind.
func addWindowFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("period", "p", "", "Period kind (default: the item's home period)")
	cmd.Flags().StringP("date", "d", "", "Any time inside the target window (default: now)")
}
