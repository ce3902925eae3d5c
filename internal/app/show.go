package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// Show prints the most recently dispatched alerts from the audit trail.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show alert history")
	}
	if closeStore != nil {
		defer closeStore()
	}

	alerts, err := store.ListRecentAlerts(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tMode\tVenue\tSymbol\tChange%\tConditions")

	for _, alert := range alerts {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\n",
			alert.RunTS.UTC().Format(time.RFC3339),
			alert.Mode,
			alert.Venue,
			alert.Symbol,
			alert.ChangePct.StringFixed(2),
			strings.Join(alert.Conditions, ","),
		)
	}

	writer.Flush()
	return nil
}
