// Package fetch implements the one-shot fetch command.
package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/autovisor/visitmon/internal/analytics"
	"github.com/autovisor/visitmon/internal/conf"
	"github.com/autovisor/visitmon/internal/errors"
	"github.com/autovisor/visitmon/internal/sheets"
	"github.com/autovisor/visitmon/internal/visit"
)

const dateLayout = "2006-01-02"

// Command creates the fetch command, which loads the visit form responses
// once and prints aggregate statistics to stdout.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		startDate string
		endDate   string
		dealers   []string
		topIssues int
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch visit responses once and print a summary",
		Long:  "Load the dealer visit form responses from Google Sheets and print visit counts, per dealer totals, issue frequencies, and feature yes percentages.",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := buildFilter(startDate, endDate, dealers)
			if err != nil {
				return err
			}
			return runFetch(cmd.Context(), settings, filter, topIssues)
		},
	}

	cmd.Flags().StringVar(&startDate, "start", "", "Only include visits on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "Only include visits on or before this date (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&dealers, "dealers", nil, "Only include visits for these dealers")
	cmd.Flags().IntVar(&topIssues, "top-issues", 10, "Number of issues to list")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
	}

	return cmd
}

func buildFilter(startDate, endDate string, dealers []string) (analytics.Filter, error) {
	var filter analytics.Filter
	if startDate != "" {
		start, err := time.Parse(dateLayout, startDate)
		if err != nil {
			return filter, errors.Newf("invalid start date %q: %v", startDate, err).
				Category(errors.CategoryValidation).
				Component("fetch").
				Build()
		}
		filter.Start = start
	}
	if endDate != "" {
		end, err := time.Parse(dateLayout, endDate)
		if err != nil {
			return filter, errors.Newf("invalid end date %q: %v", endDate, err).
				Category(errors.CategoryValidation).
				Component("fetch").
				Build()
		}
		filter.End = end
	}
	filter.Dealers = dealers
	return filter, nil
}

func runFetch(ctx context.Context, settings *conf.Settings, filter analytics.Filter, topIssues int) error {
	client, err := sheets.NewClient(ctx, sheets.Config{
		CredentialsFile: settings.Sheets.CredentialsFile,
		CredentialsJSON: settings.Sheets.CredentialsJSON,
		SpreadsheetName: settings.Sheets.SpreadsheetName,
		WorksheetName:   settings.Sheets.WorksheetName,
		Timeout:         time.Duration(settings.Sheets.Timeout) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("initializing sheets client: %w", err)
	}
	defer client.Close()

	loader := visit.NewService(client,
		visit.WithAllowPartial(settings.Sheets.AllowPartial),
	)
	defer visit.Close()

	records, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading visit responses: %w", err)
	}

	records = filter.Apply(records)
	printReport(records, topIssues)
	return nil
}

func printReport(records visit.RecordSet, topIssues int) {
	summary := analytics.Summarize(records)
	fmt.Printf("Total visits:   %d\n", summary.TotalVisits)
	fmt.Printf("Unique dealers: %d\n", summary.UniqueDealers)

	dealerSummary := analytics.DealerSummary(records)
	if len(dealerSummary) > 0 {
		fmt.Println("\nVisits per dealer:")
		for _, d := range dealerSummary {
			code := d.DealerCode
			if code == "" {
				code = "-"
			}
			fmt.Printf("  %-30s %-10s %d\n", d.Dealer, code, d.Visits)
		}
	}

	issues := analytics.IssueFrequency(records)
	if len(issues) > 0 {
		if topIssues > 0 && len(issues) > topIssues {
			issues = issues[:topIssues]
		}
		fmt.Println("\nMost common issues:")
		for _, issue := range issues {
			fmt.Printf("  %-40s %d\n", issue.Issue, issue.Count)
		}
	}

	percentages := analytics.YesPercentages(records)
	if len(percentages) > 0 {
		fmt.Println("\nFeature yes percentages:")
		for _, p := range percentages {
			fmt.Printf("  %-15s %5.1f%%  (%d responses)\n", p.Feature, p.Percent, p.Samples)
		}
	}

	fmt.Println(strings.Repeat("-", 40))
}
