package main

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
	"github.com/aryan0dhankhar/jobmatch/internal/service"
)

var errAborted = errors.New("aborted")

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and save the token",
	Args:  cobra.NoArgs,
	RunE: withLogger(func(cmd *cobra.Command, _ []string, logger *zap.Logger) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			p := promptui.Prompt{Label: "Password", Mask: '*'}
			var err error
			if password, err = p.Run(); err != nil {
				return err
			}
		}

		var res service.AuthResult
		body := map[string]string{"email": email, "password": password}
		if err := client(logger).do(cmd.Context(), "POST", "/api/auth/login", body, &res); err != nil {
			return err
		}
		if err := saveToken(res.Token); err != nil {
			return fmt.Errorf("save token: %w", err)
		}
		logger.Info("logged in", zap.String("user_id", res.UserID), zap.String("role", string(res.Role)))
		return nil
	}),
}

var packagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "Package catalog",
}

var packagesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the active packages",
	Args:  cobra.NoArgs,
	RunE: withLogger(func(cmd *cobra.Command, _ []string, logger *zap.Logger) error {
		var pkgs []domain.Package
		if err := client(logger).do(cmd.Context(), "GET", "/api/packages", nil, &pkgs); err != nil {
			return err
		}
		printPackages(cmd.OutOrStdout(), pkgs)
		return nil
	}),
}

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Company package orders",
}

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the company's orders",
	Args:  cobra.NoArgs,
	RunE: withLogger(func(cmd *cobra.Command, _ []string, logger *zap.Logger) error {
		var orders []domain.Order
		if err := client(logger).do(cmd.Context(), "GET", "/api/company/orders", nil, &orders); err != nil {
			return err
		}
		printOrders(cmd.OutOrStdout(), orders)
		return nil
	}),
}

var ordersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Open a PENDING order for a package",
	Args:  cobra.NoArgs,
	RunE: withLogger(func(cmd *cobra.Command, _ []string, logger *zap.Logger) error {
		packageID, _ := cmd.Flags().GetString("package")
		var order domain.Order
		body := map[string]string{"packageId": packageID}
		if err := client(logger).do(cmd.Context(), "POST", "/api/company/orders", body, &order); err != nil {
			return err
		}
		printOrders(cmd.OutOrStdout(), []domain.Order{order})
		return nil
	}),
}

var ordersPayCmd = &cobra.Command{
	Use:   "pay <order-id>",
	Short: "Pay an order and receive its credits",
	Args:  cobra.ExactArgs(1),
	RunE: withLogger(func(cmd *cobra.Command, args []string, logger *zap.Logger) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			p := promptui.Prompt{Label: fmt.Sprintf("Pay order %s", args[0]), IsConfirm: true}
			if _, err := p.Run(); err != nil {
				return errAborted
			}
		}

		var res service.PaymentResult
		path := "/api/company/orders/" + url.PathEscape(args[0]) + "/pay"
		if err := client(logger).do(cmd.Context(), "POST", path, nil, &res); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "order %s paid: %d credits remaining, package expires %s\n",
			res.Order.ID, res.CreditsRemaining, res.PackageExpiresAt.Format("2006-01-02"))
		return nil
	}),
}

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Show the company's credit balance and current package",
	Args:  cobra.NoArgs,
	RunE: withLogger(func(cmd *cobra.Command, _ []string, logger *zap.Logger) error {
		var sum service.CreditSummary
		if err := client(logger).do(cmd.Context(), "GET", "/api/company/credits", nil, &sum); err != nil {
			return err
		}
		printCredits(cmd.OutOrStdout(), sum)
		return nil
	}),
}

var applicationsCmd = &cobra.Command{
	Use:     "applications",
	Aliases: []string{"apps"},
	Short:   "Job applications",
}

var applicationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List applications visible to the caller",
	Args:  cobra.NoArgs,
	RunE: withLogger(func(cmd *cobra.Command, _ []string, logger *zap.Logger) error {
		q := url.Values{}
		for _, name := range []string{"jobId", "status"} {
			if v, _ := cmd.Flags().GetString(name); v != "" {
				q.Set(name, v)
			}
		}
		path := "/api/applications"
		if len(q) > 0 {
			path += "?" + q.Encode()
		}
		var apps []domain.Application
		if err := client(logger).do(cmd.Context(), "GET", path, nil, &apps); err != nil {
			return err
		}
		printApplications(cmd.OutOrStdout(), apps)
		return nil
	}),
}

var applicationsStatusCmd = &cobra.Command{
	Use:   "status <application-id> <STATUS>",
	Short: "Move an application to a new status",
	Args:  cobra.ExactArgs(2),
	RunE: withLogger(func(cmd *cobra.Command, args []string, logger *zap.Logger) error {
		status, err := domain.ParseApplicationStatus(strings.ToUpper(args[1]))
		if err != nil {
			return err
		}
		var app domain.Application
		path := "/api/applications/" + url.PathEscape(args[0]) + "/status"
		if err := client(logger).do(cmd.Context(), "PUT", path, map[string]string{"status": string(status)}, &app); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "application %s is now %s\n", app.ID, app.Status)
		return nil
	}),
}

var matchCmd = &cobra.Command{
	Use:   "match <job-id>",
	Short: "Show the match criteria of a job and a seeker",
	Args:  cobra.ExactArgs(1),
	RunE: withLogger(func(cmd *cobra.Command, args []string, logger *zap.Logger) error {
		path := "/api/jobs/" + url.PathEscape(args[0]) + "/match"
		if seeker, _ := cmd.Flags().GetString("seeker"); seeker != "" {
			path += "?seekerId=" + url.QueryEscape(seeker)
		}
		var m service.JobMatch
		if err := client(logger).do(cmd.Context(), "GET", path, nil, &m); err != nil {
			return err
		}
		printMatch(cmd.OutOrStdout(), m)
		return nil
	}),
}

func init() {
	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password (prompted when empty)")
	loginCmd.MarkFlagRequired("email")

	ordersCreateCmd.Flags().String("package", "", "package id")
	ordersCreateCmd.MarkFlagRequired("package")
	ordersPayCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")

	applicationsListCmd.Flags().String("jobId", "", "only applications of this job")
	applicationsListCmd.Flags().String("status", "", "only applications in this status")

	matchCmd.Flags().String("seeker", "", "seeker id (company and admin callers)")

	packagesCmd.AddCommand(packagesListCmd)
	ordersCmd.AddCommand(ordersListCmd, ordersCreateCmd, ordersPayCmd)
	applicationsCmd.AddCommand(applicationsListCmd, applicationsStatusCmd)
	rootCmd.AddCommand(loginCmd, packagesCmd, ordersCmd, creditsCmd, applicationsCmd, matchCmd)
}

func printPackages(w io.Writer, pkgs []domain.Package) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tCREDITS")
	for _, p := range pkgs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", p.ID, p.Name, p.Price, p.CreditsIncluded)
	}
	tw.Flush()
}

func printOrders(w io.Writer, orders []domain.Order) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPACKAGE\tAMOUNT\tSTATUS\tCREATED")
	for _, o := range orders {
		pkg := o.PackageName
		if pkg == "" {
			pkg = o.PackageID
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", o.ID, pkg, o.Amount, o.Status, o.CreatedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

func printApplications(w io.Writer, apps []domain.Application) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tJOB\tSEEKER\tSTATUS\tCHANNEL")
	for _, a := range apps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.JobID, a.SeekerID, a.Status, a.Channel)
	}
	tw.Flush()
}

func printCredits(w io.Writer, sum service.CreditSummary) {
	fmt.Fprintf(w, "credits remaining: %d\n", sum.CreditsRemaining)
	if sum.CurrentPackageID == nil {
		fmt.Fprintln(w, "current package:   none")
		return
	}
	name := sum.CurrentPackageName
	if name == "" {
		name = *sum.CurrentPackageID
	}
	fmt.Fprintf(w, "current package:   %s\n", name)
	if sum.PackageExpiresAt != nil {
		fmt.Fprintf(w, "expires:           %s\n", sum.PackageExpiresAt.Format("2006-01-02"))
	}
}

func printMatch(w io.Writer, m service.JobMatch) {
	mark := func(ok bool) string {
		if ok {
			return "yes"
		}
		return "no"
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "area\t%s\n", mark(m.Criteria.AreaMatch))
	fmt.Fprintf(tw, "skills\t%s\n", mark(m.Criteria.SkillsMatch))
	fmt.Fprintf(tw, "job type\t%s\n", mark(m.Criteria.JobTypeMatch))
	fmt.Fprintf(tw, "salary\t%s\n", mark(m.Criteria.SalaryMatch))
	fmt.Fprintf(tw, "transit\t%s\n", mark(m.TransitCompatible))
	fmt.Fprintf(tw, "matched\t%d/4\n", m.MatchCount)
	tw.Flush()
}
