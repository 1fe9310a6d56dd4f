package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"formini/internal/model"
	"formini/internal/service"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create or repair the reserved administrator account",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnvironment(cmd.Context())
		if err != nil {
			return err
		}
		defer env.close()

		report, err := service.NewAdminProvisioner(env.deps, env.cfg.AdminPassword).Reconcile(cmd.Context())
		if err != nil {
			return fmt.Errorf("provision admin: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "admin:                     %s\n", env.deps.Policy.Email())
		fmt.Fprintf(out, "created:                   %t\n", report.Created)
		fmt.Fprintf(out, "repaired:                  %t\n", report.Repaired)
		fmt.Fprintf(out, "stray admins removed:      %d\n", report.StrayAdminsDeleted)
		fmt.Fprintf(out, "instructor fields cleared: %d\n", report.InstructorFieldsCleared)
		return nil
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List instructors awaiting approval",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnvironment(cmd.Context())
		if err != nil {
			return err
		}
		defer env.close()

		pending, err := service.NewAdminService(env.deps).ListPendingInstructors(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEMAIL\tNAME\tPROFESSION\tCV\tREQUESTED")
		for _, p := range pending {
			fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\t%t\t%s\n",
				p.ID, p.Email, p.FirstName, p.LastName, p.CentreProfession, p.HasCV, p.RequestedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <user-id> <active|suspended>",
	Short: "Activate or suspend an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnvironment(cmd.Context())
		if err != nil {
			return err
		}
		defer env.close()

		user, err := service.NewAdminService(env.deps).ToggleUserStatus(cmd.Context(), args[0], model.Status(args[1]))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Email, user.Status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(statusCmd)
}
